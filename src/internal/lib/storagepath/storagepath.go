package storagepath

import "fmt"

// Generator computes the artifact layout shared by both storage modes:
// {releaseId}/{trackId}/{fileName}, optionally under a fixed prefix
// ("stems" for object storage keys).
type Generator struct {
	Prefix string
}

func (g Generator) GeneratePath(releaseID string, trackID string, fileName string) string {
	if g.Prefix == "" {
		return fmt.Sprintf("%s/%s/%s", releaseID, trackID, fileName)
	}

	return fmt.Sprintf("%s/%s/%s/%s", g.Prefix, releaseID, trackID, fileName)
}
