package stem_storage

import (
	"context"

	"github.com/cockroachdb/errors"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

// StorageFailure marks any transport or filesystem error raised by a
// storage backend. Check with errors.Is.
var StorageFailure = errors.New("storage operation failed")

// Backend materializes job inputs and persists stem artifacts. Both
// operations are synchronous: Materialize returns only once the local file
// is complete, Persist only once the artifact is durably stored.
//
//counterfeiter:generate . Backend
type Backend interface {
	// Materialize makes the referenced input available as a local file,
	// downloading into destDir when the reference is remote. A reference
	// that is already a local path is returned as is.
	Materialize(ctx context.Context, ref string, destDir string) (string, error)

	// Persist stores one stem file under the backend's artifact layout and
	// returns its addressable reference.
	Persist(ctx context.Context, localPath string, releaseID string, trackID string, fileName string) (string, error)
}
