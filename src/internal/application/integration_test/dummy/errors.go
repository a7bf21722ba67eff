package dummy

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var NetworkFailure = errors.New("the network is down")
var NotFound = errors.New("object not found")

// exitError mimics the error shape a real process runner returns for a
// non-zero exit.
type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("process exited with code %d", e.code)
}

func (e exitError) ExitCode() int {
	return e.code
}
