package separation

import "github.com/cockroachdb/errors"

// Job-level error marks, checked with errors.Is.
var (
	// SeparationFailed: the engine exited non-zero. Fatal for the job.
	SeparationFailed = errors.New("separation engine failed")

	// OutputLayoutMismatch: the engine exited cleanly but its output tree
	// is not where its invocation contract says it should be. Indicates
	// environment drift, fatal for the job.
	OutputLayoutMismatch = errors.New("separation output layout mismatch")

	// TranscodeFailed: one stem could not be compressed. Per-stem,
	// non-fatal; governed by the fallback policy.
	TranscodeFailed = errors.New("stem transcoding failed")
)
