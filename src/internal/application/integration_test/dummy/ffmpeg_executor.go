package dummy

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/resonate-audio/stem-worker/src/internal/application/executor"
)

var _ executor.Executor = &FFmpegExecutor{}

func NewDummyFFmpegExecutor() *FFmpegExecutor {
	return &FFmpegExecutor{}
}

// FFmpegExecutor stands in for the transcoder binary. The invocation
// contract is `-y -i <src> -b:a <bitrate> <dest>`; the produced file is the
// source bytes behind an mp3 marker so tests can tell the formats apart.
type FFmpegExecutor struct {
	// ExitCode, when non-zero, fails the transcode.
	ExitCode int

	// SkipOutput makes the run exit cleanly without producing the
	// destination file.
	SkipOutput bool

	FailureOutput string
}

func (f *FFmpegExecutor) Command(name string, arg ...string) executor.Command {
	return &ffmpegCommand{
		executor: f,
		args:     arg,
	}
}

// TranscodedContent is what the dummy transcoder would produce for the
// given source bytes.
func TranscodedContent(srcContents []byte) []byte {
	return append([]byte("mp3:"), srcContents...)
}

var _ executor.Command = &ffmpegCommand{}

type ffmpegCommand struct {
	executor *FFmpegExecutor
	args     []string
}

func (f *ffmpegCommand) SetDir(dir string) {}

func (f *ffmpegCommand) StdoutPipe() (io.ReadCloser, error) {
	return nil, errors.New("unexpected StdoutPipe call on the transcoder command")
}

func (f *ffmpegCommand) StderrPipe() (io.ReadCloser, error) {
	return nil, errors.New("unexpected StderrPipe call on the transcoder command")
}

func (f *ffmpegCommand) Start() error {
	return errors.New("unexpected Start call on the transcoder command")
}

func (f *ffmpegCommand) Wait() error {
	return errors.New("unexpected Wait call on the transcoder command")
}

func (f *ffmpegCommand) CombinedOutput() ([]byte, error) {
	if len(f.args) != 6 || f.args[0] != "-y" || f.args[1] != "-i" || f.args[3] != "-b:a" {
		return nil, errors.Newf("unexpected transcoder args: %v", f.args)
	}

	srcPath := f.args[2]
	destPath := f.args[5]

	if f.executor.ExitCode != 0 {
		return []byte(f.executor.FailureOutput), exitError{code: f.executor.ExitCode}
	}

	srcContents, err := os.ReadFile(srcPath)
	if err != nil {
		return nil, exitError{code: 1}
	}

	if f.executor.SkipOutput {
		return []byte{}, nil
	}

	if err := os.WriteFile(destPath, TranscodedContent(srcContents), os.ModePerm); err != nil {
		return nil, err
	}

	return []byte{}, nil
}
