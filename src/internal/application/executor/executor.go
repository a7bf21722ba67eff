package executor

import (
	"io"
	"os/exec"

	"github.com/cockroachdb/errors"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

//counterfeiter:generate . Executor
type Executor interface {
	Command(name string, arg ...string) Command
}

// Command is one external process invocation. Streams obtained through the
// pipe methods can be consumed concurrently while the process runs; callers
// must drain them before calling Wait.
type Command interface {
	SetDir(dir string)
	StdoutPipe() (io.ReadCloser, error)
	StderrPipe() (io.ReadCloser, error)
	Start() error
	Wait() error
	CombinedOutput() ([]byte, error)
}

var _ Executor = BinaryFileExecutor{}

type BinaryFileExecutor struct{}

func (e BinaryFileExecutor) Command(name string, arg ...string) Command {
	return &BinaryFileCommand{cmd: exec.Command(name, arg...)}
}

var _ Command = &BinaryFileCommand{}

type BinaryFileCommand struct {
	cmd *exec.Cmd
}

func (b *BinaryFileCommand) SetDir(dir string) {
	b.cmd.Dir = dir
}

func (b *BinaryFileCommand) StdoutPipe() (io.ReadCloser, error) {
	return b.cmd.StdoutPipe()
}

func (b *BinaryFileCommand) StderrPipe() (io.ReadCloser, error) {
	return b.cmd.StderrPipe()
}

func (b *BinaryFileCommand) Start() error {
	return b.cmd.Start()
}

func (b *BinaryFileCommand) Wait() error {
	return b.cmd.Wait()
}

func (b *BinaryFileCommand) CombinedOutput() ([]byte, error) {
	return b.cmd.CombinedOutput()
}

type exitCodeCarrier interface {
	ExitCode() int
}

// ExitCode extracts the process exit status from an error returned by Wait
// or CombinedOutput. ok is false when the error isn't an exit status at all,
// e.g. the binary could not be started.
func ExitCode(err error) (int, bool) {
	var carrier exitCodeCarrier
	if errors.As(err, &carrier) {
		code := carrier.ExitCode()
		if code >= 0 {
			return code, true
		}
	}

	return 0, false
}
