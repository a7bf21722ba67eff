package dummy

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/resonate-audio/stem-worker/src/internal/application/executor"
)

var _ executor.Executor = &DemucsExecutor{}

func NewDummyDemucsExecutor() *DemucsExecutor {
	return &DemucsExecutor{
		StemsToProduce: []string{"vocals", "drums", "bass", "other", "piano", "guitar"},
		StdoutText:     "Separating track\n",
		ProgressChunks: []string{
			"  0%|          | 0/100\r",
			" 50%|#####     | 50/100\r",
			"100%|##########| 100/100\r",
		},
	}
}

// DemucsExecutor stands in for the real engine binary. It honors the same
// invocation contract: `-n <model> --out <root> <input>`, stems written to
// {root}/{model}/{input base sans ext}/{stem}.wav, progress meter on stderr.
type DemucsExecutor struct {
	// ExitCode, when non-zero, makes the run fail after streaming stderr.
	ExitCode int

	// SkipOutput suppresses the output tree entirely, exit code
	// notwithstanding.
	SkipOutput bool

	StemsToProduce []string
	StdoutText     string
	ProgressChunks []string

	mutex         sync.Mutex
	stdoutDrained bool
}

// StdoutDrained reports whether the last run's stdout was read through to
// EOF. A real engine blocks on a full pipe, so an undrained stdout means a
// wedged process.
func (d *DemucsExecutor) StdoutDrained() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.stdoutDrained
}

func (d *DemucsExecutor) markStdoutDrained() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.stdoutDrained = true
}

func (d *DemucsExecutor) Command(name string, arg ...string) executor.Command {
	return &demucsCommand{
		executor: d,
		args:     arg,
	}
}

var _ executor.Command = &demucsCommand{}

type demucsCommand struct {
	executor *DemucsExecutor
	args     []string
}

func (d *demucsCommand) SetDir(dir string) {}

func (d *demucsCommand) StdoutPipe() (io.ReadCloser, error) {
	return io.NopCloser(&eofNotifyReader{
		inner: strings.NewReader(d.executor.StdoutText),
		onEOF: d.executor.markStdoutDrained,
	}), nil
}

// eofNotifyReader flags when its inner reader has been fully consumed.
type eofNotifyReader struct {
	inner io.Reader
	onEOF func()
}

func (e *eofNotifyReader) Read(p []byte) (int, error) {
	n, err := e.inner.Read(p)
	if err == io.EOF {
		e.onEOF()
	}
	return n, err
}

func (d *demucsCommand) StderrPipe() (io.ReadCloser, error) {
	// one meter update per read, the way a real pipe dribbles them out
	return io.NopCloser(&chunkedReader{chunks: d.executor.ProgressChunks}), nil
}

type chunkedReader struct {
	chunks []string
	index  int
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	if c.index >= len(c.chunks) {
		return 0, io.EOF
	}

	n := copy(p, c.chunks[c.index])
	c.index++
	return n, nil
}

func (d *demucsCommand) Start() error {
	_, _, _, err := d.parseArgs()
	return err
}

func (d *demucsCommand) Wait() error {
	model, outRoot, inputPath, err := d.parseArgs()
	if err != nil {
		return err
	}

	if d.executor.ExitCode != 0 {
		return exitError{code: d.executor.ExitCode}
	}

	if d.executor.SkipOutput {
		return nil
	}

	baseName := filepath.Base(inputPath)
	baseName = strings.TrimSuffix(baseName, filepath.Ext(baseName))
	outputDir := filepath.Join(outRoot, model, baseName)

	if err := os.MkdirAll(outputDir, os.ModePerm); err != nil {
		return err
	}

	for _, stemName := range d.executor.StemsToProduce {
		stemPath := filepath.Join(outputDir, stemName+".wav")
		contents := []byte(stemName + " audio data")
		if err := os.WriteFile(stemPath, contents, os.ModePerm); err != nil {
			return err
		}
	}

	return nil
}

func (d *demucsCommand) CombinedOutput() ([]byte, error) {
	return nil, errors.New("unexpected CombinedOutput call on the engine command")
}

func (d *demucsCommand) parseArgs() (model string, outRoot string, inputPath string, err error) {
	if len(d.args) != 5 || d.args[0] != "-n" || d.args[2] != "--out" {
		return "", "", "", errors.Newf("unexpected engine args: %v", d.args)
	}

	return d.args[1], d.args[3], d.args[4], nil
}
