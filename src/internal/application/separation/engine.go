package separation

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/resonate-audio/stem-worker/src/internal/application/executor"
	"github.com/resonate-audio/stem-worker/src/internal/application/progress"
	"github.com/resonate-audio/stem-worker/src/shared/lib/cerr"
)

// DefaultModel is the six-stem high quality model.
const DefaultModel = "htdemucs_6s"

// how much trailing stderr to attach to a failure
const diagnosticTailLen = 2000

//counterfeiter:generate . Engine
type Engine interface {
	Separate(ctx context.Context, inputPath string, outRoot string, sink progress.Sink) error
	OutputDir(outRoot string, inputPath string) string
}

var _ Engine = DemucsEngine{}

func NewDemucsEngine(binPath string, model string, executor executor.Executor) DemucsEngine {
	if model == "" {
		model = DefaultModel
	}

	return DemucsEngine{
		binPath:  binPath,
		model:    model,
		executor: executor,
	}
}

type DemucsEngine struct {
	binPath  string
	model    string
	executor executor.Executor
}

// Separate runs the engine over inputPath, writing its output tree under
// outRoot. stdout is drained and logged, stderr is scraped for progress and
// reported to sink while the run is in flight; the call returns only after
// both streams hit EOF and the process has exited. A non-zero exit comes
// back marked SeparationFailed with the stderr tail attached.
func (d DemucsEngine) Separate(ctx context.Context, inputPath string, outRoot string, sink progress.Sink) error {
	logger := log.WithFields(log.Fields{
		"input_path": inputPath,
		"out_root":   outRoot,
		"model":      d.model,
	})

	args := []string{"-n", d.model, "--out", outRoot, inputPath}
	errctx := cerr.Field("demucs_bin_path", d.binPath).Field("demucs_args", args)

	cmd := d.executor.Command(d.binPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errctx.Wrap(err).Error("Failed to open the engine stdout pipe")
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return errctx.Wrap(err).Error("Failed to open the engine stderr pipe")
	}

	logger.Info("Running separation engine")

	if err := cmd.Start(); err != nil {
		return errctx.Wrap(err).Error("Failed to start the separation engine")
	}

	var stderrText string
	waitGroup := sync.WaitGroup{}
	waitGroup.Add(2)

	go func() {
		defer waitGroup.Done()
		drainStdout(logger, stdout)
	}()

	go func() {
		defer waitGroup.Done()
		stderrText = streamProgress(ctx, stderr, sink)
	}()

	// both pipes must reach EOF before Wait reaps the process
	waitGroup.Wait()
	waitErr := cmd.Wait()

	if waitErr != nil {
		if exitCode, ok := executor.ExitCode(waitErr); ok {
			diagnostic := tail(stderrText, diagnosticTailLen)
			failure := errctx.Field("exit_code", exitCode).Field("stderr", diagnostic).
				Wrap(waitErr).
				Error(fmt.Sprintf("Separation engine exited with code %d: %s", exitCode, diagnostic))
			return errors.Mark(failure, SeparationFailed)
		}

		return errctx.Wrap(waitErr).Error("Failed to wait on the separation engine")
	}

	logger.Info("Separation engine finished")
	return nil
}

// OutputDir is where the engine's invocation contract places the produced
// stems: {outRoot}/{model}/{input base name sans extension}.
func (d DemucsEngine) OutputDir(outRoot string, inputPath string) string {
	baseName := filepath.Base(inputPath)
	baseName = strings.TrimSuffix(baseName, filepath.Ext(baseName))

	return filepath.Join(outRoot, d.model, baseName)
}

// drainStdout consumes stdout to EOF in bounded chunks. The engine can emit
// arbitrarily long unbroken output; leaving any of it unread fills the OS
// pipe and blocks the process, so the drain must never stop early.
func drainStdout(logger *log.Entry, stdout io.ReadCloser) {
	chunk := make([]byte, 4096)
	for {
		n, err := stdout.Read(chunk)
		if n > 0 {
			for _, line := range strings.Split(string(chunk[:n]), "\n") {
				if line != "" {
					logger.Debug(line)
				}
			}
		}
		if err != nil {
			return
		}
	}
}

// streamProgress reads stderr in small chunks because the engine's meter is
// carriage-return delimited, not line delimited. Returns everything read
// for diagnostics.
func streamProgress(ctx context.Context, stderr io.ReadCloser, sink progress.Sink) string {
	extractor := progress.NewExtractor()
	collected := strings.Builder{}

	chunk := make([]byte, 256)
	for {
		n, err := stderr.Read(chunk)
		if n > 0 {
			text := string(chunk[:n])
			collected.WriteString(text)

			if percentage, changed := extractor.Consume(text); changed {
				log.WithField("progress", percentage).Info("Separation progress")
				sink.ReportProgress(ctx, percentage)
			}
		}
		if err != nil {
			break
		}
	}

	return collected.String()
}

func tail(text string, limit int) string {
	if len(text) <= limit {
		return text
	}

	return text[len(text)-limit:]
}
