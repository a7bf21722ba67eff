package separation

import (
	"context"
	"os"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/resonate-audio/stem-worker/src/internal/application/executor"
	"github.com/resonate-audio/stem-worker/src/shared/lib/cerr"
)

const mp3Bitrate = "320k"

//counterfeiter:generate . Encoder
type Encoder interface {
	EncodeMP3(ctx context.Context, srcPath string, destPath string) error
}

var _ Encoder = FFmpegEncoder{}

func NewFFmpegEncoder(binPath string, executor executor.Executor) FFmpegEncoder {
	return FFmpegEncoder{
		binPath:  binPath,
		executor: executor,
	}
}

type FFmpegEncoder struct {
	binPath  string
	executor executor.Executor
}

// EncodeMP3 compresses one intermediate stem. A non-zero exit, or a clean
// exit that produced no output file, comes back marked TranscodeFailed.
func (f FFmpegEncoder) EncodeMP3(ctx context.Context, srcPath string, destPath string) error {
	logger := log.WithFields(log.Fields{
		"src_path":  srcPath,
		"dest_path": destPath,
	})

	args := []string{"-y", "-i", srcPath, "-b:a", mp3Bitrate, destPath}
	errctx := cerr.Field("ffmpeg_bin_path", f.binPath).Field("ffmpeg_args", args)

	logger.Info("Compressing stem to MP3")

	cmd := f.executor.Command(f.binPath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if exitCode, ok := executor.ExitCode(err); ok {
			failure := errctx.Field("exit_code", exitCode).Field("ffmpeg_output", string(output)).
				Wrap(err).Error("ffmpeg exited with a failure")
			return errors.Mark(failure, TranscodeFailed)
		}

		return errctx.Wrap(err).Error("Failed to run ffmpeg")
	}

	if _, statErr := os.Stat(destPath); statErr != nil {
		failure := errctx.Wrap(statErr).Error("ffmpeg exited cleanly but produced no output file")
		return errors.Mark(failure, TranscodeFailed)
	}

	return nil
}
