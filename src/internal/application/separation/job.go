package separation

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/resonate-audio/stem-worker/src/internal/application/progress"
	"github.com/resonate-audio/stem-worker/src/internal/application/stem_storage"
	"github.com/resonate-audio/stem-worker/src/shared/lib/cerr"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

// StemNames is the full set the engine may produce. vocals/drums/bass/other
// come out of every model; piano and guitar only from the six-stem one.
var StemNames = []string{"vocals", "drums", "bass", "other", "piano", "guitar"}

type FallbackPolicy string

const (
	// FallbackStoreIntermediate persists the uncompressed WAV when
	// transcoding a stem fails.
	FallbackStoreIntermediate FallbackPolicy = "wav"

	// FallbackOmit leaves the stem out of the result instead.
	FallbackOmit FallbackPolicy = "omit"
)

func ParseFallbackPolicy(value string) (FallbackPolicy, error) {
	switch value {
	case string(FallbackStoreIntermediate):
		return FallbackStoreIntermediate, nil
	case string(FallbackOmit):
		return FallbackOmit, nil
	default:
		return "", cerr.Field("fallback_policy", value).Error("Value does not match any fallback policy")
	}
}

// StemReferences maps a stem name to its stored artifact reference.
type StemReferences = map[string]string

type Request struct {
	ReleaseID string
	TrackID   string

	// InputPath is a local audio file; OutRoot is a scratch directory owned
	// by the caller for the duration of the job.
	InputPath string
	OutRoot   string

	Sink progress.Sink
}

func NewTrackSeparator(engine Engine, encoder Encoder, backend stem_storage.Backend, fallback FallbackPolicy) TrackSeparator {
	return TrackSeparator{
		engine:   engine,
		encoder:  encoder,
		backend:  backend,
		fallback: fallback,
	}
}

type TrackSeparator struct {
	engine   Engine
	encoder  Encoder
	backend  stem_storage.Backend
	fallback FallbackPolicy
}

// SeparateTrack drives the engine over the input and stores every produced
// stem, MP3-compressed when possible. A single stem's transcode or persist
// failure skips that stem without failing the job. An engine run that
// produces zero recognized stems is a success with an empty map - the
// result consumer treats failures as retryable and an empty production
// would never improve on redelivery.
func (t TrackSeparator) SeparateTrack(ctx context.Context, request Request) (StemReferences, error) {
	errctx := cerr.Fields(cerr.F{
		"release_id": request.ReleaseID,
		"track_id":   request.TrackID,
		"input_path": request.InputPath,
	})

	sink := request.Sink
	if sink == nil {
		sink = progress.NoopSink{}
	}

	if err := t.engine.Separate(ctx, request.InputPath, request.OutRoot, sink); err != nil {
		return nil, errctx.Wrap(err).Error("Separation engine run failed")
	}

	outputDir := t.engine.OutputDir(request.OutRoot, request.InputPath)
	if _, err := os.Stat(outputDir); err != nil {
		mismatch := errctx.Field("output_dir", outputDir).
			Wrap(err).Error("Separation output directory not found")
		return nil, errors.Mark(mismatch, OutputLayoutMismatch)
	}

	references := StemReferences{}

	for _, stemName := range StemNames {
		wavPath := filepath.Join(outputDir, stemName+".wav")
		if _, err := os.Stat(wavPath); err != nil {
			// not every model variant produces every stem
			continue
		}

		reference, stored, err := t.storeStem(ctx, request, stemName, wavPath)
		if err != nil {
			cerr.Log(errctx.Field("stem", stemName).
				Wrap(err).Error("Failed to store stem, skipping it"))
			continue
		}
		if !stored {
			continue
		}

		references[stemName] = reference
	}

	return references, nil
}

// storeStem transcodes and persists one produced stem. stored is false when
// the fallback policy omitted it.
func (t TrackSeparator) storeStem(ctx context.Context, request Request, stemName string, wavPath string) (string, bool, error) {
	logger := log.WithFields(log.Fields{
		"release_id": request.ReleaseID,
		"track_id":   request.TrackID,
		"stem":       stemName,
	})

	mp3Path := strings.TrimSuffix(wavPath, filepath.Ext(wavPath)) + ".mp3"

	encodeErr := t.encoder.EncodeMP3(ctx, wavPath, mp3Path)
	if encodeErr == nil {
		reference, err := t.backend.Persist(ctx, mp3Path, request.ReleaseID, request.TrackID, stemName+".mp3")
		if err != nil {
			return "", false, err
		}

		logger.Info("Stored stem")
		return reference, true, nil
	}

	if !errors.Is(encodeErr, TranscodeFailed) {
		return "", false, encodeErr
	}

	cerr.Log(cerr.Field("stem", stemName).
		Wrap(encodeErr).Error("Transcoding failed, applying fallback policy"))

	if t.fallback == FallbackOmit {
		logger.Warn("Omitting stem after transcode failure")
		return "", false, nil
	}

	reference, err := t.backend.Persist(ctx, wavPath, request.ReleaseID, request.TrackID, stemName+".wav")
	if err != nil {
		return "", false, err
	}

	logger.Warn("Stored uncompressed stem after transcode failure")
	return reference, true, nil
}
