// Package batch turns a manifest of jobs into avatars.
package batch

import (
	"context"
	"image"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/menta2k/avatar-crop/pkg/analyzer"
	"github.com/menta2k/avatar-crop/pkg/cropper"
	"github.com/menta2k/avatar-crop/pkg/detection"
	"github.com/menta2k/avatar-crop/pkg/processing"
	"github.com/menta2k/avatar-crop/pkg/storage"
	"github.com/menta2k/avatar-crop/pkg/types"
)

// Outcome describes a finished avatar. DebugErr is set when the avatar was
// stored but its debug overlay was not.
type Outcome struct {
	Size      types.ImageSize     `json:"size"`
	Faces     []types.FaceBox     `json:"faces,omitempty"`
	Selected  *types.FaceBox      `json:"selected,omitempty"`
	Fallback  bool                `json:"fallback"`
	Rect      types.CropRectangle `json:"rect"`
	OutputKey string              `json:"output_key"`
	Bytes     int                 `json:"bytes"`
	DebugKey  string              `json:"debug_key,omitempty"`
	DebugErr  string              `json:"debug_error,omitempty"`
	Duration  time.Duration       `json:"duration"`
}

// Result is the outcome of one job. Exactly one of Outcome and Err is set.
type Result struct {
	Index   int       `json:"index"`
	Job     Job       `json:"job"`
	Outcome *Outcome  `json:"outcome,omitempty"`
	Kind    ErrorKind `json:"kind,omitempty"`
	Err     error     `json:"-"`
}

// OK reports whether the job produced an avatar
func (r Result) OK() bool {
	return r.Err == nil
}

// Runner processes jobs concurrently
type Runner struct {
	Storage     storage.Storage
	Detector    detection.FaceDetector
	Processor   *processing.Processor
	Analyzer    *analyzer.ImageAnalyzer
	Output      types.OutputConfig
	Concurrency int
	Debug       bool
	Metrics     *Metrics
	Logger      *zap.Logger
}

// NewRunner creates a Runner writing to store
func NewRunner(store storage.Storage, options ...Option) *Runner {
	r := &Runner{
		Storage:     store,
		Detector:    detection.None,
		Processor:   processing.NewProcessor(),
		Analyzer:    analyzer.New(),
		Output:      types.OutputConfig{Format: "webp", Quality: 90},
		Concurrency: 4,
		Logger:      zap.NewNop(),
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Run processes every job and returns one Result per job in input order.
// A failing job never stops the others. Jobs not started before ctx is done
// are reported as canceled.
func (r *Runner) Run(ctx context.Context, jobs []Job) []Result {
	runID := uuid.NewString()
	logger := r.Logger.With(zap.String("run_id", runID))
	logger.Info("batch start", zap.Int("jobs", len(jobs)), zap.Int("concurrency", r.Concurrency))
	start := time.Now()

	results := make([]Result, len(jobs))
	g := &errgroup.Group{}
	if r.Concurrency > 0 {
		g.SetLimit(r.Concurrency)
	}
	for i, job := range jobs {
		if ctx.Err() != nil {
			results[i] = r.finish(logger, i, job, nil, &Error{Kind: KindCanceled, Err: ctx.Err()}, 0)
			continue
		}
		g.Go(func() error {
			t := time.Now()
			outcome, err := r.runJob(ctx, logger.With(zap.Int("job", i), zap.String("source", job.Source)), job)
			results[i] = r.finish(logger, i, job, outcome, err, time.Since(t))
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, res := range results {
		if !res.OK() {
			failed++
		}
	}
	logger.Info("batch done",
		zap.Int("ok", len(jobs)-failed),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(start)))
	return results
}

func (r *Runner) finish(logger *zap.Logger, i int, job Job, outcome *Outcome, err *Error, d time.Duration) Result {
	res := Result{Index: i, Job: job, Outcome: outcome}
	if err != nil {
		res.Outcome = nil
		res.Kind = err.Kind
		res.Err = err
		logger.Warn("job failed",
			zap.Int("job", i),
			zap.String("source", job.Source),
			zap.String("kind", string(err.Kind)),
			zap.Error(err.Err))
	} else {
		outcome.Duration = d
	}
	r.Metrics.observe(res, d)
	return res
}

func (r *Runner) runJob(ctx context.Context, logger *zap.Logger, job Job) (*Outcome, *Error) {
	if err := job.Validate(); err != nil {
		return nil, &Error{Kind: KindInvalidInput, Err: err}
	}
	out := job.outputFor(r.Output)
	filter, err := cropper.Filter(out.Filter)
	if err != nil {
		return nil, &Error{Kind: KindInvalidInput, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &Error{Kind: KindCanceled, Err: err}
	}

	img, err := r.Processor.LoadImageSmart(ctx, job.Source)
	if err != nil {
		return nil, newError(ctx, KindLoad, err)
	}
	if err := r.Analyzer.ValidateImage(img); err != nil {
		return nil, &Error{Kind: KindInvalidInput, Err: err}
	}

	outcome := &Outcome{Size: types.SizeOf(img), OutputKey: job.Destination}
	var face *types.FaceBox
	if job.mode() == ModeFace {
		faces, err := r.Detector.DetectFaces(ctx, img)
		if err != nil {
			return nil, newError(ctx, KindDetect, err)
		}
		outcome.Faces = faces
		if selected, ok := cropper.SelectFace(faces); ok {
			face = &selected
			outcome.Selected = face
		} else if job.RequireFace {
			return nil, &Error{Kind: KindNoFace, Err: ErrNoFace}
		} else {
			outcome.Fallback = true
			logger.Debug("no face found, using anchor")
		}
	}

	rect, err := cropper.Compute(outcome.Size, face, job.Crop)
	if err != nil {
		return nil, &Error{Kind: KindCrop, Err: err}
	}
	outcome.Rect = rect

	// crop coordinates are relative to the image origin
	avatar, err := cropper.CropImage(img, rect, job.Crop.OutputSize, filter)
	if err != nil {
		return nil, &Error{Kind: KindCrop, Err: err}
	}
	data, err := r.Processor.EncodeImage(avatar, out)
	if err != nil {
		return nil, &Error{Kind: KindEncode, Err: err}
	}
	if err := r.Storage.Put(ctx, job.Destination, data); err != nil {
		return nil, newError(ctx, KindStore, err)
	}
	outcome.Bytes = len(data)

	if r.Debug {
		key, err := r.writeDebug(ctx, img, outcome)
		if err != nil {
			outcome.DebugErr = err.Error()
			logger.Warn("debug overlay failed", zap.String("kind", string(err.Kind)), zap.Error(err.Err))
		} else {
			outcome.DebugKey = key
		}
	}

	logger.Info("avatar written",
		zap.String("destination", job.Destination),
		zap.Int("faces", len(outcome.Faces)),
		zap.Bool("fallback", outcome.Fallback),
		zap.Any("rect", rect))
	return outcome, nil
}

func (r *Runner) writeDebug(ctx context.Context, img image.Image, outcome *Outcome) (string, *Error) {
	overlay := r.Processor.CreateDebugOverlay(img, outcome.Faces, outcome.Selected, outcome.Rect)
	data, err := r.Processor.EncodeImage(overlay, types.OutputConfig{Format: "png"})
	if err != nil {
		return "", &Error{Kind: KindEncode, Err: err}
	}
	key := DebugKey(outcome.OutputKey)
	if err := r.Storage.Put(ctx, key, data); err != nil {
		return "", newError(ctx, KindStore, err)
	}
	return key, nil
}
