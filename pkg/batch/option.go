package batch

import (
	"go.uber.org/zap"

	"github.com/menta2k/avatar-crop/pkg/analyzer"
	"github.com/menta2k/avatar-crop/pkg/detection"
	"github.com/menta2k/avatar-crop/pkg/processing"
	"github.com/menta2k/avatar-crop/pkg/types"
)

// Option Runner option
type Option func(r *Runner)

// WithDetector with face detector option
func WithDetector(detector detection.FaceDetector) Option {
	return func(r *Runner) {
		if detector != nil {
			r.Detector = detector
		}
	}
}

// WithProcessor with image processor option
func WithProcessor(processor *processing.Processor) Option {
	return func(r *Runner) {
		if processor != nil {
			r.Processor = processor
		}
	}
}

// WithAnalyzer with image analyzer option
func WithAnalyzer(a *analyzer.ImageAnalyzer) Option {
	return func(r *Runner) {
		if a != nil {
			r.Analyzer = a
		}
	}
}

// WithOutput with default output encoding option
func WithOutput(out types.OutputConfig) Option {
	return func(r *Runner) {
		if out.Format != "" {
			r.Output.Format = out.Format
		}
		if out.Quality > 0 {
			r.Output.Quality = out.Quality
		}
		r.Output.Lossless = out.Lossless
		r.Output.Filter = out.Filter
	}
}

// WithConcurrency with concurrency option
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.Concurrency = n
		}
	}
}

// WithDebugOverlay with debug overlay option
func WithDebugOverlay(debug bool) Option {
	return func(r *Runner) {
		r.Debug = debug
	}
}

// WithMetrics with metrics option
func WithMetrics(m *Metrics) Option {
	return func(r *Runner) {
		r.Metrics = m
	}
}

// WithLogger with logger option
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.Logger = logger
		}
	}
}
