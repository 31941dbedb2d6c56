package config

import (
	"flag"
	"fmt"
	"net/url"
	"strings"

	"github.com/peterbourgon/ff/v3"

	"github.com/menta2k/avatar-crop/internal/utils"
	"github.com/menta2k/avatar-crop/pkg/batch"
	"github.com/menta2k/avatar-crop/pkg/cropper"
)

// EnvVarPrefix prefixes environment variables that mirror the flags,
// e.g. AVATAR_CROP_BACKEND for -backend
const EnvVarPrefix = "AVATAR_CROP"

// Flags holds the parsed command line
type Flags struct {
	In         string
	Out        string
	ConfigFile string
	Version    bool

	Backend  string
	URL      string
	Model    string
	Cascade  string
	SendSize int

	Ratio  float64
	Anchor float64
	Size   int
	Preset string

	Mode        string
	RequireFace bool

	Format   string
	Quality  int
	Lossless bool
	Filter   string

	Concurrency int
	DebugImages bool
	Debug       bool

	OutDir       string
	S3Bucket     string
	S3Endpoint   string
	S3PathStyle  bool
	S3Class      string
	LogFile      string
	MetricsFile  string
	WriteDefault string

	set map[string]bool
}

// ParseFlags parses args and AVATAR_CROP_* environment variables
func ParseFlags(args []string) (*Flags, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("avatar-crop", flag.ContinueOnError)

	fs.StringVar(&f.In, "in", "", "input image path or URL (jpg/png/webp)")
	fs.StringVar(&f.Out, "out", "", "output avatar key, relative to -out-dir or the S3 bucket")
	fs.StringVar(&f.ConfigFile, "config", "", "JSON config file with defaults and a jobs manifest")
	fs.BoolVar(&f.Version, "version", false, "print version and exit")

	fs.StringVar(&f.Backend, "backend", "", "face detector: none|pigo|smartcrop|ollama|llamacpp, comma separated to chain")
	fs.StringVar(&f.URL, "url", "", "vision model server URL (ollama default http://localhost:11434, llamacpp default http://localhost:8080)")
	fs.StringVar(&f.Model, "model", "", "vision model name")
	fs.StringVar(&f.Cascade, "cascade", "", "pigo facefinder cascade file")
	fs.IntVar(&f.SendSize, "sendsize", 0, "max long side sent to the vision model (px)")

	fs.Float64Var(&f.Ratio, "ratio", 0, "crop ratio in (0,1]")
	fs.Float64Var(&f.Anchor, "anchor", 0, "vertical anchor ratio in [0,1] used without a face")
	fs.IntVar(&f.Size, "size", 0, "avatar side in pixels")
	fs.StringVar(&f.Preset, "preset", "", "crop preset: face|tight-face|headshot|tight-anchor")

	fs.StringVar(&f.Mode, "mode", "", "face|anchor")
	fs.BoolVar(&f.RequireFace, "require-face", false, "fail jobs where no face is detected instead of using the anchor")

	fs.StringVar(&f.Format, "format", "", "output format: jpg|png|webp")
	fs.IntVar(&f.Quality, "quality", 0, "JPEG/WebP output quality (1-100)")
	fs.BoolVar(&f.Lossless, "lossless", false, "WebP lossless output")
	fs.StringVar(&f.Filter, "filter", "", "resampling filter, e.g. lanczos|catmullrom|linear|box|nearest")

	fs.IntVar(&f.Concurrency, "concurrency", 0, "jobs processed in parallel")
	fs.BoolVar(&f.DebugImages, "debug-overlay", false, "write <name>_debug.png overlays next to avatars")
	fs.BoolVar(&f.Debug, "debug", false, "debug logging")

	fs.StringVar(&f.OutDir, "out-dir", "", "local output directory")
	fs.StringVar(&f.S3Bucket, "s3-bucket", "", "write avatars to this S3 bucket, optionally bucket/prefix")
	fs.StringVar(&f.S3Endpoint, "s3-endpoint", "", "custom S3 endpoint")
	fs.BoolVar(&f.S3PathStyle, "s3-force-path-style", false, "use path style S3 addressing")
	fs.StringVar(&f.S3Class, "s3-storage-class", "", "S3 storage class, e.g. STANDARD_IA")
	fs.StringVar(&f.LogFile, "log-file", "", "also write JSON logs to this rotating file")
	fs.StringVar(&f.MetricsFile, "metrics-file", "", "write Prometheus metrics to this textfile after the run")
	fs.StringVar(&f.WriteDefault, "write-default-config", "", "write the default config to this path and exit")

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix(EnvVarPrefix)); err != nil {
		return nil, err
	}

	f.set = map[string]bool{}
	fs.Visit(func(fl *flag.Flag) {
		f.set[fl.Name] = true
	})
	return f, nil
}

// IsSet reports whether a flag was given on the command line or environment
func (f *Flags) IsSet(name string) bool {
	return f.set[name]
}

// Apply overrides cfg with every flag that was explicitly set
func (f *Flags) Apply(cfg *Config) error {
	if f.IsSet("preset") {
		preset, err := Preset(f.Preset)
		if err != nil {
			return err
		}
		cfg.Crop = preset
	}
	if f.IsSet("ratio") {
		cfg.Crop.CropRatio = f.Ratio
	}
	if f.IsSet("anchor") {
		cfg.Crop.VerticalAnchorRatio = f.Anchor
	}
	if f.IsSet("size") {
		cfg.Crop.OutputSize = f.Size
	}

	if f.IsSet("backend") {
		cfg.Detector.Backend = f.Backend
	}
	if f.IsSet("url") {
		cfg.Detector.URL = f.URL
	}
	if f.IsSet("model") {
		cfg.Detector.Model = f.Model
	}
	if f.IsSet("cascade") {
		cfg.Detector.Cascade = f.Cascade
	}
	if f.IsSet("sendsize") {
		cfg.Detector.SendSize = f.SendSize
	}

	if f.IsSet("mode") {
		cfg.Batch.Mode = batch.Mode(strings.ToLower(f.Mode))
	}
	if f.IsSet("require-face") {
		cfg.Batch.RequireFace = f.RequireFace
	}
	if f.IsSet("concurrency") {
		cfg.Batch.Concurrency = f.Concurrency
	}
	if f.IsSet("debug-overlay") {
		cfg.Batch.Debug = f.DebugImages
	}
	if f.IsSet("metrics-file") {
		cfg.Batch.MetricsFile = f.MetricsFile
	}

	if f.IsSet("format") {
		cfg.Output.Format = strings.ToLower(f.Format)
	}
	if f.IsSet("quality") {
		cfg.Output.Quality = f.Quality
	}
	if f.IsSet("lossless") {
		cfg.Output.Lossless = f.Lossless
	}
	if f.IsSet("filter") {
		cfg.Output.Filter = f.Filter
	}

	if f.IsSet("out-dir") {
		cfg.Storage.Dir = f.OutDir
	}
	if f.IsSet("s3-bucket") {
		cfg.Storage.S3Bucket = f.S3Bucket
	}
	if f.IsSet("s3-endpoint") {
		cfg.Storage.S3Endpoint = f.S3Endpoint
	}
	if f.IsSet("s3-force-path-style") {
		cfg.Storage.S3ForcePathStyle = f.S3PathStyle
	}
	if f.IsSet("s3-storage-class") {
		cfg.Storage.S3StorageClass = f.S3Class
	}
	return nil
}

// SingleJob returns the job described by -in and -out, if any
func (f *Flags) SingleJob(cfg *Config) (batch.Job, bool) {
	if f.In == "" {
		return batch.Job{}, false
	}
	out := f.Out
	if out == "" {
		out = DefaultDestination(f.In, cfg.Output.Format)
	}
	return batch.Job{
		Source:      f.In,
		Destination: out,
		Crop:        cfg.Crop,
		Mode:        cfg.Batch.Mode,
		RequireFace: cfg.Batch.RequireFace && cfg.Batch.Mode != batch.ModeAnchor,
	}, true
}

// Preset returns a named crop preset
func Preset(name string) (cropper.CropConfig, error) {
	switch strings.ToLower(name) {
	case "face", "face-detect":
		return cropper.FaceDetect, nil
	case "tight-face":
		return cropper.TightFace, nil
	case "headshot":
		return cropper.Headshot, nil
	case "tight-anchor":
		return cropper.TightAnchor, nil
	default:
		return cropper.CropConfig{}, fmt.Errorf("unknown preset %q", name)
	}
}

// DefaultDestination derives an avatar key from a source path or URL
func DefaultDestination(source, format string) string {
	if u, err := url.Parse(source); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		source = u.Path
	}
	if format == "" {
		format = "webp"
	}
	return utils.GenerateOutputFilename(source, "", "", "_avatar", format)
}
