package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	avatarcrop "github.com/menta2k/avatar-crop"
	"github.com/menta2k/avatar-crop/internal/utils"
	"github.com/menta2k/avatar-crop/pkg/analyzer"
	"github.com/menta2k/avatar-crop/pkg/batch"
	"github.com/menta2k/avatar-crop/pkg/cropper"
	"github.com/menta2k/avatar-crop/pkg/types"
)

// Config holds the application configuration
type Config struct {
	Crop     cropper.CropConfig         `json:"crop"`
	Detector avatarcrop.DetectorOptions `json:"detector"`
	Analyzer analyzer.Config            `json:"analyzer"`
	Output   types.OutputConfig         `json:"output"`
	Batch    BatchConfig                `json:"batch"`
	Storage  StorageConfig              `json:"storage"`
	Jobs     []batch.Job                `json:"jobs,omitempty"`

	// baseDir resolves relative job sources, set by LoadFromFile
	baseDir string
}

// BatchConfig holds defaults applied to every job of a run
type BatchConfig struct {
	Mode        batch.Mode `json:"mode"`
	RequireFace bool       `json:"require_face"`
	Concurrency int        `json:"concurrency"`
	Debug       bool       `json:"debug"`
	MetricsFile string     `json:"metrics_file,omitempty"`
}

// StorageConfig holds configuration for where avatars are written
type StorageConfig struct {
	Dir              string `json:"dir"`
	S3Bucket         string `json:"s3_bucket,omitempty"`
	S3Endpoint       string `json:"s3_endpoint,omitempty"`
	S3ForcePathStyle bool   `json:"s3_force_path_style,omitempty"`
	S3ACL            string `json:"s3_acl,omitempty"`
	S3CacheControl   string `json:"s3_cache_control,omitempty"`
	S3StorageClass   string `json:"s3_storage_class,omitempty"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Crop:     cropper.DefaultConfig(),
		Detector: avatarcrop.DefaultDetectorOptions(),
		Analyzer: analyzer.DefaultConfig(),
		Output: types.OutputConfig{
			Format:  "webp",
			Quality: 90,
			Filter:  "lanczos",
		},
		Batch: BatchConfig{
			Mode:        batch.ModeFace,
			Concurrency: 4,
		},
		Storage: StorageConfig{
			Dir: "./avatars",
		},
	}
}

// LoadFromFile loads configuration from a JSON file on top of the defaults
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	config.baseDir = filepath.Dir(filename)

	return config, nil
}

// Load reads filename, or the file at GetConfigPath when filename is empty.
// A missing default file yields Default.
func Load(filename string) (*Config, error) {
	if filename != "" {
		return LoadFromFile(filename)
	}
	filename = GetConfigPath()
	if _, err := os.Stat(filename); errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return LoadFromFile(filename)
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	if err := utils.EnsureDir(filepath.Dir(filename)); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.Crop.Validate(); err != nil {
		return fmt.Errorf("crop: %w", err)
	}

	if c.Output.Quality < 0 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 0 and 100")
	}

	switch strings.ToLower(c.Output.Format) {
	case "jpg", "jpeg", "png", "webp":
	default:
		return fmt.Errorf("output.format must be one of jpg, png, webp")
	}

	if _, err := cropper.Filter(c.Output.Filter); err != nil {
		return fmt.Errorf("output.filter: %w", err)
	}

	if c.Analyzer.MinImageSize < 1 {
		return fmt.Errorf("analyzer.min_image_size must be positive")
	}

	for _, name := range c.Detector.Backends() {
		switch name {
		case avatarcrop.BackendNone, avatarcrop.BackendSmartcrop, avatarcrop.BackendOllama, avatarcrop.BackendLlamaCpp:
		case avatarcrop.BackendPigo:
			if c.Detector.Cascade == "" {
				return fmt.Errorf("detector.cascade is required for the %s backend", name)
			}
		default:
			return fmt.Errorf("detector.backend: unknown backend %q", name)
		}
	}

	switch c.Batch.Mode {
	case "", batch.ModeFace, batch.ModeAnchor:
	default:
		return fmt.Errorf("batch.mode must be %q or %q", batch.ModeFace, batch.ModeAnchor)
	}

	if c.Batch.Concurrency < 1 {
		return fmt.Errorf("batch.concurrency must be positive")
	}

	if c.Storage.Dir == "" && c.Storage.S3Bucket == "" {
		return fmt.Errorf("storage.dir or storage.s3_bucket is required")
	}

	return nil
}

// ResolveJobs applies the run defaults to every job. A job without a crop
// section uses the default crop, and one without an output size takes the
// default size. Relative local sources are resolved against the config file.
func (c *Config) ResolveJobs() []batch.Job {
	jobs := make([]batch.Job, len(c.Jobs))
	for i, job := range c.Jobs {
		if job.Crop == (cropper.CropConfig{}) {
			job.Crop = c.Crop
		} else if job.Crop.OutputSize == 0 {
			job.Crop.OutputSize = c.Crop.OutputSize
		}
		if job.Mode == "" {
			job.Mode = c.Batch.Mode
		}
		if c.Batch.RequireFace && job.Mode != batch.ModeAnchor {
			job.RequireFace = true
		}
		job.Source = c.resolveSource(job.Source)
		jobs[i] = job
	}
	return jobs
}

// DirectoryJobs creates one job per image under dir. Destinations keep the
// relative layout of the sources.
func (c *Config) DirectoryJobs(dir string) ([]batch.Job, error) {
	files, err := utils.ListImageFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	jobs := make([]batch.Job, 0, len(files))
	for _, file := range files {
		rel, err := filepath.Rel(dir, file)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, batch.Job{
			Source:      file,
			Destination: filepath.ToSlash(utils.GenerateOutputFilename(rel, filepath.Dir(rel), "", "_avatar", c.Output.Format)),
			Crop:        c.Crop,
			Mode:        c.Batch.Mode,
			RequireFace: c.Batch.RequireFace && c.Batch.Mode != batch.ModeAnchor,
		})
	}
	return jobs, nil
}

func (c *Config) resolveSource(source string) string {
	if source == "" || c.baseDir == "" || filepath.IsAbs(source) ||
		strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return source
	}
	return filepath.Join(c.baseDir, source)
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "avatar-crop", "config.json")
}
