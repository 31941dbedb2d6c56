package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"go.uber.org/zap"

	avatarcrop "github.com/menta2k/avatar-crop"
	"github.com/menta2k/avatar-crop/internal/config"
	"github.com/menta2k/avatar-crop/internal/utils"
	"github.com/menta2k/avatar-crop/pkg/analyzer"
	"github.com/menta2k/avatar-crop/pkg/batch"
	"github.com/menta2k/avatar-crop/pkg/storage"
	"github.com/menta2k/avatar-crop/pkg/storage/filestorage"
	"github.com/menta2k/avatar-crop/pkg/storage/s3storage"
)

func main() {
	flags, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}
	if flags.Version {
		fmt.Println(avatarcrop.GetVersion())
		return
	}
	if flags.WriteDefault != "" {
		if err := config.Default().SaveToFile(flags.WriteDefault); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("wrote %s\n", flags.WriteDefault)
		return
	}

	cfg, err := config.Load(flags.ConfigFile)
	if err != nil {
		log.Fatal(err)
	}
	if err := flags.Apply(cfg); err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, err := config.NewLogger(flags.Debug, flags.LogFile)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, logger, flags, cfg)
	stop()
	_ = logger.Sync()
	os.Exit(code)
}

func run(ctx context.Context, logger *zap.Logger, flags *config.Flags, cfg *config.Config) int {
	jobs, err := collectJobs(flags, cfg)
	if err != nil {
		logger.Error("no jobs", zap.Error(err))
		return 2
	}

	detector, err := avatarcrop.NewDetector(cfg.Detector)
	if err != nil {
		logger.Error("detector", zap.Error(err))
		return 1
	}
	store, err := newStorage(ctx, cfg.Storage)
	if err != nil {
		logger.Error("storage", zap.Error(err))
		return 1
	}

	var metrics *batch.Metrics
	if cfg.Batch.MetricsFile != "" {
		metrics = batch.NewMetrics()
	}
	runner := batch.NewRunner(store,
		batch.WithDetector(detector),
		batch.WithAnalyzer(analyzer.NewWithConfig(cfg.Analyzer)),
		batch.WithOutput(cfg.Output),
		batch.WithConcurrency(cfg.Batch.Concurrency),
		batch.WithDebugOverlay(cfg.Batch.Debug),
		batch.WithMetrics(metrics),
		batch.WithLogger(logger),
	)
	logger.Debug("configured",
		zap.Strings("backends", cfg.Detector.Backends()),
		zap.Any("crop", cfg.Crop),
		zap.Any("output", cfg.Output))

	results := runner.Run(ctx, jobs)

	failed := 0
	for _, res := range results {
		if !res.OK() {
			failed++
			fmt.Printf("FAIL %s: %v\n", res.Job.Source, res.Err)
			continue
		}
		o := res.Outcome
		how := "face"
		if o.Selected == nil {
			how = "anchor"
		}
		fmt.Printf("ok   %s -> %s (%s, rect %d,%d-%d,%d, %s)\n",
			res.Job.Source, o.OutputKey, how,
			o.Rect.X1, o.Rect.Y1, o.Rect.X2, o.Rect.Y2,
			utils.FormatFileSize(int64(o.Bytes)))
		if o.DebugErr != "" {
			fmt.Printf("     debug overlay not written: %s\n", o.DebugErr)
		}
	}
	fmt.Printf("%d/%d avatars written\n", len(results)-failed, len(results))

	if metrics != nil {
		if err := metrics.WriteToTextfile(cfg.Batch.MetricsFile); err != nil {
			logger.Error("metrics", zap.Error(err))
			return 1
		}
	}
	if failed > 0 {
		return 1
	}
	return 0
}

func collectJobs(flags *config.Flags, cfg *config.Config) ([]batch.Job, error) {
	if flags.In != "" && utils.DirExists(flags.In) {
		jobs, err := cfg.DirectoryJobs(flags.In)
		if err != nil {
			return nil, err
		}
		if len(jobs) == 0 {
			return nil, fmt.Errorf("no images found in %s", flags.In)
		}
		return jobs, nil
	}
	if job, ok := flags.SingleJob(cfg); ok {
		return []batch.Job{job}, nil
	}
	if jobs := cfg.ResolveJobs(); len(jobs) > 0 {
		return jobs, nil
	}
	return nil, fmt.Errorf("usage: %s -in input.jpg|URL|dir [-out avatar.webp] | -config jobs.json", filepath.Base(os.Args[0]))
}

func newStorage(ctx context.Context, cfg config.StorageConfig) (storage.Storage, error) {
	if cfg.S3Bucket == "" {
		return filestorage.New(cfg.Dir), nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3storage.New(awsCfg, cfg.S3Bucket,
		s3storage.WithEndpoint(cfg.S3Endpoint),
		s3storage.WithForcePathStyle(cfg.S3ForcePathStyle),
		s3storage.WithACL(cfg.S3ACL),
		s3storage.WithCacheControl(cfg.S3CacheControl),
		s3storage.WithStorageClass(cfg.S3StorageClass),
	), nil
}
