package practice

import (
	"context"
	"fmt"

	"github.com/Taichi-iskw/yt-vocab/internal/config"
	"github.com/Taichi-iskw/yt-vocab/internal/extractor"
	"github.com/Taichi-iskw/yt-vocab/internal/logger"
	"github.com/Taichi-iskw/yt-vocab/internal/model"
	"github.com/Taichi-iskw/yt-vocab/internal/practice"
	"github.com/Taichi-iskw/yt-vocab/internal/scheduler"
	"github.com/Taichi-iskw/yt-vocab/internal/selector"
	"github.com/Taichi-iskw/yt-vocab/internal/store"
	"github.com/Taichi-iskw/yt-vocab/internal/subtitle"
	"github.com/Taichi-iskw/yt-vocab/internal/vocabulary"
	"github.com/sirupsen/logrus"
)

// Options selects the video and how its segments are loaded
type Options struct {
	VideoID      string
	SegmentsFile string // local segments JSON instead of yt-dlp
	Lang         string // subtitle language, defaults to source_language
}

// MachineFactory builds a practice machine reporting to obs
type MachineFactory interface {
	CreateMachine(ctx context.Context, opts Options, obs practice.Observer) (*practice.Machine, []model.TimedSegment, func(), error)
}

// Prefetcher extracts the vocabulary of a whole video ahead of practice
type Prefetcher interface {
	Prefetch(ctx context.Context, opts Options, workers int) (vocabulary.PrefetchResult, error)
}

// ServiceFactory wires practice to the configured store, OpenAI and yt-dlp
type ServiceFactory struct{}

// NewServiceFactory creates a new service factory
func NewServiceFactory() *ServiceFactory {
	return &ServiceFactory{}
}

// services is what both practice and prefetch are built from
type services struct {
	cfg      *config.Config
	log      *logrus.Logger
	segments []model.TimedSegment
	cache    *vocabulary.Cache
	extract  vocabulary.ExtractFunc
	cleanup  func()
}

func (f *ServiceFactory) load(ctx context.Context, opts Options) (*services, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log := logger.New(logger.WithLevel(cfg.LogLevel), logger.WithFormat(cfg.LogFormat))

	lang := opts.Lang
	if lang == "" {
		lang = cfg.SourceLanguage
	}

	ext, err := extractor.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel, lang, log)
	if err != nil {
		return nil, err
	}

	var segments []model.TimedSegment
	if opts.SegmentsFile != "" {
		segments, err = subtitle.LoadFile(opts.SegmentsFile)
	} else {
		segments, err = subtitle.NewFetcher(subtitle.NewCmdRunner(), log).Fetch(ctx, opts.VideoID, lang)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load subtitles: %w", err)
	}

	s, cleanup, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Storage, err)
	}

	return &services{
		cfg:      cfg,
		log:      log,
		segments: segments,
		cache:    vocabulary.NewCache(s, log),
		extract:  ext.Extract,
		cleanup:  cleanup,
	}, nil
}

// CreateMachine loads the segments of the video and builds a machine over them
func (f *ServiceFactory) CreateMachine(ctx context.Context, opts Options, obs practice.Observer) (*practice.Machine, []model.TimedSegment, func(), error) {
	svc, err := f.load(ctx, opts)
	if err != nil {
		return nil, nil, nil, err
	}

	m, err := practice.NewMachine(practice.Config{
		VideoID:    opts.VideoID,
		Segments:   svc.segments,
		Vocabulary: svc.cache,
		Extract:    svc.extract,
		Scheduler:  scheduler.New(svc.cfg.SchedulerParams()),
		Picker:     selector.New(nil),
		Observer:   obs,
		Logger:     svc.log,
	})
	if err != nil {
		svc.cleanup()
		return nil, nil, nil, err
	}
	return m, svc.segments, svc.cleanup, nil
}

// Prefetch extracts and caches the vocabulary of every segment of the video
func (f *ServiceFactory) Prefetch(ctx context.Context, opts Options, workers int) (vocabulary.PrefetchResult, error) {
	svc, err := f.load(ctx, opts)
	if err != nil {
		return vocabulary.PrefetchResult{}, err
	}
	defer svc.cleanup()

	return svc.cache.Prefetch(ctx, opts.VideoID, svc.segments, svc.extract, workers), nil
}
