package vocab

import (
	"context"
	"fmt"

	"github.com/Taichi-iskw/yt-vocab/internal/config"
	"github.com/Taichi-iskw/yt-vocab/internal/logger"
	"github.com/Taichi-iskw/yt-vocab/internal/store"
	"github.com/Taichi-iskw/yt-vocab/internal/vocabulary"
)

// ServiceFactory creates vocabulary cache instances
type ServiceFactory struct{}

// NewServiceFactory creates a new service factory
func NewServiceFactory() *ServiceFactory {
	return &ServiceFactory{}
}

// CreateService opens the configured store and returns a cache over it
func (f *ServiceFactory) CreateService(ctx context.Context) (*vocabulary.Cache, *config.Config, func(), error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	s, cleanup, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open %s store: %w", cfg.Storage, err)
	}

	log := logger.New(logger.WithLevel(cfg.LogLevel), logger.WithFormat(cfg.LogFormat))
	return vocabulary.NewCache(s, log), cfg, cleanup, nil
}
