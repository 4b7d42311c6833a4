package metrics

import (
	"context"

	"codeberg.org/mutker/opratectl/internal/errors"
	"codeberg.org/mutker/opratectl/internal/logger"
)

type service struct {
	repo Repository
	cfg  Config
}

type noopCollector struct{}

// NewService returns the sqlite-backed decision history, or a no-op
// collector when history is disabled.
func NewService(cfg Config, log logger.Logger) (Collector, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	// If metrics is disabled, return a no-op collector
	if !cfg.Enabled {
		log.Debug().Msg("Decision history disabled, using no-op collector")
		return Noop(), nil
	}

	repo, err := NewRepository(cfg, log)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to create decision repository")
		return nil, err
	}

	log.Debug().
		Str("db_path", cfg.DBPath).
		Bool("enabled", cfg.Enabled).
		Msg("Decision history initialized successfully")

	return &service{
		repo: repo,
		cfg:  cfg,
	}, nil
}

// Noop returns a collector that discards every snapshot.
func Noop() Collector {
	return noopCollector{}
}

func (s *service) Record(ctx context.Context, snapshot *DecisionSnapshot) error {
	errFactory := errors.New()

	if snapshot == nil {
		return errFactory.New(ErrInvalidMetrics)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
		if err := s.repo.Record(snapshot); err != nil {
			return errFactory.Wrap(ErrMetricsCollection, err)
		}
	}

	return nil
}

// Recent returns stored snapshots, newest first. Buffered snapshots are
// flushed first so the answer includes them.
func (s *service) Recent(ctx context.Context, limit int) ([]DecisionSnapshot, error) {
	errFactory := errors.New()

	if limit <= 0 {
		return nil, errFactory.WithData(ErrInvalidLimit, limit)
	}
	if err := s.repo.Flush(); err != nil {
		return nil, err
	}

	return s.repo.Recent(ctx, limit)
}

func (s *service) Close() error {
	errFactory := errors.New()

	if err := s.repo.Close(); err != nil {
		return errFactory.Wrap(ErrServiceShutdown, err)
	}
	return nil
}

func (noopCollector) Record(context.Context, *DecisionSnapshot) error {
	return nil
}

func (noopCollector) Recent(context.Context, int) ([]DecisionSnapshot, error) {
	return nil, nil
}

func (noopCollector) Close() error {
	return nil
}
