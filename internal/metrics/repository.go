package metrics

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"codeberg.org/mutker/opratectl/internal/errors"
	"codeberg.org/mutker/opratectl/internal/logger"
	"codeberg.org/mutker/opratectl/internal/storage"
)

// defaultMaxBuffered bounds the buffer while the database rejects writes.
const defaultMaxBuffered = 1000

// SQLiteRepository buffers decision snapshots and writes them to sqlite in
// batches.
type SQLiteRepository struct {
	db            *sql.DB
	logger        logger.Logger
	cfg           Config
	mu            sync.Mutex
	buffer        []*DecisionSnapshot
	maxBuffered   int
	flushTicker   *time.Ticker
	shutdownChan  chan struct{}
	flushDoneChan chan struct{}
	closeOnce     sync.Once
	closeErr      error
}

func NewRepository(cfg Config, log logger.Logger) (*SQLiteRepository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	db, err := storage.Open(cfg.DBPath, decisionSchema(cfg.DBPath), log)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	log.Info().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Int("batch_size", cfg.BatchSize).
		Int("batch_timeout", cfg.BatchTimeout).
		Msg("Decision repository initialized")

	repo := &SQLiteRepository{
		db:            db,
		logger:        log,
		cfg:           cfg,
		buffer:        make([]*DecisionSnapshot, 0, cfg.BatchSize),
		maxBuffered:   max(defaultMaxBuffered, cfg.BatchSize),
		shutdownChan:  make(chan struct{}),
		flushDoneChan: make(chan struct{}),
	}

	// Start background goroutine for periodic flushing if batching is enabled
	if cfg.BatchSize > 0 && cfg.BatchTimeout > 0 {
		repo.flushTicker = time.NewTicker(time.Duration(cfg.BatchTimeout) * time.Second)
		go repo.flusher()
	} else {
		close(repo.flushDoneChan)
	}

	return repo, nil
}

func (r *SQLiteRepository) Record(snapshot *DecisionSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buffer = append(r.buffer, snapshot)

	if len(r.buffer) >= r.cfg.BatchSize {
		return r.flush()
	}

	return nil
}

// Flush writes buffered snapshots immediately.
func (r *SQLiteRepository) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flush()
}

// Recent returns up to limit stored snapshots, newest first. Buffered
// snapshots are not included until flushed.
func (r *SQLiteRepository) Recent(ctx context.Context, limit int) ([]DecisionSnapshot, error) {
	errFactory := errors.New()

	rows, err := r.db.QueryContext(ctx, selectRecentSQL, limit)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}
	defer rows.Close()

	var out []DecisionSnapshot
	for rows.Next() {
		var (
			ts                          int64
			lowBattery, armed, switched int
			s                           DecisionSnapshot
		)
		if err := rows.Scan(&ts, &s.Reason,
			&s.Rates.Target, &s.Rates.Desired, &s.Rates.Refresh, &s.Rates.Peak,
			&s.Display.Brightness, &s.Display.PowerMode,
			&lowBattery, &armed, &switched); err != nil {
			return nil, errFactory.Wrap(ErrStorageAccess, err)
		}
		s.Timestamp = time.UnixMilli(ts)
		s.State = StateMetrics{
			LowBattery:   lowBattery == 1,
			SamplerArmed: armed == 1,
			Switched:     switched == 1,
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}

	return out, nil
}

func (r *SQLiteRepository) Close() error {
	r.closeOnce.Do(func() {
		r.closeErr = r.close()
	})
	return r.closeErr
}

func (r *SQLiteRepository) close() error {
	// Signal the flusher goroutine to stop and wait for its final flush
	close(r.shutdownChan)
	if r.flushTicker != nil {
		r.flushTicker.Stop()
	}
	<-r.flushDoneChan

	r.mu.Lock()
	if err := r.flush(); err != nil {
		r.logger.Warn().Err(err).Msg("Dropping unflushed decisions")
	}
	r.mu.Unlock()

	// Checkpoint WAL and cleanup on close
	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return errors.New().WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "checkpoint_wal",
			Error: err.Error(),
		})
	}

	if err := r.db.Close(); err != nil {
		return errors.New().WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "close_database",
			Error: err.Error(),
		})
	}

	r.logger.Info().Msg("Decision repository closed gracefully")

	return nil
}

func (r *SQLiteRepository) flusher() {
	defer close(r.flushDoneChan)

	for {
		select {
		case <-r.flushTicker.C:
			r.mu.Lock()
			_ = r.flush()
			r.mu.Unlock()
		case <-r.shutdownChan:
			return
		}
	}
}

// flush writes the buffer. After a failed write the oldest snapshots beyond
// maxBuffered are dropped.
func (r *SQLiteRepository) flush() error {
	err := r.writeBuffer()
	if err == nil {
		return nil
	}

	if over := len(r.buffer) - r.maxBuffered; over > 0 {
		r.logger.Warn().
			Int("dropped", over).
			Int("buffered", r.maxBuffered).
			Msg("Decision buffer full, dropping oldest snapshots")
		kept := copy(r.buffer, r.buffer[over:])
		clear(r.buffer[kept:])
		r.buffer = r.buffer[:kept]
	}

	return err
}

func (r *SQLiteRepository) writeBuffer() error {
	if len(r.buffer) == 0 {
		return nil
	}

	errFactory := errors.New()

	tx, err := r.db.Begin()
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to begin transaction")
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	stmt, err := tx.Prepare(insertDecisionSQL)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to prepare statement")
		if err := tx.Rollback(); err != nil {
			r.logger.Error().Err(err).Msg("Failed to roll back transaction")
		}
		return errFactory.Wrap(ErrTransactionFailed, err)
	}
	defer stmt.Close()

	for _, snapshot := range r.buffer {
		values := []interface{}{
			snapshot.Timestamp.UnixMilli(),
			snapshot.Reason,
			int64(snapshot.Rates.Target),
			int64(snapshot.Rates.Desired),
			int64(snapshot.Rates.Refresh),
			int64(snapshot.Rates.Peak),
			int64(snapshot.Display.Brightness),
			snapshot.Display.PowerMode,
			int64(boolToInt(snapshot.State.LowBattery)),
			int64(boolToInt(snapshot.State.SamplerArmed)),
			int64(boolToInt(snapshot.State.Switched)),
		}

		if _, err := stmt.Exec(values...); err != nil {
			r.logger.Error().Err(err).Msg("Failed to execute insert")
			if err := tx.Rollback(); err != nil {
				r.logger.Error().Err(err).Msg("Failed to roll back transaction")
			}
			return errFactory.Wrap(ErrTransactionFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error().Err(err).Msg("Failed to commit transaction")
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	r.logger.Debug().Int("records", len(r.buffer)).Msg("Flushed decisions to database")
	r.buffer = r.buffer[:0]

	return nil
}
