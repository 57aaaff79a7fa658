package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// BlobDeleter removes a level payload.
type BlobDeleter interface {
	Delete(ctx context.Context, levelID int) error
}

// PurgeConfig holds configuration for the purger.
type PurgeConfig struct {
	AfterDays int
	Interval  time.Duration
	Blobs     BlobDeleter
	Logger    zerolog.Logger
	// OnPurge, if set, receives the number of levels removed by each pass.
	OnPurge func(n int)
}

// Purger periodically hard-deletes levels that were soft-deleted more than
// AfterDays ago, along with their payloads.
type Purger struct {
	store     *Store
	blobs     BlobDeleter
	afterDays int
	interval  time.Duration
	log       zerolog.Logger
	onPurge   func(n int)
	done      chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
}

// NewPurger starts a purger. Returns nil when AfterDays is 0 (disabled).
func NewPurger(store *Store, conf ...PurgeConfig) *Purger {
	cfg := PurgeConfig{AfterDays: 30}
	if len(conf) > 0 {
		cfg = conf[0]
	}
	if cfg.AfterDays <= 0 {
		return nil
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}

	p := &Purger{
		store:     store,
		blobs:     cfg.Blobs,
		afterDays: cfg.AfterDays,
		interval:  cfg.Interval,
		log:       cfg.Logger.With().Str("component", "purger").Logger(),
		onPurge:   cfg.OnPurge,
		done:      make(chan struct{}),
	}

	// Startup pass to catch up after downtime.
	p.purge()

	p.wg.Add(1)
	go p.tickLoop()

	return p
}

func (p *Purger) tickLoop() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.purge()
		case <-p.done:
			return
		}
	}
}

func (p *Purger) purge() {
	ctx, cancel := context.WithTimeout(context.Background(), p.store.QueryTimeout)
	defer cancel()

	cutoff := time.Now().Add(-time.Duration(p.afterDays) * 24 * time.Hour)
	ids, err := p.store.PurgeDeletedBefore(ctx, cutoff)
	if err != nil {
		p.log.Error().Err(err).Msg("purge deleted levels")
		return
	}
	if p.blobs != nil {
		for _, id := range ids {
			if err := p.blobs.Delete(ctx, id); err != nil {
				p.log.Warn().Err(err).Int("level_id", id).Msg("delete level payload")
			}
		}
	}
	if p.onPurge != nil {
		p.onPurge(len(ids))
	}
	if len(ids) > 0 {
		p.log.Info().Int("levels", len(ids)).Int("after_days", p.afterDays).Msg("purged deleted levels")
	}
}

// Stop signals the purger to stop and waits for it to finish.
func (p *Purger) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
		p.wg.Wait()
	})
}

// PurgeDeletedBefore hard-deletes soft-deleted levels last updated before
// cutoff and returns their ids.
func (s *Store) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) ([]int, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		s.rebind("SELECT level_id FROM levels WHERE is_deleted = 1 AND update_date < ? ORDER BY level_id"), cutoff.Unix())
	if err != nil {
		return nil, fmt.Errorf("select deleted levels: %w", err)
	}
	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if _, err := s.db.ExecContext(ctx,
		s.rebind("DELETE FROM levels WHERE is_deleted = 1 AND update_date < ?"), cutoff.Unix()); err != nil {
		return nil, fmt.Errorf("delete levels: %w", err)
	}
	return ids, nil
}
