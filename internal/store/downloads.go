package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// DefaultFlushQueueSize is the number of batches that can be queued for async flushing.
const DefaultFlushQueueSize = 64

// DownloadWriter applies accumulated download increments.
type DownloadWriter interface {
	IncrementDownloads(ctx context.Context, counts map[int]int) error
}

// DownloadCounter batches level download increments and flushes them
// asynchronously. Add never blocks on database writes.
type DownloadCounter struct {
	writer        DownloadWriter
	mu            sync.Mutex
	pending       map[int]int
	pendingHits   int
	flushChan     chan map[int]int
	maxBatch      int
	flushInterval time.Duration
	timeout       time.Duration
	done          chan struct{}
	wg            sync.WaitGroup
	tickWg        sync.WaitGroup
	stopOnce      sync.Once
	log           zerolog.Logger
	onFlush       func(levels int, err error)

	backpressureCount atomic.Int64
	lastBPLog         atomic.Int64
}

// DownloadCounterConfig holds tunable parameters for the counter.
type DownloadCounterConfig struct {
	BatchSize      int
	FlushInterval  time.Duration
	FlushQueueSize int
	FlushTimeout   time.Duration
	Logger         zerolog.Logger
	// OnFlush, if set, is called after every flush attempt.
	OnFlush func(levels int, err error)
}

// NewDownloadCounter starts a counter that flushes to writer.
func NewDownloadCounter(writer DownloadWriter, conf ...DownloadCounterConfig) *DownloadCounter {
	batchSize := 500
	flushInterval := time.Second
	flushQueueSize := DefaultFlushQueueSize
	timeout := 30 * time.Second
	var cfg DownloadCounterConfig
	if len(conf) > 0 {
		cfg = conf[0]
		if cfg.BatchSize > 0 {
			batchSize = cfg.BatchSize
		}
		if cfg.FlushInterval > 0 {
			flushInterval = cfg.FlushInterval
		}
		if cfg.FlushQueueSize > 0 {
			flushQueueSize = cfg.FlushQueueSize
		}
		if cfg.FlushTimeout > 0 {
			timeout = cfg.FlushTimeout
		}
	}

	c := &DownloadCounter{
		writer:        writer,
		pending:       make(map[int]int),
		flushChan:     make(chan map[int]int, flushQueueSize),
		maxBatch:      batchSize,
		flushInterval: flushInterval,
		timeout:       timeout,
		done:          make(chan struct{}),
		log:           cfg.Logger.With().Str("component", "downloads").Logger(),
		onFlush:       cfg.OnFlush,
	}

	c.wg.Add(1)
	go c.flushWorker()

	c.wg.Add(1)
	c.tickWg.Add(1)
	go c.tickLoop()

	return c
}

func (c *DownloadCounter) tickLoop() {
	defer c.wg.Done()
	defer c.tickWg.Done()
	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.drainPending()
		case <-c.done:
			c.drainPending()
			return
		}
	}
}

// logBackpressure emits a throttled warning (at most once per 10 seconds)
// when the flush channel is full and an inline flush is triggered.
func (c *DownloadCounter) logBackpressure() {
	count := c.backpressureCount.Add(1)
	now := time.Now().Unix()
	last := c.lastBPLog.Load()
	if now-last >= 10 && c.lastBPLog.CompareAndSwap(last, now) {
		c.log.Warn().Int64("inline_flushes", count).Msg("flush channel full, flushing inline")
	}
}

func (c *DownloadCounter) takePending() map[int]int {
	if len(c.pending) == 0 {
		return nil
	}
	batch := c.pending
	c.pending = make(map[int]int)
	c.pendingHits = 0
	return batch
}

func (c *DownloadCounter) drainPending() {
	c.mu.Lock()
	batch := c.takePending()
	c.mu.Unlock()
	if batch != nil {
		c.enqueue(batch)
	}
}

func (c *DownloadCounter) enqueue(batch map[int]int) {
	select {
	case c.flushChan <- batch:
	default:
		c.logBackpressure()
		c.flush(batch)
	}
}

func (c *DownloadCounter) flushWorker() {
	defer c.wg.Done()
	for batch := range c.flushChan {
		c.flush(batch)
	}
}

func (c *DownloadCounter) flush(batch map[int]int) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	err := c.writer.IncrementDownloads(ctx, batch)
	if err != nil {
		c.log.Error().Err(err).Int("levels", len(batch)).Msg("flush downloads")
	}
	if c.onFlush != nil {
		c.onFlush(len(batch), err)
	}
}

// Add counts one download of levelID.
func (c *DownloadCounter) Add(levelID int) {
	c.mu.Lock()
	c.pending[levelID]++
	c.pendingHits++
	var batch map[int]int
	if c.pendingHits >= c.maxBatch {
		batch = c.takePending()
	}
	c.mu.Unlock()

	if batch != nil {
		c.enqueue(batch)
	}
}

// Stop flushes remaining counts and waits for all writes to complete.
func (c *DownloadCounter) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
		// tickLoop's final drain must land before flushChan closes.
		c.tickWg.Wait()
		close(c.flushChan)
		c.wg.Wait()
	})
}

// IncrementDownloads adds counts to each level's download total in one transaction.
func (s *Store) IncrementDownloads(ctx context.Context, counts map[int]int) error {
	if len(counts) == 0 {
		return nil
	}

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, s.rebind("UPDATE levels SET downloads = downloads + ? WHERE level_id = ?"))
	if err != nil {
		return err
	}
	defer stmt.Close()

	ids := make([]int, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, counts[id], id); err != nil {
			return fmt.Errorf("increment level %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
