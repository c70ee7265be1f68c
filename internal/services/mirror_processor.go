package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"qboard/internal/mirror"
	"qboard/internal/storage"
)

// MirrorProcessorConfig holds configuration for the mirror processor.
type MirrorProcessorConfig struct {
	// PollInterval is how often to check for pending records (default: 10s)
	PollInterval time.Duration

	// BatchSize is the max number of records to push per poll cycle (default: 10)
	BatchSize int

	// RequeueInterval is how often errored records are put back in the
	// pending state for another attempt (default: 1h)
	RequeueInterval time.Duration
}

// DefaultMirrorProcessorConfig returns sensible defaults.
func DefaultMirrorProcessorConfig() MirrorProcessorConfig {
	return MirrorProcessorConfig{
		PollInterval:    10 * time.Second,
		BatchSize:       10,
		RequeueInterval: 1 * time.Hour,
	}
}

// MirrorQueue is the slice of the storage layer the processor drains.
// *storage.SQLiteRepository satisfies it.
type MirrorQueue interface {
	ListPendingMirror(ctx context.Context, limit int) ([]storage.PendingMirrorRecord, error)
	MarkMirrored(ctx context.Context, id int64) error
	MarkMirrorError(ctx context.Context, id int64) error
	RequeueMirrorErrors(ctx context.Context) error
}

// MirrorProcessor pushes pending records from SQLite to the report mirror.
// It is the safety net behind the broker-driven worker: any record the
// worker missed stays in the pending state and gets picked up here.
// Deletions are broker-only; a deleted row is gone from storage, so there is
// nothing left to poll.
type MirrorProcessor struct {
	storage MirrorQueue
	mirror  mirror.RecordAppender
	config  MirrorProcessorConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewMirrorProcessor creates a new mirror processor.
func NewMirrorProcessor(storage MirrorQueue, appender mirror.RecordAppender, config MirrorProcessorConfig) *MirrorProcessor {
	return &MirrorProcessor{
		storage: storage,
		mirror:  appender,
		config:  config,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *MirrorProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("mirror processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	// Errored records from a previous run get another chance right away.
	if err := p.storage.RequeueMirrorErrors(ctx); err != nil {
		slog.WarnContext(ctx, "Failed to requeue errored mirror records", "error", err)
	}

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Mirror processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *MirrorProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Mirror processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Mirror processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running.
func (p *MirrorProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *MirrorProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	pollTicker := time.NewTicker(p.config.PollInterval)
	defer pollTicker.Stop()

	requeueTicker := time.NewTicker(p.config.RequeueInterval)
	defer requeueTicker.Stop()

	// Process immediately on startup
	p.processBatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			p.processBatch(ctx)
		case <-requeueTicker.C:
			if err := p.storage.RequeueMirrorErrors(ctx); err != nil {
				slog.ErrorContext(ctx, "Failed to requeue errored mirror records", "error", err)
			}
		}
	}
}

// processBatch pushes a single batch of pending records.
func (p *MirrorProcessor) processBatch(ctx context.Context) {
	items, err := p.storage.ListPendingMirror(ctx, p.config.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list pending mirror records", "error", err)
		return
	}

	if len(items) == 0 {
		return
	}

	slog.DebugContext(ctx, "Processing mirror batch", "count", len(items))

	for _, item := range items {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		ref, err := p.mirror.AppendRecord(ctx, item.Record)
		if err != nil {
			slog.WarnContext(ctx, "Mirror push failed",
				"record_id", item.Record.ID,
				"kind", item.Record.Kind,
				"error", err)
			if markErr := p.storage.MarkMirrorError(ctx, item.Record.ID); markErr != nil {
				slog.ErrorContext(ctx, "Failed to mark mirror error",
					"record_id", item.Record.ID, "error", markErr)
			}
			continue
		}

		if err := p.storage.MarkMirrored(ctx, item.Record.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to mark record mirrored",
				"record_id", item.Record.ID, "error", err)
			continue
		}

		slog.InfoContext(ctx, "Mirrored record",
			"record_id", item.Record.ID,
			"kind", item.Record.Kind,
			"row_ref", ref)
	}
}

// RetryErrors resets all errored records for another pass.
func (p *MirrorProcessor) RetryErrors(ctx context.Context) error {
	return p.storage.RequeueMirrorErrors(ctx)
}
