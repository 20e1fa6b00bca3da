package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/segmentio/kafka-go"

	"github.com/smukkama/wind-alert-bot/internal/protocol"
)

// MessageSource is the consuming half of a Kafka reader
type MessageSource interface {
	Consume(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msgs ...kafka.Message) error
}

// DigestHandler receives one batch of alert events
type DigestHandler func(ctx context.Context, events []*protocol.AlertEvent) error

// DigestBatcher consumes alert events and hands them to a handler in
// batches, flushing when the batch is full or the flush interval passes.
// Offsets are committed only after the handler succeeds.
type DigestBatcher struct {
	source        MessageSource
	handle        DigestHandler
	batchSize     int
	flushInterval time.Duration
	clock         clockwork.Clock
	logger        *slog.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewDigestBatcher creates a new batcher. A nil clock uses real time.
func NewDigestBatcher(source MessageSource, handle DigestHandler, batchSize int, flushInterval time.Duration, clock clockwork.Clock, logger *slog.Logger) *DigestBatcher {
	if batchSize <= 0 {
		batchSize = 20
	}
	if flushInterval <= 0 {
		flushInterval = time.Minute
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &DigestBatcher{
		source:        source,
		handle:        handle,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		clock:         clock,
		logger:        logger,
		stopCh:        make(chan struct{}),
	}
}

// Start begins consuming
func (b *DigestBatcher) Start(ctx context.Context) {
	b.wg.Add(1)
	go b.run(ctx)
}

// Stop flushes the pending batch and waits for the loop to exit
func (b *DigestBatcher) Stop() {
	close(b.stopCh)
	b.wg.Wait()
}

type pending struct {
	msgs   []kafka.Message
	events []*protocol.AlertEvent
}

func (b *DigestBatcher) run(ctx context.Context) {
	defer b.wg.Done()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var batch pending
	ticker := b.clock.NewTicker(b.flushInterval)
	defer ticker.Stop()

	msgChan := make(chan kafka.Message, 10)
	go func() {
		for {
			msg, err := b.source.Consume(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				b.logger.Error("consumer error", "error", err)
				continue
			}
			select {
			case msgChan <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-b.stopCh:
			b.flush(ctx, &batch)
			return

		case <-ctx.Done():
			return

		case <-ticker.Chan():
			if len(batch.events) > 0 {
				b.logger.Debug("flush interval reached", "events", len(batch.events))
				b.flush(ctx, &batch)
			}

		case msg := <-msgChan:
			event, err := protocol.DecodeAlertEvent(msg.Value)
			if err != nil {
				// Poison message: commit so it is not redelivered forever.
				b.logger.Warn("dropping undecodable alert event", "offset", msg.Offset, "error", err)
				if err := b.source.Commit(ctx, msg); err != nil {
					b.logger.Error("failed to commit offset", "error", err)
				}
				continue
			}
			batch.msgs = append(batch.msgs, msg)
			batch.events = append(batch.events, event)

			if len(batch.events) >= b.batchSize {
				b.logger.Debug("batch full", "events", len(batch.events))
				b.flush(ctx, &batch)
			}
		}
	}
}

func (b *DigestBatcher) flush(ctx context.Context, batch *pending) {
	if len(batch.events) == 0 {
		return
	}

	if err := b.handle(ctx, batch.events); err != nil {
		// Keep the batch; it is retried on the next flush.
		b.logger.Error("failed to handle alert digest", "events", len(batch.events), "error", err)
		return
	}

	if err := b.source.Commit(ctx, batch.msgs...); err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("failed to commit offsets", "error", err)
	}
	b.logger.Info("flushed alert digest", "events", len(batch.events))
	*batch = pending{}
}
