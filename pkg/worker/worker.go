// Package worker runs the queue consumption loop. Every received batch
// is acknowledged in full before processing starts, so delivery is
// at-most-once: a failed message is never redelivered, only archived.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/schedflow/schedflow/internal/model"
	"github.com/schedflow/schedflow/pkg/errors"
	"github.com/schedflow/schedflow/pkg/interfaces"
	"github.com/schedflow/schedflow/pkg/pipeline"
)

// Config controls the consumption loop.
type Config struct {
	// BatchSize is the maximum messages per receive (SQS cap: 10).
	BatchSize int

	// MessageTimeout bounds one message's pipeline run.
	MessageTimeout time.Duration

	// IdleBackoff is the pause after an empty receive or receive error.
	IdleBackoff time.Duration

	// Once stops the loop after the first non-empty batch, for
	// drain-and-exit runs and smoke testing.
	Once bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:      10,
		MessageTimeout: 2 * time.Minute,
		IdleBackoff:    time.Second,
	}
}

// Worker consumes the queue and drives the pipeline.
type Worker struct {
	queue   interfaces.Queue
	pipe    *pipeline.Pipeline
	archive interfaces.FailureArchive // nil disables archiving
	cfg     Config
	log     *slog.Logger
}

// New creates a worker. A nil archive disables failed-message capture.
func New(queue interfaces.Queue, pipe *pipeline.Pipeline, archive interfaces.FailureArchive, cfg Config, log *slog.Logger) *Worker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.MessageTimeout <= 0 {
		cfg.MessageTimeout = 2 * time.Minute
	}
	if cfg.IdleBackoff <= 0 {
		cfg.IdleBackoff = time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Worker{queue: queue, pipe: pipe, archive: archive, cfg: cfg, log: log}
}

// Run consumes batches until the context is canceled. Receive errors
// back off and retry; per-message failures never stop the loop.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("worker started", "batchSize", w.cfg.BatchSize)
	for {
		if err := ctx.Err(); err != nil {
			w.log.Info("worker stopping")
			return nil
		}

		msgs, err := w.queue.Receive(ctx, w.cfg.BatchSize)
		if err != nil {
			if ctx.Err() != nil {
				w.log.Info("worker stopping")
				return nil
			}
			w.log.Error("receive failed", "error", err)
			sleep(ctx, w.cfg.IdleBackoff)
			continue
		}
		if len(msgs) == 0 {
			continue
		}

		w.handleBatch(ctx, msgs)

		if w.cfg.Once {
			w.log.Info("single batch processed, exiting")
			return nil
		}
	}
}

// handleBatch acknowledges every message first, then processes them
// concurrently. Ack failures drop the message: processing an
// unacknowledged message would risk double scheduling on redelivery.
func (w *Worker) handleBatch(ctx context.Context, msgs []interfaces.Message) {
	acked := make([]bool, len(msgs))
	var g errgroup.Group
	for i, m := range msgs {
		i, m := i, m
		g.Go(func() error {
			if err := w.queue.Ack(ctx, m.ReceiptHandle); err != nil {
				w.log.Error("ack failed", "messageId", m.ID, "error", err)
				return nil
			}
			acked[i] = true
			return nil
		})
	}
	g.Wait() //nolint:errcheck // ack failures are logged, not propagated

	var pg errgroup.Group
	for i, m := range msgs {
		if !acked[i] {
			continue
		}
		m := m
		pg.Go(func() error {
			w.handleMessage(ctx, m)
			return nil
		})
	}
	pg.Wait() //nolint:errcheck // per-message failures are archived
}

// handleMessage decodes and runs one message through the pipeline.
func (w *Worker) handleMessage(ctx context.Context, msg interfaces.Message) {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.MessageTimeout)
	defer cancel()

	var event model.Event
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		werr := errors.Wrap(errors.CodeMalformedMessage, "decode message body", err).
			WithContext("messageId", msg.ID)
		w.log.Error("malformed message", "messageId", msg.ID, "error", err)
		w.archiveFailure(ctx, msg, werr)
		return
	}

	start := time.Now()
	result, err := w.pipe.ProcessEvent(ctx, event)
	if err != nil {
		w.log.Error("pipeline failed",
			"messageId", msg.ID,
			"eventId", event.ID,
			"code", string(errors.CodeOf(err)),
			"error", err)
		w.archiveFailure(ctx, msg, err)
		return
	}

	for _, warn := range result.Warnings {
		w.log.Warn("pipeline warning",
			"messageId", msg.ID,
			"eventId", event.ID,
			"code", string(warn.Code),
			"attendeeId", warn.AttendeeID,
			"meetingId", warn.MeetingID,
			"warning", warn.Message)
	}
	w.log.Info("message processed",
		"messageId", msg.ID,
		"eventId", event.ID,
		"branch", result.Branch.String(),
		"events", result.EventsGathered,
		"meetingsExpanded", result.MeetingsExpanded,
		"warnings", len(result.Warnings),
		"elapsed", time.Since(start))
}

func (w *Worker) archiveFailure(ctx context.Context, msg interfaces.Message, cause error) {
	if w.archive == nil {
		return
	}
	rec := interfaces.FailedMessage{
		MessageID:    msg.ID,
		Body:         msg.Body,
		ErrorCode:    string(errors.CodeOf(cause)),
		ErrorMessage: cause.Error(),
		Timestamp:    time.Now().UTC(),
	}
	// Use a fresh deadline: the message context may already be done.
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := w.archive.Archive(actx, rec); err != nil {
		w.log.Error("archive write failed", "messageId", msg.ID, "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
