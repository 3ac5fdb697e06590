// Package agent consumes inbound chat events and drives pipeline runs.
package agent

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"salesbot/internal/domain"
	"salesbot/internal/pipeline"
)

const defaultConcurrency = 5

// RunRecorder receives the outcome of every pipeline run. Implemented by the
// metrics collector; nil disables recording.
type RunRecorder interface {
	RecordRun(transport string, duration time.Duration, err error)
}

// Worker is the bridge between transports and the pipeline: receive message →
// persist it → run the pipeline → deliver the reply. Runs for one channel are
// serialized; runs across channels proceed up to the concurrency bound.
type Worker struct {
	pipeline      *pipeline.Pipeline
	conversations domain.ConversationStore
	bus           domain.MessageBus
	logger        *slog.Logger
	concurrency   int
	runTimeout    time.Duration
	recorder      RunRecorder

	mu    sync.Mutex
	locks map[string]*sync.Mutex // keyed by external channel id
}

type WorkerConfig struct {
	Pipeline      *pipeline.Pipeline
	Conversations domain.ConversationStore
	Bus           domain.MessageBus
	Logger        *slog.Logger
	Concurrency   int
	RunTimeout    time.Duration
	Recorder      RunRecorder
}

func NewWorker(cfg WorkerConfig) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 2 * time.Minute
	}
	return &Worker{
		pipeline:      cfg.Pipeline,
		conversations: cfg.Conversations,
		bus:           cfg.Bus,
		logger:        cfg.Logger,
		concurrency:   cfg.Concurrency,
		runTimeout:    cfg.RunTimeout,
		recorder:      cfg.Recorder,
		locks:         make(map[string]*sync.Mutex),
	}
}

// Run consumes inbound messages until the context is cancelled or the bus is
// closed. Each message is handled in its own goroutine with bounded
// concurrency.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker started", "concurrency", w.concurrency)

	sem := make(chan struct{}, w.concurrency)
	inbound := w.bus.Subscribe()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopping")
			return
		case msg, ok := <-inbound:
			if !ok {
				w.logger.Info("inbound channel closed, worker stopping")
				return
			}
			sem <- struct{}{}
			go func(m domain.InboundMessage) {
				defer func() { <-sem }()
				w.processMessage(ctx, m)
			}(msg)
		}
	}
}

// processMessage handles one inbound message end to end. Pipeline failures
// are logged and recorded but produce no outbound message: the user sees
// silence rather than an error artifact.
func (w *Worker) processMessage(ctx context.Context, msg domain.InboundMessage) {
	reply, err := w.Handle(ctx, msg)
	if err != nil {
		if errors.Is(err, domain.ErrNoUserMessage) {
			w.logger.Warn("run skipped: no user message", "transport", msg.Transport, "sender", msg.SenderID)
			return
		}
		w.logger.Error("pipeline run failed",
			"transport", msg.Transport,
			"sender", msg.SenderID,
			"error", err,
		)
		return
	}

	w.bus.SendOutbound(domain.OutboundMessage{
		Transport: msg.Transport,
		SenderID:  msg.SenderID,
		Text:      reply.Text,
	})
}

// Handle persists the inbound message and runs the pipeline synchronously,
// returning the persisted reply. Used by processMessage and by direct callers
// (CLI chat, webhook tests) that need the reply in hand.
func (w *Worker) Handle(ctx context.Context, msg domain.InboundMessage) (*domain.Message, error) {
	// One run at a time per sender. A second message from the same sender
	// waits for the previous run so its reply sees the full history.
	lock := w.channelLock(msg.SenderID)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	reply, err := w.runOnce(ctx, msg)
	if w.recorder != nil {
		w.recorder.RecordRun(msg.Transport, time.Since(start), err)
	}
	return reply, err
}

func (w *Worker) runOnce(ctx context.Context, msg domain.InboundMessage) (*domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, w.runTimeout)
	defer cancel()

	channel, err := w.conversations.GetOrCreateChannel(ctx, msg.SenderID)
	if err != nil {
		return nil, err
	}

	if _, err := w.conversations.AppendMessage(ctx, channel.ID, msg.Text, msg.SenderName); err != nil {
		return nil, err
	}

	return w.pipeline.Process(ctx, channel.ID)
}

func (w *Worker) channelLock(senderID string) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()
	lock, ok := w.locks[senderID]
	if !ok {
		lock = &sync.Mutex{}
		w.locks[senderID] = lock
	}
	return lock
}
