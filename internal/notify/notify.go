package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"internbot/internal/chat"
	"internbot/internal/metrics"
)

const (
	OutcomeSent    = "sent"
	OutcomeRetried = "retried"
	OutcomeDropped = "dropped"
)

// Notifier delivers messages to other actors outside the triggering
// request. A delivery is attempted once, retried once on a transient
// failure, then dropped and logged.
type Notifier struct {
	sender     chat.Sender
	logger     *zap.Logger
	metrics    *metrics.Collector
	timeout    time.Duration
	retryDelay time.Duration

	wg sync.WaitGroup
}

type Config struct {
	Timeout    time.Duration
	RetryDelay time.Duration
}

func New(sender chat.Sender, logger *zap.Logger, collector *metrics.Collector, cfg Config) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	return &Notifier{
		sender:     sender,
		logger:     logger,
		metrics:    collector,
		timeout:    cfg.Timeout,
		retryDelay: cfg.RetryDelay,
	}
}

// Notify schedules msg for delivery and returns immediately. The caller's
// cancellation does not stop the delivery.
func (n *Notifier) Notify(ctx context.Context, msg chat.Message) {
	detached := context.WithoutCancel(ctx)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.deliver(detached, msg)
	}()
}

// Wait blocks until every scheduled notification finished or ctx is done.
func (n *Notifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Notifier) deliver(ctx context.Context, msg chat.Message) {
	err := n.attempt(ctx, msg)
	if err == nil {
		n.metrics.IncNotification(OutcomeSent)
		return
	}
	if !chat.IsTransient(err) {
		n.drop(msg, err)
		return
	}

	n.metrics.IncNotification(OutcomeRetried)
	if n.retryDelay > 0 {
		timer := time.NewTimer(n.retryDelay)
		<-timer.C
	}
	if err := n.attempt(ctx, msg); err != nil {
		n.drop(msg, err)
		return
	}
	n.metrics.IncNotification(OutcomeSent)
}

func (n *Notifier) attempt(ctx context.Context, msg chat.Message) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	return n.sender.Send(ctx, msg)
}

func (n *Notifier) drop(msg chat.Message, err error) {
	n.metrics.IncNotification(OutcomeDropped)
	n.logger.Warn("notification dropped", zap.Int64("chat_id", msg.ChatID), zap.Error(err))
}
