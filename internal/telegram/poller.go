package telegram

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type updatesClient interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration, limit int) ([]Update, error)
	DeleteWebhook(ctx context.Context, dropPending bool) error
}

type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update Update) error
}

type PollerConfig struct {
	Timeout     time.Duration
	Interval    time.Duration
	Limit       int
	DropPending bool
	Workers     int
}

// Poller long-polls getUpdates and fans updates out to a fixed set of
// workers. Updates of one actor always land on the same worker, so they
// are handled in arrival order while different actors run concurrently.
type Poller struct {
	client  updatesClient
	handler UpdateHandler
	logger  *zap.Logger
	cfg     PollerConfig
}

func NewPoller(client updatesClient, handler UpdateHandler, logger *zap.Logger, cfg PollerConfig) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	return &Poller{client: client, handler: handler, logger: logger, cfg: cfg}
}

// Run blocks until ctx is cancelled and every queued update is handled.
func (p *Poller) Run(ctx context.Context) {
	if err := p.client.DeleteWebhook(ctx, p.cfg.DropPending); err != nil {
		p.logger.Warn("telegram delete webhook failed", zap.Error(err))
	}

	queues := make([]chan Update, p.cfg.Workers)
	var wg sync.WaitGroup
	for i := range queues {
		queues[i] = make(chan Update, 64)
		wg.Add(1)
		go func(queue <-chan Update) {
			defer wg.Done()
			for update := range queue {
				p.handle(ctx, update)
			}
		}(queues[i])
	}
	defer func() {
		for _, queue := range queues {
			close(queue)
		}
		wg.Wait()
	}()

	var offset int64
	for {
		if ctx.Err() != nil {
			return
		}
		updates, err := p.client.GetUpdates(ctx, offset, p.cfg.Timeout, p.cfg.Limit)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("telegram get updates failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.cfg.Interval):
			}
			continue
		}
		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			queue := queues[shard(actorKey(update), len(queues))]
			select {
			case queue <- update:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (p *Poller) handle(ctx context.Context, update Update) {
	if err := p.handler.HandleUpdate(context.WithoutCancel(ctx), update); err != nil {
		p.logger.Error("failed to handle telegram update", zap.Int64("update_id", update.UpdateID), zap.Error(err))
	}
}

func shard(key int64, n int) int {
	if key < 0 {
		key = -key
	}
	return int(key % int64(n))
}
