package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"internbot/internal/common"
	"internbot/internal/observability"
)

var tracer = observability.Tracer("events")

type conn interface {
	Publish(subject string, data []byte) error
}

type NATSPublisher struct {
	nc     conn
	closer func()
	logger *zap.Logger
}

// Connect dials NATS with reconnects enabled for the life of the process.
func Connect(url string, timeout time.Duration, logger *zap.Logger) (*NATSPublisher, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	nc, err := nats.Connect(url,
		nats.Name(observability.ServiceName),
		nats.Timeout(timeout),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, common.NewError(common.CodeUnavailable, "connect nats", err)
	}
	p := newNATSPublisher(nc, logger)
	p.closer = nc.Close
	return p, nil
}

func newNATSPublisher(nc conn, logger *zap.Logger) *NATSPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSPublisher{nc: nc, logger: logger}
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, event any) error {
	_, span := tracer.Start(ctx, "events.Publish")
	defer span.End()

	data, err := json.Marshal(event)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "marshal event")
		return common.NewError(common.CodeInternal, "marshal event", err)
	}
	span.SetAttributes(
		observability.String("nats.subject", subject),
		observability.Int64("message.size", int64(len(data))),
	)

	if err := p.nc.Publish(subject, data); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish event")
		p.logger.Warn("failed to publish event", zap.String("subject", subject), zap.Error(err))
		return common.NewError(common.CodeUnavailable, "publish event", err)
	}
	p.logger.Debug("published event", zap.String("subject", subject))
	return nil
}

func (p *NATSPublisher) Close() {
	if p.closer != nil {
		p.closer()
	}
}
