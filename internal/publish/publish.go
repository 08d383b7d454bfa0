// Package publish announces finished races to other services.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/DoyleJ11/keyrace/internal/engine"
)

type RaceCompleted struct {
	Room        string          `json:"room"`
	RaceID      string          `json:"race_id"`
	Prompt      string          `json:"prompt"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt time.Time       `json:"completed_at"`
	Results     []engine.Result `json:"results"`
}

type Publisher interface {
	PublishRaceCompleted(ctx context.Context, ev RaceCompleted) error
}

type Noop struct{}

func (Noop) PublishRaceCompleted(context.Context, RaceCompleted) error { return nil }

type NATSConfig struct {
	URL           string
	Subject       string
	MaxReconnects int
	ReconnectWait time.Duration
}

func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		Subject:       "keyrace.race.completed",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

type NATSPublisher struct {
	nc      *nats.Conn
	subject string
}

func NewNATSPublisher(cfg NATSConfig, log *zap.Logger) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("keyrace"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error("NATS error", zap.Error(err))
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATSPublisher{nc: nc, subject: cfg.Subject}, nil
}

// Subject is "<prefix>.<room>".
func (p *NATSPublisher) Subject(room string) string {
	return fmt.Sprintf("%s.%s", p.subject, room)
}

func (p *NATSPublisher) PublishRaceCompleted(ctx context.Context, ev RaceCompleted) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal race result: %w", err)
	}
	if err := p.nc.Publish(p.Subject(ev.Room), data); err != nil {
		return fmt.Errorf("publish race result: %w", err)
	}
	return nil
}

func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}
