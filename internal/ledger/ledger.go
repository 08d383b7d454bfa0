// Package ledger forwards experience awards to persistent storage. Writes are
// fire-and-forget: the race never waits on them and a failed write is only
// logged.
package ledger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrInvalidAward = errors.New("invalid award")

type Ledger interface {
	AwardExperience(ctx context.Context, identity string, amount int) error
}

type award struct {
	identity string
	amount   int
}

type DispatcherConfig struct {
	Workers      int
	QueueSize    int
	WriteTimeout time.Duration
}

func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{Workers: 2, QueueSize: 256, WriteTimeout: 5 * time.Second}
}

// Dispatcher queues awards and writes them from a small worker pool.
type Dispatcher struct {
	ledger Ledger
	cfg    DispatcherConfig
	queue  chan award
	log    *zap.Logger
}

func NewDispatcher(l Ledger, cfg DispatcherConfig, log *zap.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	return &Dispatcher{
		ledger: l,
		cfg:    cfg,
		queue:  make(chan award, cfg.QueueSize),
		log:    log,
	}
}

// Award enqueues without blocking. When the queue is full the award is
// dropped and logged.
func (d *Dispatcher) Award(identity string, amount int) {
	if identity == "" || amount <= 0 {
		return
	}
	select {
	case d.queue <- award{identity: identity, amount: amount}:
	default:
		d.log.Warn("xp queue full, dropping award",
			zap.String("identity", identity),
			zap.Int("amount", amount))
	}
}

// Run writes queued awards until ctx is cancelled, then flushes what is left.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < d.cfg.Workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case a := <-d.queue:
					d.write(gctx, a)
				}
			}
		})
	}
	err := g.Wait()
	d.flush()
	return err
}

func (d *Dispatcher) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.WriteTimeout)
	defer cancel()
	for {
		select {
		case a := <-d.queue:
			d.write(ctx, a)
		default:
			return
		}
	}
}

func (d *Dispatcher) write(ctx context.Context, a award) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.WriteTimeout)
	defer cancel()

	if err := d.ledger.AwardExperience(ctx, a.identity, a.amount); err != nil {
		d.log.Error("failed to award xp",
			zap.String("identity", a.identity),
			zap.Int("amount", a.amount),
			zap.Error(err))
		return
	}
	d.log.Debug("xp awarded", zap.String("identity", a.identity), zap.Int("amount", a.amount))
}

// LogLedger only records awards in the log. Used when no storage is
// configured.
type LogLedger struct {
	log *zap.Logger
}

func NewLogLedger(log *zap.Logger) *LogLedger { return &LogLedger{log: log} }

func (l *LogLedger) AwardExperience(_ context.Context, identity string, amount int) error {
	if identity == "" || amount <= 0 {
		return ErrInvalidAward
	}
	l.log.Info("xp award", zap.String("identity", identity), zap.Int("amount", amount))
	return nil
}
