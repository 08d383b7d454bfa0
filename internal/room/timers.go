package room

import (
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/DoyleJ11/keyrace/internal/engine"
)

type timerKey string

const (
	timerCountdown timerKey = "countdown"
	timerGrace     timerKey = "grace"
	timerTimeout   timerKey = "timeout"
	timerReset     timerKey = "reset"

	botTimerPrefix = "bot:"
)

func botTimer(name string) timerKey { return timerKey(botTimerPrefix + name) }

type armedTimer struct {
	timer clockwork.Timer
	seq   uint64
}

// arm schedules key to fire after d, replacing any timer already armed under
// the same key. The fired message carries the current epoch and a sequence
// number so that a callback racing a Stop is dropped.
func (r *Room) arm(key timerKey, d time.Duration) {
	r.disarm(key)
	r.timerSeq++
	msg := timerFired{Epoch: r.race.Epoch, Key: key, Seq: r.timerSeq}
	t := r.clock.AfterFunc(d, func() { r.post(msg) })
	r.timers[key] = armedTimer{timer: t, seq: msg.Seq}
}

func (r *Room) disarm(key timerKey) {
	if a, ok := r.timers[key]; ok {
		a.timer.Stop()
		delete(r.timers, key)
	}
}

func (r *Room) stopTimers() {
	for key, a := range r.timers {
		a.timer.Stop()
		delete(r.timers, key)
	}
	clear(r.bots)
}

func (r *Room) onTimer(msg timerFired) {
	armed, ok := r.timers[msg.Key]
	if !ok || armed.seq != msg.Seq || msg.Epoch != r.race.Epoch {
		r.log.Debug("dropping stale timer",
			zap.String("key", string(msg.Key)),
			zap.Int("epoch", msg.Epoch),
			zap.Int("current_epoch", r.race.Epoch))
		return
	}
	delete(r.timers, msg.Key)

	now := r.clock.Now()
	switch msg.Key {
	case timerCountdown:
		r.apply(engine.Command{Type: engine.CmdCountdownTick, At: now}, "")
	case timerGrace:
		r.apply(engine.Command{Type: engine.CmdCloseRace, At: now}, "")
	case timerTimeout:
		r.log.Info("race hit max duration", zap.String("race_id", r.race.RaceID))
		r.apply(engine.Command{Type: engine.CmdCloseRace, At: now}, "")
	case timerReset:
		r.apply(engine.Command{Type: engine.CmdReset, At: now}, "")
	default:
		if name, ok := strings.CutPrefix(string(msg.Key), botTimerPrefix); ok {
			r.advanceBot(name, now)
		}
	}
}

// advanceBot moves one simulated participant along its plan. Bots report
// through the same commands as clients.
func (r *Room) advanceBot(name string, now time.Time) {
	plan, ok := r.bots[name]
	if !ok {
		return
	}

	s := plan.Sample(r.rng, now.Sub(r.race.StartedAt))
	if s.Done {
		r.apply(engine.Command{
			Type:     engine.CmdFinish,
			Name:     name,
			WPM:      s.WPM,
			Accuracy: s.Accuracy,
			At:       now,
		}, "")
		return
	}

	r.apply(engine.Command{
		Type:     engine.CmdProgress,
		Name:     name,
		Progress: s.Progress,
		WPM:      s.WPM,
		Accuracy: s.Accuracy,
		At:       now,
	}, "")
	if _, still := r.bots[name]; still && r.race.Status == engine.StatusActive {
		r.arm(botTimer(name), r.cfg.BotTick)
	}
}
