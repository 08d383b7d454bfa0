package room

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/keyrace/internal/engine"
	"github.com/DoyleJ11/keyrace/internal/npc"
	"github.com/DoyleJ11/keyrace/internal/prompt"
	"github.com/DoyleJ11/keyrace/internal/publish"
)

var ErrClosed = errors.New("room closed")

type Msg interface{ isRoomMsg() }

// Subscribe registers a session for notifications. The room closes Outbox
// when the session falls behind or the room shuts down.
type Subscribe struct {
	Session string
	Outbox  chan Notification
}

func (Subscribe) isRoomMsg() {}

// Unsubscribe is sent when a session disconnects. It also removes the
// session's participant.
type Unsubscribe struct{ Session string }

func (Unsubscribe) isRoomMsg() {}

// FromSession carries a client command. The participant is resolved from
// Session; Cmd.Name is only read for joins.
type FromSession struct {
	Session string
	Cmd     engine.Command
}

func (FromSession) isRoomMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

type timerFired struct {
	Epoch int
	Key   timerKey
	Seq   uint64
}

func (timerFired) isRoomMsg() {}

type promptFetched struct {
	Epoch  int
	Prompt prompt.Prompt
}

func (promptFetched) isRoomMsg() {}

type Config struct {
	Rules             engine.Rules
	CountdownInterval time.Duration
	GracePeriod       time.Duration
	ResultsDelay      time.Duration
	MaxRaceDuration   time.Duration // zero disables the cap
	BotTick           time.Duration
	Difficulty        string
	PromptTimeout     time.Duration
	PublishTimeout    time.Duration
}

func DefaultConfig() Config {
	return Config{
		Rules:             engine.DefaultRules(),
		CountdownInterval: time.Second,
		GracePeriod:       10 * time.Second,
		ResultsDelay:      10 * time.Second,
		MaxRaceDuration:   3 * time.Minute,
		BotTick:           100 * time.Millisecond,
		PromptTimeout:     2 * time.Second,
		PublishTimeout:    5 * time.Second,
	}
}

// Awarder takes experience awards without blocking the caller.
type Awarder interface {
	Award(identity string, amount int)
}

type Deps struct {
	Clock     clockwork.Clock
	Rand      *rand.Rand // owned by the room; do not share
	Prompts   prompt.Provider
	Ledger    Awarder
	Publisher publish.Publisher
	Logger    *zap.Logger
}

type nopAwarder struct{}

func (nopAwarder) Award(string, int) {}

type Room struct {
	code    string
	cfg     Config
	inbox   chan Msg
	race    *engine.Race
	version int
	subs    map[string]chan Notification

	clock     clockwork.Clock
	rng       *rand.Rand
	prompts   prompt.Provider
	ledger    Awarder
	publisher publish.Publisher
	log       *zap.Logger

	timers     map[timerKey]armedTimer
	timerSeq   uint64
	bots       map[string]npc.Plan
	nextPrompt *prompt.Prompt

	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, code string, cfg Config, deps Deps) *Room {
	ctx, cancel := context.WithCancel(parent)

	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if deps.Prompts == nil {
		deps.Prompts = prompt.NewStatic(prompt.Defaults(), time.Now().UnixNano())
	}
	if deps.Ledger == nil {
		deps.Ledger = nopAwarder{}
	}
	if deps.Publisher == nil {
		deps.Publisher = publish.Noop{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	r := &Room{
		code:      code,
		cfg:       cfg,
		inbox:     make(chan Msg, 64),
		race:      engine.NewRace(cfg.Rules, deps.Rand),
		subs:      make(map[string]chan Notification),
		clock:     deps.Clock,
		rng:       deps.Rand,
		prompts:   deps.Prompts,
		ledger:    deps.Ledger,
		publisher: deps.Publisher,
		log:       deps.Logger.With(zap.String("room", code)),
		timers:    make(map[timerKey]armedTimer),
		bots:      make(map[string]npc.Plan),
		ctx:       ctx,
		cancel:    cancel,
	}

	go r.loop()
	return r
}

func (r *Room) Code() string { return r.code }

// Post queues m for the room. It returns false once the room has shut down.
func (r *Room) Post(m Msg) bool {
	if r.ctx.Err() != nil {
		return false
	}
	select {
	case r.inbox <- m:
		return true
	case <-r.ctx.Done():
		return false
	}
}

func (r *Room) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if !r.Post(GetState{Reply: reply}) {
		return View{}, ErrClosed
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return View{}, ctx.Err()
	case <-r.ctx.Done():
		return View{}, ErrClosed
	}
}

func (r *Room) Done() <-chan struct{} { return r.ctx.Done() }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Subscribe:
				r.subs[msg.Session] = msg.Outbox
				r.sendTo(msg.Session, r.participantsNotification())

			case Unsubscribe:
				delete(r.subs, msg.Session)
				if _, ok := r.race.NameForSession(msg.Session); ok {
					r.apply(engine.Command{Type: engine.CmdLeave, Session: msg.Session}, "")
				}

			case FromSession:
				r.fromSession(msg)

			case timerFired:
				r.onTimer(msg)

			case promptFetched:
				if msg.Epoch == r.race.Epoch && r.race.Status == engine.StatusCountdown {
					p := msg.Prompt
					r.nextPrompt = &p
				}

			case GetState:
				msg.Reply <- r.view()

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) fromSession(msg FromSession) {
	cmd := msg.Cmd
	cmd.Session = msg.Session
	cmd.At = r.clock.Now()

	switch cmd.Type {
	case engine.CmdJoin:
	case engine.CmdSetReady, engine.CmdProgress, engine.CmdFinish:
		name, ok := r.race.NameForSession(msg.Session)
		if !ok {
			r.log.Debug("command from session without participant",
				zap.String("session", msg.Session),
				zap.String("cmd", string(cmd.Type)))
			return
		}
		cmd.Name = name
	default:
		r.log.Warn("command not accepted from clients",
			zap.String("session", msg.Session),
			zap.String("cmd", string(cmd.Type)))
		return
	}

	r.apply(cmd, msg.Session)
}

// apply runs cmd through the race and turns the resulting events into
// timers, broadcasts and awards. requester is the session to notify when a
// join is refused.
func (r *Room) apply(cmd engine.Command, requester string) {
	epoch := r.race.Epoch
	events, err := r.race.Apply(cmd)
	if err != nil {
		r.reject(cmd, requester, err)
		return
	}
	if len(events) == 0 {
		return
	}

	r.version++
	if r.race.Epoch != epoch {
		r.stopTimers()
		r.enterStatus()
	}
	for _, ev := range events {
		r.handle(ev)
	}
}

func (r *Room) reject(cmd engine.Command, requester string, err error) {
	r.log.Debug("command rejected",
		zap.String("cmd", string(cmd.Type)),
		zap.String("name", cmd.Name),
		zap.String("status", string(r.race.Status)),
		zap.Error(err))

	if cmd.Type != engine.CmdJoin || requester == "" {
		return
	}
	msg := err.Error()
	if errors.Is(err, engine.ErrWrongStatus) {
		msg = "race in progress, wait for the next one"
	}
	r.sendTo(requester, Notification{Kind: KindError, Error: msg})
}

// enterStatus arms what the new status needs. Timers of the previous status
// are already stopped.
func (r *Room) enterStatus() {
	r.nextPrompt = nil

	switch r.race.Status {
	case engine.StatusCountdown:
		go r.fetchPrompt(r.race.Epoch)

	case engine.StatusActive:
		if r.cfg.MaxRaceDuration > 0 {
			r.arm(timerTimeout, r.cfg.MaxRaceDuration)
		}
		length := r.race.PromptLength()
		for _, b := range r.race.Bots() {
			r.bots[b.Name] = npc.NewPlan(r.rng, b.TargetWPM, length)
			r.arm(botTimer(b.Name), r.cfg.BotTick)
		}

	case engine.StatusFinished:
		r.arm(timerReset, r.cfg.ResultsDelay)
	}
}

func (r *Room) handle(ev engine.Event) {
	switch ev.Type {
	case engine.EvtParticipantsChanged:
		r.broadcast(r.participantsNotification())

	case engine.EvtCountdownTick:
		r.arm(timerCountdown, r.cfg.CountdownInterval)
		r.broadcast(Notification{Kind: KindCountdown, SecondsRemaining: ev.SecondsRemaining})

	case engine.EvtCountdownElapsed:
		r.startRace()

	case engine.EvtRaceStarted:
		r.log.Info("race started",
			zap.String("race_id", ev.RaceID),
			zap.Int("participants", len(r.race.Snapshot())),
			zap.Int("humans", r.race.Humans()))
		r.broadcast(Notification{Kind: KindRaceStarted, Prompt: ev.Prompt, RaceID: ev.RaceID})

	case engine.EvtProgress:
		r.broadcast(Notification{
			Kind:     KindProgress,
			Name:     ev.Name,
			Progress: ev.Progress,
			WPM:      ev.WPM,
			Accuracy: ev.Accuracy,
		})

	case engine.EvtParticipantFinished:
		r.disarm(botTimer(ev.Name))
		delete(r.bots, ev.Name)
		r.broadcast(Notification{
			Kind:     KindProgress,
			Name:     ev.Name,
			Progress: ev.Progress,
			WPM:      ev.WPM,
			Accuracy: ev.Accuracy,
			Finished: true,
			Position: ev.Position,
		})

	case engine.EvtGraceStarted:
		// grace replaces the max duration cap
		r.disarm(timerTimeout)
		r.arm(timerGrace, r.cfg.GracePeriod)
		r.broadcast(Notification{Kind: KindGrace, Name: ev.Name, SecondsRemaining: ceilSeconds(r.cfg.GracePeriod)})

	case engine.EvtRewardEarned:
		if !ev.Simulated {
			r.ledger.Award(ev.Identity, ev.XP)
		}

	case engine.EvtRaceCompleted:
		r.log.Info("race completed", zap.String("race_id", ev.RaceID), zap.Int("results", len(ev.Results)))
		r.broadcast(Notification{Kind: KindRaceCompleted, RaceID: ev.RaceID, Results: ev.Results})
		r.publishResults(ev)

	case engine.EvtRoomReset:
		r.broadcast(Notification{Kind: KindRoomReset})

	case engine.EvtCountdownStarted, engine.EvtCountdownAborted:
		r.log.Debug("countdown", zap.String("event", string(ev.Type)))
	}
}

func (r *Room) startRace() {
	text := prompt.Fallback().Text
	if r.nextPrompt != nil && r.nextPrompt.Text != "" {
		text = r.nextPrompt.Text
	} else {
		r.log.Warn("no prompt fetched before countdown elapsed, using fallback")
	}
	r.nextPrompt = nil

	r.apply(engine.Command{
		Type:   engine.CmdStartRace,
		Prompt: text,
		RaceID: ksuid.New().String(),
		At:     r.clock.Now(),
	}, "")
}

func (r *Room) fetchPrompt(epoch int) {
	ctx, cancel := context.WithTimeout(r.ctx, r.cfg.PromptTimeout)
	defer cancel()

	p, err := r.prompts.RandomPrompt(ctx, r.cfg.Difficulty)
	if err != nil {
		r.log.Warn("prompt provider failed", zap.Error(err))
		return
	}
	r.post(promptFetched{Epoch: epoch, Prompt: p})
}

func (r *Room) publishResults(ev engine.Event) {
	payload := publish.RaceCompleted{
		Room:        r.code,
		RaceID:      ev.RaceID,
		Prompt:      r.race.Prompt,
		StartedAt:   r.race.StartedAt,
		CompletedAt: r.clock.Now(),
		Results:     ev.Results,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.PublishTimeout)
		defer cancel()
		if err := r.publisher.PublishRaceCompleted(ctx, payload); err != nil {
			r.log.Error("failed to publish race result", zap.String("race_id", payload.RaceID), zap.Error(err))
		}
	}()
}

func (r *Room) post(m Msg) {
	select {
	case r.inbox <- m:
	case <-r.ctx.Done():
	}
}

func (r *Room) shutdown() {
	r.stopTimers()
	for id, ch := range r.subs {
		close(ch) // no more notifications
		delete(r.subs, id)
	}
	r.cancel()
}

func (r *Room) broadcast(n Notification) {
	n.Version = r.version
	n.Status = r.race.Status
	for id, ch := range r.subs {
		select {
		case ch <- n:
			//ok
		default:
			// Session is slow/full - drop it.
			r.log.Warn("dropping slow session", zap.String("session", id))
			close(ch)
			delete(r.subs, id)
		}
	}
}

func (r *Room) sendTo(session string, n Notification) {
	ch, ok := r.subs[session]
	if !ok {
		return
	}
	n.Version = r.version
	n.Status = r.race.Status
	select {
	case ch <- n:
	default:
		close(ch)
		delete(r.subs, session)
	}
}

func (r *Room) participantsNotification() Notification {
	n := Notification{Kind: KindParticipants, Participants: r.race.Snapshot()}
	if r.race.Status == engine.StatusActive {
		n.Prompt = r.race.Prompt
		n.RaceID = r.race.RaceID
	}
	return n
}

func (r *Room) view() View {
	return View{
		Code:               r.code,
		Version:            r.version,
		NumClients:         len(r.subs),
		Status:             r.race.Status,
		Epoch:              r.race.Epoch,
		Prompt:             r.race.Prompt,
		RaceID:             r.race.RaceID,
		StartedAt:          r.race.StartedAt,
		CountdownRemaining: r.race.CountdownRemaining,
		Participants:       r.race.Snapshot(),
		Results:            append([]engine.Result(nil), r.race.Results...),
		ArmedTimers:        len(r.timers),
	}
}

func ceilSeconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}
