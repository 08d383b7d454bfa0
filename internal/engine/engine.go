package engine

import (
	"errors"
	"math/rand"
	"time"
	"unicode/utf8"

	"github.com/DoyleJ11/keyrace/internal/npc"
)

var ErrWrongStatus = errors.New("command not allowed in current status")
var ErrUnknownParticipant = errors.New("unknown participant")
var ErrAlreadyFinished = errors.New("participant already finished")
var ErrAlreadyJoined = errors.New("session already joined")
var ErrRoomFull = errors.New("room is full")
var ErrNameTaken = errors.New("display name taken")
var ErrInvalidName = errors.New("invalid display name")
var ErrEmptyPrompt = errors.New("prompt is empty")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusCountdown Status = "countdown"
	StatusActive    Status = "active"
	StatusFinished  Status = "finished"
)

type Rules struct {
	Capacity       int
	CountdownTicks int
	MinBotWPM      float64
	MaxBotWPM      float64
}

func DefaultRules() Rules {
	return Rules{Capacity: 8, CountdownTicks: 3, MinBotWPM: 30, MaxBotWPM: 90}
}

type CommandType string

const (
	CmdJoin          CommandType = "Join"
	CmdLeave         CommandType = "Leave"
	CmdSetReady      CommandType = "SetReady"
	CmdProgress      CommandType = "Progress"
	CmdFinish        CommandType = "Finish"
	CmdCountdownTick CommandType = "CountdownTick"
	CmdStartRace     CommandType = "StartRace"
	CmdCloseRace     CommandType = "CloseRace"
	CmdReset         CommandType = "Reset"
)

/*
	CmdSetReady      -> EvtParticipantsChanged (-> EvtCountdownStarted -> EvtCountdownTick)
	CmdCountdownTick -> EvtCountdownTick or EvtCountdownElapsed
	CmdStartRace     -> EvtRaceStarted -> EvtParticipantsChanged
	CmdFinish        -> EvtParticipantFinished -> EvtRewardEarned (-> EvtGraceStarted on the first finisher)
	CmdCloseRace     -> EvtRewardEarned per straggler -> EvtRaceCompleted
	CmdReset         -> EvtRoomReset -> EvtParticipantsChanged
*/

type Command struct {
	Type      CommandType
	Name      string
	Session   string
	Identity  string
	Cosmetics map[string]string
	Ready     bool
	Progress  float64
	WPM       float64
	Accuracy  float64
	Prompt    string
	RaceID    string
	At        time.Time
}

type EventType string

const (
	EvtParticipantsChanged EventType = "ParticipantsChanged"
	EvtCountdownStarted    EventType = "CountdownStarted"
	EvtCountdownTick       EventType = "CountdownTick"
	EvtCountdownElapsed    EventType = "CountdownElapsed"
	EvtCountdownAborted    EventType = "CountdownAborted"
	EvtRaceStarted         EventType = "RaceStarted"
	EvtProgress            EventType = "Progress"
	EvtParticipantFinished EventType = "ParticipantFinished"
	EvtGraceStarted        EventType = "GraceStarted"
	EvtRewardEarned        EventType = "RewardEarned"
	EvtRaceCompleted       EventType = "RaceCompleted"
	EvtRoomReset           EventType = "RoomReset"
)

type Event struct {
	Type             EventType
	Name             string
	Identity         string
	Simulated        bool
	SecondsRemaining int
	Prompt           string
	RaceID           string
	Progress         float64
	WPM              float64
	Accuracy         float64
	Position         int
	XP               int
	Results          []Result
}

// Race is the lifecycle of one room. It is not safe for concurrent use; the
// room actor owns it.
type Race struct {
	Status             Status
	Prompt             string
	RaceID             string
	StartedAt          time.Time
	CountdownRemaining int
	Epoch              int
	Results            []Result
	Rules              Rules

	roster    *Roster
	finishers int
	rng       *rand.Rand
}

func NewRace(rules Rules, rng *rand.Rand) *Race {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Race{
		Status: StatusWaiting,
		Rules:  rules,
		roster: NewRoster(),
		rng:    rng,
	}
}

// Apply validates cmd against the current status. A rejected command returns
// an error and leaves the race untouched.
func (r *Race) Apply(cmd Command) ([]Event, error) {
	switch cmd.Type {
	case CmdJoin:
		return r.join(cmd)
	case CmdLeave:
		return r.leave(cmd)
	case CmdSetReady:
		return r.setReady(cmd)
	case CmdProgress:
		return r.reportProgress(cmd)
	case CmdFinish:
		return r.reportFinish(cmd)
	case CmdCountdownTick:
		return r.countdownTick()
	case CmdStartRace:
		return r.start(cmd)
	case CmdCloseRace:
		return r.close()
	case CmdReset:
		return r.reset()
	default:
		return nil, ErrUnsupportedCommand
	}
}

func (r *Race) join(cmd Command) ([]Event, error) {
	if r.Status != StatusWaiting && r.Status != StatusCountdown {
		return nil, ErrWrongStatus
	}
	if !validName(cmd.Name) {
		return nil, ErrInvalidName
	}

	if existing := r.roster.Get(cmd.Name); existing != nil {
		if !existing.Simulated && existing.Session == cmd.Session {
			// Re-join from the same session.
			return nil, nil
		}
		return nil, ErrNameTaken
	}
	if cmd.Session != "" && r.roster.BySession(cmd.Session) != nil {
		return nil, ErrAlreadyJoined
	}

	if r.roster.Len() >= r.Rules.Capacity {
		bot := r.roster.LastBot()
		if r.Status != StatusCountdown || bot == nil {
			return nil, ErrRoomFull
		}
		r.roster.Remove(bot.Name)
	}

	identity := cmd.Identity
	if identity == "" {
		identity = cmd.Name
	}
	r.roster.Add(&Participant{
		Name:      cmd.Name,
		Session:   cmd.Session,
		Identity:  identity,
		Cosmetics: cmd.Cosmetics,
		Ready:     r.Status == StatusCountdown,
		Accuracy:  100,
	})

	return []Event{{Type: EvtParticipantsChanged}}, nil
}

func (r *Race) leave(cmd Command) ([]Event, error) {
	p := r.roster.BySession(cmd.Session)
	if p == nil || p.Simulated {
		return nil, ErrUnknownParticipant
	}

	if r.Status == StatusActive {
		// Kept for results and the straggler reward.
		p.Left = true
		p.Session = ""
		return []Event{{Type: EvtParticipantsChanged}}, nil
	}

	r.roster.Remove(p.Name)
	events := []Event{}

	if r.Status == StatusCountdown && r.roster.Humans() == 0 {
		r.roster.RemoveBots()
		r.CountdownRemaining = 0
		r.transition(StatusWaiting)
		events = append(events, Event{Type: EvtCountdownAborted})
	}

	events = append(events, Event{Type: EvtParticipantsChanged})
	return events, nil
}

func (r *Race) setReady(cmd Command) ([]Event, error) {
	if r.Status != StatusWaiting {
		return nil, ErrWrongStatus
	}
	p := r.roster.Get(cmd.Name)
	if p == nil || p.Simulated {
		return nil, ErrUnknownParticipant
	}

	p.Ready = cmd.Ready
	if !cmd.Ready {
		return []Event{{Type: EvtParticipantsChanged}}, nil
	}

	// One ready human is enough to arm the countdown.
	r.fillBots()
	r.CountdownRemaining = r.Rules.CountdownTicks
	r.transition(StatusCountdown)

	return []Event{
		{Type: EvtCountdownStarted},
		{Type: EvtParticipantsChanged},
		{Type: EvtCountdownTick, SecondsRemaining: r.CountdownRemaining},
	}, nil
}

func (r *Race) countdownTick() ([]Event, error) {
	if r.Status != StatusCountdown || r.CountdownRemaining <= 0 {
		return nil, ErrWrongStatus
	}

	r.CountdownRemaining--
	if r.CountdownRemaining > 0 {
		return []Event{{Type: EvtCountdownTick, SecondsRemaining: r.CountdownRemaining}}, nil
	}
	return []Event{{Type: EvtCountdownElapsed}}, nil
}

func (r *Race) start(cmd Command) ([]Event, error) {
	if r.Status != StatusCountdown || r.CountdownRemaining > 0 {
		return nil, ErrWrongStatus
	}
	if cmd.Prompt == "" {
		return nil, ErrEmptyPrompt
	}

	r.Prompt = cmd.Prompt
	r.RaceID = cmd.RaceID
	r.StartedAt = cmd.At
	r.Results = nil
	r.finishers = 0
	for _, p := range r.roster.All() {
		p.resetRaceFields()
		p.Ready = true
	}
	r.transition(StatusActive)

	return []Event{
		{Type: EvtRaceStarted, Prompt: r.Prompt, RaceID: r.RaceID},
		{Type: EvtParticipantsChanged},
	}, nil
}

func (r *Race) reportProgress(cmd Command) ([]Event, error) {
	if r.Status != StatusActive {
		return nil, ErrWrongStatus
	}
	p := r.roster.Get(cmd.Name)
	if p == nil || p.Left {
		return nil, ErrUnknownParticipant
	}
	if p.Finished {
		return nil, ErrAlreadyFinished
	}

	p.Progress = clamp(cmd.Progress, 0, 1)
	p.WPM = clamp(cmd.WPM, 0, maxWPM)
	p.Accuracy = clamp(cmd.Accuracy, 0, 100)

	return []Event{{
		Type:     EvtProgress,
		Name:     p.Name,
		Progress: p.Progress,
		WPM:      p.WPM,
		Accuracy: p.Accuracy,
	}}, nil
}

func (r *Race) reportFinish(cmd Command) ([]Event, error) {
	if r.Status != StatusActive {
		return nil, ErrWrongStatus
	}
	p := r.roster.Get(cmd.Name)
	if p == nil || p.Left {
		return nil, ErrUnknownParticipant
	}
	if p.Finished {
		return nil, ErrAlreadyFinished
	}

	offset := cmd.At.Sub(r.StartedAt)
	if offset < 0 {
		offset = 0
	}

	r.finishers++
	p.Finished = true
	p.Progress = 1
	p.WPM = clamp(cmd.WPM, 0, maxWPM)
	p.Accuracy = clamp(cmd.Accuracy, 0, 100)
	p.FinishOffset = offset
	p.Position = r.finishers

	length := r.PromptLength()
	p.XP = Reward(p.Position, length, length)
	p.Rewarded = true

	events := []Event{
		{
			Type:     EvtParticipantFinished,
			Name:     p.Name,
			Progress: p.Progress,
			WPM:      p.WPM,
			Accuracy: p.Accuracy,
			Position: p.Position,
		},
		{Type: EvtRewardEarned, Name: p.Name, Identity: p.Identity, Simulated: p.Simulated, XP: p.XP},
	}
	if r.finishers == 1 {
		events = append(events, Event{Type: EvtGraceStarted, Name: p.Name})
	}
	return events, nil
}

func (r *Race) close() ([]Event, error) {
	if r.Status != StatusActive {
		return nil, ErrWrongStatus
	}

	length := r.PromptLength()
	events := []Event{}

	results := Rank(r.roster.All())
	for i := range results {
		res := &results[i]
		p := r.roster.Get(res.Name)
		if !res.Finished && !p.Rewarded {
			p.Position = res.Position
			p.XP = Reward(res.Position, typedChars(p.Progress, length), length)
			p.Rewarded = true
			events = append(events, Event{
				Type:      EvtRewardEarned,
				Name:      p.Name,
				Identity:  p.Identity,
				Simulated: p.Simulated,
				XP:        p.XP,
			})
		}
		res.XP = p.XP
	}

	r.Results = results
	r.transition(StatusFinished)

	events = append(events, Event{Type: EvtRaceCompleted, RaceID: r.RaceID, Results: results})
	return events, nil
}

func (r *Race) reset() ([]Event, error) {
	if r.Status != StatusFinished {
		return nil, ErrWrongStatus
	}

	r.roster.RemoveBots()
	r.roster.RemoveLeft()
	for _, p := range r.roster.All() {
		p.resetRaceFields()
		p.Ready = false
	}

	r.Prompt = ""
	r.RaceID = ""
	r.StartedAt = time.Time{}
	r.Results = nil
	r.finishers = 0
	r.CountdownRemaining = 0
	r.transition(StatusWaiting)

	return []Event{{Type: EvtRoomReset}, {Type: EvtParticipantsChanged}}, nil
}

// transition moves to a new status and advances the epoch. Timers armed under
// an older epoch must not mutate the race.
func (r *Race) transition(to Status) {
	r.Status = to
	r.Epoch++
}

func (r *Race) fillBots() {
	need := r.Rules.Capacity - r.roster.Len()
	if need <= 0 {
		return
	}
	profiles := npc.Profiles(r.rng, need, r.roster.Names(), r.Rules.MinBotWPM, r.Rules.MaxBotWPM)
	for _, prof := range profiles {
		r.roster.Add(&Participant{
			Name:      prof.Name,
			Identity:  prof.Name,
			Simulated: true,
			Ready:     true,
			Accuracy:  100,
			TargetWPM: prof.TargetWPM,
			Cosmetics: map[string]string{"faction": prof.Faction},
		})
	}
}

func (r *Race) PromptLength() int {
	return utf8.RuneCountInString(r.Prompt)
}
