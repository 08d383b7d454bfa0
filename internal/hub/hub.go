package hub

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/keyrace/internal/room"
)

// DefaultRoom is the room clients land in when they do not name one.
const DefaultRoom = "main"

var ErrHubClosed = errors.New("hub closed")

type HubMsg interface{ isHubMsg() }

type CreateRoom struct {
	Code  string
	Reply chan *room.Room
}

type GetRoom struct {
	Code  string
	Reply chan *room.Room
}

type EnsureRoom struct {
	Code  string
	Reply chan *room.Room
}

type RemoveRoom struct {
	Code string
}

type ListRooms struct {
	Reply chan []*room.Room
}

type ShutdownHub struct{}

func (CreateRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (EnsureRoom) isHubMsg()  {}
func (RemoveRoom) isHubMsg()  {}
func (ListRooms) isHubMsg()   {}
func (ShutdownHub) isHubMsg() {}

type Hub struct {
	inbox chan HubMsg
	rooms map[string]*room.Room
	cfg   room.Config
	deps  room.Deps
	seed  int64
	log   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub starts the hub actor. deps is shared by every room except Rand,
// which each room gets its own of.
func NewHub(parent context.Context, cfg room.Config, deps room.Deps) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[string]*room.Room),
		cfg:    cfg,
		deps:   deps,
		seed:   time.Now().UnixNano(),
		log:    deps.Logger,
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom, EnsureRoom:
				code, reply := roomRequest(msg)
				if rm := h.rooms[code]; rm != nil {
					reply <- rm
					break
				}
				reply <- h.newRoom(code)

			case GetRoom:
				msg.Reply <- h.rooms[msg.Code] // May be nil

			case RemoveRoom:
				if rm := h.rooms[msg.Code]; rm != nil {
					rm.Post(room.Shutdown{})
					delete(h.rooms, msg.Code)
					h.log.Info("room removed", zap.String("room", msg.Code))
				}

			case ListRooms:
				out := make([]*room.Room, 0, len(h.rooms))
				for _, rm := range h.rooms {
					out = append(out, rm)
				}
				sort.Slice(out, func(i, j int) bool { return out[i].Code() < out[j].Code() })
				msg.Reply <- out

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func roomRequest(m HubMsg) (string, chan *room.Room) {
	switch msg := m.(type) {
	case CreateRoom:
		return msg.Code, msg.Reply
	case EnsureRoom:
		return msg.Code, msg.Reply
	}
	return "", nil
}

func (h *Hub) newRoom(code string) *room.Room {
	h.seed++
	deps := h.deps
	deps.Rand = rand.New(rand.NewSource(h.seed))
	rm := room.New(h.ctx, code, h.cfg, deps)
	h.rooms[code] = rm
	h.log.Info("room created", zap.String("room", code))
	return rm
}

func (h *Hub) shutdown() {
	for _, rm := range h.rooms {
		rm.Post(room.Shutdown{})
	}
	clear(h.rooms)
	h.cancel()
}

func (h *Hub) send(ctx context.Context, m HubMsg) error {
	select {
	case h.inbox <- m:
		return nil
	case <-h.ctx.Done():
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func awaitReply[T any](ctx context.Context, h *Hub, reply chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-h.ctx.Done():
		return zero, ErrHubClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Ensure returns the room for code, creating it if needed.
func (h *Hub) Ensure(ctx context.Context, code string) (*room.Room, error) {
	reply := make(chan *room.Room, 1)
	if err := h.send(ctx, EnsureRoom{Code: code, Reply: reply}); err != nil {
		return nil, err
	}
	return awaitReply(ctx, h, reply)
}

// Get returns the room for code or nil.
func (h *Hub) Get(ctx context.Context, code string) (*room.Room, error) {
	reply := make(chan *room.Room, 1)
	if err := h.send(ctx, GetRoom{Code: code, Reply: reply}); err != nil {
		return nil, err
	}
	return awaitReply(ctx, h, reply)
}

func (h *Hub) List(ctx context.Context) ([]*room.Room, error) {
	reply := make(chan []*room.Room, 1)
	if err := h.send(ctx, ListRooms{Reply: reply}); err != nil {
		return nil, err
	}
	return awaitReply(ctx, h, reply)
}

func (h *Hub) Remove(ctx context.Context, code string) error {
	return h.send(ctx, RemoveRoom{Code: code})
}
