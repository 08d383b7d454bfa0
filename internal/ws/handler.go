package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/keyrace/internal/engine"
	"github.com/DoyleJ11/keyrace/internal/hub"
	"github.com/DoyleJ11/keyrace/internal/room"
	"github.com/DoyleJ11/keyrace/pkg/types"
)

type Options struct {
	// OriginPatterns is passed to websocket.Accept. Empty means same origin
	// only.
	OriginPatterns []string
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	OutboxSize     int
	Logger         *zap.Logger
}

func DefaultOptions() Options {
	return Options{
		WriteTimeout: 3 * time.Second,
		PingInterval: 20 * time.Second,
		OutboxSize:   64,
		Logger:       zap.NewNop(),
	}
}

func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.OutboxSize <= 0 {
		opts.OutboxSize = 64
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 3 * time.Second
	}

	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("room")
		if code == "" {
			code = hub.DefaultRoom
		}

		rm, err := h.Get(r.Context(), code)
		if err != nil {
			http.Error(w, "server shutting down", http.StatusServiceUnavailable)
			return
		}
		if rm == nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		session := uuid.NewString()
		log := opts.Logger.With(zap.String("room", code), zap.String("session", session))

		out := make(chan room.Notification, opts.OutboxSize)
		if !rm.Post(room.Subscribe{Session: session, Outbox: out}) {
			conn.Close(websocket.StatusGoingAway, "room closed")
			return
		}
		defer rm.Post(room.Unsubscribe{Session: session})
		log.Debug("session connected")

		if name := r.URL.Query().Get("name"); name != "" {
			rm.Post(room.FromSession{Session: session, Cmd: engine.Command{Type: engine.CmdJoin, Name: name}})
		}

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go writeLoop(writeCtx, conn, out, opts, log)

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					log.Debug("session closed")
				default:
					log.Debug("session read failed", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeError(r.Context(), conn, opts.WriteTimeout, "bad json")
				continue
			}

			cmd, ok := toEngineCommand(cm)
			if !ok {
				writeError(r.Context(), conn, opts.WriteTimeout, "unknown type")
				continue
			}

			if !rm.Post(room.FromSession{Session: session, Cmd: cmd}) {
				return
			}
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, out <-chan room.Notification, opts Options, log *zap.Logger) {
	var ping <-chan time.Time
	if opts.PingInterval > 0 {
		ticker := time.NewTicker(opts.PingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return

		case n, ok := <-out:
			if !ok {
				// Dropped as slow, or the room shut down.
				conn.Close(websocket.StatusTryAgainLater, "disconnected by room")
				return
			}
			wctx, cancel := context.WithTimeout(ctx, opts.WriteTimeout)
			err := wsjson.Write(wctx, conn, toServerMessage(n))
			cancel()
			if err != nil {
				log.Debug("session write failed", zap.Error(err))
				conn.Close(websocket.StatusInternalError, "write failed")
				return
			}

		case <-ping:
			pctx, cancel := context.WithTimeout(ctx, opts.WriteTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				log.Debug("session ping failed", zap.Error(err))
				conn.Close(websocket.StatusPolicyViolation, "ping timeout")
				return
			}
		}
	}
}

func writeError(ctx context.Context, conn *websocket.Conn, timeout time.Duration, msg string) {
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_ = wsjson.Write(wctx, conn, types.ServerMessage{Type: string(room.KindError), Error: msg})
}
