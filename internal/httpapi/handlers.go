package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/keyrace/internal/hub"
	"github.com/DoyleJ11/keyrace/internal/ws"
	"github.com/DoyleJ11/keyrace/pkg/types"
)

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

func CreateRoom(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var code string
		for {
			c, err := GenerateCode()
			if err != nil {
				http.Error(w, "failed to generate code", http.StatusInternalServerError)
				return
			}
			existing, err := h.Get(r.Context(), c)
			if err != nil {
				http.Error(w, "server shutting down", http.StatusServiceUnavailable)
				return
			}
			if existing == nil {
				code = c
				break
			}
			log.Debug("collision on room code, regenerating", zap.String("code", c))
		}

		rm, err := h.Ensure(r.Context(), code)
		if err != nil || rm == nil {
			http.Error(w, "failed to create room", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, struct {
			Code string `json:"code"`
		}{Code: code})
	}
}

func ListRooms(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, err := h.List(r.Context())
		if err != nil {
			http.Error(w, "server shutting down", http.StatusServiceUnavailable)
			return
		}

		out := make([]types.Room, 0, len(rooms))
		for _, rm := range rooms {
			v, err := rm.State(r.Context())
			if err != nil {
				// Closed between listing and asking.
				continue
			}
			out = append(out, ws.RoomView(v))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func GetRoom(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm, err := h.Get(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			http.Error(w, "server shutting down", http.StatusServiceUnavailable)
			return
		}
		if rm == nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		v, err := rm.State(r.Context())
		if err != nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, ws.RoomView(v))
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
