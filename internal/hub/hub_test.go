package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/keyrace/internal/room"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewHub(ctx, room.DefaultConfig(), room.Deps{})
}

func TestHub_Create_Get_SamePointer(t *testing.T) {
	h := newTestHub(t)
	reply := make(chan *room.Room, 1)

	h.Inbox() <- CreateRoom{Code: "ZED123", Reply: reply}
	rm1 := <-reply

	h.Inbox() <- GetRoom{Code: "ZED123", Reply: reply}
	rm2 := <-reply

	if rm1 == nil || rm2 == nil || rm1 != rm2 {
		t.Fatalf("expected same room pointer")
	}
}

func TestHub_GetUnknownIsNil(t *testing.T) {
	h := newTestHub(t)
	rm, err := h.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, rm)
}

func TestHub_EnsureAndList(t *testing.T) {
	h := newTestHub(t)
	ctx := context.Background()

	a, err := h.Ensure(ctx, DefaultRoom)
	require.NoError(t, err)
	again, err := h.Ensure(ctx, DefaultRoom)
	require.NoError(t, err)
	assert.Same(t, a, again)

	_, err = h.Ensure(ctx, "alpha")
	require.NoError(t, err)

	rooms, err := h.List(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "alpha", rooms[0].Code())
	assert.Equal(t, DefaultRoom, rooms[1].Code())
}

func TestHub_RemoveShutsRoomDown(t *testing.T) {
	h := newTestHub(t)
	ctx := context.Background()

	rm, err := h.Ensure(ctx, "gone")
	require.NoError(t, err)
	require.NoError(t, h.Remove(ctx, "gone"))

	select {
	case <-rm.Done():
	case <-time.After(time.Second):
		t.Fatal("room was not shut down")
	}

	got, err := h.Get(ctx, "gone")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestHub_ShutdownStopsEveryRoom(t *testing.T) {
	h := newTestHub(t)
	rm, err := h.Ensure(context.Background(), "a")
	require.NoError(t, err)

	h.Inbox() <- ShutdownHub{}

	select {
	case <-rm.Done():
	case <-time.After(time.Second):
		t.Fatal("room was not shut down")
	}
	<-h.Done()

	_, err = h.Ensure(context.Background(), "b")
	assert.ErrorIs(t, err, ErrHubClosed)
}
