package replication

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sudooom.grimoire/internal/model"
)

func TestLocalHubFanOut(t *testing.T) {
	hub := NewLocalHub()

	var mu sync.Mutex
	got := map[string][]int64{}
	record := func(name string) Handler {
		return func(e Event) {
			mu.Lock()
			got[name] = append(got[name], e.Version)
			mu.Unlock()
		}
	}

	unsubA, err := hub.Subscribe("ROOM", record("a"))
	require.NoError(t, err)
	_, err = hub.Subscribe("ROOM", record("b"))
	require.NoError(t, err)
	_, err = hub.Subscribe("OTHER", record("other"))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, hub.Publish(ctx, Event{Type: EventRoomUpdated, RoomID: "ROOM", Version: 1}))
	unsubA()
	unsubA()
	require.NoError(t, hub.Publish(ctx, Event{Type: EventRoomUpdated, RoomID: "ROOM", Version: 2}))

	assert.Equal(t, []int64{1}, got["a"])
	assert.Equal(t, []int64{1, 2}, got["b"])
	assert.Empty(t, got["other"])
	assert.Equal(t, 1, hub.Subscribers("ROOM"))
}

func TestBuildRoomSubject(t *testing.T) {
	assert.Equal(t, "grimoire.room.ABCD", BuildRoomSubject(DefaultSubjectPrefix, "ABCD"))
}

// TestNATSChannel 需要本地 NATS，设置 INTEGRATION_TEST=1 运行
func TestNATSChannel(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") == "" {
		t.Skip("Skipping NATS integration test (set INTEGRATION_TEST=1)")
	}
	url := os.Getenv("NATS_URL")
	if url == "" {
		url = "nats://localhost:4222"
	}

	nc, err := Connect(ClientConfig{URL: url, MaxReconnects: 1, ReconnectWait: time.Second})
	if err != nil {
		t.Skipf("NATS 不可用: %v", err)
	}
	defer nc.Close()

	ch := NewNATSChannel(nc, "grimoire.test")
	received := make(chan Event, 1)
	unsub, err := ch.Subscribe("ABCD", func(e Event) { received <- e })
	require.NoError(t, err)
	defer unsub()
	require.NoError(t, nc.Flush())

	room := model.NewRoom("ABCD", "trouble_brewing", "st", "Storyteller", 5, time.Now())
	room.Version = 7
	require.NoError(t, ch.Publish(context.Background(), Event{Type: EventRoomUpdated, RoomID: "ABCD", Version: 7, Room: room}))

	select {
	case e := <-received:
		assert.Equal(t, int64(7), e.Version)
		require.NotNil(t, e.Room)
		assert.Len(t, e.Room.Seats, 5)
	case <-time.After(2 * time.Second):
		t.Fatal("未收到广播")
	}
}
