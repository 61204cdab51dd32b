package main

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests exercise hub fanout and slow-client eviction without a real
// websocket server. Clients have a nil conn; the hub guards against it.

func newTestHub(t *testing.T, sendBuf int, broadcastBuf int) *Hub {
	t.Helper()
	return NewHub(discardLogger(), HubConfig{
		SendBuf:      sendBuf,
		BroadcastBuf: broadcastBuf,
	})
}

func newTestClient(hub *Hub, name string, buf int) *Client {
	return &Client{
		hub:        hub,
		send:       make(chan []byte, buf),
		id:         name,
		remoteAddr: name,
		logger:     discardLogger(),
	}
}

func registerClient(t *testing.T, hub *Hub, c *Client) {
	t.Helper()
	hub.register <- c
	waitUntil(t, 500*time.Millisecond, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		_, ok := hub.clients[c]
		return ok
	}, c.id+" not registered in time")
}

func runHub(t *testing.T, hub *Hub) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Run(ctx)
	}()
	return func() {
		stop()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for hub to stop")
		}
	}
}

func TestHub_BroadcastDeliveredToAllClients(t *testing.T) {
	hub := newTestHub(t, 4, 8)
	stop := runHub(t, hub)
	defer stop()

	c1 := newTestClient(hub, "c1", 4)
	c2 := newTestClient(hub, "c2", 4)
	registerClient(t, hub, c1)
	registerClient(t, hub, c2)
	assert.Equal(t, 2, hub.ClientCount())

	msg := []byte(`{"type":"segment_changed","data":{"segment":1}}`)

	// BroadcastBytes may drop under load; write to the queue directly.
	hub.broadcast <- msg

	for _, c := range []*Client{c1, c2} {
		select {
		case got := <-c.send:
			assert.Equal(t, string(msg), string(got), c.id)
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("timeout waiting for %s to receive broadcast", c.id)
		}
	}
}

func TestHub_SlowClientDisconnectedOnFullSendBuffer(t *testing.T) {
	hub := newTestHub(t, 1, 8)
	stop := runHub(t, hub)
	defer stop()

	slow := newTestClient(hub, "slow", 1)
	fast := newTestClient(hub, "fast", 8)
	registerClient(t, hub, slow)
	registerClient(t, hub, fast)

	slow.send <- []byte(`"already queued"`)

	msg := []byte(`{"type":"playback_finished","data":{"reason":"complete"}}`)
	hub.broadcast <- msg

	select {
	case got := <-fast.send:
		assert.Equal(t, string(msg), string(got))
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timeout waiting for fast client to receive broadcast")
	}

	// Drain the pre-filled message, then expect the channel to be closed.
	select {
	case <-slow.send:
	default:
	}
	waitUntil(t, 750*time.Millisecond, func() bool {
		select {
		case _, ok := <-slow.send:
			return !ok
		default:
			return false
		}
	}, "expected slow send channel to be closed")
	waitUntil(t, 500*time.Millisecond, func() bool { return hub.ClientCount() == 1 }, "slow client still registered")
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := newTestHub(t, 4, 8)
	stop := runHub(t, hub)
	defer stop()

	c := newTestClient(hub, "c", 4)
	registerClient(t, hub, c)

	hub.unregister <- c
	waitUntil(t, 500*time.Millisecond, func() bool {
		select {
		case _, ok := <-c.send:
			return !ok
		default:
			return false
		}
	}, "expected send channel to be closed")

	// A second unregister is a no-op.
	hub.unregister <- c
	waitUntil(t, 500*time.Millisecond, func() bool { return hub.ClientCount() == 0 }, "client still registered")
}

func TestHub_SendToAfterRemovalDoesNotPanic(t *testing.T) {
	hub := newTestHub(t, 4, 8)
	stop := runHub(t, hub)
	defer stop()

	c := newTestClient(hub, "c", 1)
	registerClient(t, hub, c)

	assert.True(t, hub.SendTo(c, []byte(`{"type":"state_init"}`)))
	// Queue is full now.
	assert.False(t, hub.SendTo(c, []byte(`{"type":"state_init"}`)))

	hub.unregister <- c
	waitUntil(t, 500*time.Millisecond, func() bool { return hub.ClientCount() == 0 }, "client still registered")

	// send is closed; SendTo must refuse rather than panic.
	assert.NotPanics(t, func() {
		assert.False(t, hub.SendTo(c, []byte(`{"type":"state_init"}`)))
	})
	assert.False(t, hub.SendTo(newTestClient(hub, "never", 1), []byte(`{}`)))
}

func TestConvertBroadcast(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	ev, ok := convertBroadcast(BroadcastPlaybackFinished{Session: "s1", Reason: finishError, Error: "boom", At: at})
	require.True(t, ok)
	assert.Equal(t, "playback_finished", ev.Type)
	assert.Equal(t, at, ev.At)

	msg, err := marshalEnvelope(ev)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"type":"playback_finished","ts":"2024-05-01T12:00:00Z","data":{"session":"s1","reason":"error","error":"boom"}}`,
		string(msg))

	ev, ok = convertBroadcast(BroadcastViaPointsChanged{})
	require.True(t, ok)
	msg, err = marshalEnvelope(ev)
	require.NoError(t, err)
	var env struct {
		Data wsViaPointsChangedData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(msg, &env))
	assert.NotNil(t, env.Data.Points, "empty via-point list is encoded as []")

	for _, b := range []StateBroadcast{
		BroadcastPlaybackStarted{},
		BroadcastSegmentChanged{},
		BroadcastJointCommand{},
	} {
		_, ok := convertBroadcast(b)
		assert.True(t, ok, "%T", b)
	}
}

func TestSnapshotPayload(t *testing.T) {
	p := snapshotPayload(StateSnapshot{State: "idle", JointNames: []string{"A"}})
	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"state":"idle","segment":0,"segments":0,"elapsed_s":0,"joint_names":["A"],"via_points":[]}`,
		string(b))
}

func TestRunBroadcaster_CoalescesJointCommands(t *testing.T) {
	hub := newTestHub(t, 4, 64)
	src := make(chan StateBroadcast, 16)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		RunBroadcaster(ctx, hub, src, discardLogger())
	}()

	for i := 1; i <= 5; i++ {
		src <- BroadcastJointCommand{Session: "s1", Positions: []float64{float64(i)}, Velocities: []float64{0}}
	}
	src <- BroadcastPlaybackFinished{Session: "s1", Reason: finishComplete}

	type frame struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	var frames []frame
	waitUntil(t, time.Second, func() bool {
		for {
			select {
			case msg := <-hub.broadcast:
				var f frame
				require.NoError(t, json.Unmarshal(msg, &f))
				frames = append(frames, f)
			default:
				return len(frames) > 0 && frames[len(frames)-1].Type == "playback_finished"
			}
		}
	}, "playback_finished not broadcast")

	// Fewer joint_command frames than inputs, the last one carrying the
	// latest setpoint, and nothing after playback_finished.
	require.GreaterOrEqual(t, len(frames), 2)
	assert.Less(t, len(frames)-1, 5)
	last := frames[len(frames)-2]
	require.Equal(t, "joint_command", last.Type)
	var cmd wsJointCommandData
	require.NoError(t, json.Unmarshal(last.Data, &cmd))
	assert.Equal(t, []float64{5}, cmd.Positions)

	close(src)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcaster did not stop")
	}
}

func TestRunBroadcaster_FlushesAfterWindow(t *testing.T) {
	hub := newTestHub(t, 4, 64)
	src := make(chan StateBroadcast, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go RunBroadcaster(ctx, hub, src, discardLogger())

	src <- BroadcastJointCommand{Session: "s1", Positions: []float64{1}, Velocities: []float64{0}}

	select {
	case msg := <-hub.broadcast:
		assert.Contains(t, string(msg), `"joint_command"`)
	case <-time.After(10 * wsJointCommandCoalesceWindow):
		t.Fatal("pending joint_command was never flushed")
	}
}
