package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/firstpersontravel/charter-sub005/core"
	"github.com/firstpersontravel/charter-sub005/modules"
	"github.com/firstpersontravel/charter-sub005/service"
	"github.com/firstpersontravel/charter-sub005/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopics(t *testing.T) {
	c := New(nil, nil, "charter/")
	assert.Equal(t, "charter/trips/+/events", c.EventsTopic())
	assert.Equal(t, "charter/trips/t1/ops", c.OpsTopic("t1"))

	for topic, want := range map[string]string{
		"charter/trips/t1/events":   "t1",
		"charter/trips/t1/ops":      "",
		"charter/trips//events":     "",
		"charter/trips/a/b/events":  "",
		"elsewhere/trips/t1/events": "",
	} {
		id, ok := c.TripFromTopic(topic)
		assert.Equal(t, want != "", ok, topic)
		assert.Equal(t, want, id, topic)
	}
}

func TestParseEvent(t *testing.T) {
	ev, role, err := ParseEvent([]byte(`{"type":"cue_signaled","cue":"GO"}`))
	require.NoError(t, err)
	assert.Equal(t, "", role)
	assert.Equal(t, "GO", ev.String("cue"))

	ev, role, err = ParseEvent([]byte(`{"event":{"type":"cue_signaled","cue":"GO"},"role":"Guide"}`))
	require.NoError(t, err)
	assert.Equal(t, "Guide", role)
	assert.Equal(t, "cue_signaled", ev.Type())

	for _, bad := range []string{`[]`, `{"cue":"GO"}`, `{"event":{}}`, `nope`} {
		_, _, err = ParseEvent([]byte(bad))
		assert.Error(t, err, bad)
	}
}

func TestRoundTrip(t *testing.T) {
	c, err := core.ParseScript([]byte(`{
	  "triggers": [{
	    "name": "go",
	    "event": {"type": "cue_signaled", "cue": "GO"},
	    "actions": [{"name": "set_value", "value_ref": "went", "new_value_ref": true}]
	  }]
	}`))
	require.NoError(t, err)

	svc := service.New(store.NewMemory(), modules.MustRegistry())
	require.NoError(t, svc.AddScript("s", c))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, svc.Store.PutTrip(ctx, &core.Trip{ID: "t1", ScriptName: "s"}))

	var (
		mu  sync.Mutex
		out = make(map[string][]byte)
		got = make(chan struct{}, 1)
	)
	cs := New(nil, svc, "charter")
	cs.publish = func(topic string, payload []byte) error {
		mu.Lock()
		out[topic] = payload
		mu.Unlock()
		got <- struct{}{}
		return nil
	}

	published, unsubscribe := svc.Subscribe(4)
	done := make(chan error)
	go func() { done <- cs.outLoop(ctx, published) }()

	cs.consume(ctx, "charter/trips/t1/events", []byte(`{"type":"cue_signaled","cue":"GO"}`))
	cs.consume(ctx, "charter/trips/t1/events", []byte(`garbage`))

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("nothing published")
	}
	unsubscribe()
	require.NoError(t, <-done)

	trip, err := svc.Store.GetTrip(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, true, trip.Values["went"])

	mu.Lock()
	defer mu.Unlock()
	var p struct {
		TripID string                   `json:"tripId"`
		Ops    []map[string]interface{} `json:"ops"`
	}
	require.NoError(t, json.Unmarshal(out["charter/trips/t1/ops"], &p))
	assert.Equal(t, "t1", p.TripID)
	assert.Len(t, p.Ops, 2)
}
