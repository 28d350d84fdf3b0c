package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/typerace/go/internal/models"
	"github.com/mcdev12/typerace/go/internal/race/events"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 2 * time.Second

type testCorpus []string

func (c testCorpus) Count() int { return len(c) }

func (c testCorpus) Text(id int) (models.Text, error) {
	if id < 0 || id >= len(c) {
		return models.Text{}, fmt.Errorf("text %d not found", id)
	}
	return models.Text{ID: id, Body: c[id]}, nil
}

var corpus = testCorpus{
	"The quick brown fox jumps over the lazy dog.",
	"Pack my box with five dozen liquor jugs.",
	"How vexingly quick daft zebras jump.",
}

// recordingSink captures everything the hub emits, in order.
type recordingSink struct {
	ch chan events.Outbound
}

func newRecordingSink() *recordingSink {
	return &recordingSink{ch: make(chan events.Outbound, 4096)}
}

func (s *recordingSink) Deliver(out events.Outbound) {
	s.ch <- out
}

type memoryRecorder struct {
	mu      sync.Mutex
	results []models.RaceResult
}

func (r *memoryRecorder) Record(result models.RaceResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

func (r *memoryRecorder) all() []models.RaceResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.RaceResult(nil), r.results...)
}

// recorded is a slice of captured outbound instructions with lookup helpers.
type recorded []events.Outbound

func eventOf(out events.Outbound) (events.Event, bool) {
	switch o := out.(type) {
	case events.ToAll:
		return o.Event, true
	case events.ToRoom:
		return o.Event, true
	case events.ToUser:
		return o.Event, true
	}
	return events.Event{}, false
}

// of returns the events of type t, whatever their audience.
func (r recorded) of(t events.EventType) []events.Event {
	var out []events.Event
	for _, o := range r {
		if e, ok := eventOf(o); ok && e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (r recorded) toUser(username string, t events.EventType) []events.Event {
	var out []events.Event
	for _, o := range r {
		if u, ok := o.(events.ToUser); ok && u.Username == username && u.Event.Type == t {
			out = append(out, u.Event)
		}
	}
	return out
}

func (r recorded) toRoom(room string, t events.EventType) []events.Event {
	var out []events.Event
	for _, o := range r {
		if u, ok := o.(events.ToRoom); ok && u.Room == room && u.Event.Type == t {
			out = append(out, u.Event)
		}
	}
	return out
}

func (r recorded) last(t events.EventType) events.Event {
	all := r.of(t)
	if len(all) == 0 {
		return events.Event{}
	}
	return all[len(all)-1]
}

type harness struct {
	t        *testing.T
	ctx      context.Context
	hub      *Hub
	sink     *recordingSink
	clock    *clockwork.FakeClock
	recorder *memoryRecorder
}

func testConfig(pre, race int) Config {
	cfg := DefaultConfig()
	cfg.PreRaceSeconds = pre
	cfg.RaceSeconds = race
	return cfg
}

func newHarness(t *testing.T, cfg Config, opts ...Option) *harness {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{
		t:        t,
		ctx:      ctx,
		sink:     newRecordingSink(),
		clock:    clockwork.NewFakeClock(),
		recorder: &memoryRecorder{},
	}
	opts = append([]Option{WithClock(h.clock), WithRecorder(h.recorder)}, opts...)
	h.hub = NewHub(cfg, corpus, h.sink, opts...)

	go h.hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-h.hub.done
	})
	return h
}

func (h *harness) submit(cmd Command) {
	h.t.Helper()
	require.NoError(h.t, h.hub.Submit(h.ctx, cmd))
}

func (h *harness) connect(usernames ...string) {
	h.t.Helper()
	for _, name := range usernames {
		require.NoError(h.t, h.hub.Connect(h.ctx, name))
	}
}

// flush waits for every queued command to be processed and returns what the
// hub emitted since the last flush.
func (h *harness) flush() recorded {
	h.t.Helper()
	_, err := h.hub.Stats(h.ctx)
	require.NoError(h.t, err)
	return h.drain()
}

func (h *harness) drain() recorded {
	var out recorded
	for {
		select {
		case o := <-h.sink.ch:
			out = append(out, o)
		default:
			return out
		}
	}
}

func (h *harness) stats() Stats {
	h.t.Helper()
	s, err := h.hub.Stats(h.ctx)
	require.NoError(h.t, err)
	return s
}

// tick advances the fake clock by one second once a timer is waiting on it
// and returns everything the hub emitted up to and including that tick.
func (h *harness) tick() recorded {
	h.t.Helper()

	ctx, cancel := context.WithTimeout(h.ctx, waitTimeout)
	defer cancel()
	require.NoError(h.t, h.clock.BlockUntilContext(ctx, 1), "no timer running")
	h.clock.Advance(time.Second)

	var out recorded
	for {
		select {
		case o := <-h.sink.ch:
			out = append(out, o)
			if e, ok := eventOf(o); ok && e.Type == events.TypeTimerTick {
				return append(out, h.flush()...)
			}
		case <-ctx.Done():
			h.t.Fatal("timed out waiting for timer tick")
			return out
		}
	}
}

func (h *harness) ticks(n int) recorded {
	h.t.Helper()
	var out recorded
	for range n {
		out = append(out, h.tick()...)
	}
	return out
}

// raceRoom puts alice and bob in room alpha and readies both.
func (h *harness) raceRoom() recorded {
	h.t.Helper()
	h.connect("alice", "bob")
	h.submit(CreateRoom{Username: "alice", RoomName: "alpha"})
	h.submit(JoinRoom{Username: "alice", RoomName: "alpha"})
	h.submit(JoinRoom{Username: "bob", RoomName: "alpha"})
	h.submit(UpdateReadyStatus{Username: "alice", Ready: true})
	h.submit(UpdateReadyStatus{Username: "bob", Ready: true})
	return h.flush()
}

func roomFromStats(s Stats, name string) (events.RoomView, bool) {
	for _, r := range s.Rooms {
		if r.Name == name {
			return r, true
		}
	}
	return events.RoomView{}, false
}

func listedNames(e events.Event) []string {
	var names []string
	for _, r := range e.Data.([]events.RoomView) {
		names = append(names, r.Name)
	}
	return names
}
