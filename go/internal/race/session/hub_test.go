package session

import (
	"context"
	"testing"
	"time"

	"github.com/mcdev12/typerace/go/internal/models"
	"github.com/mcdev12/typerace/go/internal/race/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_DuplicateUsername(t *testing.T) {
	h := newHarness(t, testConfig(10, 60))
	h.connect("alice")
	h.submit(CreateRoom{Username: "alice", RoomName: "alpha"})
	h.submit(JoinRoom{Username: "alice", RoomName: "alpha"})
	h.flush()

	err := h.hub.Connect(h.ctx, "alice")
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	// the first connection keeps its registration and its room
	s := h.stats()
	assert.Equal(t, 1, s.ConnectedUsers)
	room, ok := roomFromStats(s, "alpha")
	require.True(t, ok)
	require.Len(t, room.Users, 1)
	assert.Equal(t, "alice", room.Users[0].Username)
	assert.Empty(t, h.drain())
}

func TestHub_EmptyUsernameRejected(t *testing.T) {
	h := newHarness(t, testConfig(10, 60))
	assert.ErrorIs(t, h.hub.Connect(h.ctx, ""), ErrInvalidUsername)
}

func TestHub_RoomCapacity(t *testing.T) {
	cfg := testConfig(10, 60)
	cfg.MaxUsersPerRoom = 2
	h := newHarness(t, cfg)
	h.connect("alice", "bob", "carol")

	h.submit(CreateRoom{Username: "alice", RoomName: "alpha"})
	h.submit(CreateRoom{Username: "carol", RoomName: "beta"})
	h.submit(JoinRoom{Username: "alice", RoomName: "alpha"})
	h.submit(JoinRoom{Username: "bob", RoomName: "alpha"})
	h.submit(JoinRoom{Username: "carol", RoomName: "alpha"})
	out := h.flush()

	errs := out.toUser("carol", events.TypeRoomError)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrRoomFull.Error(), errs[0].Data)
	assert.Empty(t, out.toUser("alice", events.TypeRoomError))

	s := h.stats()
	room, _ := roomFromStats(s, "alpha")
	assert.Len(t, room.Users, 2)
	assert.Equal(t, 1, s.Available)

	// every directory snapshot after bob joined leaves alpha out
	listings := out.of(events.TypeUpdateRooms)
	require.NotEmpty(t, listings)
	assert.Equal(t, []string{"beta"}, listedNames(listings[len(listings)-1]))

	h.submit(GetRooms{Username: "carol"})
	got := h.flush().toUser("carol", events.TypeUpdateRooms)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"beta"}, listedNames(got[0]))
}

func TestHub_RoomErrors(t *testing.T) {
	tests := []struct {
		name    string
		setup   []Command
		cmd     Command
		wantErr error
	}{
		{
			name:    "create duplicate",
			setup:   []Command{CreateRoom{Username: "alice", RoomName: "alpha"}},
			cmd:     CreateRoom{Username: "bob", RoomName: "alpha"},
			wantErr: ErrRoomExists,
		},
		{
			name:    "create blank",
			cmd:     CreateRoom{Username: "bob", RoomName: "   "},
			wantErr: ErrInvalidRoomName,
		},
		{
			name:    "join missing",
			cmd:     JoinRoom{Username: "bob", RoomName: "ghost"},
			wantErr: ErrRoomMissing,
		},
		{
			name:    "leave missing",
			cmd:     LeaveRoom{Username: "bob", RoomName: "ghost"},
			wantErr: ErrRoomMissing,
		},
		{
			name: "leave as non-member",
			setup: []Command{
				CreateRoom{Username: "alice", RoomName: "alpha"},
				JoinRoom{Username: "alice", RoomName: "alpha"},
			},
			cmd:     LeaveRoom{Username: "bob", RoomName: "alpha"},
			wantErr: ErrNotInRoom,
		},
		{
			name:    "ready outside a room",
			cmd:     UpdateReadyStatus{Username: "bob", Ready: true},
			wantErr: ErrNotInRoom,
		},
		{
			name: "create while seated",
			setup: []Command{
				CreateRoom{Username: "alice", RoomName: "alpha"},
				JoinRoom{Username: "bob", RoomName: "alpha"},
			},
			cmd:     CreateRoom{Username: "bob", RoomName: "beta"},
			wantErr: ErrAlreadyInRoom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, testConfig(10, 60))
			h.connect("alice", "bob")
			for _, cmd := range tt.setup {
				h.submit(cmd)
			}
			h.flush()

			h.submit(tt.cmd)
			out := h.flush()

			errs := out.toUser("bob", events.TypeRoomError)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.wantErr.Error(), errs[0].Data)
			// errors stay with the originator
			assert.Len(t, out, 1)
		})
	}
}

func TestHub_CreateAndJoinEvents(t *testing.T) {
	h := newHarness(t, testConfig(10, 60))
	h.connect("alice", "bob")

	h.submit(CreateRoom{Username: "alice", RoomName: "alpha"})
	out := h.flush()
	require.NotEmpty(t, out)
	assert.Equal(t, events.Subscribe{Room: "alpha", Username: "alice"}, out[0])
	created := out.toUser("alice", events.TypeRoomCreated)
	require.Len(t, created, 1)
	assert.Equal(t, events.RoomCreatedPayload{RoomName: "alpha", Username: "alice"}, created[0].Data)
	assert.Equal(t, []string{"alpha"}, listedNames(out.last(events.TypeUpdateRooms)))

	h.submit(JoinRoom{Username: "alice", RoomName: "alpha"})
	h.submit(JoinRoom{Username: "bob", RoomName: "alpha"})
	out = h.flush()

	assert.Contains(t, out, events.Outbound(events.Subscribe{Room: "alpha", Username: "bob"}))
	joined := out.toUser("bob", events.TypeRoomJoined)
	require.Len(t, joined, 1)
	assert.Equal(t, "alpha", joined[0].Data)

	roster := out.toRoom("alpha", events.TypeRoomUsers)
	require.Len(t, roster, 2)
	assert.Equal(t, []events.UserView{
		{Username: "alice"},
		{Username: "bob"},
	}, roster[1].Data)
}

func TestHub_CountdownStartsOnce(t *testing.T) {
	h := newHarness(t, testConfig(10, 60))
	out := h.raceRoom()

	starts := out.toRoom("alpha", events.TypeStartTimer)
	require.Len(t, starts, 1)
	payload := starts[0].Data.(events.StartTimerPayload)
	assert.GreaterOrEqual(t, payload.TextID, 0)
	assert.Less(t, payload.TextID, len(corpus))
	assert.Equal(t, 10, payload.PreGameSeconds)
	assert.Equal(t, 60, payload.RaceSeconds)
	assert.Equal(t, string(PhaseCountdown), payload.Room.Phase)

	// the room is hidden while counting down
	assert.Empty(t, listedNames(out.last(events.TypeUpdateRooms)))

	// toggling again does not restart anything
	h.submit(UpdateReadyStatus{Username: "bob", Ready: false})
	h.submit(UpdateReadyStatus{Username: "bob", Ready: true})
	out = h.flush()
	assert.Empty(t, out.of(events.TypeStartTimer))
	assert.Len(t, out.toRoom("alpha", events.TypeReadyStatusUpdated), 2)

	s := h.stats()
	assert.Equal(t, 1, s.Countdown)
	room, _ := roomFromStats(s, "alpha")
	require.NotNil(t, room.TextID)
	assert.Equal(t, payload.TextID, *room.TextID)
}

func TestHub_SingleReadyUserDoesNotStart(t *testing.T) {
	h := newHarness(t, testConfig(10, 60))
	h.connect("alice")
	h.submit(CreateRoom{Username: "alice", RoomName: "alpha"})
	h.submit(JoinRoom{Username: "alice", RoomName: "alpha"})
	h.submit(UpdateReadyStatus{Username: "alice", Ready: true})

	assert.Empty(t, h.flush().of(events.TypeStartTimer))
}

func TestHub_CountdownTicksThenRaceStarts(t *testing.T) {
	h := newHarness(t, testConfig(3, 60), WithTextPicker(func(int) int { return 1 }))
	h.raceRoom()

	out := h.ticks(3)
	ticks := out.toRoom("alpha", events.TypeTimerTick)
	require.Len(t, ticks, 3)
	for i, want := range []int{2, 1, 0} {
		p := ticks[i].Data.(events.TimerTickPayload)
		assert.Equal(t, want, p.Remaining)
		assert.Equal(t, string(PhaseCountdown), p.Phase)
	}

	started := out.toRoom("alpha", events.TypeRaceStarted)
	require.Len(t, started, 1)
	assert.Equal(t, events.RaceStartedPayload{
		Room:        "alpha",
		TextID:      1,
		Text:        corpus[1],
		RaceSeconds: 60,
	}, started[0].Data)
	assert.Equal(t, 1, h.stats().Racing)

	// the race timer is now the one ticking
	p := h.tick().last(events.TypeTimerTick).Data.(events.TimerTickPayload)
	assert.Equal(t, string(PhaseRacing), p.Phase)
	assert.Equal(t, 59, p.Remaining)
}

func TestHub_RankingFollowsProgress(t *testing.T) {
	h := newHarness(t, testConfig(0, 60))
	h.raceRoom()

	h.submit(UpdateProgress{Username: "alice", Progress: 50})
	h.submit(UpdateProgress{Username: "bob", Progress: 70})
	out := h.flush()
	assert.Equal(t, []string{"bob", "alice"}, out.last(events.TypeUpdateUserOrder).Data)

	h.submit(UpdateProgress{Username: "alice", Progress: 90})
	out = h.flush()
	assert.Equal(t, []string{"alice", "bob"}, out.last(events.TypeUpdateUserOrder).Data)
	assert.Equal(t, events.ProgressPayload{Username: "alice", Progress: 90}, out.last(events.TypeProgressUpdate).Data)
}

func TestHub_ProgressTrustedAsReported(t *testing.T) {
	h := newHarness(t, testConfig(0, 60))
	h.raceRoom()

	h.submit(UpdateProgress{Username: "alice", Progress: 140})
	out := h.flush()
	assert.Equal(t, events.ProgressPayload{Username: "alice", Progress: 140}, out.last(events.TypeProgressUpdate).Data)
	assert.Empty(t, out.of(events.TypeUserFinished))

	// a lower value is accepted too; there is no monotonic check
	h.submit(UpdateProgress{Username: "alice", Progress: 30})
	out = h.flush()
	assert.Equal(t, events.ProgressPayload{Username: "alice", Progress: 30}, out.last(events.TypeProgressUpdate).Data)
	assert.Empty(t, out.of(events.TypeGameFinished))
}

func TestHub_ProgressOutsideRaceIgnored(t *testing.T) {
	h := newHarness(t, testConfig(10, 60))
	h.raceRoom()

	h.submit(UpdateProgress{Username: "alice", Progress: 40})
	h.submit(UpdateProgress{Username: "nobody", Progress: 40})
	assert.Empty(t, h.flush())
}

func TestHub_AllFinishedEndsRaceOnce(t *testing.T) {
	h := newHarness(t, testConfig(0, 3))
	h.raceRoom()

	h.submit(UpdateProgress{Username: "alice", Progress: 100})
	h.submit(UpdateProgress{Username: "bob", Progress: 100})
	h.submit(UpdateProgress{Username: "bob", Progress: 100})
	out := h.flush()

	finished := out.toRoom("alpha", events.TypeGameFinished)
	require.Len(t, finished, 1)
	payload := finished[0].Data.(events.GameFinishedPayload)
	assert.Equal(t, models.FinishReasonAllFinished, payload.Reason)
	require.Len(t, payload.Standings, 2)
	assert.Equal(t, "alice", payload.Standings[0].Username)
	assert.Equal(t, 1, payload.Standings[0].Place)

	// the race timer was cancelled; advancing past it emits nothing
	h.clock.Advance(5 * time.Second)
	out = h.flush()
	assert.Empty(t, out.of(events.TypeGameFinished))
	assert.Empty(t, out.of(events.TypeTimerTick))

	// a stale tick is dropped
	h.submit(timerTick{Room: "alpha", TimerID: 1 << 20})
	assert.Empty(t, h.flush())

	require.Len(t, h.recorder.all(), 1)
	assert.Equal(t, models.FinishReasonAllFinished, h.recorder.all()[0].Reason)
}

func TestHub_FinishResetsRoom(t *testing.T) {
	h := newHarness(t, testConfig(0, 60))
	h.raceRoom()

	h.submit(UpdateProgress{Username: "alice", Progress: 100})
	h.submit(UpdateProgress{Username: "bob", Progress: 100})
	out := h.flush()

	roster := out.toRoom("alpha", events.TypeRoomUsers)
	require.NotEmpty(t, roster)
	assert.Equal(t, []events.UserView{{Username: "alice"}, {Username: "bob"}}, roster[len(roster)-1].Data)
	assert.Equal(t, []string{"alpha"}, listedNames(out.last(events.TypeUpdateRooms)))

	room, _ := roomFromStats(h.stats(), "alpha")
	assert.Equal(t, string(PhaseLobby), room.Phase)
	assert.Nil(t, room.TextID)

	// a second race can start
	h.submit(UpdateReadyStatus{Username: "alice", Ready: true})
	h.submit(UpdateReadyStatus{Username: "bob", Ready: true})
	assert.Len(t, h.flush().of(events.TypeStartTimer), 1)
}

func TestHub_AlphaScenario(t *testing.T) {
	setup := func(t *testing.T) (*harness, recorded) {
		h := newHarness(t, testConfig(2, 5))
		h.raceRoom()
		out := h.ticks(2)
		require.Len(t, out.of(events.TypeRaceStarted), 1)

		h.submit(UpdateProgress{Username: "alice", Progress: 100})
		return h, h.flush()
	}

	t.Run("bob finishes", func(t *testing.T) {
		h, out := setup(t)
		finishedUsers := out.toRoom("alpha", events.TypeUserFinished)
		require.Len(t, finishedUsers, 1)
		assert.Equal(t, "alice", finishedUsers[0].Data)
		assert.Empty(t, out.of(events.TypeGameFinished))

		h.submit(UpdateProgress{Username: "bob", Progress: 100})
		out = h.flush()
		finished := out.of(events.TypeGameFinished)
		require.Len(t, finished, 1)
		assert.Equal(t, models.FinishReasonAllFinished, finished[0].Data.(events.GameFinishedPayload).Reason)
	})

	t.Run("race timer expires", func(t *testing.T) {
		h, out := setup(t)
		assert.Empty(t, out.of(events.TypeGameFinished))

		h.submit(UpdateProgress{Username: "bob", Progress: 40})
		h.flush()

		out = h.ticks(5)
		finished := out.of(events.TypeGameFinished)
		require.Len(t, finished, 1)
		payload := finished[0].Data.(events.GameFinishedPayload)
		assert.Equal(t, models.FinishReasonTimeout, payload.Reason)
		require.Len(t, payload.Standings, 2)
		assert.Equal(t, "alice", payload.Standings[0].Username)
		assert.NotNil(t, payload.Standings[0].FinishedAt)
		assert.Equal(t, 40, payload.Standings[1].Progress)

		// late progress after the finish goes nowhere
		h.submit(UpdateProgress{Username: "bob", Progress: 100})
		assert.Empty(t, h.flush())

		results := h.recorder.all()
		require.Len(t, results, 1)
		assert.Equal(t, "alice", results[0].Winner())
		assert.Equal(t, "alpha", results[0].Room)
	})
}

func TestHub_LastUserLeaves(t *testing.T) {
	tests := []struct {
		name  string
		leave func(h *harness)
	}{
		{
			name:  "leave",
			leave: func(h *harness) { h.submit(LeaveRoom{Username: "alice", RoomName: "alpha"}) },
		},
		{
			name:  "disconnect",
			leave: func(h *harness) { h.submit(Disconnect{Username: "alice"}) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, testConfig(10, 60))
			h.connect("alice", "bob")
			h.submit(CreateRoom{Username: "alice", RoomName: "alpha"})
			h.submit(JoinRoom{Username: "alice", RoomName: "alpha"})
			h.flush()

			tt.leave(h)
			out := h.flush()

			removed := out.of(events.TypeRoomRemoved)
			require.Len(t, removed, 1)
			assert.Equal(t, "alpha", removed[0].Data)
			assert.NotContains(t, listedNames(out.last(events.TypeUpdateRooms)), "alpha")

			h.submit(GetRooms{Username: "bob"})
			assert.Empty(t, listedNames(h.flush().last(events.TypeUpdateRooms)))

			h.submit(JoinRoom{Username: "bob", RoomName: "alpha"})
			assert.Len(t, h.flush().toUser("bob", events.TypeRoomError), 1)
		})
	}
}

func TestHub_LeaveKeepsRoomForOthers(t *testing.T) {
	h := newHarness(t, testConfig(10, 60))
	h.connect("alice", "bob")
	h.submit(CreateRoom{Username: "alice", RoomName: "alpha"})
	h.submit(JoinRoom{Username: "alice", RoomName: "alpha"})
	h.submit(JoinRoom{Username: "bob", RoomName: "alpha"})
	h.flush()

	h.submit(LeaveRoom{Username: "alice", RoomName: "alpha"})
	out := h.flush()

	assert.Contains(t, out, events.Outbound(events.Unsubscribe{Room: "alpha", Username: "alice"}))
	updated := out.toRoom("alpha", events.TypeUsersUpdated)
	require.Len(t, updated, 1)
	assert.Equal(t, "alice", updated[0].Data)
	assert.Empty(t, out.of(events.TypeRoomRemoved))
}

func TestHub_DisconnectMidRaceFinishesForRemaining(t *testing.T) {
	h := newHarness(t, testConfig(0, 60))
	h.raceRoom()

	h.submit(UpdateProgress{Username: "alice", Progress: 100})
	h.flush()

	h.submit(Disconnect{Username: "bob"})
	out := h.flush()

	finished := out.of(events.TypeGameFinished)
	require.Len(t, finished, 1)
	payload := finished[0].Data.(events.GameFinishedPayload)
	require.Len(t, payload.Standings, 1)
	assert.Equal(t, "alice", payload.Standings[0].Username)
}

func TestHub_CountdownAbortsWithoutQuorum(t *testing.T) {
	h := newHarness(t, testConfig(10, 60))
	h.raceRoom()

	h.submit(Disconnect{Username: "bob"})
	out := h.flush()

	cancelled := out.toRoom("alpha", events.TypeCountdownCancelled)
	require.Len(t, cancelled, 1)
	assert.Equal(t, []string{"alpha"}, listedNames(out.last(events.TypeUpdateRooms)))

	room, _ := roomFromStats(h.stats(), "alpha")
	assert.Equal(t, string(PhaseLobby), room.Phase)
	require.Len(t, room.Users, 1)
	assert.True(t, room.Users[0].Ready)

	// no timer is left behind
	h.clock.Advance(20 * time.Second)
	assert.Empty(t, h.flush())
}

func TestHub_OrphanRoomRemovedWithCreator(t *testing.T) {
	h := newHarness(t, testConfig(10, 60))
	h.connect("alice")
	h.submit(CreateRoom{Username: "alice", RoomName: "alpha"})
	h.flush()

	h.submit(Disconnect{Username: "alice"})
	out := h.flush()
	assert.Len(t, out.of(events.TypeRoomRemoved), 1)
	assert.Zero(t, h.stats().ConnectedUsers)

	// the name can be registered again
	assert.NoError(t, h.hub.Connect(h.ctx, "alice"))
}

func TestHub_DestroyDropsCreatorSubscription(t *testing.T) {
	h := newHarness(t, testConfig(10, 60))
	h.connect("alice", "bob")
	h.submit(CreateRoom{Username: "alice", RoomName: "alpha"})
	h.submit(JoinRoom{Username: "bob", RoomName: "alpha"})
	h.flush()

	h.submit(LeaveRoom{Username: "bob", RoomName: "alpha"})
	out := h.flush()
	require.Len(t, out.of(events.TypeRoomRemoved), 1)
	assert.Contains(t, out, events.Outbound(events.Unsubscribe{Room: "alpha", Username: "alice"}))
	assert.Contains(t, out, events.Outbound(events.Unsubscribe{Room: "alpha", Username: "bob"}))

	// a creator who sat in the room already left through the normal path
	h.submit(CreateRoom{Username: "bob", RoomName: "beta"})
	h.submit(JoinRoom{Username: "bob", RoomName: "beta"})
	h.flush()
	h.submit(LeaveRoom{Username: "bob", RoomName: "beta"})
	var unsubs int
	for _, o := range h.flush() {
		if u, ok := o.(events.Unsubscribe); ok && u.Room == "beta" {
			unsubs++
		}
	}
	assert.Equal(t, 1, unsubs)
}

func TestHub_ResetUsersOnlyInLobby(t *testing.T) {
	h := newHarness(t, testConfig(10, 60))
	h.connect("alice", "bob", "carol")
	h.submit(CreateRoom{Username: "alice", RoomName: "alpha"})
	h.submit(JoinRoom{Username: "alice", RoomName: "alpha"})
	h.submit(JoinRoom{Username: "bob", RoomName: "alpha"})
	h.submit(JoinRoom{Username: "carol", RoomName: "alpha"})
	h.submit(UpdateReadyStatus{Username: "alice", Ready: true})
	h.flush()

	h.submit(ResetUsers{Username: "alice", RoomName: "alpha"})
	out := h.flush()
	roster := out.toRoom("alpha", events.TypeRoomUsers)
	require.Len(t, roster, 1)
	for _, u := range roster[0].Data.([]events.UserView) {
		assert.False(t, u.Ready)
	}

	h.submit(UpdateReadyStatus{Username: "alice", Ready: true})
	h.submit(UpdateReadyStatus{Username: "bob", Ready: true})
	h.submit(UpdateReadyStatus{Username: "carol", Ready: true})
	require.Len(t, h.flush().of(events.TypeStartTimer), 1)

	h.submit(ResetUsers{Username: "alice", RoomName: "alpha"})
	assert.Empty(t, h.flush())
}

func TestHub_UnavailableRoomRebroadcasts(t *testing.T) {
	h := newHarness(t, testConfig(10, 60))
	h.raceRoom()

	h.submit(UnavailableRoom{Username: "alice", RoomName: "alpha"})
	h.submit(UnavailableRoom{Username: "alice", RoomName: "ghost"})
	out := h.flush()
	require.Len(t, out.of(events.TypeUpdateRooms), 1)
	assert.Empty(t, listedNames(out.last(events.TypeUpdateRooms)))
}

func TestHub_EmptyCorpusNeverStarts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := newRecordingSink()
	hub := NewHub(testConfig(10, 60), testCorpus{}, sink)
	go hub.Run(ctx)

	require.NoError(t, hub.Connect(ctx, "alice"))
	require.NoError(t, hub.Connect(ctx, "bob"))
	for _, cmd := range []Command{
		CreateRoom{Username: "alice", RoomName: "alpha"},
		JoinRoom{Username: "alice", RoomName: "alpha"},
		JoinRoom{Username: "bob", RoomName: "alpha"},
		UpdateReadyStatus{Username: "alice", Ready: true},
		UpdateReadyStatus{Username: "bob", Ready: true},
	} {
		require.NoError(t, hub.Submit(ctx, cmd))
	}

	s, err := hub.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, s.Countdown)
}

func TestHub_SubmitAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(DefaultConfig(), corpus, newRecordingSink())

	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	<-hub.Started()
	cancel()
	<-done

	// the inbox has room; the stopped hub must still refuse every command
	for range 100 {
		err := hub.Submit(context.Background(), GetRooms{Username: "alice"})
		require.ErrorIs(t, err, ErrHubStopped)
	}
	assert.Empty(t, hub.inbox)
}
