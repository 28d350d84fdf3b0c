package session

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is the time source for room timers. In production use
// clockwork.NewRealClock(), in tests a FakeClock.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) clockwork.Ticker
}

// roomTimer is a room's running countdown. The goroutine behind it only
// forwards ticks into the hub inbox; the remaining count lives here and is
// touched by the hub alone.
type roomTimer struct {
	id        uint64
	phase     Phase
	remaining int
	ticker    clockwork.Ticker
	cancel    context.CancelFunc
}

// startTimer replaces any running timer on room with a one-second ticker that
// counts down from seconds.
func (h *Hub) startTimer(room *Room, phase Phase, seconds int) {
	h.stopTimer(room)

	h.timerSeq++
	ctx, cancel := context.WithCancel(h.ctx)
	t := &roomTimer{
		id:        h.timerSeq,
		phase:     phase,
		remaining: seconds,
		ticker:    h.clock.NewTicker(time.Second),
		cancel:    cancel,
	}
	room.timer = t

	go forwardTicks(ctx, t.ticker, h.inbox, room.Name, t.id)
}

// stopTimer cancels room's timer. Ticks already queued carry the old id and
// are dropped when they reach the hub.
func (h *Hub) stopTimer(room *Room) {
	if room.timer == nil {
		return
	}
	room.timer.cancel()
	room.timer.ticker.Stop()
	room.timer = nil
}

func forwardTicks(ctx context.Context, ticker clockwork.Ticker, inbox chan<- Command, room string, id uint64) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			select {
			case inbox <- timerTick{Room: room, TimerID: id}:
			case <-ctx.Done():
				return
			}
		}
	}
}
