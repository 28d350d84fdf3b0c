package session

import (
	"cmp"
	"slices"
	"time"

	"github.com/mcdev12/typerace/go/internal/models"
)

// ranking orders users by descending progress. The sort is stable, so ties
// keep join order.
func (r *Room) ranking() []*User {
	ranked := slices.Clone(r.Users)
	slices.SortStableFunc(ranked, func(a, b *User) int {
		return cmp.Compare(b.Progress, a.Progress)
	})
	return ranked
}

func (r *Room) rankedUsernames() []string {
	ranked := r.ranking()
	names := make([]string, 0, len(ranked))
	for _, u := range ranked {
		names = append(names, u.Username)
	}
	return names
}

// standings is the final order of a race: progress first, then earlier
// finishers ahead of later ones.
func (r *Room) standings() []models.Standing {
	ranked := slices.Clone(r.Users)
	slices.SortStableFunc(ranked, func(a, b *User) int {
		if c := cmp.Compare(b.Progress, a.Progress); c != 0 {
			return c
		}
		return compareFinish(a.FinishedAt, b.FinishedAt)
	})

	out := make([]models.Standing, 0, len(ranked))
	for i, u := range ranked {
		s := models.Standing{
			Place:    i + 1,
			Username: u.Username,
			Progress: u.Progress,
		}
		if u.FinishedAt != nil {
			t := *u.FinishedAt
			s.FinishedAt = &t
		}
		out = append(out, s)
	}
	return out
}

// compareFinish sorts finish times ascending with unfinished users last.
func compareFinish(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return a.Compare(*b)
	}
}
