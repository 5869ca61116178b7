package graph

import (
	"time"

	"github.com/kkeeland/trak/internal/types"
)

// Heat computes the non-negative ordering score for non-ready work:
//
//	heat = 2·|dependents|
//	     + min(floor(age_days/7), 3)   if status ∉ {done, archived}
//	     + 2                           if last journal entry < 1 day old
//	     + 1                           if 1 day ≤ last journal entry < 3 days old
//	     + priority
//	     − 2                           if status = blocked (floor at 0)
func (g *Graph) Heat(t *types.Task, now time.Time) int {
	score := 2 * len(g.children[t.ID])

	if !t.Status.Terminal() {
		if created, err := types.ParseTime(t.CreatedAt); err == nil {
			ageDays := now.Sub(created).Hours() / 24
			bump := int(ageDays / 7)
			if bump > 3 {
				bump = 3
			}
			if bump > 0 {
				score += bump
			}
		}
	}

	if last := lastJournalTime(t, now); last != nil {
		age := now.Sub(*last)
		switch {
		case age < 24*time.Hour:
			score += 2
		case age < 72*time.Hour:
			score += 1
		}
	}

	score += t.Priority

	if t.Status == types.StatusBlocked {
		score -= 2
	}

	if score < 0 {
		return 0
	}
	return score
}

func lastJournalTime(t *types.Task, now time.Time) *time.Time {
	if len(t.Journal) == 0 {
		return nil
	}
	latest := t.Journal[0].Timestamp
	for _, j := range t.Journal[1:] {
		if j.Timestamp > latest {
			latest = j.Timestamp
		}
	}
	parsed, err := types.ParseTime(latest)
	if err != nil {
		return nil
	}
	return &parsed
}
