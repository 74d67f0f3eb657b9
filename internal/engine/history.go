package engine

import (
	"github.com/koren85/mstopostgres-sub000/internal/model"
)

// MatchOutcome is the result of matching a record against historical
// classification decisions for the same class identity.
type MatchOutcome struct {
	Conflicts       map[string]model.Priznak // conflicting batch -> its priznak
	Priznak         model.Priznak
	Confidence      float64
	TotalCandidates int
	Matched         bool
	HasConflicts    bool
}

// MatchHistory tallies priznak votes among historical records sharing
// the record's (className, description) identity, excluding the
// record's own batch. Confidence is the winning group's share of all
// candidates. Equal vote counts resolve to the lexicographically
// smallest priznak so re-runs are deterministic.
func MatchHistory(record *model.ClassRecord, history []model.ClassRecord) MatchOutcome {
	identity := record.Identity()

	votes := make(map[model.Priznak]int)
	conflicts := make(map[string]model.Priznak)
	total := 0

	for i := range history {
		candidate := &history[i]
		if candidate.BatchID == record.BatchID {
			continue
		}
		if candidate.Identity() != identity {
			continue
		}
		if !candidate.HasPriznak() {
			continue
		}
		votes[*candidate.Priznak]++
		conflicts[candidate.BatchID] = *candidate.Priznak
		total++
	}

	if total == 0 {
		return MatchOutcome{}
	}

	var winner model.Priznak
	best := -1
	for p, count := range votes {
		if count > best || (count == best && p < winner) {
			winner = p
			best = count
		}
	}

	outcome := MatchOutcome{
		Matched:         true,
		Priznak:         winner,
		Confidence:      float64(best) / float64(total),
		TotalCandidates: total,
		HasConflicts:    len(votes) > 1,
	}

	if outcome.HasConflicts {
		outcome.Conflicts = make(map[string]model.Priznak)
		for batchID, p := range conflicts {
			if p != winner {
				outcome.Conflicts[batchID] = p
			}
		}
	}

	return outcome
}
