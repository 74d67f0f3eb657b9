package engine

import (
	"sort"

	"github.com/koren85/mstopostgres-sub000/internal/model"
)

// DetectDiscrepancies flags class identities from the batch whose
// records were assigned different non-null priznaks across uploads or
// source systems. One Discrepancy is emitted per identity, aggregating
// every priznak value and source system involved; identities where all
// records agree produce nothing. The computation is a pure function of
// its inputs, so re-running it over an unchanged dataset flags the same
// identities.
func DetectDiscrepancies(batchRecords, allRecords []model.ClassRecord) []model.Discrepancy {
	byIdentity := make(map[model.ClassIdentity][]*model.ClassRecord)
	for i := range allRecords {
		r := &allRecords[i]
		byIdentity[r.Identity()] = append(byIdentity[r.Identity()], r)
	}

	seen := make(map[model.ClassIdentity]bool)
	var discrepancies []model.Discrepancy

	for i := range batchRecords {
		record := &batchRecords[i]
		identity := record.Identity()
		if seen[identity] {
			continue
		}
		seen[identity] = true

		priznaks := make(map[model.Priznak]bool)
		sources := make(map[string]bool)

		if record.HasPriznak() {
			priznaks[*record.Priznak] = true
			sources[record.SourceSystem] = true
		}
		for _, candidate := range byIdentity[identity] {
			if candidate.BatchID == record.BatchID && candidate.ID == record.ID {
				continue
			}
			if !candidate.HasPriznak() {
				continue
			}
			priznaks[*candidate.Priznak] = true
			sources[candidate.SourceSystem] = true
		}

		if len(priznaks) < 2 {
			continue
		}

		discrepancies = append(discrepancies, model.Discrepancy{
			Identity:      identity,
			Priznaks:      sortedPriznaks(priznaks),
			SourceSystems: sortedStrings(sources),
		})
	}

	sort.Slice(discrepancies, func(i, j int) bool {
		if discrepancies[i].Identity.ClassName != discrepancies[j].Identity.ClassName {
			return discrepancies[i].Identity.ClassName < discrepancies[j].Identity.ClassName
		}
		return discrepancies[i].Identity.Description < discrepancies[j].Identity.Description
	})

	return discrepancies
}

func sortedPriznaks(set map[model.Priznak]bool) []model.Priznak {
	out := make([]model.Priznak, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedStrings(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		if s != "" {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
