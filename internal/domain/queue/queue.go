// Package queue holds the pure rules of a clinic's treatment queue: how it
// is ordered, who is being treated, and who goes in next.
package queue

import (
	"sort"

	"clinicflow/internal/domain/entity"
)

// Sort pins IN_TREATMENT entries first. The sort is stable, so entries keep
// the creation-time order they were fetched in.
func Sort(entries []entity.QueueEntry) []entity.QueueEntry {
	sorted := make([]entity.QueueEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].IsInTreatment() && !sorted[j].IsInTreatment()
	})
	return sorted
}

// Occupant returns the entry currently in treatment, if any
func Occupant(entries []entity.QueueEntry) (*entity.QueueEntry, bool) {
	for i := range entries {
		if entries[i].IsInTreatment() {
			return &entries[i], true
		}
	}
	return nil, false
}

// Waiting returns the IN_QUEUE entries in queue order
func Waiting(entries []entity.QueueEntry) []entity.QueueEntry {
	waiting := make([]entity.QueueEntry, 0, len(entries))
	for _, e := range entries {
		if e.IsWaiting() {
			waiting = append(waiting, e)
		}
	}
	return waiting
}
