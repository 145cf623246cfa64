package core

import (
	"strings"

	"github.com/signalsfoundry/peerglobe/model"
)

// NormalizeReport counts what Normalize kept and why it dropped the rest.
type NormalizeReport struct {
	Input         int
	Kept          int
	MissingID     int
	MissingCoords int
	OutOfRange    int
	DuplicateID   int
	DuplicateKey  int
}

// Dropped returns the number of filtered entities.
func (r NormalizeReport) Dropped() int {
	return r.Input - r.Kept
}

// Normalize filters entities without usable coordinates and removes duplicate
// identities. Identity is checked by ID first and then by the optional secondary
// Key. The first occurrence wins; later duplicates are dropped, never merged.
// The input slice is not modified.
func Normalize(entities []model.Entity) ([]model.Entity, NormalizeReport) {
	report := NormalizeReport{Input: len(entities)}
	out := make([]model.Entity, 0, len(entities))

	seenIDs := make(map[string]struct{}, len(entities))
	seenKeys := make(map[string]struct{})

	for _, e := range entities {
		id := strings.TrimSpace(e.ID)
		if id == "" {
			report.MissingID++
			continue
		}
		coord, ok := e.Coordinate()
		if !ok {
			report.MissingCoords++
			continue
		}
		if !ValidCoordinate(coord) {
			report.OutOfRange++
			continue
		}
		if _, dup := seenIDs[id]; dup {
			report.DuplicateID++
			continue
		}
		key := strings.TrimSpace(e.Key)
		if key != "" {
			if _, dup := seenKeys[key]; dup {
				report.DuplicateKey++
				continue
			}
			seenKeys[key] = struct{}{}
		}
		seenIDs[id] = struct{}{}
		e.ID = id
		out = append(out, e)
	}

	report.Kept = len(out)
	return out, report
}
