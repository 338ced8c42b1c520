package scheduler

import (
	"time"

	"github.com/example/session-scheduler/internal/domain"
	"github.com/example/session-scheduler/internal/recurrence"
)

// Conflict details an existing session that overlaps a candidate window for a
// shared participant.
type Conflict struct {
	WithSessionID string
	Identity      string
	Start         time.Time
	End           time.Time
}

// Overlaps reports whether the half-open windows [aStart,aEnd) and
// [bStart,bEnd) intersect. Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// IdentitySet builds a lookup of normalized participant identities.
func IdentitySet(identities []string) map[string]struct{} {
	set := make(map[string]struct{}, len(identities))
	for _, identity := range identities {
		if normalized := domain.NormalizeIdentity(identity); normalized != "" {
			set[normalized] = struct{}{}
		}
	}
	return set
}

// HasConflict reports whether the candidate window overlaps any existing
// session that involves at least one of the candidate identities.
func HasConflict(candidateStart, candidateEnd time.Time, identities []string, existing []domain.Session) bool {
	return len(DetectConflicts(candidateStart, candidateEnd, identities, existing)) > 0
}

// DetectConflicts lists every existing session that overlaps the candidate
// window for a shared identity, one entry per session. Cancelled sessions
// hold no time and are skipped.
func DetectConflicts(candidateStart, candidateEnd time.Time, identities []string, existing []domain.Session) []Conflict {
	wanted := IdentitySet(identities)
	if len(wanted) == 0 {
		return nil
	}

	var conflicts []Conflict
	for _, session := range existing {
		if session.Status == domain.StatusCancelled {
			continue
		}
		if !Overlaps(candidateStart, candidateEnd, session.StartUTC, session.EndUTC) {
			continue
		}
		for _, identity := range session.Identities() {
			if _, ok := wanted[identity]; ok {
				conflicts = append(conflicts, Conflict{
					WithSessionID: session.ID,
					Identity:      identity,
					Start:         session.StartUTC,
					End:           session.EndUTC,
				})
				break
			}
		}
	}
	return conflicts
}

// CheckOccurrences runs the conflict check once per occurrence and returns a
// ConflictError for the first occurrence that collides. Any collision rejects
// the whole set.
func CheckOccurrences(occurrences []recurrence.Occurrence, identities []string, existing []domain.Session) error {
	for _, occ := range occurrences {
		conflicts := DetectConflicts(occ.Start, occ.End, identities, existing)
		if len(conflicts) == 0 {
			continue
		}
		first := conflicts[0]
		return &domain.ConflictError{
			OccurrenceIndex: occ.Index,
			SessionID:       first.WithSessionID,
			Identity:        first.Identity,
			StartUTC:        occ.Start,
			EndUTC:          occ.End,
		}
	}
	return nil
}
