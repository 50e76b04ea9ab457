package dedup

import (
	"time"

	"github.com/novelshelf/novelshelf-server/internal/domain"
	"github.com/novelshelf/novelshelf-server/internal/id"
)

// evidenceLedger collects Evidence records for a run. Evidence is immutable
// once recorded; edges and groups reference entries by id.
type evidenceLedger struct {
	entries map[string]domain.Evidence
	order   []string
	now     func() time.Time
}

func newEvidenceLedger() *evidenceLedger {
	return &evidenceLedger{
		entries: make(map[string]domain.Evidence),
		now:     time.Now,
	}
}

// record creates and stores an evidence entry, returning its id.
func (l *evidenceLedger) record(kind domain.EvidenceKind, detail map[string]string) string {
	evID := id.MustGenerate(id.PrefixEvidence)
	l.entries[evID] = domain.Evidence{
		ID:        evID,
		Kind:      kind,
		Detail:    detail,
		CreatedAt: l.now(),
	}
	l.order = append(l.order, evID)
	return evID
}

// all returns every entry in recording order.
func (l *evidenceLedger) all() []domain.Evidence {
	out := make([]domain.Evidence, 0, len(l.order))
	for _, evID := range l.order {
		out = append(out, l.entries[evID])
	}
	return out
}

// kindOf returns the kind of a recorded entry, or "" for unknown ids.
func (l *evidenceLedger) kindOf(evID string) domain.EvidenceKind {
	return l.entries[evID].Kind
}
