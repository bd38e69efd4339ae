// Package ledger — the mission's append-only event log.
//
// Records are created in sequence order, never deleted and never reordered;
// the only post-append mutation permitted is the forward-only receipt
// lifecycle (PENDING → SYNCED → VERIFIED). Each record is stamped with an
// opaque fingerprint chained to its predecessor. The fingerprint is a demo
// placeholder — no integrity property is assumed from it.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/meridian-autonomy/vigil/pkg/fingerprint"
)

// Severity grades a record for display triage.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarn     Severity = "WARN"
	SeverityCritical Severity = "CRITICAL"
	SeveritySuccess  Severity = "SUCCESS"
)

// Kind is the explicit record discriminant. Plain records have no lifecycle;
// receipts carry the PENDING/SYNCED/VERIFIED progression.
type Kind string

const (
	KindPlain   Kind = "plain"
	KindReceipt Kind = "receipt"
)

// Lifecycle is a receipt's synchronization state.
type Lifecycle string

const (
	LifecycleNone     Lifecycle = ""
	LifecyclePending  Lifecycle = "PENDING"
	LifecycleSynced   Lifecycle = "SYNCED"
	LifecycleVerified Lifecycle = "VERIFIED"
)

// rank orders lifecycle states so regression checks are a single compare.
func (l Lifecycle) rank() int {
	switch l {
	case LifecyclePending:
		return 1
	case LifecycleSynced:
		return 2
	case LifecycleVerified:
		return 3
	default:
		return 0
	}
}

// Record is one immutable ledger entry. Lifecycle is the only field that may
// change after creation, and only forward.
type Record struct {
	Seq             uint64        `json:"seq"`
	Elapsed         time.Duration `json:"elapsed_ns"`
	Timestamp       string        `json:"timestamp"` // HH:MM:SS of mission elapsed time
	Kind            Kind          `json:"kind"`
	Event           string        `json:"event"`
	Detail          string        `json:"detail"`
	ReasonCode      string        `json:"reason_code,omitempty"`
	Severity        Severity      `json:"severity"`
	Fingerprint     string        `json:"fingerprint"`
	PrevFingerprint string        `json:"prev_fingerprint"`
	Lifecycle       Lifecycle     `json:"lifecycle,omitempty"`
}

// GenesisFingerprint anchors the chain before the first record.
const GenesisFingerprint = "genesis"

// Ledger is the append-only record store for one mission instance.
type Ledger struct {
	mu        sync.RWMutex
	records   []Record
	head      string
	generator fingerprint.Generator
	freshness func() string
}

// New creates an empty ledger stamping records with the given generator.
// freshness supplies the per-record freshness token embedded in the
// fingerprint seed; tests inject a fixed token for reproducible chains.
func New(gen fingerprint.Generator, freshness func() string) *Ledger {
	if freshness == nil {
		freshness = func() string { return "" }
	}
	return &Ledger{
		records:   make([]Record, 0, 64),
		head:      GenesisFingerprint,
		generator: gen,
		freshness: freshness,
	}
}

// Append creates the next record. elapsed is mission-elapsed time, never
// wall clock, so a replayed tick sequence reproduces identical timestamps.
func (l *Ledger) Append(elapsed time.Duration, kind Kind, event, detail, reasonCode string, severity Severity) Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	seq := uint64(len(l.records)) + 1

	lifecycle := LifecycleNone
	if kind == KindReceipt {
		lifecycle = LifecyclePending
	}

	seed := fingerprint.MustSeed(map[string]any{
		"seq":   seq,
		"event": event,
		"prev":  l.head,
		"fresh": l.freshness(),
	})

	rec := Record{
		Seq:             seq,
		Elapsed:         elapsed,
		Timestamp:       FormatElapsed(elapsed),
		Kind:            kind,
		Event:           event,
		Detail:          detail,
		ReasonCode:      reasonCode,
		Severity:        severity,
		Fingerprint:     l.generator.Fingerprint(seed),
		PrevFingerprint: l.head,
		Lifecycle:       lifecycle,
	}

	l.records = append(l.records, rec)
	l.head = rec.Fingerprint
	return rec
}

// Advance moves a receipt's lifecycle forward. A regressive or skipped write
// is refused with an error rather than applied; a live playback logs it and
// carries on, tests treat it as fatal.
func (l *Ledger) Advance(seq uint64, next Lifecycle) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if seq == 0 || seq > uint64(len(l.records)) {
		return fmt.Errorf("ledger: advance unknown seq %d", seq)
	}
	rec := &l.records[seq-1]
	if rec.Kind != KindReceipt {
		return fmt.Errorf("ledger: record %d is not a receipt", seq)
	}
	cur := rec.Lifecycle
	if next.rank() != cur.rank()+1 {
		return fmt.Errorf("ledger: refusing lifecycle %s -> %s for seq %d", cur, next, seq)
	}
	rec.Lifecycle = next
	return nil
}

// RecordsInOrder returns a copy of all records in creation (== Seq) order.
func (l *Ledger) RecordsInOrder() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// Get retrieves a record by sequence number.
func (l *Ledger) Get(seq uint64) (Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if seq == 0 || seq > uint64(len(l.records)) {
		return Record{}, fmt.Errorf("ledger: record %d not found", seq)
	}
	return l.records[seq-1], nil
}

// Head returns the current chain-head fingerprint.
func (l *Ledger) Head() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.head
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// LifecycleCounts returns (pending, synced, verified, totalReceipts).
// pending+synced+verified == totalReceipts holds by construction; tests
// assert it after every mutation path.
func (l *Ledger) LifecycleCounts() (pending, synced, verified, total int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, r := range l.records {
		if r.Kind != KindReceipt {
			continue
		}
		total++
		switch r.Lifecycle {
		case LifecyclePending:
			pending++
		case LifecycleSynced:
			synced++
		case LifecycleVerified:
			verified++
		}
	}
	return
}

// ReceiptsIn returns the sequence numbers of receipts currently in the given
// lifecycle state, in ascending Seq order (oldest first).
func (l *Ledger) ReceiptsIn(state Lifecycle) []uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []uint64
	for _, r := range l.records {
		if r.Kind == KindReceipt && r.Lifecycle == state {
			out = append(out, r.Seq)
		}
	}
	return out
}

// FormatElapsed renders mission-elapsed time as HH:MM:SS.
func FormatElapsed(elapsed time.Duration) string {
	if elapsed < 0 {
		elapsed = 0
	}
	total := int(elapsed / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}
