// Package uplink simulates the denied-environment link protocol: while the
// link is down, decision receipts are buffered as PENDING ledger records at
// a fixed cadence; when the link is restored, a rate-limited burst sync
// drains them oldest-first to SYNCED, then a single bulk pass marks every
// receipt VERIFIED and signals completion so the phase machine may advance.
//
// All production and drain targets are derived from the mission-elapsed
// value passed into Tick — never from independent clock reads — so the
// buffering cadence and the phase timers cannot drift apart.
package uplink

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/meridian-autonomy/vigil/pkg/ledger"
)

// Buffer drives receipt production and the burst-sync drain for one mission.
type Buffer struct {
	mu     sync.Mutex
	log    *slog.Logger
	ledger *ledger.Ledger

	cadence    time.Duration // PENDING production interval while link is down
	syncRate   time.Duration // one PENDING→SYNCED per interval during burst sync
	receiptCap int           // mission-wide bound on produced receipts

	buffering   bool
	bufferStart time.Duration // mission-elapsed at StartBuffering
	produced    int

	syncing     bool
	syncStart   time.Duration // mission-elapsed at BeginSync
	syncedSince int           // receipts drained since BeginSync
	complete    bool
}

// New creates a buffer writing receipts into the given ledger.
func New(log *slog.Logger, led *ledger.Ledger, cadence, syncRate time.Duration, receiptCap int) *Buffer {
	if log == nil {
		log = slog.Default()
	}
	return &Buffer{
		log:        log,
		ledger:     led,
		cadence:    cadence,
		syncRate:   syncRate,
		receiptCap: receiptCap,
	}
}

// StartBuffering begins PENDING receipt production. elapsed anchors the
// cadence window to the moment the link dropped.
func (b *Buffer) StartBuffering(elapsed time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.buffering {
		return
	}
	b.buffering = true
	b.bufferStart = elapsed
	b.log.Debug("uplink buffering started", "elapsed", elapsed)
}

// StopBuffering halts receipt production.
func (b *Buffer) StopBuffering() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buffering = false
}

// BeginSync starts the burst-sync drain. elapsed anchors the drain rate to
// the moment the link was restored.
func (b *Buffer) BeginSync(elapsed time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.syncing {
		return
	}
	b.buffering = false
	b.syncing = true
	b.syncStart = elapsed
	b.syncedSince = 0
	b.log.Debug("uplink burst sync started", "elapsed", elapsed)
}

// Tick advances production or drain to match the elapsed-derived target.
// Called once per scheduler tick, after the phase machine and motion steps.
func (b *Buffer) Tick(elapsed time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.buffering {
		b.produce(elapsed)
	}
	if b.syncing && !b.complete {
		b.drain(elapsed)
	}
}

// produce appends enough PENDING receipts to match the cadence target.
func (b *Buffer) produce(elapsed time.Duration) {
	if b.cadence <= 0 {
		return
	}
	window := elapsed - b.bufferStart
	if window < 0 {
		return
	}
	target := int(window / b.cadence)
	for b.produced < target && b.produced < b.receiptCap {
		b.produced++
		b.ledger.Append(
			elapsed,
			ledger.KindReceipt,
			"DECISION_RECEIPT",
			fmt.Sprintf("buffered decision frame %d (link down)", b.produced),
			"LINK_DOWN",
			ledger.SeverityWarn,
		)
	}
}

// drain syncs exactly enough oldest-first PENDING receipts to match the
// rate target, then runs the bulk VERIFIED pass once the queue is empty.
func (b *Buffer) drain(elapsed time.Duration) {
	rate := b.syncRate
	if rate <= 0 {
		rate = time.Nanosecond // immediately eligible, drain everything
	}
	target := int((elapsed - b.syncStart) / rate)
	owed := target - b.syncedSince
	if owed > 0 {
		pending := b.ledger.ReceiptsIn(ledger.LifecyclePending)
		if owed > len(pending) {
			owed = len(pending)
		}
		for _, seq := range pending[:owed] {
			if err := b.ledger.Advance(seq, ledger.LifecycleSynced); err != nil {
				b.log.Error("uplink sync advance refused", "seq", seq, "err", err)
				continue
			}
			b.syncedSince++
		}
	}

	// Bulk verification fires exactly once, and only with a non-empty set.
	pending, _, _, total := counts(b.ledger)
	if pending == 0 && total > 0 {
		for _, seq := range b.ledger.ReceiptsIn(ledger.LifecycleSynced) {
			if err := b.ledger.Advance(seq, ledger.LifecycleVerified); err != nil {
				b.log.Error("uplink verify advance refused", "seq", seq, "err", err)
			}
		}
		b.complete = true
		b.log.Info("uplink burst sync complete", "receipts", total, "elapsed", elapsed)
	}
}

// Shift moves the cadence and drain anchors forward, compensating for time
// consumed by a crisis freeze so production does not burst to catch up when
// ticks resume.
func (b *Buffer) Shift(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.buffering {
		b.bufferStart += d
	}
	if b.syncing {
		b.syncStart += d
	}
}

// SyncComplete reports whether the bulk VERIFIED transition has fired; it
// gates the phase machine out of the sync phase.
func (b *Buffer) SyncComplete() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.complete
}

// Buffering reports whether PENDING production is active.
func (b *Buffer) Buffering() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffering
}

// PendingCount returns the number of receipts still PENDING.
func (b *Buffer) PendingCount() int {
	p, _, _, _ := counts(b.ledger)
	return p
}

// SyncedCount returns the number of receipts at SYNCED (not yet verified).
func (b *Buffer) SyncedCount() int {
	_, s, _, _ := counts(b.ledger)
	return s
}

// VerifiedCount returns the number of VERIFIED receipts.
func (b *Buffer) VerifiedCount() int {
	_, _, v, _ := counts(b.ledger)
	return v
}

// TotalReceipts returns the number of receipts produced so far.
func (b *Buffer) TotalReceipts() int {
	_, _, _, t := counts(b.ledger)
	return t
}

func counts(l *ledger.Ledger) (pending, synced, verified, total int) {
	return l.LifecycleCounts()
}
