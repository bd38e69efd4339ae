package engine

import (
	"time"

	"github.com/meridian-autonomy/vigil/pkg/fingerprint"
	"github.com/meridian-autonomy/vigil/pkg/governance"
	"github.com/meridian-autonomy/vigil/pkg/ledger"
	"github.com/meridian-autonomy/vigil/pkg/motion"
	"github.com/meridian-autonomy/vigil/pkg/phase"
)

// Snapshot is the read-only view the render layer consumes every tick.
type Snapshot struct {
	RunID          string              `json:"run_id"`
	Scenario       string              `json:"scenario"`
	Phase          phase.ID            `json:"phase"`
	PhaseIndex     int                 `json:"phase_index"`
	PhaseCount     int                 `json:"phase_count"`
	Elapsed        time.Duration       `json:"elapsed_ns"`
	ElapsedClock   string              `json:"elapsed"`
	ElapsedInPhase time.Duration       `json:"elapsed_in_phase_ns"`
	Frozen         bool                `json:"frozen"`
	Autoplay       bool                `json:"autoplay"`
	Terminal       bool                `json:"terminal"`
	Vehicle        motion.VehicleState `json:"vehicle"`
	Governance     governance.State    `json:"governance"`
	Pending        int                 `json:"pending"`
	Synced         int                 `json:"synced"`
	Verified       int                 `json:"verified"`
	TotalReceipts  int                 `json:"total_receipts"`
	TotalRecords   int                 `json:"total_records"`
	ChainHead      string              `json:"chain_head"`
	Summary        *Summary            `json:"summary,omitempty"`
}

// Summary is the sealed end-of-mission projection: a pure function of the
// ledger history and the final governance state, never a source of truth
// itself.
type Summary struct {
	RunID              string           `json:"run_id"`
	Scenario           string           `json:"scenario"`
	SealedAt           string           `json:"sealed_at"` // mission clock
	WaypointsCompleted int              `json:"waypoints_completed"`
	AnomaliesDetected  int              `json:"anomalies_detected"`
	AnomaliesResolved  int              `json:"anomalies_resolved"`
	Handoffs           int              `json:"handoffs"`
	TotalRecords       int              `json:"total_records"`
	TotalReceipts      int              `json:"total_receipts"`
	VerifiedReceipts   int              `json:"verified_receipts"`
	ChainHead          string           `json:"chain_head"`
	FinalConfidence    float64          `json:"final_confidence"`
	AccountableRole    governance.Role  `json:"accountable_role"`
	Fingerprint        string           `json:"fingerprint"`
}

// Snapshot returns the current read-only view.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	pending, synced, verified, total := e.ledger.LifecycleCounts()
	return Snapshot{
		RunID:          e.runID,
		Scenario:       e.profile.Scenario,
		Phase:          e.machine.Current(),
		PhaseIndex:     e.machine.Index(),
		PhaseCount:     e.machine.Len(),
		Elapsed:        e.elapsed,
		ElapsedClock:   ledger.FormatElapsed(e.elapsed),
		ElapsedInPhase: e.machine.ElapsedInPhase(e.elapsed),
		Frozen:         e.frozen,
		Autoplay:       e.autoplay,
		Terminal:       e.begun && e.machine.Terminal(),
		Vehicle:        e.vehicle,
		Governance:     e.gov.Current(),
		Pending:        pending,
		Synced:         synced,
		Verified:       verified,
		TotalReceipts:  total,
		TotalRecords:   e.ledger.Len(),
		ChainHead:      e.ledger.Head(),
		Summary:        e.summary,
	}
}

// Records returns the full ledger in creation order.
func (e *Engine) Records() []ledger.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.RecordsInOrder()
}

// buildSummary projects the terminal mission summary. Caller holds mu.
func (e *Engine) buildSummary() *Summary {
	var waypoints, detected, resolved, handoffs int
	for _, r := range e.ledger.RecordsInOrder() {
		switch r.Event {
		case "WAYPOINT_ACHIEVED":
			waypoints++
		case "ANOMALY_DETECTED", "INCIDENT_DETECTED":
			detected++
		case "HUMAN_RESPONSE_RECEIVED", "AVOIDANCE_EXECUTED":
			resolved++
		case "HUMAN_QUERY_SENT", "RACI_HANDOFF", "STOP_RULE_TRIGGERED":
			handoffs++
		}
	}

	_, _, verified, total := e.ledger.LifecycleCounts()
	gov := e.gov.Current()

	s := &Summary{
		RunID:              e.runID,
		Scenario:           e.profile.Scenario,
		SealedAt:           ledger.FormatElapsed(e.elapsed),
		WaypointsCompleted: waypoints,
		AnomaliesDetected:  detected,
		AnomaliesResolved:  resolved,
		Handoffs:           handoffs,
		TotalRecords:       e.ledger.Len(),
		TotalReceipts:      total,
		VerifiedReceipts:   verified,
		ChainHead:          e.ledger.Head(),
		FinalConfidence:    gov.Confidence,
		AccountableRole:    gov.AccountableRole,
	}
	s.Fingerprint = e.gen.Fingerprint(fingerprint.MustSeed(map[string]any{
		"run":     s.RunID,
		"records": s.TotalRecords,
		"head":    s.ChainHead,
	}))
	return s
}
