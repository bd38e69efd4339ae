// Package phase implements the mission's linear phase state machine: a
// strict forward chain of scripted phases, each with an injectable nominal
// duration or an external-wait gate, and a fixed ordered list of entry
// effects that fire exactly once in the tick that enters the phase.
package phase

import (
	"time"

	"github.com/meridian-autonomy/vigil/pkg/governance"
	"github.com/meridian-autonomy/vigil/pkg/ledger"
)

// ID names one phase in a scenario catalog.
type ID string

// Wait marks a phase as gated by an external condition instead of a
// duration.
type Wait string

const (
	WaitNone          Wait = ""
	WaitHumanResponse Wait = "HUMAN_RESPONSE"
	WaitSyncComplete  Wait = "SYNC_COMPLETE"
)

// Entry is one declarative ledger append executed on phase entry.
type Entry struct {
	Kind       ledger.Kind
	Event      string
	Detail     string
	ReasonCode string
	Severity   ledger.Severity
}

// Effects is the fixed, ordered set of side effects a phase runs on entry.
// Declarative rather than closures so the executor is an injected
// collaborator, not a web of captured variables.
type Effects struct {
	Ledger         []Entry
	Governance     *governance.Patch
	SnapWaypoint   *int          // snap the vehicle to this waypoint index
	Freeze         time.Duration // engage the crisis pause for this long
	StartBuffering bool
	StopBuffering  bool
	BeginSync      bool
}

// Spec fully describes one phase.
type Spec struct {
	ID       ID
	Duration time.Duration // <= 0 means immediately eligible
	Wait     Wait
	Legs     []int // waypoint index chain traversed during the phase; empty = hold
	Entry    Effects
}

// Executor applies a phase's entry effects. Implemented by the engine;
// the machine never touches the ledger, governance or vehicle directly.
type Executor interface {
	ApplyEntry(spec Spec, elapsed time.Duration)
}

// WaitResolver answers whether an external-wait gate is satisfied.
type WaitResolver interface {
	WaitSatisfied(w Wait) bool
}

// Machine advances a scenario's phase chain. All times are mission-elapsed
// durations handed in by the scheduler; the machine performs no clock reads
// of its own.
type Machine struct {
	scenario []Spec
	idx      int
	entryAt  time.Duration
	started  bool
	exec     Executor
	waits    WaitResolver
}

// NewMachine creates a machine over a scenario. The chain is strictly
// forward; only a full engine restart revisits a phase.
func NewMachine(scenario []Spec, exec Executor, waits WaitResolver) *Machine {
	return &Machine{scenario: scenario, exec: exec, waits: waits}
}

// Start enters the first phase and runs its entry effects.
func (m *Machine) Start(elapsed time.Duration) {
	if m.started || len(m.scenario) == 0 {
		return
	}
	m.started = true
	m.idx = 0
	m.entryAt = elapsed
	m.exec.ApplyEntry(m.scenario[0], elapsed)
}

// Tick evaluates the elapsed-time (or wait) predicate and fires at most one
// transition. Entry effects run synchronously inside the same tick; a
// zero-duration phase still consumes one tick so observers never see two
// transitions collapse into one.
func (m *Machine) Tick(elapsed time.Duration) bool {
	if !m.started || m.Terminal() {
		return false
	}

	spec := m.scenario[m.idx]
	if !m.eligible(spec, elapsed) {
		return false
	}

	m.idx++
	m.entryAt = elapsed
	m.exec.ApplyEntry(m.scenario[m.idx], elapsed)
	return true
}

func (m *Machine) eligible(spec Spec, elapsed time.Duration) bool {
	if spec.Wait != WaitNone {
		return m.waits.WaitSatisfied(spec.Wait)
	}
	if spec.Duration <= 0 {
		return true
	}
	return elapsed-m.entryAt >= spec.Duration
}

// ShiftEntry moves the phase entry timestamp forward, compensating the
// phase budget for time consumed by a freeze.
func (m *Machine) ShiftEntry(d time.Duration) {
	m.entryAt += d
}

// Current returns the active phase ID.
func (m *Machine) Current() ID {
	if len(m.scenario) == 0 {
		return ""
	}
	return m.scenario[m.idx].ID
}

// CurrentSpec returns the active phase spec.
func (m *Machine) CurrentSpec() Spec {
	return m.scenario[m.idx]
}

// ElapsedInPhase returns time spent in the active phase.
func (m *Machine) ElapsedInPhase(elapsed time.Duration) time.Duration {
	d := elapsed - m.entryAt
	if d < 0 {
		return 0
	}
	return d
}

// Terminal reports whether the chain has reached its final phase.
func (m *Machine) Terminal() bool {
	return m.idx >= len(m.scenario)-1
}

// Index returns the zero-based position in the chain.
func (m *Machine) Index() int { return m.idx }

// Len returns the number of phases in the scenario.
func (m *Machine) Len() int { return len(m.scenario) }
