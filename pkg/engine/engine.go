// Package engine assembles the mission orchestration core: the phase state
// machine, motion interpolation, the event ledger, the offline uplink buffer
// and the governance model, all driven by a single tick loop.
//
// An Engine is an explicit instance — no package-level singletons — so tests
// construct as many as they need. Collaborators are named fields injected at
// construction, and every timer (phase budget, buffer cadence, freeze) is
// derived from the one clock reading taken per tick.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-autonomy/vigil/pkg/config"
	"github.com/meridian-autonomy/vigil/pkg/fingerprint"
	"github.com/meridian-autonomy/vigil/pkg/governance"
	"github.com/meridian-autonomy/vigil/pkg/ledger"
	"github.com/meridian-autonomy/vigil/pkg/motion"
	"github.com/meridian-autonomy/vigil/pkg/observability"
	"github.com/meridian-autonomy/vigil/pkg/path"
	"github.com/meridian-autonomy/vigil/pkg/phase"
	"github.com/meridian-autonomy/vigil/pkg/uplink"
)

// Options configures an Engine.
type Options struct {
	Log       *slog.Logger
	Profile   *config.Profile
	Route     *path.Route
	Generator fingerprint.Generator
	// Freshness supplies the per-record freshness token embedded in
	// fingerprint seeds. Tests inject a fixed token for reproducible chains;
	// nil defaults to a wall-clock nonce.
	Freshness func() string
	Metrics   *observability.MissionMetrics
}

// Engine owns all state for one mission playback.
type Engine struct {
	mu sync.Mutex

	log     *slog.Logger
	profile *config.Profile
	route   *path.Route
	gen     fingerprint.Generator
	fresh   func() string
	metrics *observability.MissionMetrics

	runID   string
	ledger  *ledger.Ledger
	gov     *governance.Model
	machine *phase.Machine
	buffer  *uplink.Buffer
	vehicle motion.VehicleState

	begun     bool
	startWall time.Time
	elapsed   time.Duration

	frozen      bool
	freezeStart time.Duration
	freezeDur   time.Duration

	humanResponded bool
	autoplay       bool

	summary *Summary

	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

// New constructs an engine at mission start. Nothing runs until Start (or a
// direct Tick from a test or headless driver).
func New(opts Options) *Engine {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Profile == nil {
		opts.Profile = config.DefaultProfile()
	}
	if opts.Route == nil {
		opts.Route = path.Default()
	}
	if opts.Generator == nil {
		opts.Generator = fingerprint.NewDemo()
	}
	if opts.Freshness == nil {
		opts.Freshness = func() string { return time.Now().UTC().Format(time.RFC3339Nano) }
	}

	e := &Engine{
		log:      opts.Log,
		profile:  opts.Profile,
		route:    opts.Route,
		gen:      opts.Generator,
		fresh:    opts.Freshness,
		metrics:  opts.Metrics,
		autoplay: opts.Profile.Autoplay,
	}
	e.reset()
	return e
}

// reset builds fresh sub-component state. Caller holds mu (or is the
// constructor).
func (e *Engine) reset() {
	e.runID = uuid.NewString()
	e.ledger = ledger.New(e.gen, e.fresh)
	e.gov = governance.NewModel()
	e.buffer = uplink.New(e.log, e.ledger, e.profile.BufferCadence(), e.profile.SyncRate(), e.profile.ReceiptCap)

	scenario := phase.ScenarioByName(e.profile.Scenario, e.profile.Freeze())
	for i := range scenario {
		if d, ok := e.profile.PhaseDuration(string(scenario[i].ID)); ok {
			scenario[i].Duration = d
		}
	}
	e.machine = phase.NewMachine(scenario, &entryExecutor{e}, &waitResolver{e})

	e.vehicle = motion.Snap(e.route, 0)
	e.begun = false
	e.elapsed = 0
	e.frozen = false
	e.freezeStart = 0
	e.freezeDur = 0
	e.humanResponded = false
	e.summary = nil
}

// Tick advances the mission by one scheduler step. now must come from one
// monotonic reading per tick; the loop supplies it, tests synthesize it.
// Processing order within a tick is fixed: freeze bookkeeping, phase
// machine, motion, uplink — so a transition's entry effects are visible to
// the same tick's interpolation and buffering steps.
func (e *Engine) Tick(now time.Time) {
	start := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.begun {
		e.begun = true
		e.startWall = now
		e.machine.Start(0)
	}
	e.elapsed = now.Sub(e.startWall)

	if e.frozen {
		if e.elapsed-e.freezeStart < e.freezeDur {
			return
		}
		// Freeze expired: give the suspended timers their time back.
		e.frozen = false
		e.machine.ShiftEntry(e.freezeDur)
		e.buffer.Shift(e.freezeDur)
		e.log.Debug("freeze released", "held", e.freezeDur)
	}

	transitioned := e.machine.Tick(e.elapsed)

	// An entry action may have engaged a freeze; motion and uplink are
	// suspended starting with this very tick.
	if !e.frozen {
		e.advanceVehicle()
		e.buffer.Tick(e.elapsed)
	}

	if transitioned && e.machine.Terminal() && e.summary == nil {
		e.summary = e.buildSummary()
	}

	e.metrics.RecordTick(context.Background(), time.Since(start))
}

// advanceVehicle interpolates along the current phase's legs; a phase with
// no legs holds the last pose (set by the most recent snap or interpolation).
func (e *Engine) advanceVehicle() {
	spec := e.machine.CurrentSpec()
	if len(spec.Legs) < 2 {
		return
	}
	e.vehicle = motion.PositionAt(e.route, spec.Legs, e.machine.ElapsedInPhase(e.elapsed), spec.Duration)
}

// EngageFreeze suspends phase, motion and uplink advancement for d while the
// tick loop keeps running. Engaging while already frozen extends nothing —
// the first freeze wins.
func (e *Engine) EngageFreeze(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.engageFreezeLocked(d)
}

func (e *Engine) engageFreezeLocked(d time.Duration) {
	if e.frozen || d <= 0 {
		return
	}
	e.frozen = true
	e.freezeStart = e.elapsed
	e.freezeDur = d
	e.log.Info("crisis freeze engaged", "duration", d, "phase", e.machine.Current())
}

// Frozen reports whether the crisis pause is active.
func (e *Engine) Frozen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frozen
}

// ProvideHumanResponse satisfies the human-query wait gate. With autoplay
// enabled the gate also self-satisfies after the profile's scripted delay.
func (e *Engine) ProvideHumanResponse() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.humanResponded = true
}

// SetAutoplay gates automatic scheduling: enabling it starts the tick loop
// if idle and lets wait gates self-satisfy on script timing.
func (e *Engine) SetAutoplay(on bool) {
	e.mu.Lock()
	e.autoplay = on
	running := e.running
	e.mu.Unlock()

	if on && !running {
		e.Start()
	}
}

// Autoplay reports the autoplay flag.
func (e *Engine) Autoplay() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.autoplay
}

// Restart throws away all mission state and begins a fresh playback.
// Nothing survives: ledger, vehicle pose, governance and phase position are
// rebuilt from initial constants.
func (e *Engine) Restart() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.log.Info("mission restart", "previous_run", e.runID)
	e.reset()
}

// Start launches the periodic tick loop. Idempotent.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.stopCh = make(chan struct{})
	e.done = make(chan struct{})
	interval := e.profile.TickInterval()
	stopCh, done := e.stopCh, e.done
	e.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case now := <-ticker.C:
				e.Tick(now)
			}
		}
	}()
}

// Stop halts the tick loop. Idempotent; after Stop returns no further
// ledger records are emitted until Start is called again.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.stopCh)
	done := e.done
	e.mu.Unlock()

	<-done
}

// Running reports whether the tick loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// RunScripted drives the engine to its terminal phase with a synthetic
// clock, one tick per step. Used by the headless `run` command and by
// integration tests; playback is fully deterministic given a fixed
// freshness token. Returns the number of ticks consumed.
func (e *Engine) RunScripted(step time.Duration, maxTicks int, observe func(Snapshot)) int {
	base := time.Unix(0, 0)
	ticks := 0
	for ; ticks < maxTicks; ticks++ {
		e.Tick(base.Add(time.Duration(ticks) * step))
		if observe != nil {
			observe(e.Snapshot())
		}
		if e.Terminal() {
			break
		}
	}
	return ticks
}

// Terminal reports whether the mission has reached its final phase.
func (e *Engine) Terminal() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.begun && e.machine.Terminal()
}

// entryExecutor applies a phase's declarative entry effects in their fixed
// order. Invoked only from within a tick, with the engine lock held.
type entryExecutor struct{ e *Engine }

func (x *entryExecutor) ApplyEntry(spec phase.Spec, elapsed time.Duration) {
	e := x.e

	for _, entry := range spec.Entry.Ledger {
		e.ledger.Append(elapsed, entry.Kind, entry.Event, entry.Detail, entry.ReasonCode, entry.Severity)
		if entry.Kind == ledger.KindReceipt {
			e.metrics.RecordReceipt(context.Background())
		}
	}
	if spec.Entry.Governance != nil {
		e.gov.Apply(*spec.Entry.Governance)
	}
	if spec.Entry.SnapWaypoint != nil {
		e.vehicle = motion.Snap(e.route, *spec.Entry.SnapWaypoint)
	}
	if spec.Entry.Freeze > 0 {
		e.engageFreezeLocked(spec.Entry.Freeze)
	}
	if spec.Entry.StartBuffering {
		e.buffer.StartBuffering(elapsed)
	}
	if spec.Entry.StopBuffering {
		e.buffer.StopBuffering()
	}
	if spec.Entry.BeginSync {
		e.buffer.BeginSync(elapsed)
	}

	e.metrics.RecordTransition(context.Background(), string(spec.ID))
	e.log.Info("phase entered",
		"phase", spec.ID,
		"elapsed", ledger.FormatElapsed(elapsed),
		"records", e.ledger.Len(),
	)
}

// waitResolver answers the machine's external-wait gates. Engine lock held.
type waitResolver struct{ e *Engine }

func (w *waitResolver) WaitSatisfied(gate phase.Wait) bool {
	e := w.e
	switch gate {
	case phase.WaitHumanResponse:
		if e.humanResponded {
			return true
		}
		return e.autoplay && e.machine.ElapsedInPhase(e.elapsed) >= e.profile.HumanDelay()
	case phase.WaitSyncComplete:
		return e.buffer.SyncComplete()
	default:
		return false
	}
}
