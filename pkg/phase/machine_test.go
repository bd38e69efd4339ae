package phase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingExec captures entry-effect invocations for assertions.
type recordingExec struct {
	entered []ID
}

func (r *recordingExec) ApplyEntry(spec Spec, elapsed time.Duration) {
	r.entered = append(r.entered, spec.ID)
}

// stubWaits satisfies wait gates from a settable map.
type stubWaits struct {
	satisfied map[Wait]bool
}

func (s *stubWaits) WaitSatisfied(w Wait) bool { return s.satisfied[w] }

func chain(specs ...Spec) []Spec { return specs }

func TestStartRunsFirstEntryOnce(t *testing.T) {
	exec := &recordingExec{}
	m := NewMachine(chain(
		Spec{ID: "A", Duration: time.Second},
		Spec{ID: "B", Duration: time.Second},
	), exec, &stubWaits{})

	m.Start(0)
	m.Start(0) // idempotent
	require.Equal(t, []ID{"A"}, exec.entered)
	assert.Equal(t, ID("A"), m.Current())
}

func TestTransitionOnDurationElapsed(t *testing.T) {
	exec := &recordingExec{}
	m := NewMachine(chain(
		Spec{ID: "A", Duration: time.Second},
		Spec{ID: "B", Duration: time.Second},
	), exec, &stubWaits{})
	m.Start(0)

	assert.False(t, m.Tick(999*time.Millisecond))
	assert.Equal(t, ID("A"), m.Current())

	assert.True(t, m.Tick(1001*time.Millisecond))
	assert.Equal(t, ID("B"), m.Current())
	assert.Equal(t, []ID{"A", "B"}, exec.entered)
}

func TestEntryEffectsExactlyOnce(t *testing.T) {
	exec := &recordingExec{}
	m := NewMachine(chain(
		Spec{ID: "A", Duration: time.Second},
		Spec{ID: "B", Duration: 10 * time.Second},
	), exec, &stubWaits{})
	m.Start(0)

	m.Tick(1001 * time.Millisecond)
	for at := 1100 * time.Millisecond; at < 5*time.Second; at += 100 * time.Millisecond {
		m.Tick(at)
	}
	assert.Equal(t, []ID{"A", "B"}, exec.entered, "B entered exactly once")
}

func TestZeroDurationNoCascade(t *testing.T) {
	exec := &recordingExec{}
	m := NewMachine(chain(
		Spec{ID: "A", Duration: 0},
		Spec{ID: "B", Duration: 0},
		Spec{ID: "C", Duration: -time.Second},
		Spec{ID: "D", Duration: time.Second},
	), exec, &stubWaits{})
	m.Start(0)

	// One transition per tick, even when every phase is immediately eligible.
	assert.True(t, m.Tick(time.Millisecond))
	assert.Equal(t, ID("B"), m.Current())
	assert.True(t, m.Tick(2*time.Millisecond))
	assert.Equal(t, ID("C"), m.Current())
	assert.True(t, m.Tick(3*time.Millisecond))
	assert.Equal(t, ID("D"), m.Current())
	assert.Equal(t, []ID{"A", "B", "C", "D"}, exec.entered)
}

func TestTerminalPhaseHolds(t *testing.T) {
	exec := &recordingExec{}
	m := NewMachine(chain(
		Spec{ID: "A", Duration: 0},
		Spec{ID: "END", Duration: 0},
	), exec, &stubWaits{})
	m.Start(0)
	require.True(t, m.Tick(time.Millisecond))
	require.True(t, m.Terminal())

	for at := 2 * time.Millisecond; at < 100*time.Millisecond; at += time.Millisecond {
		assert.False(t, m.Tick(at))
	}
	assert.Equal(t, ID("END"), m.Current())
}

func TestWaitGateBlocksUntilSatisfied(t *testing.T) {
	exec := &recordingExec{}
	waits := &stubWaits{satisfied: map[Wait]bool{}}
	m := NewMachine(chain(
		Spec{ID: "Q", Wait: WaitHumanResponse},
		Spec{ID: "R", Duration: time.Second},
	), exec, waits)
	m.Start(0)

	for at := time.Second; at < 10*time.Second; at += time.Second {
		assert.False(t, m.Tick(at), "gate held regardless of elapsed time")
	}

	waits.satisfied[WaitHumanResponse] = true
	assert.True(t, m.Tick(11*time.Second))
	assert.Equal(t, ID("R"), m.Current())
}

func TestShiftEntryExtendsBudget(t *testing.T) {
	exec := &recordingExec{}
	m := NewMachine(chain(
		Spec{ID: "A", Duration: time.Second},
		Spec{ID: "B", Duration: time.Second},
	), exec, &stubWaits{})
	m.Start(0)

	// A freeze of 500ms shifts the entry time; the phase now runs to 1500ms.
	m.ShiftEntry(500 * time.Millisecond)
	assert.False(t, m.Tick(1400*time.Millisecond))
	assert.True(t, m.Tick(1501*time.Millisecond))
}

func TestElapsedInPhase(t *testing.T) {
	exec := &recordingExec{}
	m := NewMachine(chain(
		Spec{ID: "A", Duration: 10 * time.Second},
		Spec{ID: "B", Duration: time.Second},
	), exec, &stubWaits{})
	m.Start(2 * time.Second)

	assert.Equal(t, 3*time.Second, m.ElapsedInPhase(5*time.Second))
	assert.Equal(t, time.Duration(0), m.ElapsedInPhase(time.Second), "clamped, never negative")
}

func TestScenarioCatalogsAreLinear(t *testing.T) {
	for _, tc := range []struct {
		name  string
		specs []Spec
		first ID
		last  ID
		count int
	}{
		{"standard", StandardScenario(500 * time.Millisecond), Takeoff, Affidavit, 11},
		{"denied", DeniedScenario(500 * time.Millisecond), NormalOps, Complete, 10},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.Len(t, tc.specs, tc.count)
			assert.Equal(t, tc.first, tc.specs[0].ID)
			assert.Equal(t, tc.last, tc.specs[len(tc.specs)-1].ID)

			seen := map[ID]bool{}
			for _, s := range tc.specs {
				require.False(t, seen[s.ID], "phase %s appears twice", s.ID)
				seen[s.ID] = true
			}
		})
	}
}

func TestScenarioByName(t *testing.T) {
	assert.Equal(t, NormalOps, ScenarioByName(ScenarioDenied, 0)[0].ID)
	assert.Equal(t, Takeoff, ScenarioByName(ScenarioStandard, 0)[0].ID)
	assert.Equal(t, Takeoff, ScenarioByName("unknown", 0)[0].ID)
}
