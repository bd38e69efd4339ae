// Package governance holds the mission's accountability model: who is
// answerable for the vehicle right now, in what mode, at what confidence.
// The state is purely reactive — it changes only as a side effect of phase
// entry actions, never on its own schedule and never from the motion,
// ledger or render layers.
package governance

import "sync"

// Role is the accountable party for the vehicle's decisions.
type Role string

const (
	RoleAISystem    Role = "AI_SYSTEM"
	RoleHumanInLoop Role = "HUMAN_IN_LOOP"
	RoleOperator    Role = "OPERATOR"
)

// Mode is the operating authority level.
type Mode string

const (
	ModeAutonomous Mode = "AUTONOMOUS"
	ModeSupervised Mode = "SUPERVISED"
	ModeManual     Mode = "MANUAL"
)

// Fallback flags whether a stop-rule/fallback behavior is engaged.
type Fallback string

const (
	FallbackNone      Fallback = "NONE"
	FallbackTriggered Fallback = "TRIGGERED"
)

// State is the governance snapshot exposed to consumers.
type State struct {
	Confidence      float64  `json:"confidence"` // [0,1]
	AccountableRole Role     `json:"accountable_role"`
	Mode            Mode     `json:"mode"`
	Fallback        Fallback `json:"fallback"`
	ReasonCode      string   `json:"reason_code,omitempty"`
}

// Patch is a partial update; nil fields leave the current value untouched.
// ReasonCode uses a pointer so entry actions can clear it explicitly.
type Patch struct {
	Confidence      *float64
	AccountableRole *Role
	Mode            *Mode
	Fallback        *Fallback
	ReasonCode      *string
}

// Model owns one mission's governance state. It lives and dies with the
// mission instance; Restart builds a fresh one.
type Model struct {
	mu    sync.RWMutex
	state State
}

// NewModel returns a model at mission-start defaults: full confidence,
// autonomous AI accountability, no fallback.
func NewModel() *Model {
	return &Model{state: State{
		Confidence:      1.0,
		AccountableRole: RoleAISystem,
		Mode:            ModeAutonomous,
		Fallback:        FallbackNone,
	}}
}

// Current returns the current state by value.
func (m *Model) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Apply merges a partial update. Confidence is clamped to [0,1].
func (m *Model) Apply(p Patch) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.Confidence != nil {
		c := *p.Confidence
		if c < 0 {
			c = 0
		}
		if c > 1 {
			c = 1
		}
		m.state.Confidence = c
	}
	if p.AccountableRole != nil {
		m.state.AccountableRole = *p.AccountableRole
	}
	if p.Mode != nil {
		m.state.Mode = *p.Mode
	}
	if p.Fallback != nil {
		m.state.Fallback = *p.Fallback
	}
	if p.ReasonCode != nil {
		m.state.ReasonCode = *p.ReasonCode
	}
	return m.state
}

// Helpers for building patches inline in scenario tables.

func ConfidencePtr(v float64) *float64 { return &v }
func RolePtr(r Role) *Role             { return &r }
func ModePtr(m Mode) *Mode             { return &m }
func FallbackPtr(f Fallback) *Fallback { return &f }
func ReasonPtr(s string) *string       { return &s }
