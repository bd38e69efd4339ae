package phase

import (
	"time"

	"github.com/meridian-autonomy/vigil/pkg/governance"
	"github.com/meridian-autonomy/vigil/pkg/ledger"
)

// Standard mission catalog.
const (
	Takeoff             ID = "TAKEOFF"
	Waypoint1           ID = "WAYPOINT_1"
	Waypoint2           ID = "WAYPOINT_2"
	UncertaintyDetected ID = "UNCERTAINTY_DETECTED"
	CRAGTriggered       ID = "CRAG_TRIGGERED"
	HumanQuery          ID = "HUMAN_QUERY"
	HumanResponse       ID = "HUMAN_RESPONSE"
	RACIHandoffBack     ID = "RACI_HANDOFF_BACK"
	RouteResumed        ID = "ROUTE_RESUMED"
	MissionComplete     ID = "MISSION_COMPLETE"
	Affidavit           ID = "AFFIDAVIT"
)

// Denied-environment catalog.
const (
	NormalOps         ID = "NORMAL_OPS"
	Degraded          ID = "DEGRADED"
	Offline           ID = "OFFLINE"
	IncidentDetected  ID = "INCIDENT_DETECTED"
	StopRuleTriggered ID = "STOP_RULE_TRIGGERED"
	AvoidanceExecuted ID = "AVOIDANCE_EXECUTED"
	Reconnecting      ID = "RECONNECTING"
	BurstSync         ID = "BURST_SYNC"
	Verified          ID = "VERIFIED"
	Complete          ID = "COMPLETE"
)

// Scenario names accepted by the config layer.
const (
	ScenarioStandard = "standard"
	ScenarioDenied   = "denied-environment"
)

func wp(i int) *int { return &i }

// StandardScenario is the investor-demo mission: a clean corridor run
// interrupted by an uncertain object, a human-in-the-loop consultation and
// a RACI handoff back to the autonomy stack.
//
// Durations here are narrative pacing defaults; the config layer may
// override any of them by phase ID.
func StandardScenario(freeze time.Duration) []Spec {
	return []Spec{
		{
			ID: Takeoff, Duration: 2 * time.Second, Legs: []int{0, 1},
			Entry: Effects{
				Ledger: []Entry{{Kind: ledger.KindPlain, Event: "MISSION_START", Detail: "autonomous mission initiated, route corridor-alpha locked", Severity: ledger.SeverityInfo}},
				Governance: &governance.Patch{
					Confidence:      governance.ConfidencePtr(0.98),
					AccountableRole: governance.RolePtr(governance.RoleAISystem),
					Mode:            governance.ModePtr(governance.ModeAutonomous),
				},
				SnapWaypoint: wp(0),
			},
		},
		{
			ID: Waypoint1, Duration: 2500 * time.Millisecond, Legs: []int{1, 2},
			Entry: Effects{
				Ledger:       []Entry{{Kind: ledger.KindPlain, Event: "WAYPOINT_ACHIEVED", Detail: "waypoint WP-1 reached on schedule", Severity: ledger.SeveritySuccess}},
				SnapWaypoint: wp(1),
			},
		},
		{
			ID: Waypoint2, Duration: 2500 * time.Millisecond, Legs: []int{2, 3},
			Entry: Effects{
				Ledger:       []Entry{{Kind: ledger.KindPlain, Event: "WAYPOINT_ACHIEVED", Detail: "waypoint WP-2 reached on schedule", Severity: ledger.SeveritySuccess}},
				SnapWaypoint: wp(2),
			},
		},
		{
			ID: UncertaintyDetected, Duration: 2 * time.Second,
			Entry: Effects{
				Ledger: []Entry{{Kind: ledger.KindPlain, Event: "ANOMALY_DETECTED", Detail: "unclassified object on corridor, classifier confidence collapsed", ReasonCode: "UNCERTAIN_OBJECT", Severity: ledger.SeverityCritical}},
				Governance: &governance.Patch{
					Confidence: governance.ConfidencePtr(0.44),
					ReasonCode: governance.ReasonPtr("UNCERTAIN_OBJECT"),
				},
				Freeze: freeze,
			},
		},
		{
			ID: CRAGTriggered, Duration: 1500 * time.Millisecond,
			Entry: Effects{
				Ledger: []Entry{{Kind: ledger.KindPlain, Event: "CRAG_TRIGGERED", Detail: "corrective retrieval pass over mission knowledge base", Severity: ledger.SeverityWarn}},
				Governance: &governance.Patch{
					Mode: governance.ModePtr(governance.ModeSupervised),
				},
			},
		},
		{
			ID: HumanQuery, Wait: WaitHumanResponse,
			Entry: Effects{
				Ledger: []Entry{{Kind: ledger.KindPlain, Event: "HUMAN_QUERY_SENT", Detail: "operator consultation requested: proceed past unclassified object?", Severity: ledger.SeverityWarn}},
				Governance: &governance.Patch{
					AccountableRole: governance.RolePtr(governance.RoleHumanInLoop),
				},
			},
		},
		{
			ID: HumanResponse, Duration: 1500 * time.Millisecond,
			Entry: Effects{
				Ledger: []Entry{{Kind: ledger.KindPlain, Event: "HUMAN_RESPONSE_RECEIVED", Detail: "operator cleared continuation with lateral offset", ReasonCode: "PROCEED", Severity: ledger.SeveritySuccess}},
				Governance: &governance.Patch{
					Confidence: governance.ConfidencePtr(0.91),
				},
			},
		},
		{
			ID: RACIHandoffBack, Duration: 1500 * time.Millisecond,
			Entry: Effects{
				Ledger: []Entry{{Kind: ledger.KindPlain, Event: "RACI_HANDOFF", Detail: "accountability returned to autonomy stack", Severity: ledger.SeverityInfo}},
				Governance: &governance.Patch{
					AccountableRole: governance.RolePtr(governance.RoleAISystem),
					Mode:            governance.ModePtr(governance.ModeAutonomous),
					ReasonCode:      governance.ReasonPtr(""),
				},
			},
		},
		{
			ID: RouteResumed, Duration: 3 * time.Second, Legs: []int{3, 4},
			Entry: Effects{
				Ledger:       []Entry{{Kind: ledger.KindPlain, Event: "ROUTE_RESUMED", Detail: "corridor re-acquired, final leg engaged", Severity: ledger.SeverityInfo}},
				SnapWaypoint: wp(3),
			},
		},
		{
			ID: MissionComplete, Duration: 2 * time.Second,
			Entry: Effects{
				Ledger:       []Entry{{Kind: ledger.KindPlain, Event: "MISSION_COMPLETE", Detail: "destination reached, all mission objectives satisfied", Severity: ledger.SeveritySuccess}},
				SnapWaypoint: wp(4),
				Governance: &governance.Patch{
					Confidence: governance.ConfidencePtr(0.99),
				},
			},
		},
		{
			ID: Affidavit,
			Entry: Effects{
				Ledger: []Entry{{Kind: ledger.KindPlain, Event: "AFFIDAVIT_SEALED", Detail: "mission summary sealed for review", Severity: ledger.SeveritySuccess}},
			},
		},
	}
}

// DeniedScenario is the regulator-demo mission: a comms-denied corridor run
// with offline receipt buffering, a stop-rule incident and a burst
// synchronization once the link is restored.
func DeniedScenario(freeze time.Duration) []Spec {
	return []Spec{
		{
			ID: NormalOps, Duration: 2 * time.Second, Legs: []int{0, 1},
			Entry: Effects{
				Ledger: []Entry{{Kind: ledger.KindPlain, Event: "MISSION_START", Detail: "denied-environment sortie initiated, uplink nominal", Severity: ledger.SeverityInfo}},
				Governance: &governance.Patch{
					Confidence:      governance.ConfidencePtr(0.97),
					AccountableRole: governance.RolePtr(governance.RoleAISystem),
					Mode:            governance.ModePtr(governance.ModeAutonomous),
				},
				SnapWaypoint: wp(0),
			},
		},
		{
			ID: Degraded, Duration: 2 * time.Second, Legs: []int{1, 2},
			Entry: Effects{
				Ledger: []Entry{{Kind: ledger.KindPlain, Event: "LINK_DEGRADED", Detail: "uplink margin collapsing, jamming signature suspected", ReasonCode: "SIGNAL_LOSS", Severity: ledger.SeverityWarn}},
				Governance: &governance.Patch{
					Confidence: governance.ConfidencePtr(0.82),
					ReasonCode: governance.ReasonPtr("SIGNAL_LOSS"),
				},
				SnapWaypoint: wp(1),
			},
		},
		{
			ID: Offline, Duration: 4 * time.Second, Legs: []int{2, 3},
			Entry: Effects{
				Ledger:         []Entry{{Kind: ledger.KindPlain, Event: "LINK_LOST", Detail: "uplink lost, decisions buffering to local ledger", ReasonCode: "LINK_DOWN", Severity: ledger.SeverityCritical}},
				SnapWaypoint:   wp(2),
				StartBuffering: true,
			},
		},
		{
			ID: IncidentDetected, Duration: 2 * time.Second,
			Entry: Effects{
				Ledger: []Entry{{Kind: ledger.KindPlain, Event: "INCIDENT_DETECTED", Detail: "unknown contact inside standoff radius while offline", ReasonCode: "UNKNOWN_CONTACT", Severity: ledger.SeverityCritical}},
				Governance: &governance.Patch{
					Confidence: governance.ConfidencePtr(0.37),
					ReasonCode: governance.ReasonPtr("UNKNOWN_CONTACT"),
				},
				Freeze: freeze,
			},
		},
		{
			ID: StopRuleTriggered, Duration: 1500 * time.Millisecond,
			Entry: Effects{
				Ledger: []Entry{{Kind: ledger.KindPlain, Event: "STOP_RULE_TRIGGERED", Detail: "pre-committed stop rule engaged without operator contact", ReasonCode: "STOP_RULE", Severity: ledger.SeverityCritical}},
				Governance: &governance.Patch{
					Fallback: governance.FallbackPtr(governance.FallbackTriggered),
					Mode:     governance.ModePtr(governance.ModeSupervised),
				},
			},
		},
		{
			ID: AvoidanceExecuted, Duration: 2500 * time.Millisecond, Legs: []int{3, 4},
			Entry: Effects{
				Ledger:       []Entry{{Kind: ledger.KindPlain, Event: "AVOIDANCE_EXECUTED", Detail: "standoff detour flown, contact cleared", Severity: ledger.SeveritySuccess}},
				SnapWaypoint: wp(3),
			},
		},
		{
			ID: Reconnecting, Duration: 1500 * time.Millisecond,
			Entry: Effects{
				Ledger:        []Entry{{Kind: ledger.KindPlain, Event: "LINK_RECONNECTING", Detail: "uplink handshake re-established", Severity: ledger.SeverityWarn}},
				StopBuffering: true,
			},
		},
		{
			ID: BurstSync, Wait: WaitSyncComplete,
			Entry: Effects{
				Ledger:    []Entry{{Kind: ledger.KindPlain, Event: "BURST_SYNC_STARTED", Detail: "draining buffered receipts to ground ledger", Severity: ledger.SeverityInfo}},
				BeginSync: true,
			},
		},
		{
			ID: Verified, Duration: 2 * time.Second,
			Entry: Effects{
				Ledger: []Entry{{Kind: ledger.KindPlain, Event: "LEDGER_VERIFIED", Detail: "all buffered receipts verified, no gaps, no duplicates", Severity: ledger.SeveritySuccess}},
				Governance: &governance.Patch{
					Confidence: governance.ConfidencePtr(0.95),
					Fallback:   governance.FallbackPtr(governance.FallbackNone),
					Mode:       governance.ModePtr(governance.ModeAutonomous),
					ReasonCode: governance.ReasonPtr(""),
				},
			},
		},
		{
			ID: Complete,
			Entry: Effects{
				Ledger:       []Entry{{Kind: ledger.KindPlain, Event: "MISSION_COMPLETE", Detail: "sortie complete, full custody chain intact", Severity: ledger.SeveritySuccess}},
				SnapWaypoint: wp(4),
			},
		},
	}
}

// ScenarioByName returns the named catalog, defaulting to the standard one.
func ScenarioByName(name string, freeze time.Duration) []Spec {
	if name == ScenarioDenied {
		return DeniedScenario(freeze)
	}
	return StandardScenario(freeze)
}
