// Package plan turns logged detections into a rescue plan for the field
// team.
//
// Life signs outrank structural damage: any SCREAM detection produces a
// bio-signal plan, otherwise any DAMAGED detection produces a collapse
// plan, otherwise the sector is reported clear.
package plan

import (
	"context"
	"fmt"

	"github.com/projecthayat/hayat/pkg/detection"
)

// Source tells which generator wrote a plan.
type Source string

const (
	SourceOffline Source = "OFFLINE"
	SourceGemini  Source = "GEMINI"
	SourceOpenAI  Source = "OPENAI"
)

// Scenario is the situation a plan responds to.
type Scenario string

const (
	ScenarioLifeSigns Scenario = "LIFE_SIGNS"
	ScenarioDamage    Scenario = "STRUCTURAL_DAMAGE"
	ScenarioClear     Scenario = "ALL_CLEAR"
)

// Plan is a rescue plan.
type Plan struct {
	Summary       string   `json:"summary"`
	PriorityZones []string `json:"priorityZones"`
	SafePath      string   `json:"safePath"`
	Warnings      []string `json:"warnings"`
	Scenario      Scenario `json:"scenario"`
	Source        Source   `json:"source"`
}

// Generator writes a plan for a set of detections.
type Generator interface {
	Generate(ctx context.Context, detections []detection.Detection) (Plan, error)
}

// Assessment counts what the detections report.
type Assessment struct {
	Voices  int
	Damaged int
}

// Assess counts SCREAM and DAMAGED detections.
func Assess(detections []detection.Detection) Assessment {
	var a Assessment
	for _, d := range detections {
		switch d.Label {
		case "SCREAM":
			a.Voices++
		case "DAMAGED":
			a.Damaged++
		}
	}
	return a
}

// Scenario picks the scenario for the assessment.
func (a Assessment) Scenario() Scenario {
	switch {
	case a.Voices > 0:
		return ScenarioLifeSigns
	case a.Damaged > 0:
		return ScenarioDamage
	}
	return ScenarioClear
}

// Offline generates plans from fixed templates, without network access.
type Offline struct{}

// Generate implements Generator.
func (Offline) Generate(_ context.Context, detections []detection.Detection) (Plan, error) {
	a := Assess(detections)
	p := Plan{Scenario: a.Scenario(), Source: SourceOffline}

	switch p.Scenario {
	case ScenarioLifeSigns:
		p.Summary = fmt.Sprintf("URGENT - BIO-SIGNAL DETECTED: Acoustic sensors have isolated human distress signals at %d location(s). "+
			"Immediate SAR extraction team required. Structural instability may be present in the sector.", a.Voices)
		p.PriorityZones = []string{"Audio Source Alpha (Primary Target)", "Access Corridor B"}
		p.SafePath = "Route generated for Light Rescue Team (K-9 Unit). Heavy machinery must hold position to avoid vibration interference with sensors."
		p.Warnings = []string{
			"MAINTAIN AUDIO SILENCE for sensor accuracy",
			"Verify biological signs with thermal optics",
			"Standard seismic protocols active",
		}
		if a.Damaged > 0 {
			p.PriorityZones[1] = "Collapse Zone (Hazard)"
			p.Warnings[2] = "Caution: Active falling debris in sector"
		}

	case ScenarioDamage:
		p.Summary = fmt.Sprintf("CRITICAL ALERT: Aerial reconnaissance confirms %d structural failure(s) in Sector 4. "+
			"Main supply routes are compromised by heavy debris. Immediate heavy-lift equipment required.", a.Damaged)
		p.PriorityZones = []string{"Grid 04-Alpha (Collapse Zone)", "Sector 7 (Debris Flow)"}
		p.SafePath = "Primary Route blocked. Re-route Aid Convoy via Northern Access Road (Lat 36.21). Maintain 50m standoff distance from unstable structures."
		p.Warnings = []string{
			"Unstable masonry detected - Risk of secondary collapse",
			"Possible gas line rupture in debris field",
			"Aftershock vulnerability high",
		}

	default:
		p.Summary = "AREA SCAN COMPLETE: No critical structural anomalies or distress signals detected. " +
			"Route appears navigable for standard logistics vehicles. Proceed with standard patrol."
		p.PriorityZones = []string{"Standard Patrol Sector", "Logistics Corridor Green"}
		p.SafePath = "All main arteries are green. Proceed with standard aid delivery protocol via Route Alpha."
		p.Warnings = []string{"Standard seismic caution", "Monitor local frequencies for updates"}
	}
	return p, nil
}
