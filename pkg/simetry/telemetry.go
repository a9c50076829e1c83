package simetry

import "github.com/simetry/simetry-go/pkg/units"

// BasicTelemetry holds the dashboard values nearly every sim can provide.
// All physical fields carry their unit in the type; JSON uses base units.
type BasicTelemetry struct {
	// Gear is the selected gear: negative for reverse, 0 for neutral.
	Gear int8 `json:"gear"`
	// Speed of the vehicle.
	Speed units.Velocity `json:"speed"`
	// EngineRotationSpeed is the current engine speed.
	EngineRotationSpeed units.AngularVelocity `json:"engineRotationSpeed"`
	// MaxEngineRotationSpeed is the rev limit.
	MaxEngineRotationSpeed units.AngularVelocity `json:"maxEngineRotationSpeed"`
	// PitLimiterEngaged reports whether the pit speed limiter is active.
	PitLimiterEngaged bool `json:"pitLimiterEngaged"`
	// InPitLane reports whether the vehicle is in the pit lane.
	InPitLane bool `json:"inPitLane"`
}
