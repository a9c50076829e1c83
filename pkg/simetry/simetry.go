// Package simetry defines the common contracts for reading live telemetry
// from any supported racing simulator: a Simetry session produced by a
// backend, and the Moment snapshot it yields on every tick.
package simetry

import (
	"context"

	"github.com/simetry/simetry-go/pkg/racingflags"
	"github.com/simetry/simetry-go/pkg/units"
)

// Simetry is a live connection to one simulator. It yields Moments in the
// order the transport delivers them, one at a time, and cannot be rewound.
type Simetry interface {
	// Name of the sim we are connected to. Stable for the session lifetime.
	Name() string

	// NextMoment waits for the next reading of data from the sim.
	//
	// A nil Moment with a nil error means the connection is gone, similar
	// to an exhausted iterator. This is terminal: once returned, further
	// calls keep returning nil (they never resurrect old data).
	// The error is non-nil only when ctx ends while waiting.
	NextMoment(ctx context.Context) (Moment, error)

	// Close releases the underlying transport. The session must not be
	// used afterwards. Safe to call more than once.
	Close() error
}

// Moment is a snapshot of the most common data points at one instant,
// normalized across sims. Implementations are immutable.
//
// Every query has a defined answer even when the connected sim does not
// model the underlying datum; embed UnsupportedMoment to pick up those
// defaults and override only what the sim actually provides.
type Moment interface {
	// VehicleLeft reports whether a vehicle is alongside to the left.
	VehicleLeft() bool

	// VehicleRight reports whether a vehicle is alongside to the right.
	VehicleRight() bool

	// BasicTelemetry returns the common dashboard values.
	// ok is false when the sim provides none of them.
	BasicTelemetry() (BasicTelemetry, bool)

	// ShiftPoint returns the engine speed at which to shift up.
	// ok is false when the sim does not expose an optimum shift point;
	// it is never faked as zero.
	ShiftPoint() (units.AngularVelocity, bool)

	// Flags returns the race control flags currently shown.
	Flags() racingflags.RacingFlags

	// VehicleUniqueID identifies the current vehicle make and model.
	// Use this to key vehicle-specific behavior. ok is false when the
	// sim does not expose a stable identifier.
	VehicleUniqueID() (string, bool)

	// IgnitionOn reports whether the ignition is on.
	IgnitionOn() bool

	// StarterOn reports whether the starter motor is engaged.
	StarterOn() bool
}

// UnsupportedMoment answers every Moment query with its documented default.
// Backends embed it so call sites never have to special-case missing data.
//
// Boolean physical states default to their normal driving value: no car
// alongside, ignition on, starter off, no flags. Data-bearing queries
// report absent instead, so "unsupported" is never mistaken for a
// measured zero.
type UnsupportedMoment struct{}

var _ Moment = UnsupportedMoment{}

func (UnsupportedMoment) VehicleLeft() bool  { return false }
func (UnsupportedMoment) VehicleRight() bool { return false }

func (UnsupportedMoment) BasicTelemetry() (BasicTelemetry, bool) {
	return BasicTelemetry{}, false
}

func (UnsupportedMoment) ShiftPoint() (units.AngularVelocity, bool) {
	return 0, false
}

func (UnsupportedMoment) Flags() racingflags.RacingFlags {
	return racingflags.RacingFlags{}
}

func (UnsupportedMoment) VehicleUniqueID() (string, bool) { return "", false }

// IgnitionOn defaults to true: sims without ignition modeling behave as if
// the engine is always running.
func (UnsupportedMoment) IgnitionOn() bool { return true }

func (UnsupportedMoment) StarterOn() bool { return false }
