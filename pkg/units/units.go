// Package units provides unit-typed physical quantities for telemetry values.
//
// Quantities follow the time.Duration pattern: each type is a float64 in a
// fixed base unit (SI), constructed and read through unit-named functions so
// a km/h value can never be handed to an rpm parameter by accident.
package units

import (
	"fmt"
	"math"
)

// Velocity is a speed. The base unit is meters per second.
type Velocity float64

func MetersPerSecond(v float64) Velocity   { return Velocity(v) }
func KilometersPerHour(v float64) Velocity { return Velocity(v / 3.6) }
func MilesPerHour(v float64) Velocity      { return Velocity(v * 0.44704) }

func (v Velocity) MetersPerSecond() float64   { return float64(v) }
func (v Velocity) KilometersPerHour() float64 { return float64(v) * 3.6 }
func (v Velocity) MilesPerHour() float64      { return float64(v) / 0.44704 }

func (v Velocity) String() string {
	return fmt.Sprintf("%.2f m/s", float64(v))
}

// AngularVelocity is a rotation speed. The base unit is radians per second.
type AngularVelocity float64

const radPerSecPerRPM = 2.0 * math.Pi / 60.0

func RadiansPerSecond(v float64) AngularVelocity { return AngularVelocity(v) }

func RevolutionsPerMinute(v float64) AngularVelocity {
	return AngularVelocity(v * radPerSecPerRPM)
}

func (a AngularVelocity) RadiansPerSecond() float64 { return float64(a) }

func (a AngularVelocity) RevolutionsPerMinute() float64 {
	return float64(a) / radPerSecPerRPM
}

func (a AngularVelocity) String() string {
	return fmt.Sprintf("%.0f rpm", a.RevolutionsPerMinute())
}
