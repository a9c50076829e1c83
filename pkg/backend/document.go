package backend

import (
	"github.com/aarondl/opt/null"

	"github.com/simetry/simetry-go/pkg/racingflags"
	"github.com/simetry/simetry-go/pkg/simetry"
	"github.com/simetry/simetry-go/pkg/units"
)

// Document is the normalized telemetry payload shared by the generic HTTP
// and relay transports. Any sim (or forwarder) that can publish this JSON
// document joins the ecosystem without a dedicated backend.
//
// All fields except simName are nullable: a publisher states a datum or
// leaves it null, and null turns into the documented Moment default. This
// keeps "measured zero" and "not supported" distinguishable on the wire.
type Document struct {
	SimName           string             `json:"simName"`
	VehicleLeft       null.Val[bool]     `json:"vehicleLeft"`
	VehicleRight      null.Val[bool]     `json:"vehicleRight"`
	Gear              null.Val[int8]     `json:"gear"`
	SpeedMps          null.Val[float64]  `json:"speedMps"`
	EngineRpm         null.Val[float64]  `json:"engineRpm"`
	MaxEngineRpm      null.Val[float64]  `json:"maxEngineRpm"`
	PitLimiterEngaged null.Val[bool]     `json:"pitLimiterEngaged"`
	InPitLane         null.Val[bool]     `json:"inPitLane"`
	ShiftPointRpm     null.Val[float64]  `json:"shiftPointRpm"`
	Flags             null.Val[[]string] `json:"flags"`
	VehicleID         null.Val[string]   `json:"vehicleId"`
	IgnitionOn        null.Val[bool]     `json:"ignitionOn"`
	StarterOn         null.Val[bool]     `json:"starterOn"`
}

// HasTelemetry reports whether at least one basic telemetry field is set.
func (d *Document) HasTelemetry() bool {
	return d.Gear.IsValue() || d.SpeedMps.IsValue() ||
		d.EngineRpm.IsValue() || d.MaxEngineRpm.IsValue() ||
		d.PitLimiterEngaged.IsValue() || d.InPitLane.IsValue()
}

// DocumentMoment exposes one Document through the Moment contract.
type DocumentMoment struct {
	simetry.UnsupportedMoment
	doc Document
}

var _ simetry.Moment = (*DocumentMoment)(nil)

func NewDocumentMoment(doc Document) *DocumentMoment {
	return &DocumentMoment{doc: doc}
}

func (m *DocumentMoment) VehicleLeft() bool {
	return m.doc.VehicleLeft.GetOrZero()
}

func (m *DocumentMoment) VehicleRight() bool {
	return m.doc.VehicleRight.GetOrZero()
}

func (m *DocumentMoment) BasicTelemetry() (simetry.BasicTelemetry, bool) {
	if !m.doc.HasTelemetry() {
		return simetry.BasicTelemetry{}, false
	}
	return simetry.BasicTelemetry{
		Gear:  m.doc.Gear.GetOrZero(),
		Speed: units.MetersPerSecond(m.doc.SpeedMps.GetOrZero()),
		EngineRotationSpeed: units.RevolutionsPerMinute(
			m.doc.EngineRpm.GetOrZero()),
		MaxEngineRotationSpeed: units.RevolutionsPerMinute(
			m.doc.MaxEngineRpm.GetOrZero()),
		PitLimiterEngaged: m.doc.PitLimiterEngaged.GetOrZero(),
		InPitLane:         m.doc.InPitLane.GetOrZero(),
	}, true
}

func (m *DocumentMoment) ShiftPoint() (units.AngularVelocity, bool) {
	if !m.doc.ShiftPointRpm.IsValue() {
		return 0, false
	}
	return units.RevolutionsPerMinute(m.doc.ShiftPointRpm.GetOrZero()), true
}

func (m *DocumentMoment) Flags() racingflags.RacingFlags {
	if !m.doc.Flags.IsValue() {
		return racingflags.RacingFlags{}
	}
	return racingflags.FromNames(m.doc.Flags.GetOrZero())
}

func (m *DocumentMoment) VehicleUniqueID() (string, bool) {
	if !m.doc.VehicleID.IsValue() {
		return "", false
	}
	return m.doc.VehicleID.GetOrZero(), true
}

func (m *DocumentMoment) IgnitionOn() bool {
	if !m.doc.IgnitionOn.IsValue() {
		return m.UnsupportedMoment.IgnitionOn()
	}
	return m.doc.IgnitionOn.GetOrZero()
}

func (m *DocumentMoment) StarterOn() bool {
	return m.doc.StarterOn.GetOrZero()
}
