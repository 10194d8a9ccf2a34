// Package query looks up variables in a real-time data response.
package query

import (
	"strings"

	"github.com/foxess-cli/foxess/pkg/types"
)

const (
	// GenerationPower is the inverter's total solar generation.
	GenerationPower = "generationPower"
	// PVPower is the photovoltaic input power.
	PVPower = "pvPower"

	FeedinPower          = "feedinPower"
	GridConsumptionPower = "gridConsumptionPower"
	LoadsPower           = "loadsPower"
	BatChargePower       = "batChargePower"
	BatDischargePower    = "batDischargePower"
	SoC                  = "SoC"

	// solarFloor is the largest solar reading that is reported as zero.
	solarFloor = 0.02
)

func find(points []types.DataPoint, variable string) (types.DataPoint, bool) {
	for _, p := range points {
		if strings.EqualFold(p.Variable, variable) {
			return p, true
		}
	}
	return types.DataPoint{}, false
}

// ValueOf returns the value of variable. The bool is false if no point
// matches.
func ValueOf(points []types.DataPoint, variable string) (types.Value, bool) {
	p, ok := find(points, variable)
	if !ok {
		return types.Null(), false
	}
	return p.Value, true
}

// FloatOf returns the numeric value of variable or 0 if it is missing or
// not a number.
func FloatOf(points []types.DataPoint, variable string) float64 {
	v, _ := ValueOf(points, variable)
	f, _ := v.Float()
	return f
}

// UnitOf returns the unit of variable with degree Celsius symbols replaced
// by "C".
func UnitOf(points []types.DataPoint, variable string) string {
	p, ok := find(points, variable)
	if !ok {
		return ""
	}
	return NormalizeUnit(p.Unit)
}

// NormalizeUnit maps non-ASCII Celsius symbols to "C".
func NormalizeUnit(unit string) string {
	return strings.NewReplacer("°C", "C", "℃", "C").Replace(unit)
}

// NameOf returns the display name of variable, falling back to variable
// itself when no point matches.
func NameOf(points []types.DataPoint, variable string) string {
	p, ok := find(points, variable)
	if !ok || p.Name == "" {
		return variable
	}
	return p.Name
}

// IsSolar reports whether variable is one of the solar generation fields.
// The match is case-sensitive.
func IsSolar(variable string) bool {
	return variable == GenerationPower || variable == PVPower
}

// FloorSolar returns 0 for solar readings at or below 0.02 and v otherwise.
func FloorSolar(variable string, v float64) float64 {
	if IsSolar(variable) && v <= solarFloor {
		return 0
	}
	return v
}
