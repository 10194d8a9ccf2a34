// Package format renders real-time data for the terminal.
package format

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/foxess-cli/foxess/pkg/log"
	"github.com/foxess-cli/foxess/pkg/query"
	"github.com/foxess-cli/foxess/pkg/types"
)

// DefaultDecimals is the number of decimal places used unless overridden.
const DefaultDecimals = 2

// Number formats v with decimals places and then trims trailing zeros and a
// trailing decimal point.
func Number(v float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	s := strconv.FormatFloat(v, 'f', decimals, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		s = "0"
	}
	return s
}

// Power formats v like Number with a kW suffix. The value is not scaled.
func Power(v float64, decimals int) string {
	return Number(v, decimals) + " kW"
}

// Flow is a signed power flow split into a magnitude and a direction label.
type Flow struct {
	Magnitude float64
	Label     string
}

// GridFlow returns the net grid flow. Positive consumption minus feed-in is
// an import, anything else an export.
func GridFlow(consumption, feedin float64) Flow {
	net := consumption - feedin
	if net > 0 {
		return Flow{Magnitude: net, Label: "import"}
	}
	return Flow{Magnitude: math.Abs(net), Label: "export"}
}

// BatteryFlow returns the net battery flow. Positive charge minus discharge
// is charging, anything else discharging.
func BatteryFlow(charge, discharge float64) Flow {
	net := charge - discharge
	if net > 0 {
		return Flow{Magnitude: net, Label: "charging"}
	}
	return Flow{Magnitude: math.Abs(net), Label: "discharging"}
}

func (f Flow) format(decimals int) string {
	return Power(f.Magnitude, decimals) + " " + f.Label
}

// Summary writes the default power flow overview for device.
func Summary(ctx context.Context, w io.Writer, device types.Device, points []types.DataPoint, decimals int) {
	solar := query.FloorSolar(query.GenerationPower, query.FloatOf(points, query.GenerationPower))
	pv := query.FloorSolar(query.PVPower, query.FloatOf(points, query.PVPower))
	consumption := query.FloatOf(points, query.GridConsumptionPower)
	feedin := query.FloatOf(points, query.FeedinPower)
	home := query.FloatOf(points, query.LoadsPower)
	charge := query.FloatOf(points, query.BatChargePower)
	discharge := query.FloatOf(points, query.BatDischargePower)
	soc := query.FloatOf(points, query.SoC)

	log.Ctx(ctx).DebugContext(ctx, "raw values",
		slog.Float64("solar", solar),
		slog.Float64("pvPower", pv),
		slog.Float64("gridConsumption", consumption),
		slog.Float64("feedIn", feedin),
		slog.Float64("home", home),
		slog.Float64("batteryCharge", charge),
		slog.Float64("batteryDischarge", discharge),
	)

	fmt.Fprintf(w, "Device: %s\n", device.StationName)
	fmt.Fprintf(w, "%s: %s\n", query.GenerationPower, Power(solar, decimals))
	fmt.Fprintf(w, "%s: %s\n", query.PVPower, Power(pv, decimals))
	fmt.Fprintf(w, "%s: %s\n", query.LoadsPower, Power(home, decimals))
	fmt.Fprintf(w, "Grid: %s\n", GridFlow(consumption, feedin).format(decimals))

	if device.HasBattery {
		fmt.Fprintf(w, "Battery: %s\n", BatteryFlow(charge, discharge).format(decimals))
		fmt.Fprintf(w, "SoC: %s%%\n", Number(soc, decimals))
	}
}

// All writes every returned variable with its value and unit.
func All(w io.Writer, points []types.DataPoint, decimals int) {
	fmt.Fprintln(w, "Available variables:")
	for _, p := range points {
		var value string
		if f, ok := p.Value.Float(); ok {
			value = Number(query.FloorSolar(p.Variable, f), decimals)
		} else if p.Value.IsNull() {
			value = "unknown"
		} else {
			value = p.Value.String()
		}
		fmt.Fprintln(w, strings.TrimRight(fmt.Sprintf("  %s: %s %s", p.Variable, value, query.NormalizeUnit(p.Unit)), " "))
	}
}

// Variables writes the requested variables in order, printing
// "Not available" for ones that are missing or not numeric.
func Variables(w io.Writer, points []types.DataPoint, variables []string, decimals int) {
	for _, variable := range variables {
		v, _ := query.ValueOf(points, variable)
		f, ok := v.Float()
		if !ok {
			fmt.Fprintf(w, "%s: Not available\n", variable)
			continue
		}
		value := Number(query.FloorSolar(variable, f), decimals)
		fmt.Fprintln(w, strings.TrimRight(fmt.Sprintf("%s: %s %s", variable, value, query.UnitOf(points, variable)), " "))
	}
}
