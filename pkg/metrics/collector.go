// Package metrics exposes real-time data as Prometheus gauges.
package metrics

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/foxess-cli/foxess/pkg/format"
	"github.com/foxess-cli/foxess/pkg/query"
	"github.com/foxess-cli/foxess/pkg/types"
)

const namespace = "foxess"

var deviceLabels = []string{"device_sn", "station_name"}

// Collector implements prometheus.Collector for a single real-time query.
type Collector struct {
	device types.Device
	points []types.DataPoint

	info         *prometheus.Desc
	gridFlow     *prometheus.Desc
	batteryFlow  *prometheus.Desc
	variableDesc map[string]*prometheus.Desc
}

// NewCollector creates a collector for the data points of device.
func NewCollector(device types.Device, points []types.DataPoint) *Collector {
	c := &Collector{
		device: device,
		points: points,
		info: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "info"),
			"FoxESS device information",
			[]string{"device_sn", "station_name", "station_id", "device_type", "has_pv", "has_battery"},
			nil,
		),
		gridFlow: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "grid_flow_power"),
			"Net grid power (positive=import, negative=export)",
			deviceLabels,
			nil,
		),
		batteryFlow: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "battery_flow_power"),
			"Net battery power (positive=charging, negative=discharging)",
			deviceLabels,
			nil,
		),
		variableDesc: make(map[string]*prometheus.Desc),
	}
	for _, p := range points {
		if _, ok := p.Value.Float(); !ok {
			continue
		}
		name := MetricName(p.Variable)
		if _, ok := c.variableDesc[name]; ok {
			continue
		}
		help := query.NameOf(points, p.Variable)
		if unit := query.NormalizeUnit(p.Unit); unit != "" {
			help += " (" + unit + ")"
		}
		c.variableDesc[name] = prometheus.NewDesc(name, help, deviceLabels, nil)
	}
	return c
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.info
	ch <- c.gridFlow
	ch <- c.batteryFlow
	for _, d := range c.variableDesc {
		ch <- d
	}
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	sn, station := c.device.DeviceSN, c.device.StationName

	ch <- prometheus.MustNewConstMetric(
		c.info,
		prometheus.GaugeValue,
		1,
		sn,
		station,
		c.device.StationID,
		c.device.DeviceType,
		strconv.FormatBool(c.device.HasPV),
		strconv.FormatBool(c.device.HasBattery),
	)

	grid := format.GridFlow(
		query.FloatOf(c.points, query.GridConsumptionPower),
		query.FloatOf(c.points, query.FeedinPower),
	)
	ch <- prometheus.MustNewConstMetric(c.gridFlow, prometheus.GaugeValue, signed(grid, "import"), sn, station)

	if c.device.HasBattery {
		battery := format.BatteryFlow(
			query.FloatOf(c.points, query.BatChargePower),
			query.FloatOf(c.points, query.BatDischargePower),
		)
		ch <- prometheus.MustNewConstMetric(c.batteryFlow, prometheus.GaugeValue, signed(battery, "charging"), sn, station)
	}

	seen := make(map[string]bool, len(c.variableDesc))
	for _, p := range c.points {
		f, ok := p.Value.Float()
		if !ok {
			continue
		}
		name := MetricName(p.Variable)
		if seen[name] {
			continue
		}
		seen[name] = true
		ch <- prometheus.MustNewConstMetric(c.variableDesc[name], prometheus.GaugeValue, query.FloorSolar(p.Variable, f), sn, station)
	}
}

func signed(f format.Flow, positive string) float64 {
	if f.Label == positive {
		return f.Magnitude
	}
	return -f.Magnitude
}

// MetricName converts a FoxESS variable name such as "batChargePower" into
// "foxess_bat_charge_power". A trailing capital is folded into the previous
// word so "SoC" becomes "foxess_soc".
func MetricName(variable string) string {
	runes := []rune(variable)
	var b strings.Builder
	b.WriteString(namespace)
	b.WriteByte('_')
	for i, r := range runes {
		switch {
		case r < unicode.MaxASCII && unicode.IsUpper(r):
			prevLower := i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]))
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower && nextLower {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// WriteTextfile gathers the collector and writes it to path in the text
// exposition format read by the node_exporter textfile collector.
func WriteTextfile(path string, device types.Device, points []types.DataPoint) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(NewCollector(device, points)); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, reg)
}
