package types

// Device is a single inverter registered to a FoxESS account as returned by
// the device list endpoint.
type Device struct {
	DeviceSN    string `json:"deviceSN"`
	StationName string `json:"stationName"`
	StationID   string `json:"stationID"`
	ModuleSN    string `json:"moduleSN"`
	DeviceType  string `json:"deviceType"`
	HasPV       bool   `json:"hasPV"`
	HasBattery  bool   `json:"hasBattery"`
}

// DeviceList is the result payload of the device list endpoint.
type DeviceList struct {
	CurrentPage int      `json:"currentPage"`
	PageSize    int      `json:"pageSize"`
	Total       int      `json:"total"`
	Data        []Device `json:"data"`
}
