package models

// DeviceStatus is the status reported by the pot device itself.
type DeviceStatus string

const (
	StatusUnknown DeviceStatus = ""
	StatusWorking DeviceStatus = "working"
	StatusStopped DeviceStatus = "stopped"
)

// Reading is one telemetry payload from the device. It is held in memory
// only; each new reading replaces the previous one at the bridge.
type Reading struct {
	Temperature float64      `json:"temperature"`      // °C
	RSSI        *int         `json:"rssi,omitempty"`   // WiFi signal strength, dBm
	Status      DeviceStatus `json:"status,omitempty"` // working | stopped
}
