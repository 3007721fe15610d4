package domain

import (
	"fmt"
	"strings"
)

// DeviceType is the role assigned to a network host.
// Declaration order is only used to break ties when sorting.
type DeviceType int

const (
	DeviceUnknown DeviceType = iota
	DeviceRouter
	DeviceSwitch
	DeviceFirewall
	DeviceAccessPoint
	DeviceLoadBalancer
	DeviceDNS
	DeviceServer
	DeviceWebServer
	DeviceMailServer
	DeviceDatabase
	DeviceHypervisor
	DeviceVirtualMachine
	DeviceContainer
	DeviceNAS
	DeviceWorkstation
	DeviceLaptop
	DevicePhone
	DeviceTablet
	DevicePrinter
	DeviceCamera
	DeviceVoIP
	DeviceSmartTV
	DeviceMediaPlayer
	DeviceGameConsole
	DeviceSmartSpeaker
	DeviceSmartHome
	DeviceIoT
	DeviceInternet

	deviceTypeCount
)

// DeviceInfo holds presentation metadata for a device type
type DeviceInfo struct {
	Name           string `json:"name"`
	Label          string `json:"label"`
	Color          string `json:"color"`
	Icon           string `json:"icon"`
	Infrastructure bool   `json:"infrastructure"`
}

// deviceInfo is indexed by DeviceType; the array length keeps it exhaustive.
var deviceInfo = [deviceTypeCount]DeviceInfo{
	DeviceUnknown:        {"unknown", "Unknown", "#9e9e9e", "help", false},
	DeviceRouter:         {"router", "Router", "#e53935", "router", true},
	DeviceSwitch:         {"switch", "Switch", "#fb8c00", "hub", true},
	DeviceFirewall:       {"firewall", "Firewall", "#b71c1c", "shield", true},
	DeviceAccessPoint:    {"access_point", "Access Point", "#f4511e", "wifi", true},
	DeviceLoadBalancer:   {"load_balancer", "Load Balancer", "#6d4c41", "balance", true},
	DeviceDNS:            {"dns", "DNS Server", "#8e24aa", "dns", false},
	DeviceServer:         {"server", "Server", "#1e88e5", "server", false},
	DeviceWebServer:      {"web_server", "Web Server", "#039be5", "language", false},
	DeviceMailServer:     {"mail_server", "Mail Server", "#00acc1", "mail", false},
	DeviceDatabase:       {"database", "Database", "#3949ab", "storage", false},
	DeviceHypervisor:     {"hypervisor", "Hypervisor", "#5e35b1", "layers", false},
	DeviceVirtualMachine: {"vm", "Virtual Machine", "#7e57c2", "computer", false},
	DeviceContainer:      {"container", "Container", "#9575cd", "inventory", false},
	DeviceNAS:            {"nas", "NAS", "#00897b", "archive", false},
	DeviceWorkstation:    {"workstation", "Workstation", "#43a047", "desktop", false},
	DeviceLaptop:         {"laptop", "Laptop", "#7cb342", "laptop", false},
	DevicePhone:          {"phone", "Phone", "#c0ca33", "smartphone", false},
	DeviceTablet:         {"tablet", "Tablet", "#afb42b", "tablet", false},
	DevicePrinter:        {"printer", "Printer", "#6d4c41", "print", false},
	DeviceCamera:         {"camera", "Camera", "#d81b60", "videocam", false},
	DeviceVoIP:           {"voip", "VoIP Phone", "#00838f", "call", false},
	DeviceSmartTV:        {"smart_tv", "Smart TV", "#ad1457", "tv", false},
	DeviceMediaPlayer:    {"media_player", "Media Player", "#c2185b", "cast", false},
	DeviceGameConsole:    {"game_console", "Game Console", "#6a1b9a", "gamepad", false},
	DeviceSmartSpeaker:   {"smart_speaker", "Smart Speaker", "#4527a0", "speaker", false},
	DeviceSmartHome:      {"smart_home", "Smart Home", "#2e7d32", "home", false},
	DeviceIoT:            {"iot", "IoT Device", "#558b2f", "memory", false},
	DeviceInternet:       {"internet", "Internet", "#546e7a", "public", false},
}

// AllDeviceTypes returns every device type in declaration order
func AllDeviceTypes() []DeviceType {
	out := make([]DeviceType, 0, deviceTypeCount)
	for t := DeviceUnknown; t < deviceTypeCount; t++ {
		out = append(out, t)
	}
	return out
}

// Info returns the presentation metadata for the device type
func (t DeviceType) Info() DeviceInfo {
	if t < 0 || t >= deviceTypeCount {
		return deviceInfo[DeviceUnknown]
	}
	return deviceInfo[t]
}

// String returns the stable machine name ("router", "nas", ...)
func (t DeviceType) String() string {
	return t.Info().Name
}

// IsInfrastructure reports whether the type is a network infrastructure role
func (t DeviceType) IsInfrastructure() bool {
	return t.Info().Infrastructure
}

// IsIoT reports whether the type belongs to the consumer/embedded bucket
func (t DeviceType) IsIoT() bool {
	switch t {
	case DeviceIoT, DeviceSmartHome, DeviceSmartSpeaker, DeviceSmartTV,
		DeviceMediaPlayer, DeviceCamera:
		return true
	}
	return false
}

// ParseDeviceType converts a machine name to a DeviceType
func ParseDeviceType(s string) (DeviceType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for t := DeviceUnknown; t < deviceTypeCount; t++ {
		if deviceInfo[t].Name == name {
			return t, nil
		}
	}
	return DeviceUnknown, fmt.Errorf("unknown device type %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (t DeviceType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *DeviceType) UnmarshalText(b []byte) error {
	parsed, err := ParseDeviceType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
