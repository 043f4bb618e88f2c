// internal/config/config.go
package config

type Config struct {
	Emulator EmulatorConfig `yaml:"emulator"`
}

type EmulatorConfig struct {
	Serial    SerialConfig    `yaml:"serial"`
	Devices   DeviceConfig    `yaml:"devices"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ---- SERIAL ----

type SerialConfig struct {
	Device   string `yaml:"device"`
	BaudRate int    `yaml:"baud_rate"`
}

// ---- DEVICES ----

type DeviceConfig struct {
	Count int `yaml:"count"`

	// "lock" (KR-CU48, 48 locks) or "generic" (four 256-entry banks).
	Kind string `yaml:"kind"`

	// AddressBase is 0 or 1. The two conventions are incompatible;
	// the core honors this value exactly, it never infers one.
	AddressBase int `yaml:"address_base"`

	// CU48 compat: count==0 on Read Coils reads all 48.
	ZeroCountReadsAll bool `yaml:"zero_count_reads_all"`
}

// ---- TELEMETRY ----

type TelemetryConfig struct {
	// MQTT snapshot publishing (optional, opt-in).
	MQTT *MQTTConfig `yaml:"mqtt"`
}

type MQTTConfig struct {
	Broker     string `yaml:"broker"`
	ClientID   string `yaml:"client_id"`
	Topic      string `yaml:"topic"`
	IntervalMs int    `yaml:"interval_ms"`
}
