// internal/config/validate.go
package config

import "fmt"

// supported symbol rates, matching what the serial front ends offer.
var baudRates = map[int]bool{
	9600:   true,
	19200:  true,
	38400:  true,
	57600:  true,
	115200: true,
}

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	e := cfg.Emulator

	// ------------------------------------------------------------
	// SERIAL
	// ------------------------------------------------------------

	if e.Serial.Device == "" {
		return fmt.Errorf("config: serial.device is required")
	}
	if !baudRates[e.Serial.BaudRate] {
		return fmt.Errorf(
			"config: serial.baud_rate %d not supported (9600/19200/38400/57600/115200)",
			e.Serial.BaudRate,
		)
	}

	// ------------------------------------------------------------
	// DEVICES
	// ------------------------------------------------------------

	if e.Devices.Count < 1 || e.Devices.Count > 10 {
		return fmt.Errorf("config: devices.count %d out of range 1-10", e.Devices.Count)
	}
	switch e.Devices.Kind {
	case "", "lock", "generic":
	default:
		return fmt.Errorf("config: devices.kind %q must be \"lock\" or \"generic\"", e.Devices.Kind)
	}
	if e.Devices.AddressBase != 0 && e.Devices.AddressBase != 1 {
		return fmt.Errorf("config: devices.address_base must be 0 or 1, got %d", e.Devices.AddressBase)
	}
	if e.Devices.ZeroCountReadsAll && e.Devices.Kind == "generic" {
		return fmt.Errorf("config: devices.zero_count_reads_all applies to lock devices only")
	}

	// ------------------------------------------------------------
	// TELEMETRY (OPT-IN)
	// ------------------------------------------------------------

	if m := e.Telemetry.MQTT; m != nil {
		if m.Broker == "" {
			return fmt.Errorf("config: telemetry.mqtt.broker is required when mqtt is set")
		}
		if m.IntervalMs < 0 {
			return fmt.Errorf("config: telemetry.mqtt.interval_ms must be >= 0")
		}
	}

	return nil
}
