// internal/config/normalize.go
package config

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	d := &cfg.Emulator.Devices
	if d.Kind == "" {
		d.Kind = "lock"
	}

	// ------------------------------------------------------------
	// MQTT DEFAULTS (OPT-IN)
	// ------------------------------------------------------------

	m := cfg.Emulator.Telemetry.MQTT
	if m == nil {
		return
	}
	if m.Topic == "" {
		m.Topic = "kerong/emulator/stats"
	}
	if m.ClientID == "" {
		m.ClientID = "kerong-emulator"
	}
	if m.IntervalMs == 0 {
		m.IntervalMs = 1000
	}
}
