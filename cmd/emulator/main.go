// cmd/emulator/main.go
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goburrow/serial"

	"github.com/OstapBloqIt/kerong-emulator/internal/config"
	"github.com/OstapBloqIt/kerong-emulator/internal/device"
	"github.com/OstapBloqIt/kerong-emulator/internal/emulator"
	"github.com/OstapBloqIt/kerong-emulator/internal/telemetry/mqtt"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: emulator <config.yaml>")
	}

	cfgPath := os.Args[1]

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}

	config.Normalize(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Build the device fleet
	// --------------------

	reg, err := device.NewRegistry(device.RegistryConfig{
		Kind:              deviceKind(cfg.Emulator.Devices.Kind),
		Count:             cfg.Emulator.Devices.Count,
		AddressBase:       cfg.Emulator.Devices.AddressBase,
		ZeroCountReadsAll: cfg.Emulator.Devices.ZeroCountReadsAll,
	})
	if err != nil {
		log.Fatalf("device registry build failed: %v", err)
	}

	// --------------------
	// Open the bus
	// --------------------

	port, err := serial.Open(&serial.Config{
		Address:  cfg.Emulator.Serial.Device,
		BaudRate: cfg.Emulator.Serial.BaudRate,
		DataBits: 8,
		Parity:   "N",
		StopBits: 1,
		Timeout:  10 * time.Millisecond,
	})
	if err != nil {
		log.Fatalf("serial open failed (%s): %v", cfg.Emulator.Serial.Device, err)
	}
	defer port.Close()

	eng := emulator.New(emulator.Config{
		BaudRate: cfg.Emulator.Serial.BaudRate,
	}, &idlePort{Port: port}, reg)

	// --------------------
	// Optional MQTT stats export
	// --------------------

	if mc := cfg.Emulator.Telemetry.MQTT; mc != nil {
		pub, err := mqtt.New(mqtt.Config{
			Broker:   mc.Broker,
			ClientID: mc.ClientID,
			Topic:    mc.Topic,
			Interval: time.Duration(mc.IntervalMs) * time.Millisecond,
		}, eng)
		if err != nil {
			log.Fatalf("mqtt connect failed: %v", err)
		}
		defer pub.Close()
		go pub.Run(ctx, log.Printf)
	}

	// --------------------
	// Serve the bus until a signal arrives
	// --------------------

	log.Printf("emulating %d %s device(s) on %s @ %d baud (addresses %v)",
		cfg.Emulator.Devices.Count,
		cfg.Emulator.Devices.Kind,
		cfg.Emulator.Serial.Device,
		cfg.Emulator.Serial.BaudRate,
		reg.Addresses())

	if err := eng.Run(ctx); err != nil {
		log.Printf("engine stopped: %v", err)
	}

	log.Print("\n" + eng.Snapshot().Summary())
}

func deviceKind(s string) device.Kind {
	if s == "generic" {
		return device.KindGeneric
	}
	return device.KindLock
}

// idlePort maps the driver's read timeout onto the engine's idle-tick
// convention: (0, nil) means nothing arrived, keep polling.
type idlePort struct {
	serial.Port
}

func (p *idlePort) Read(b []byte) (int, error) {
	n, err := p.Port.Read(b)
	if err != nil && errors.Is(err, serial.ErrTimeout) {
		return n, nil
	}
	return n, err
}
