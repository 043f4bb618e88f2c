// internal/telemetry/mqtt/publisher.go
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/OstapBloqIt/kerong-emulator/internal/telemetry"
)

// SnapshotSource is the slice of the engine the publisher needs.
type SnapshotSource interface {
	Snapshot() *telemetry.Snapshot
}

// Envelope wraps one stats snapshot for the broker. CorrelationID is
// fresh per message so consumers can deduplicate retransmits.
type Envelope struct {
	ApiVersion    string              `json:"apiVersion"`
	CorrelationID string              `json:"correlationID"`
	Source        string              `json:"source"`
	ContentType   string              `json:"contentType"`
	Payload       *telemetry.Snapshot `json:"payload"`
}

// Config for the stats publisher.
type Config struct {
	Broker   string
	ClientID string
	Topic    string
	Interval time.Duration
}

// Publisher periodically pushes the latest snapshot to an MQTT topic.
type Publisher struct {
	cfg    Config
	client mqtt.Client
	src    SnapshotSource
}

// New connects to the broker and returns a ready publisher.
func New(cfg Config, src SnapshotSource) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(60 * time.Second).
		SetPingTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if ok := token.WaitTimeout(10 * time.Second); !ok {
		return nil, fmt.Errorf("mqtt connect to %s timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.Broker, err)
	}

	return &Publisher{cfg: cfg, client: client, src: src}, nil
}

// Run publishes on the configured interval until ctx is cancelled.
// Publish failures are returned to the caller's logger through the
// error channel semantics of publishOnce; the loop itself never stops
// on a single bad publish.
func (p *Publisher) Run(ctx context.Context, logf func(format string, v ...any)) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.publishOnce(); err != nil {
				logf("mqtt publish failed: %v", err)
			}
		}
	}
}

func (p *Publisher) publishOnce() error {
	env := Envelope{
		ApiVersion:    "v3",
		CorrelationID: uuid.NewString(),
		Source:        p.cfg.ClientID,
		ContentType:   "application/json",
		Payload:       p.src.Snapshot(),
	}

	body, err := json.Marshal(env)
	if err != nil {
		return err
	}

	tok := p.client.Publish(p.cfg.Topic, 0, false, body)
	if ok := tok.WaitTimeout(10 * time.Second); !ok {
		return fmt.Errorf("publish to %s timed out", p.cfg.Topic)
	}
	return tok.Error()
}

// Close disconnects from the broker, letting in-flight work drain.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
