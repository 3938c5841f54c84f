// Package mqttingest lets devices that cannot speak HTTP publish telemetry
// over MQTT. Messages on parking/<deviceCode>/telemetry are decoded and fed
// through the same ingestion path as the HTTP endpoint.
package mqttingest

import (
	"context"
	"encoding/json"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"parking-status-backend/config"
	"parking-status-backend/internal/ingest"
	"parking-status-backend/internal/store"
)

// message is the MQTT telemetry payload. The device key travels in the
// payload since MQTT has no per-message headers at QoS level.
type message struct {
	store.Reading
	DeviceKey string `json:"deviceKey"`
}

// Bridge subscribes to the telemetry topic and funnels readings into the
// ingestion engine.
type Bridge struct {
	cfg    config.MQTTConfig
	ingest *ingest.Service
	client mqtt.Client
}

// NewBridge creates a bridge; Run connects it.
func NewBridge(cfg config.MQTTConfig, ingestSvc *ingest.Service) *Bridge {
	return &Bridge{cfg: cfg, ingest: ingestSvc}
}

// Run connects with backoff and serves until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) {
	if !b.cfg.Enabled {
		log.Println("MQTT bridge is disabled. Not starting.")
		return
	}

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		b.handleMessage(ctx, msg)
	}

	opts := mqtt.NewClientOptions().
		AddBroker(b.cfg.BrokerURL).
		SetClientID(b.cfg.ClientID).
		SetOrderMatters(false).
		SetCleanSession(false).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	if b.cfg.Username != "" {
		opts.SetUsername(b.cfg.Username)
	}
	if b.cfg.Password != "" {
		opts.SetPassword(b.cfg.Password)
	}

	// Re-subscribe on every (re)connect.
	opts.OnConnect = func(c mqtt.Client) {
		log.Printf("connected to MQTT broker %s", b.cfg.BrokerURL)
		if token := c.Subscribe(b.cfg.Topic, b.cfg.QoS, handler); token.Wait() && token.Error() != nil {
			log.Printf("mqtt subscribe error: %v", token.Error())
		} else {
			log.Printf("subscribed to topic %s (QoS %d)", b.cfg.Topic, b.cfg.QoS)
		}
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Printf("mqtt connection lost: %v", err)
	}

	b.client = mqtt.NewClient(opts)
	b.connectWithBackoff(ctx, 2*time.Second, 30*time.Second)

	<-ctx.Done()
	b.client.Disconnect(250)
	log.Println("MQTT bridge stopped")
}

// connectWithBackoff retries the initial connect until success or cancel.
func (b *Bridge) connectWithBackoff(ctx context.Context, start, max time.Duration) {
	backoff := start
	for {
		if token := b.client.Connect(); token.Wait() && token.Error() != nil {
			log.Printf("mqtt connect error: %v; retrying in %s", token.Error(), backoff)
			select {
			case <-time.After(backoff):
				if backoff < max {
					backoff *= 2
				}
			case <-ctx.Done():
				return
			}
			continue
		}
		return
	}
}

func (b *Bridge) handleMessage(ctx context.Context, msg mqtt.Message) {
	var m message
	if err := json.Unmarshal(msg.Payload(), &m); err != nil {
		log.Printf("mqtt: dropping malformed telemetry on %s: %v", msg.Topic(), err)
		return
	}
	if m.DeviceCode == "" || m.SensorCode == "" || m.DeviceKey == "" {
		log.Printf("mqtt: dropping telemetry on %s with missing fields", msg.Topic())
		return
	}

	if _, err := b.ingest.Ingest(ctx, m.Reading, m.DeviceKey); err != nil {
		log.Printf("mqtt: ingest failed for device %s sensor %s: %v", m.DeviceCode, m.SensorCode, err)
	}
}
