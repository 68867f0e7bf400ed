package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/BrandonDHaskell/sentinel/internal/sentinel/types"
)

var errNotConnected = errors.New("mqtt not connected")

type MQTTConfig struct {
	Broker      string // host:port or a full tcp:// URL
	ClientID    string
	TopicPrefix string
	QoS         byte
	Username    string
	Password    string
}

// MQTTForwarder republishes hub events to an MQTT broker under
// <prefix>/decisions/<channel> and <prefix>/alerts/<channel>.
type MQTTForwarder struct {
	cfg    MQTTConfig
	logger *slog.Logger
	client mqtt.Client

	// publish is swapped out in tests.
	publish func(topic string, payload []byte) error

	mu        sync.RWMutex
	connected bool
	published map[string]uint64
	errors    uint64
}

// ForwarderStats contains forwarder statistics.
type ForwarderStats struct {
	Connected bool
	Published map[string]uint64
	Errors    uint64
}

func NewMQTTForwarder(cfg MQTTConfig, logger *slog.Logger) *MQTTForwarder {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "sentinel"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "sentinel-server"
	}
	if logger == nil {
		logger = slog.Default()
	}
	f := &MQTTForwarder{cfg: cfg, logger: logger, published: make(map[string]uint64)}
	f.publish = f.publishClient
	return f
}

// Connect establishes the broker connection. The client reconnects on its
// own after a successful first connect.
func (f *MQTTForwarder) Connect(ctx context.Context) error {
	broker := f.cfg.Broker
	if !hasScheme(broker) {
		broker = "tcp://" + broker
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(f.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	if f.cfg.Username != "" {
		opts.SetUsername(f.cfg.Username)
		opts.SetPassword(f.cfg.Password)
	}
	opts.OnConnect = func(mqtt.Client) {
		f.setConnected(true)
		f.logger.Info("mqtt connection established", "broker", broker, "client_id", f.cfg.ClientID)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		f.setConnected(false)
		f.logger.Warn("mqtt connection lost, will auto-reconnect", "error", err, "broker", broker)
	}

	f.client = mqtt.NewClient(opts)
	f.logger.Info("connecting to mqtt broker", "broker", broker)

	token := f.client.Connect()
	deadline := 5 * time.Second
	if d, ok := ctx.Deadline(); ok {
		deadline = time.Until(d)
	}
	if !token.WaitTimeout(deadline) {
		return fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}
	f.setConnected(true)
	return nil
}

// Run forwards events from sub until ctx is done or sub is closed.
func (f *MQTTForwarder) Run(ctx context.Context, sub *Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			if err := f.Forward(ev); err != nil {
				f.logger.Warn("mqtt forward failed", "error", err, "kind", ev.Kind)
			}
		}
	}
}

// Forward publishes a single event.
func (f *MQTTForwarder) Forward(ev types.Event) error {
	topic := Topic(f.cfg.TopicPrefix, ev)
	payload, err := json.Marshal(ev)
	if err != nil {
		f.countError()
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := f.publish(topic, payload); err != nil {
		f.countError()
		return err
	}

	f.mu.Lock()
	f.published[topic]++
	f.mu.Unlock()
	f.logger.Debug("event published", "topic", topic, "size", len(payload))
	return nil
}

func (f *MQTTForwarder) publishClient(topic string, payload []byte) error {
	if f.client == nil || !f.isConnected() {
		return errNotConnected
	}
	token := f.client.Publish(topic, f.cfg.QoS, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}
	return nil
}

func (f *MQTTForwarder) Disconnect() {
	if f.client != nil && f.client.IsConnected() {
		f.client.Disconnect(250)
		f.logger.Info("mqtt disconnected")
	}
	f.setConnected(false)
}

func (f *MQTTForwarder) Stats() ForwarderStats {
	f.mu.RLock()
	defer f.mu.RUnlock()
	published := make(map[string]uint64, len(f.published))
	for k, v := range f.published {
		published[k] = v
	}
	return ForwarderStats{Connected: f.connected, Published: published, Errors: f.errors}
}

// Topic returns the MQTT topic for ev.
func Topic(prefix string, ev types.Event) string {
	kind := "decisions"
	if ev.Kind == types.EventAlert {
		kind = "alerts"
	}
	ch := ev.Channel()
	if ch == "" {
		ch = "unknown"
	}
	return fmt.Sprintf("%s/%s/%s", prefix, kind, ch)
}

func (f *MQTTForwarder) setConnected(v bool) {
	f.mu.Lock()
	f.connected = v
	f.mu.Unlock()
}

func (f *MQTTForwarder) isConnected() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.connected
}

func (f *MQTTForwarder) countError() {
	f.mu.Lock()
	f.errors++
	f.mu.Unlock()
}

func hasScheme(broker string) bool {
	return strings.Contains(broker, "://")
}
