package dashboard

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/oicur0t/hal/internal/param"
	"github.com/oicur0t/hal/pkg/models"
	"go.uber.org/zap"
)

// MQTTConfig holds broker settings
type MQTTConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	Timeout     time.Duration
}

// MQTT publishes each parameter as a retained message on its own topic
type MQTT struct {
	client  mqtt.Client
	prefix  string
	timeout time.Duration
	logger  *zap.Logger
}

// NewMQTT connects to the broker after checking that every parameter in
// params gets a topic of its own. tlsConfig may be nil.
func NewMQTT(cfg MQTTConfig, params []param.Parameter, tlsConfig *tls.Config, logger *zap.Logger) (*MQTT, error) {
	if err := checkTopics(cfg.TopicPrefix, params); err != nil {
		return nil, err
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	if tlsConfig != nil {
		opts.SetTLSConfig(tlsConfig)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		logger.Info("MQTT connection established", zap.String("broker", cfg.Broker))
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		logger.Warn("MQTT connection lost, will auto-reconnect",
			zap.String("broker", cfg.Broker),
			zap.Error(err))
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connection failed: %w", err)
	}

	return newMQTT(client, cfg.TopicPrefix, cfg.Timeout, logger), nil
}

func newMQTT(client mqtt.Client, prefix string, timeout time.Duration, logger *zap.Logger) *MQTT {
	return &MQTT{
		client:  client,
		prefix:  strings.TrimSuffix(prefix, "/"),
		timeout: timeout,
		logger:  logger,
	}
}

var topicUnsafe = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// Topic returns the topic for a parameter name
func (m *MQTT) Topic(parameter string) string {
	return topicFor(m.prefix, parameter)
}

func topicFor(prefix, parameter string) string {
	name := topicUnsafe.ReplaceAllString(strings.TrimSpace(parameter), "_")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// checkTopics rejects parameter names that sanitize to the same topic,
// since their retained messages would overwrite each other.
func checkTopics(prefix string, params []param.Parameter) error {
	prefix = strings.TrimSuffix(prefix, "/")
	owners := make(map[string]string, len(params))
	for _, p := range params {
		topic := topicFor(prefix, p.Name)
		if other, ok := owners[topic]; ok {
			return fmt.Errorf("parameters %q and %q share mqtt topic %s", other, p.Name, topic)
		}
		owners[topic] = p.Name
	}
	return nil
}

// Publish sends u retained with QoS 1 and waits for the broker's ack
func (m *MQTT) Publish(ctx context.Context, u models.Update) error {
	payload, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to marshal update: %w", err)
	}

	topic := m.Topic(u.Parameter)
	token := m.client.Publish(topic, 1, true, payload)

	select {
	case <-token.Done():
	case <-time.After(m.timeout):
		return fmt.Errorf("publish to %s timed out", topic)
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s failed: %w", topic, err)
	}

	m.logger.Debug("Update published", zap.String("topic", topic), zap.Int("size", len(payload)))
	return nil
}

// Close disconnects from the broker
func (m *MQTT) Close(ctx context.Context) error {
	if m.client.IsConnected() {
		m.client.Disconnect(250)
	}
	return nil
}
