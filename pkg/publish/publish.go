// Package publish sends front end status reports to an MQTT broker
package publish

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
	"github.com/google/uuid"

	"github.com/herlein/isdbtune/pkg/tc90522"
)

var (
	// ErrNotConnected is returned when publishing without a broker connection
	ErrNotConnected = errors.New("not connected to MQTT broker")
	// ErrNoReport is returned by LastReport.Status before the first Set
	ErrNoReport = errors.New("no status report yet")
)

// Config describes the broker connection
type Config struct {
	Broker   string `yaml:"broker"` // e.g. tcp://localhost:1883
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	Topic    string `yaml:"topic"` // prefix, reports go to {topic}/{device}/status
	QoS      byte   `yaml:"qos"`
	Retain   bool   `yaml:"retain"`
	// ClientPrefix is followed by a random suffix to form the client ID
	ClientPrefix string        `yaml:"client_prefix"`
	Timeout      time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the settings used when none are configured
func DefaultConfig() Config {
	return Config{
		Topic:        "isdbtune",
		QoS:          1,
		Retain:       true,
		ClientPrefix: "isdbtune",
		Timeout:      5 * time.Second,
	}
}

// Client is the subset of mqtt.Client used by a Publisher
type Client interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Publisher publishes status reports
type Publisher struct {
	client Client
	cfg    Config
	logger *slog.Logger
}

// ClientID returns a client ID with a random suffix so that several tools
// can share a broker
func ClientID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

// Connect opens a broker connection
func Connect(cfg Config, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(ClientID(cfg.ClientPrefix))
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("MQTT connected", "broker", cfg.Broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", "err", err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		client.Disconnect(0)
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: timeout", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	return New(client, cfg, logger), nil
}

// New wraps an existing client
func New(client Client, cfg Config, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Publisher{client: client, cfg: cfg, logger: logger}
}

// StatusTopic returns the topic a device's reports go to
func (p *Publisher) StatusTopic(device string) string {
	device = strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(device)
	return strings.TrimSuffix(p.cfg.Topic, "/") + "/" + device + "/status"
}

// statusPayload is the JSON body of a status message
type statusPayload struct {
	Timestamp int64 `json:"timestamp"`
	tc90522.Report
	CNRdB float64 `json:"cnr_db"`
}

// PublishStatus publishes one report
func (p *Publisher) PublishStatus(r tc90522.Report) error {
	if !p.client.IsConnected() {
		return ErrNotConnected
	}
	data, err := json.Marshal(statusPayload{Timestamp: r.Time.Unix(), Report: r, CNRdB: r.DB()})
	if err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}
	topic := p.StatusTopic(r.Device)
	token := p.client.Publish(topic, p.cfg.QoS, p.cfg.Retain, data)
	if !token.WaitTimeout(p.cfg.Timeout) {
		return fmt.Errorf("failed to publish to %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Run publishes the result of status every interval until ctx is done.
// Failed reads and publishes are logged and skipped.
func (p *Publisher) Run(ctx context.Context, interval time.Duration, status func(context.Context) (tc90522.Report, error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for ctx.Err() == nil {
		r, err := status(ctx)
		switch {
		case errors.Is(err, ErrNoReport):
		case err != nil:
			p.logger.Warn("status read failed", "err", err)
		default:
			if err := p.PublishStatus(r); err != nil {
				p.logger.Warn("publish failed", "err", err)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// LastReport holds the most recent report read by another loop, so Run can
// publish it without touching the bus
type LastReport struct {
	mu sync.Mutex
	r  tc90522.Report
	ok bool
}

// Set stores r
func (l *LastReport) Set(r tc90522.Report) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.r, l.ok = r, true
}

// Status returns the stored report. It has the signature Run expects.
func (l *LastReport) Status(context.Context) (tc90522.Report, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.ok {
		return tc90522.Report{}, ErrNoReport
	}
	return l.r, nil
}

// Close disconnects from the broker
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
