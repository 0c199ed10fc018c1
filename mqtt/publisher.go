package mqtt

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/naturalnetworks/sungrow-bridge/config"
	"github.com/naturalnetworks/sungrow-bridge/logger"
)

// Publisher delivers serialized records to an MQTT broker. The bridge opens
// and closes the connection around every publish, so a broker outage costs
// only the current cycle.
type Publisher struct {
	client         mqtt.Client
	cfg            config.MQTTConfig
	connectTimeout time.Duration
}

// NewPublisher creates a publisher for the broker described by cfg.
func NewPublisher(cfg config.MQTTConfig) (*Publisher, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("MQTT broker host cannot be empty")
	}

	if cfg.ClientID == "" {
		cfg.ClientID = fmt.Sprintf("sungrow-bridge-%d", time.Now().Unix())
	}

	connectTimeout := time.Duration(cfg.ConnectTimeoutSeconds) * time.Second

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	opts.SetConnectTimeout(connectTimeout)
	// The bridge reconnects explicitly each cycle.
	opts.SetAutoReconnect(false)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost: %v", err)
	})

	return &Publisher{
		client:         mqtt.NewClient(opts),
		cfg:            cfg,
		connectTimeout: connectTimeout,
	}, nil
}

// Connect connects to the broker with the configured bounded timeout.
func (p *Publisher) Connect() error {
	token := p.client.Connect()
	if !token.WaitTimeout(p.connectTimeout) {
		return fmt.Errorf("connection to MQTT broker %s timed out", p.cfg.Host)
	}
	if err := token.Error(); err != nil {
		return err
	}

	logger.Debug("connected to MQTT broker %s:%d", p.cfg.Host, p.cfg.Port)
	return nil
}

// Publish sends payload to topic at QoS 0.
func (p *Publisher) Publish(topic, payload string) error {
	token := p.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(p.connectTimeout) {
		return fmt.Errorf("publish to topic %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return err
	}

	logger.Debug("published record to topic %s", topic)
	return nil
}

// Disconnect closes the broker connection.
func (p *Publisher) Disconnect() {
	p.client.Disconnect(250)
}
