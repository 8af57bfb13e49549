package mqtt

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

type IPublisher interface {
	Publish(topic string, payload []byte) error
	Stats() Stats
	Disconnect()
}

type Stats struct {
	Connected bool              `json:"connected"`
	Published map[string]uint64 `json:"published"`
	Errors    uint64            `json:"errors"`
}

type publisher struct {
	client paho.Client
	qos    byte
	log    *logrus.Logger

	mu        sync.RWMutex
	connected bool
	published map[string]uint64
	errors    uint64
}

// New connects to MQTT_BROKER (host:port) and keeps reconnecting in the
// background when the link drops.
func New(log *logrus.Logger) (IPublisher, error) {
	broker := os.Getenv("MQTT_BROKER")
	if broker == "" {
		return nil, fmt.Errorf("MQTT_BROKER not set")
	}
	clientID := os.Getenv("MQTT_CLIENT_ID")
	if clientID == "" {
		clientID = "drowsiness-monitor"
	}
	qos, _ := strconv.Atoi(os.Getenv("MQTT_QOS"))

	p := &publisher{
		qos:       byte(qos),
		log:       log,
		published: make(map[string]uint64),
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", broker))
	opts.SetClientID(clientID)
	opts.SetUsername(os.Getenv("MQTT_USERNAME"))
	opts.SetPassword(os.Getenv("MQTT_PASSWORD"))
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c paho.Client) {
		p.setConnected(true)
		log.WithFields(logrus.Fields{
			"broker":    broker,
			"client_id": clientID,
		}).Info("MQTT connection established")
	}
	opts.OnConnectionLost = func(c paho.Client, err error) {
		p.setConnected(false)
		log.WithFields(logrus.Fields{
			"broker": broker,
			"error":  err,
		}).Warn("MQTT connection lost, waiting for reconnect")
	}

	p.client = paho.NewClient(opts)

	token := p.client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return nil, fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connection failed: %w", err)
	}
	p.setConnected(true)

	return p, nil
}

func (p *publisher) Publish(topic string, payload []byte) error {
	if !p.isConnected() {
		p.countError()
		return fmt.Errorf("mqtt not connected")
	}

	token := p.client.Publish(topic, p.qos, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		p.countError()
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		p.countError()
		return fmt.Errorf("publish failed: %w", err)
	}

	p.mu.Lock()
	p.published[topic]++
	p.mu.Unlock()

	p.log.WithFields(logrus.Fields{
		"topic": topic,
		"size":  len(payload),
	}).Debug("Alert published")

	return nil
}

func (p *publisher) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	published := make(map[string]uint64, len(p.published))
	for k, v := range p.published {
		published[k] = v
	}

	return Stats{
		Connected: p.connected,
		Published: published,
		Errors:    p.errors,
	}
}

func (p *publisher) Disconnect() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
	p.setConnected(false)
}

func (p *publisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}

func (p *publisher) isConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}

func (p *publisher) countError() {
	p.mu.Lock()
	p.errors++
	p.mu.Unlock()
}
