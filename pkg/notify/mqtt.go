// Package notify mengirim event panggilan ke panel hardware lewat MQTT.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// Publisher adalah bagian dari mqtt.Client yang dipakai di sini.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

type MQTTClient struct {
	pub     Publisher
	client  mqtt.Client
	timeout time.Duration
}

// Connect membuka koneksi ke broker dengan auto reconnect.
func Connect(cfg MQTTConfig) (*MQTTClient, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return &MQTTClient{pub: client, client: client, timeout: 5 * time.Second}, nil
}

// NewWithPublisher dipakai test dengan publisher palsu.
func NewWithPublisher(pub Publisher, timeout time.Duration) *MQTTClient {
	return &MQTTClient{pub: pub, timeout: timeout}
}

// PublishJSON mengirim v sebagai JSON dengan QoS 1.
func (c *MQTTClient) PublishJSON(ctx context.Context, topic string, retained bool, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	token := c.pub.Publish(topic, 1, retained, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.timeout):
		return fmt.Errorf("publish to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}
	return nil
}

func (c *MQTTClient) Close() {
	if c.client != nil {
		c.client.Disconnect(250)
	}
}
