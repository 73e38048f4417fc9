package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// MQTTOptions configures the broker bridge.
type MQTTOptions struct {
	Broker      string // e.g. tcp://mosquitto:1883
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string // prepended to hub topics, e.g. "bloodlink"
}

// mqttPublisher is the part of mqtt.Client the sink needs.
type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

// MQTTSink mirrors hub events to an MQTT broker so mobile donor apps can
// subscribe to "<prefix>/requests/<type>" without holding an HTTP stream.
type MQTTSink struct {
	client mqttPublisher
	prefix string
	qos    byte
}

// NewMQTTSink connects to the broker and returns a sink. Connection loss is
// handled by the client's auto-reconnect.
func NewMQTTSink(o MQTTOptions, log zerolog.Logger) (*MQTTSink, error) {
	if strings.TrimSpace(o.Broker) == "" {
		return nil, errors.New("mqtt: broker is required")
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(o.Broker)
	opts.SetClientID(o.ClientID)
	opts.SetUsername(o.Username)
	opts.SetPassword(o.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Info().Str("broker", o.Broker).Msg("mqtt connected")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Str("broker", o.Broker).Msg("mqtt connection lost")
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(30 * time.Second) {
		client.Disconnect(0)
		return nil, fmt.Errorf("mqtt: connect to %s timed out", o.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect: %w", err)
	}
	return newMQTTSink(client, o.TopicPrefix), nil
}

func newMQTTSink(c mqttPublisher, prefix string) *MQTTSink {
	return &MQTTSink{client: c, prefix: strings.Trim(prefix, "/"), qos: 1}
}

// Name implements Sink.
func (s *MQTTSink) Name() string { return "mqtt" }

// BrokerTopic maps a hub topic to its broker topic.
func (s *MQTTSink) BrokerTopic(topic string) string {
	if s.prefix == "" {
		return topic
	}
	return s.prefix + "/" + topic
}

// Send implements Sink.
func (s *MQTTSink) Send(ctx context.Context, ev Event) error {
	if !s.client.IsConnected() {
		return errors.New("mqtt: not connected")
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	token := s.client.Publish(s.BrokerTopic(ev.Topic), s.qos, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements Sink.
func (s *MQTTSink) Close() error {
	s.client.Disconnect(250)
	return nil
}
