package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/ubuntu/battery-insights/internal/constants"
	"github.com/ubuntu/battery-insights/internal/pipeline"
)

const mqttConnectTimeout = 10 * time.Second

type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload any) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTT publishes results to an MQTT topic. The last result is retained by the broker.
type MQTT struct {
	client mqttClient
	topic  string
	log    *slog.Logger
}

// NewMQTT connects to broker and returns a publisher writing to topic.
// broker is an URL such as tcp://localhost:1883.
func NewMQTT(broker, topic string, args ...Options) (*MQTT, error) {
	if strings.TrimSpace(broker) == "" {
		return nil, errors.New("mqtt broker must not be empty")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, errors.New("mqtt topic must not be empty")
	}

	o := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(constants.CmdName + "-" + uuid.NewString()).
		SetConnectTimeout(mqttConnectTimeout).
		SetAutoReconnect(true)
	client := mqtt.NewClient(o)

	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("timed out connecting to mqtt broker %s", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("could not connect to mqtt broker %s: %v", broker, err)
	}

	return newMQTT(client, topic, args...), nil
}

func newMQTT(c mqttClient, topic string, args ...Options) *MQTT {
	opts := newOptions(args)
	return &MQTT{
		client: c,
		topic:  topic,
		log:    opts.log.With("publisher", "mqtt"),
	}
}

// Publish sends r to the topic and waits for the broker acknowledgement or ctx.
func (m *MQTT) Publish(ctx context.Context, r pipeline.Result) error {
	_, value, err := Message(r)
	if err != nil {
		return err
	}

	token := m.client.Publish(m.topic, 1, true, value)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("%w to mqtt topic %q: %w", ErrPublish, m.topic, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w to mqtt topic %q: %v", ErrPublish, m.topic, err)
	}
	m.log.Debug("Published result", "topic", m.topic, "id", r.ID, "bytes", len(value))
	return nil
}

// Close disconnects from the broker, leaving it a moment to finish pending work.
func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	return nil
}
