// Package mqtt ingests sensor readings published on per-household topics.
package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	z "github.com/Oudwins/zog"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"liyu1981.xyz/household-energy-service/pkg/common"
	"liyu1981.xyz/household-energy-service/pkg/household"
	"liyu1981.xyz/household-energy-service/pkg/models"
)

const (
	subscribeQoS   = 1
	connectTimeout = 10 * time.Second
	disconnectMs   = 250
)

type Options struct {
	Broker   string
	ClientID string
	Topic    string
}

type Subscriber struct {
	client   paho.Client
	topic    string
	ingestor household.IIngestor
	limiter  *household.RateLimiterStore
	logger   *zap.Logger
}

// NewSubscriber builds the client without connecting. The client id gets a
// random suffix so replicas do not kick each other off the broker.
func NewSubscriber(opts Options, ingestor household.IIngestor, limiter *household.RateLimiterStore) *Subscriber {
	s := &Subscriber{
		topic:    opts.Topic,
		ingestor: ingestor,
		limiter:  limiter,
		logger:   common.GetLoggerWith(common.LoggerNameMqttSubscriber),
	}

	clientOpts := paho.NewClientOptions()
	clientOpts.AddBroker(opts.Broker)
	clientOpts.SetClientID(opts.ClientID + "-" + uuid.NewString()[:8])
	clientOpts.SetAutoReconnect(true)
	clientOpts.SetCleanSession(true)
	clientOpts.SetConnectTimeout(connectTimeout)
	// subscriptions do not survive a clean-session reconnect
	clientOpts.SetOnConnectHandler(func(c paho.Client) {
		if err := s.subscribe(c); err != nil {
			s.logger.Error("Failed to subscribe after connect", zap.Error(err))
		}
	})
	clientOpts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		s.logger.Warn("Connection to broker lost", zap.Error(err))
	})

	s.client = paho.NewClient(clientOpts)
	return s
}

func (s *Subscriber) Start() error {
	token := s.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("timed out connecting to MQTT broker")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	s.logger.Info("Connected to MQTT broker", zap.String("topic", s.topic))
	return nil
}

func (s *Subscriber) subscribe(c paho.Client) error {
	token := c.Subscribe(s.topic, subscribeQoS, s.HandleMessage)
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("timed out subscribing to topic %s", s.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", s.topic, err)
	}
	return nil
}

func (s *Subscriber) Stop() {
	s.client.Disconnect(disconnectMs)
}

// HouseholdFromTopic extracts NAME from households/NAME/readings.
func HouseholdFromTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "households" || parts[2] != "readings" {
		return "", false
	}
	if strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return parts[1], true
}

type readingPayload struct {
	Datetime    time.Time `zog:"datetime"`
	Temperature float64   `zog:"temperature"`
	Energy      float64   `zog:"energy"`
	Person      float64   `zog:"person"`
}

var readingPayloadSchema = z.Struct(z.Shape{
	"Datetime":    z.Time().Required(),
	"Temperature": z.Float64().Required(),
	"Energy":      z.Float64().Required(),
	"Person":      z.Float64().Required(),
})

// HandleMessage stores one reading. Bad messages are logged and dropped.
func (s *Subscriber) HandleMessage(_ paho.Client, msg paho.Message) {
	defer msg.Ack()

	name, ok := HouseholdFromTopic(msg.Topic())
	if !ok {
		s.logger.Warn("Ignoring message on unexpected topic", zap.String("topic", msg.Topic()))
		return
	}

	if !s.limiter.Allow(name) {
		s.logger.Warn("Dropping reading over rate limit", zap.String(common.LoggerFieldHousehold, name))
		return
	}

	var raw map[string]any
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		s.logger.Warn("Dropping malformed reading", zap.String(common.LoggerFieldHousehold, name), zap.Error(err))
		return
	}

	var payload readingPayload
	if issues := readingPayloadSchema.Parse(raw, &payload); issues != nil {
		s.logger.Warn("Dropping invalid reading", zap.String(common.LoggerFieldHousehold, name), zap.Reflect("issues", issues))
		return
	}

	if err := s.ingestor.IngestReading(name, &models.SensorReading{
		Datetime:    payload.Datetime,
		Temperature: payload.Temperature,
		Energy:      payload.Energy,
		Person:      payload.Person,
	}); err != nil {
		s.logger.Error("Failed to ingest reading", zap.String(common.LoggerFieldHousehold, name), zap.Error(err))
	}
}
