package publisher

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jgoulah/gridcast/internal/config"
	"github.com/jgoulah/gridcast/pkg/models"
)

// Publisher sends daily series and evaluation metrics to an MQTT broker
type Publisher struct {
	client      mqtt.Client
	topicPrefix string
	retain      bool
	timeout     time.Duration
}

// New connects to the configured broker
func New(cfg config.MQTTConfig) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("MQTT publishing is not enabled in config")
	}
	if cfg.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required when enabled")
	}

	// Configure MQTT client options
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.Broker))
	opts.SetClientID(cfg.GetClientID())
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(10 * time.Second)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	// Create and connect client
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient wraps an already connected client
func NewWithClient(client mqtt.Client, cfg config.MQTTConfig) *Publisher {
	return &Publisher{
		client:      client,
		topicPrefix: cfg.GetTopicPrefix(),
		retain:      cfg.Retain,
		timeout:     10 * time.Second,
	}
}

// DailyPayload is the JSON body published for a daily series
type DailyPayload struct {
	ApplianceID   int          `json:"appliance_id"`
	ApplianceName string       `json:"appliance_name"`
	UserID        string       `json:"user_id"`
	TotalKWh      float64      `json:"total_kwh"`
	Days          []DailyPoint `json:"days"`
}

// DailyPoint is one day in a DailyPayload
type DailyPoint struct {
	Date string  `json:"date"`
	KWh  float64 `json:"kwh"`
}

// MetricsPayload is the JSON body published for an evaluation
type MetricsPayload struct {
	ApplianceID   int     `json:"appliance_id"`
	ApplianceName string  `json:"appliance_name"`
	UserID        string  `json:"user_id"`
	Source        string  `json:"source"`
	MAE           float64 `json:"mae"`
	RMSE          float64 `json:"rmse"`
	Days          int     `json:"days"`
}

// Topic returns the topic for one pair, e.g. gridcast/washing_machine/101/daily
func (p *Publisher) Topic(series models.DailySeries, kind string) string {
	return fmt.Sprintf("%s/%s/%s/%s", p.topicPrefix, slug(string(series.ApplianceName)), slug(series.UserID), kind)
}

// PublishDaily sends a daily series
func (p *Publisher) PublishDaily(series models.DailySeries) error {
	payload := DailyPayload{
		ApplianceID:   series.ApplianceID,
		ApplianceName: string(series.ApplianceName),
		UserID:        series.UserID,
		TotalKWh:      series.Sum(),
		Days:          make([]DailyPoint, 0, series.Len()),
	}
	for _, d := range series.Points {
		payload.Days = append(payload.Days, DailyPoint{Date: models.DateKey(d.Date), KWh: d.KWh})
	}

	return p.publishJSON(p.Topic(series, "daily"), payload)
}

// PublishMetrics sends the evaluation of a series against a forecast source
func (p *Publisher) PublishMetrics(series models.DailySeries, source string, m models.Metrics) error {
	payload := MetricsPayload{
		ApplianceID:   series.ApplianceID,
		ApplianceName: string(series.ApplianceName),
		UserID:        series.UserID,
		Source:        source,
		MAE:           m.MAE,
		RMSE:          m.RMSE,
		Days:          m.N,
	}

	return p.publishJSON(p.Topic(series, "metrics"), payload)
}

func (p *Publisher) publishJSON(topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	token := p.client.Publish(topic, 1, p.retain, body)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publishing to %s: timed out after %s", topic, p.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

// Close disconnects from the MQTT broker
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "/", "_", "+", "_", "#", "_").Replace(s)
}
