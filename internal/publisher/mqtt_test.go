package publisher

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/gridcast/internal/config"
	"github.com/jgoulah/gridcast/pkg/models"
)

type fakeToken struct {
	mqtt.Token
	err error
}

func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Error() error                   { return t.err }

type message struct {
	topic   string
	retain  bool
	payload []byte
}

// fakeClient records publishes; every other mqtt.Client method is unused
type fakeClient struct {
	mqtt.Client
	sent []message
	err  error
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.sent = append(c.sent, message{topic: topic, retain: retained, payload: payload.([]byte)})
	return fakeToken{err: c.err}
}

func (c *fakeClient) IsConnected() bool { return false }

var series = models.DailySeries{
	ApplianceID:   2,
	ApplianceName: models.WashingMachine,
	UserID:        "101",
	Points: []models.DailyUsage{
		{Date: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), KWh: 1.5},
		{Date: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), KWh: 0.5},
	},
}

func TestTopic(t *testing.T) {
	p := NewWithClient(&fakeClient{}, config.MQTTConfig{})
	assert.Equal(t, "gridcast/washing_machine/101/daily", p.Topic(series, "daily"))

	p = NewWithClient(&fakeClient{}, config.MQTTConfig{TopicPrefix: "home/energy"})
	assert.Equal(t, "home/energy/washing_machine/101/metrics", p.Topic(series, "metrics"))
}

func TestPublishDaily(t *testing.T) {
	client := &fakeClient{}
	p := NewWithClient(client, config.MQTTConfig{Retain: true})

	require.NoError(t, p.PublishDaily(series))
	require.Len(t, client.sent, 1)
	assert.True(t, client.sent[0].retain)

	var payload DailyPayload
	require.NoError(t, json.Unmarshal(client.sent[0].payload, &payload))
	assert.Equal(t, "Washing Machine", payload.ApplianceName)
	assert.InDelta(t, 2.0, payload.TotalKWh, 1e-9)
	assert.Equal(t, []DailyPoint{{Date: "2025-06-01", KWh: 1.5}, {Date: "2025-06-02", KWh: 0.5}}, payload.Days)

	p.Close()
}

func TestPublishMetrics(t *testing.T) {
	client := &fakeClient{}
	p := NewWithClient(client, config.MQTTConfig{})

	require.NoError(t, p.PublishMetrics(series, "baseline", models.Metrics{MAE: 0.25, RMSE: 0.5, N: 2}))
	require.Len(t, client.sent, 1)
	assert.Equal(t, "gridcast/washing_machine/101/metrics", client.sent[0].topic)

	var payload MetricsPayload
	require.NoError(t, json.Unmarshal(client.sent[0].payload, &payload))
	assert.Equal(t, MetricsPayload{ApplianceID: 2, ApplianceName: "Washing Machine", UserID: "101", Source: "baseline", MAE: 0.25, RMSE: 0.5, Days: 2}, payload)
}

func TestPublishError(t *testing.T) {
	client := &fakeClient{err: errors.New("broker gone")}
	p := NewWithClient(client, config.MQTTConfig{})
	assert.Error(t, p.PublishDaily(series))
}

func TestNewRequiresBroker(t *testing.T) {
	_, err := New(config.MQTTConfig{})
	assert.Error(t, err)

	_, err = New(config.MQTTConfig{Enabled: true})
	assert.Error(t, err)
}
