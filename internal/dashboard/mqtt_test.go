package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/oicur0t/hal/internal/param"
	"github.com/oicur0t/hal/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeToken completes immediately with err, or never when pending
type fakeToken struct {
	done chan struct{}
	err  error
}

func newToken(err error, pending bool) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	if !pending {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Wait() bool {
	<-t.done
	return true
}

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }

func (t *fakeToken) Error() error { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeClient implements the parts of mqtt.Client the publisher uses
type fakeClient struct {
	mqtt.Client
	token        *fakeToken
	sent         []published
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.sent = append(c.sent, published{topic, qos, retained, payload.([]byte)})
	return c.token
}

func (c *fakeClient) IsConnected() bool { return !c.disconnected }

func (c *fakeClient) Disconnect(quiesce uint) { c.disconnected = true }

func TestMQTTTopic(t *testing.T) {
	m := newMQTT(&fakeClient{}, "lab/fridge/", time.Second, zaptest.NewLogger(t))
	assert.Equal(t, "lab/fridge/MXC_flange", m.Topic("MXC flange"))
	assert.Equal(t, "lab/fridge/P1_OVC", m.Topic("P1 OVC"))
	assert.Equal(t, "lab/fridge/a_b_c", m.Topic("a/b+c"))

	bare := newMQTT(&fakeClient{}, "", time.Second, zaptest.NewLogger(t))
	assert.Equal(t, "Water_in", bare.Topic("Water in"))
}

func TestMQTTPublish(t *testing.T) {
	c := &fakeClient{token: newToken(nil, false)}
	m := newMQTT(c, "hal", time.Second, zaptest.NewLogger(t))

	u := models.Update{Parameter: "MXC flange", Category: "Temperature", Value: "5.12 mK"}
	require.NoError(t, m.Publish(context.Background(), u))

	require.Len(t, c.sent, 1)
	assert.Equal(t, "hal/MXC_flange", c.sent[0].topic)
	assert.Equal(t, byte(1), c.sent[0].qos)
	assert.True(t, c.sent[0].retained)

	var got models.Update
	require.NoError(t, json.Unmarshal(c.sent[0].payload, &got))
	assert.Equal(t, u.Value, got.Value)

	require.NoError(t, m.Close(context.Background()))
	assert.True(t, c.disconnected)
}

func TestMQTTPublishErrors(t *testing.T) {
	t.Run("broker error", func(t *testing.T) {
		c := &fakeClient{token: newToken(errors.New("not authorized"), false)}
		m := newMQTT(c, "hal", time.Second, zaptest.NewLogger(t))
		err := m.Publish(context.Background(), models.Update{Parameter: "MXC flange"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not authorized")
	})

	t.Run("timeout", func(t *testing.T) {
		c := &fakeClient{token: newToken(nil, true)}
		m := newMQTT(c, "hal", 10*time.Millisecond, zaptest.NewLogger(t))
		err := m.Publish(context.Background(), models.Update{Parameter: "MXC flange"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timed out")
	})

	t.Run("cancelled", func(t *testing.T) {
		c := &fakeClient{token: newToken(nil, true)}
		m := newMQTT(c, "hal", time.Minute, zaptest.NewLogger(t))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, m.Publish(ctx, models.Update{Parameter: "MXC flange"}), context.Canceled)
	})
}

func TestMQTTRejectsCollidingTopics(t *testing.T) {
	assert.NoError(t, checkTopics("hal", param.Default()))

	params := []param.Parameter{{Name: "P1 OVC"}, {Name: "P1_OVC"}}
	err := checkTopics("lab/fridge/", params)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"P1 OVC" and "P1_OVC"`)
	assert.Contains(t, err.Error(), "lab/fridge/P1_OVC")

	// rejected before any connection attempt
	_, err = NewMQTT(MQTTConfig{Broker: "tcp://127.0.0.1:1", TopicPrefix: "hal", Timeout: time.Second},
		params, nil, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "share mqtt topic")
}
