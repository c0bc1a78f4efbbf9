package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-heating/internal/infrastructure/config"
)

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "graylogic-heating-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// fakeMessage implements pahomqtt.Message.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

// mockLogger implements Logger for testing.
type mockLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *mockLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *mockLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func TestDisconnectedClient(t *testing.T) {
	c := newClient(testConfig(), Topics{})
	noop := func(string, []byte) error { return nil }

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"publish empty topic", func() error { return c.Publish("", []byte("x"), 1, false) }, ErrInvalidTopic},
		{"publish invalid qos", func() error { return c.Publish("a/b", []byte("x"), 3, false) }, ErrInvalidQoS},
		{"publish too large", func() error { return c.Publish("a/b", make([]byte, maxPayloadSize+1), 1, false) }, ErrPublishFailed},
		{"publish disconnected", func() error { return c.Publish("a/b", []byte("x"), 1, false) }, ErrNotConnected},
		{"async empty topic", func() error { return c.PublishAsync("", []byte("x"), 1, false) }, ErrInvalidTopic},
		{"async invalid qos", func() error { return c.PublishAsync("a/b", []byte("x"), 3, false) }, ErrInvalidQoS},
		{"async disconnected", func() error { return c.PublishAsync("a/b", []byte("x"), 1, false) }, ErrNotConnected},
		{"subscribe empty topic", func() error { return c.Subscribe("", 1, noop) }, ErrInvalidTopic},
		{"subscribe invalid qos", func() error { return c.Subscribe("a/b", 3, noop) }, ErrInvalidQoS},
		{"subscribe nil handler", func() error { return c.Subscribe("a/b", 1, nil) }, ErrSubscribeFailed},
		{"subscribe disconnected", func() error { return c.Subscribe("a/b", 1, noop) }, ErrNotConnected},
		{"unsubscribe empty topic", func() error { return c.Unsubscribe("") }, ErrInvalidTopic},
		{"unsubscribe disconnected", func() error { return c.Unsubscribe("a/b") }, ErrNotConnected},
		{"health check", func() error { return c.HealthCheck(context.Background()) }, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}

	if c.HasSubscription("a/b") {
		t.Error("failed subscribe must not be tracked")
	}
}

// stubToken implements pahomqtt.Token. It completes when done is closed.
type stubToken struct {
	done chan struct{}
	err  error
}

func (t *stubToken) Wait() bool {
	<-t.done
	return true
}

func (t *stubToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *stubToken) Done() <-chan struct{} { return t.done }
func (t *stubToken) Error() error          { return t.err }

// stubPaho is a connected pahomqtt.Client whose Publish returns token.
// Methods other than IsConnected and Publish are not implemented.
type stubPaho struct {
	pahomqtt.Client
	token *stubToken

	mu     sync.Mutex
	topics []string
}

func (p *stubPaho) IsConnected() bool { return true }

func (p *stubPaho) Publish(topic string, _ byte, _ bool, _ any) pahomqtt.Token {
	p.mu.Lock()
	p.topics = append(p.topics, topic)
	p.mu.Unlock()
	return p.token
}

func connectedClient(token *stubToken) (*Client, *stubPaho) {
	c := newClient(testConfig(), Topics{})
	paho := &stubPaho{token: token}
	c.client = paho
	c.connected = true
	return c, paho
}

func TestPublishAsync(t *testing.T) {
	t.Run("returns before acknowledgement", func(t *testing.T) {
		token := &stubToken{done: make(chan struct{})}
		defer close(token.done)
		c, paho := connectedClient(token)

		result := make(chan error, 1)
		go func() { result <- c.PublishAsync("graylogic/heating/telemetry", []byte("x"), 1, false) }()

		select {
		case err := <-result:
			if err != nil {
				t.Fatalf("PublishAsync() error = %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("PublishAsync() blocked on the acknowledgement")
		}

		paho.mu.Lock()
		defer paho.mu.Unlock()
		if len(paho.topics) != 1 || paho.topics[0] != "graylogic/heating/telemetry" {
			t.Errorf("published topics = %v", paho.topics)
		}
	})

	t.Run("logs delivery failure", func(t *testing.T) {
		token := &stubToken{done: make(chan struct{}), err: errors.New("connection lost")}
		close(token.done)
		c, _ := connectedClient(token)
		logger := &mockLogger{}
		c.SetLogger(logger)

		if err := c.PublishAsync("graylogic/heating/response/abc-1", []byte("x"), 1, false); err != nil {
			t.Fatalf("PublishAsync() error = %v", err)
		}

		deadline := time.Now().Add(2 * time.Second)
		for {
			logger.mu.Lock()
			n := len(logger.warns)
			logger.mu.Unlock()
			if n == 1 {
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("warns = %d, want 1", n)
			}
			time.Sleep(5 * time.Millisecond)
		}
	})
}

func TestPublish_TokenError(t *testing.T) {
	token := &stubToken{done: make(chan struct{}), err: errors.New("connection lost")}
	close(token.done)
	c, _ := connectedClient(token)

	if err := c.Publish("graylogic/heating/request/abc-1", []byte("x"), 1, false); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Publish() error = %v, want ErrPublishFailed", err)
	}
}

func TestHealthCheckCancelled(t *testing.T) {
	c := newClient(testConfig(), Topics{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

func TestCloseNil(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v, want nil", err)
	}
}

func TestWrapHandler(t *testing.T) {
	t.Run("passes topic and payload", func(t *testing.T) {
		c := newClient(testConfig(), Topics{})
		var gotTopic, gotPayload string
		h := c.wrapHandler(func(topic string, payload []byte) error {
			gotTopic, gotPayload = topic, string(payload)
			return nil
		})

		h(nil, fakeMessage{topic: "graylogic/heating/request/abc-1", payload: []byte("hi")})

		if gotTopic != "graylogic/heating/request/abc-1" || gotPayload != "hi" {
			t.Errorf("handler got (%q, %q)", gotTopic, gotPayload)
		}
	})

	t.Run("logs handler error", func(t *testing.T) {
		c := newClient(testConfig(), Topics{})
		logger := &mockLogger{}
		c.SetLogger(logger)

		h := c.wrapHandler(func(string, []byte) error { return errors.New("boom") })
		h(nil, fakeMessage{topic: "t"})

		if len(logger.warns) != 1 {
			t.Errorf("warns = %v, want one entry", logger.warns)
		}
	})

	t.Run("recovers panic", func(t *testing.T) {
		c := newClient(testConfig(), Topics{})
		logger := &mockLogger{}
		c.SetLogger(logger)

		h := c.wrapHandler(func(string, []byte) error { panic("handler bug") })
		h(nil, fakeMessage{topic: "t"})

		if len(logger.errors) != 1 {
			t.Errorf("errors = %v, want one entry", logger.errors)
		}
	})

	t.Run("no logger", func(t *testing.T) {
		c := newClient(testConfig(), Topics{})
		h := c.wrapHandler(func(string, []byte) error { panic("handler bug") })
		h(nil, fakeMessage{topic: "t"})
	})
}

func TestSetLogger(t *testing.T) {
	c := newClient(testConfig(), Topics{})

	c.SetLogger(&mockLogger{})
	if c.getLogger() == nil {
		t.Error("getLogger() = nil after SetLogger()")
	}

	c.SetLogger(nil)
	if c.getLogger() != nil {
		t.Error("getLogger() should be nil after SetLogger(nil)")
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Auth.Username = "heating"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "ssl://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want ssl://127.0.0.1:1883", opts.Servers)
	}
	if !opts.Order {
		t.Error("ordered delivery must be enabled")
	}
	if opts.Username != "heating" || opts.Password != "secret" {
		t.Error("credentials not applied")
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Error("TLS config not applied")
	}
	if opts.ClientID != "graylogic-heating-test" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
}

func TestStatusPayload(t *testing.T) {
	var got statusPayload
	if err := json.Unmarshal(buildStatusPayload("offline", "heatingd-1", "graceful_shutdown"), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Status != "offline" || got.ClientID != "heatingd-1" || got.Reason != "graceful_shutdown" {
		t.Errorf("payload = %+v", got)
	}
	if got.Timestamp == "" {
		t.Error("timestamp missing")
	}

	online := string(buildStatusPayload("online", "heatingd-1", ""))
	if strings.Contains(online, "reason") {
		t.Errorf("online payload should omit reason: %s", online)
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig())
	configureLWT(opts, Topics{}.Status(), "heatingd-1")

	if !opts.WillEnabled || opts.WillTopic != "graylogic/heating/status" {
		t.Errorf("will = %v %q", opts.WillEnabled, opts.WillTopic)
	}
	if !opts.WillRetained || opts.WillQos != 1 {
		t.Error("will must be retained at QoS 1")
	}
}
