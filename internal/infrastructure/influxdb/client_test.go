package influxdb

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-heating/internal/infrastructure/config"
)

// fakeWriter captures points instead of sending them.
type fakeWriter struct {
	mu      sync.Mutex
	points  []*write.Point
	flushes int
}

func (w *fakeWriter) WritePoint(p *write.Point) {
	w.mu.Lock()
	w.points = append(w.points, p)
	w.mu.Unlock()
}

func (w *fakeWriter) Flush() {
	w.mu.Lock()
	w.flushes++
	w.mu.Unlock()
}

func tagsOf(p *write.Point) map[string]string {
	tags := make(map[string]string)
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	return tags
}

func fieldsOf(p *write.Point) map[string]any {
	fields := make(map[string]any)
	for _, field := range p.FieldList() {
		fields[field.Key] = field.Value
	}
	return fields
}

func TestConnect_Disabled(t *testing.T) {
	_, err := Connect(context.Background(), config.InfluxDBConfig{Enabled: false}, "site-001")
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := config.InfluxDBConfig{
		Enabled: true,
		URL:     "http://127.0.0.1:59999",
		Token:   "token",
		Org:     "graylogic",
		Bucket:  "heating",
	}

	_, err := Connect(context.Background(), cfg, "site-001")
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestWriteHeatingState(t *testing.T) {
	w := &fakeWriter{}
	c := newClient(w, "site-001")

	c.WriteHeatingState(42, true, 23.5, 19.25)

	if len(w.points) != 1 {
		t.Fatalf("points = %d, want 1", len(w.points))
	}
	p := w.points[0]
	if p.Name() != measurementHeatingState {
		t.Errorf("measurement = %q", p.Name())
	}
	tags := tagsOf(p)
	if tags["device_id"] != "42" || tags["site"] != "site-001" {
		t.Errorf("tags = %v", tags)
	}
	fields := fieldsOf(p)
	if fields["is_on"] != true || fields["target_temperature"] != 23.5 || fields["current_temperature"] != 19.25 {
		t.Errorf("fields = %v", fields)
	}
}

func TestWriteDispatch(t *testing.T) {
	w := &fakeWriter{}
	c := newClient(w, "")

	c.WriteDispatch(7, "SetTemperature", "ok", 1500*time.Microsecond)

	p := w.points[0]
	tags := tagsOf(p)
	if tags["command"] != "SetTemperature" || tags["outcome"] != "ok" || tags["device_id"] != "7" {
		t.Errorf("tags = %v", tags)
	}
	if _, hasSite := tags["site"]; hasSite {
		t.Error("empty site must not be tagged")
	}
	if got := fieldsOf(p)["duration_ms"]; got != 1.5 {
		t.Errorf("duration_ms = %v, want 1.5", got)
	}
}

func TestWriteSensorReading(t *testing.T) {
	w := &fakeWriter{}
	c := newClient(w, "site-001")
	at := time.Date(2026, 1, 18, 12, 0, 0, 0, time.UTC)

	c.WriteSensorReading(3, 18.5, at)

	p := w.points[0]
	if p.Name() != measurementSensor || !p.Time().Equal(at) {
		t.Errorf("point = %s @ %v", p.Name(), p.Time())
	}
	if fieldsOf(p)["temperature_c"] != 18.5 {
		t.Errorf("fields = %v", fieldsOf(p))
	}
}

func TestClose(t *testing.T) {
	w := &fakeWriter{}
	c := newClient(w, "site-001")

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if w.flushes != 1 {
		t.Errorf("flushes = %d, want 1", w.flushes)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}

	// Writes and flushes after close are dropped.
	c.WriteHeatingState(1, false, 20, 20)
	c.Flush()
	if len(w.points) != 0 || w.flushes != 1 {
		t.Errorf("points=%d flushes=%d after close", len(w.points), w.flushes)
	}

	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestClose_Nil(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on zero client error = %v", err)
	}
}

func TestHandleWriteErrors(t *testing.T) {
	c := newClient(&fakeWriter{}, "")
	got := make(chan error, 1)
	c.SetOnError(func(err error) { got <- err })

	ch := make(chan error, 1)
	ch <- errors.New("write rejected")
	close(ch)
	c.handleWriteErrors(ch)

	select {
	case err := <-got:
		if !errors.Is(err, ErrWriteFailed) || !strings.Contains(err.Error(), "write rejected") {
			t.Errorf("callback error = %v, want ErrWriteFailed wrapping the cause", err)
		}
	default:
		t.Error("callback not invoked")
	}
}
