package mqtt

import (
	"errors"
	"testing"
)

func TestTopicBuilders(t *testing.T) {
	custom := Topics{Prefix: "site1/heating/"}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"Request", Topics{}.Request("abc-1"), "graylogic/heating/request/abc-1"},
		{"Response", Topics{}.Response("abc-1"), "graylogic/heating/response/abc-1"},
		{"Telemetry", Topics{}.Telemetry(), "graylogic/heating/telemetry"},
		{"Sensor", Topics{}.Sensor(42), "graylogic/heating/sensor/42"},
		{"Status", Topics{}.Status(), "graylogic/heating/status"},
		{"AllRequests", Topics{}.AllRequests(""), "graylogic/heating/request/+"},
		{"AllRequests shared", Topics{}.AllRequests("heatingd"), "$share/heatingd/graylogic/heating/request/+"},
		{"AllSensors", Topics{}.AllSensors(), "graylogic/heating/sensor/+"},
		{"custom prefix trims slash", custom.Response("x"), "site1/heating/response/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestLastLevel(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"graylogic/heating/request/abc-1", "abc-1"},
		{"graylogic/heating/request/", ""},
		{"single", "single"},
	}
	for _, tt := range tests {
		if got := LastLevel(tt.topic); got != tt.want {
			t.Errorf("LastLevel(%q) = %q, want %q", tt.topic, got, tt.want)
		}
	}
}

func TestParseSensorDeviceID(t *testing.T) {
	id, err := ParseSensorDeviceID(Topics{}.Sensor(42))
	if err != nil || id != 42 {
		t.Errorf("ParseSensorDeviceID() = %d, %v; want 42, nil", id, err)
	}

	if _, err := ParseSensorDeviceID("graylogic/heating/sensor/boiler"); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("error = %v, want ErrInvalidTopic", err)
	}
}
