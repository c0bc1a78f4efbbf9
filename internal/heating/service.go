package heating

import (
	"context"
)

// Logger is the logging interface the service needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Service is the query and command surface over a Store used by the HTTP
// API and the sensor gateway.
type Service struct {
	store  Store
	logger Logger
}

// NewService creates a Service. A nil logger discards output.
func NewService(store Store, logger Logger) *Service {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Service{store: store, logger: logger}
}

// GetHeatingSystem returns the external view of id.
func (s *Service) GetHeatingSystem(ctx context.Context, id DeviceID) (HeatingSystem, error) {
	state, err := s.store.Read(ctx, id)
	if err != nil {
		return HeatingSystem{}, err
	}
	return state.View(), nil
}

// GetCurrentTemperature returns the last measured temperature of id.
func (s *Service) GetCurrentTemperature(ctx context.Context, id DeviceID) (float64, error) {
	state, err := s.store.Read(ctx, id)
	if err != nil {
		return 0, err
	}
	return state.CurrentTemperature, nil
}

// TurnOn switches id on.
func (s *Service) TurnOn(ctx context.Context, id DeviceID) (ControlState, error) {
	return s.write(ctx, id, SetOn(true))
}

// TurnOff switches id off.
func (s *Service) TurnOff(ctx context.Context, id DeviceID) (ControlState, error) {
	return s.write(ctx, id, SetOn(false))
}

// SetTargetTemperature changes the target temperature of id.
func (s *Service) SetTargetTemperature(ctx context.Context, id DeviceID, celsius float64) (ControlState, error) {
	return s.write(ctx, id, SetTarget(celsius))
}

// UpdateHeatingSystem overwrites the on flag and target temperature of id
// from an external view. The view's ID is ignored.
func (s *Service) UpdateHeatingSystem(ctx context.Context, id DeviceID, view HeatingSystem) (HeatingSystem, error) {
	on, target := view.IsOn, view.TargetTemperature
	state, err := s.write(ctx, id, Mutation{IsOn: &on, TargetTemperature: &target})
	if err != nil {
		return HeatingSystem{}, err
	}
	return state.View(), nil
}

// RecordCurrentTemperature stores a sensor reading for id.
func (s *Service) RecordCurrentTemperature(ctx context.Context, id DeviceID, celsius float64) error {
	if err := s.store.RecordCurrentTemperature(ctx, id, celsius); err != nil {
		return err
	}
	s.logger.Debug("current temperature recorded", "device_id", int64(id), "celsius", celsius)
	return nil
}

// Provision creates a heating system with an initial state.
func (s *Service) Provision(ctx context.Context, state ControlState) (ControlState, error) {
	if err := s.store.Create(ctx, state); err != nil {
		return ControlState{}, err
	}
	s.logger.Info("heating system provisioned", "device_id", int64(state.DeviceID))
	return state, nil
}

// List returns every heating system.
func (s *Service) List(ctx context.Context) ([]ControlState, error) {
	return s.store.List(ctx)
}

// Remove deletes a heating system.
func (s *Service) Remove(ctx context.Context, id DeviceID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("heating system removed", "device_id", int64(id))
	return nil
}

func (s *Service) write(ctx context.Context, id DeviceID, m Mutation) (ControlState, error) {
	state, err := s.store.Write(ctx, id, m)
	if err != nil {
		return ControlState{}, err
	}
	s.logger.Debug("heating system updated",
		"device_id", int64(id),
		"is_on", state.IsOn,
		"target_temperature", state.TargetTemperature,
	)
	return state, nil
}
