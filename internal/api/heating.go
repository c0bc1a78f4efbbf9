package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-heating/internal/command"
	"github.com/nerrad567/gray-logic-heating/internal/heating"
)

// provisionRequest is the request body for POST /api/heating.
type provisionRequest struct {
	ID                 int64    `json:"id"`
	IsOn               bool     `json:"is_on"`
	TargetTemperature  float64  `json:"target_temperature"`
	CurrentTemperature *float64 `json:"current_temperature,omitempty"`
}

// commandRequest is the request body for POST /api/heating/{id}/commands.
type commandRequest struct {
	CommandType string `json:"command_type"`
	Payload     string `json:"payload,omitempty"`
}

// commandAccepted is the response body for an accepted command.
type commandAccepted struct {
	CorrelationID string `json:"correlation_id"`
	ReplyTopic    string `json:"reply_topic"`
}

// deviceIDParam parses and validates the {id} URL parameter.
func deviceIDParam(w http.ResponseWriter, r *http.Request) (heating.DeviceID, bool) {
	raw := chi.URLParam(r, "id")
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeBadRequest(w, "invalid heating system id: "+raw)
		return 0, false
	}
	id := heating.DeviceID(n)
	if err := id.Validate(); err != nil {
		writeBadRequest(w, err.Error())
		return 0, false
	}
	return id, true
}

// handleListHeatingSystems returns every heating system.
func (s *Server) handleListHeatingSystems(w http.ResponseWriter, r *http.Request) {
	states, err := s.heating.List(r.Context())
	if err != nil {
		s.logger.Error("listing heating systems failed", "error", err)
		writeHeatingError(w, err)
		return
	}
	views := make([]heating.HeatingSystem, 0, len(states))
	for _, st := range states {
		views = append(views, st.View())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"heating_systems": views,
		"count":           len(views),
	})
}

// handleProvisionHeatingSystem creates a heating system.
func (s *Server) handleProvisionHeatingSystem(w http.ResponseWriter, r *http.Request) {
	var req provisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	state := heating.ControlState{
		DeviceID:           heating.DeviceID(req.ID),
		IsOn:               req.IsOn,
		TargetTemperature:  req.TargetTemperature,
		CurrentTemperature: req.TargetTemperature,
	}
	if req.CurrentTemperature != nil {
		state.CurrentTemperature = *req.CurrentTemperature
	}

	created, err := s.heating.Provision(r.Context(), state)
	if err != nil {
		writeHeatingError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created.View())
}

// handleGetHeatingSystem returns one heating system.
func (s *Server) handleGetHeatingSystem(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceIDParam(w, r)
	if !ok {
		return
	}
	view, err := s.heating.GetHeatingSystem(r.Context(), id)
	if err != nil {
		writeHeatingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleUpdateHeatingSystem overwrites the on flag and target temperature.
func (s *Server) handleUpdateHeatingSystem(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceIDParam(w, r)
	if !ok {
		return
	}
	var view heating.HeatingSystem
	if err := json.NewDecoder(r.Body).Decode(&view); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	updated, err := s.heating.UpdateHeatingSystem(r.Context(), id, view)
	if err != nil {
		writeHeatingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleRemoveHeatingSystem deletes a heating system.
func (s *Server) handleRemoveHeatingSystem(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceIDParam(w, r)
	if !ok {
		return
	}
	if err := s.heating.Remove(r.Context(), id); err != nil {
		writeHeatingError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTurnOn(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceIDParam(w, r)
	if !ok {
		return
	}
	if _, err := s.heating.TurnOn(r.Context(), id); err != nil {
		writeHeatingError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTurnOff(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceIDParam(w, r)
	if !ok {
		return
	}
	if _, err := s.heating.TurnOff(r.Context(), id); err != nil {
		writeHeatingError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSetTemperature reads the new target from ?temperature=.
func (s *Server) handleSetTemperature(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceIDParam(w, r)
	if !ok {
		return
	}
	raw := r.URL.Query().Get("temperature")
	celsius, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(celsius) || math.IsInf(celsius, 0) {
		writeBadRequest(w, "temperature query parameter must be a number")
		return
	}
	if _, err := s.heating.SetTargetTemperature(r.Context(), id, celsius); err != nil {
		writeHeatingError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetCurrentTemperature returns the measured temperature as a bare number.
func (s *Server) handleGetCurrentTemperature(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceIDParam(w, r)
	if !ok {
		return
	}
	celsius, err := s.heating.GetCurrentTemperature(r.Context(), id)
	if err != nil {
		writeHeatingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, celsius)
}

// handleSubmitCommand publishes a command to the request topic and returns
// where its reply will appear. Execution happens in the inbound pipeline.
func (s *Server) handleSubmitCommand(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceIDParam(w, r)
	if !ok {
		return
	}
	if s.commands == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "command submission requires MQTT")
		return
	}

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	kind, err := command.ParseKind(req.CommandType)
	if err != nil {
		writeBadRequest(w, "command_type must be On, Off or SetTemperature")
		return
	}

	correlationID := uuid.NewString()
	env := command.Envelope{DeviceID: id, Kind: kind, Payload: req.Payload}
	replyTopic, err := s.commands.SubmitCommand(r.Context(), correlationID, env)
	if err != nil {
		s.logger.Error("submitting command failed",
			"correlation_id", correlationID,
			"device_id", int64(id),
			"error", err,
		)
		if errors.Is(err, command.ErrUnsupportedCommand) {
			writeBadRequest(w, err.Error())
			return
		}
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "command could not be published")
		return
	}

	s.logger.Info("command submitted",
		"correlation_id", correlationID,
		"device_id", int64(id),
		"command", kind.String(),
		"subject", r.Context().Value(ctxKeySubject),
	)
	writeJSON(w, http.StatusAccepted, commandAccepted{
		CorrelationID: correlationID,
		ReplyTopic:    replyTopic,
	})
}
