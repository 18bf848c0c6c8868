// Package handlers provides HTTP handlers for the pipeline trigger API.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/inkwell-systems/invoice-pipeline/internal/events"
	"github.com/inkwell-systems/invoice-pipeline/internal/normalize"
	"github.com/inkwell-systems/invoice-pipeline/internal/observability"
	"github.com/inkwell-systems/invoice-pipeline/internal/pipeline"
	"github.com/inkwell-systems/invoice-pipeline/internal/resolve"
	"github.com/inkwell-systems/invoice-pipeline/internal/submit"
)

// EventsHandler receives the storage-creation and job-completion trigger
// events.
type EventsHandler struct {
	logger      *observability.Logger
	coordinator *pipeline.Coordinator
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(logger *observability.Logger, coordinator *pipeline.Coordinator) *EventsHandler {
	return &EventsHandler{logger: logger, coordinator: coordinator}
}

// UploadResponseDTO is the API response for an upload event.
type UploadResponseDTO struct {
	Accepted bool   `json:"accepted"`
	Key      string `json:"key,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// CompletionResponseDTO is the API response for a completion event.
type CompletionResponseDTO struct {
	InferenceJSONKey      string `json:"inferenceJsonKey"`
	ExplainabilityJSONKey string `json:"explainabilityJsonKey"`
	AnnotatedImageKey     string `json:"annotatedImageKey"`
}

// Upload handles POST /v1/events/upload: the storage-creation trigger.
// A routing rejection is reported with 200; it is a normal terminal
// outcome, not a failure.
func (h *EventsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := observability.ContextWithTraceID(r.Context(), uuid.NewString())

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "read request body", err)
		return
	}

	ev, err := events.ParseStorageEvent(body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid storage event", err)
		return
	}

	result, err := h.coordinator.HandleUpload(ctx, ev)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "upload handling failed", err)
		return
	}

	writeJSON(w, http.StatusOK, UploadResponseDTO{
		Accepted: result.Accepted,
		Key:      result.Key,
		Reason:   result.Reason,
	})
}

// Completion handles POST /v1/events/completion: the engine's
// job-completion notification from the event bus.
func (h *EventsHandler) Completion(w http.ResponseWriter, r *http.Request) {
	ctx := observability.ContextWithTraceID(r.Context(), uuid.NewString())

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "read request body", err)
		return
	}

	ev, err := events.ParseCompletionEvent(body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid completion event", err)
		return
	}

	artifacts, err := h.coordinator.HandleCompletion(ctx, ev)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, resolve.ErrResolution) {
			status = http.StatusUnprocessableEntity
		}
		h.writeError(w, status, "completion handling failed", err)
		return
	}

	writeJSON(w, http.StatusOK, CompletionResponseDTO{
		InferenceJSONKey:      artifacts.InferenceJSON.Key,
		ExplainabilityJSONKey: artifacts.ExplainabilityJSON.Key,
		AnnotatedImageKey:     artifacts.AnnotatedImage.Key,
	})
}

// Health handles GET /healthz.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorDTO struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (h *EventsHandler) writeError(w http.ResponseWriter, status int, msg string, err error) {
	logEvent := h.logger.Error()
	if errors.Is(err, normalize.ErrBadDocument) || errors.Is(err, submit.ErrSubmission) || errors.Is(err, resolve.ErrResolution) {
		logEvent = h.logger.Warn()
	}
	logEvent.Err(err).Int("status", status).Msg(msg)

	writeJSON(w, status, errorDTO{Error: msg, Details: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
