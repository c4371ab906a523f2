package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/open-crosspost/scheduler-service/internal/engine"
	"github.com/open-crosspost/scheduler-service/internal/events"
	"github.com/open-crosspost/scheduler-service/internal/store"
)

// jobsHandler implements the /jobs and /jobs/:id... routes of spec.md §6.
type jobsHandler struct {
	coordinator *engine.Coordinator
	events      eventPublisher
}

// eventPublisher is the subset of internal/events.Bus the handlers need,
// kept as an interface here so httpapi doesn't depend on a concrete bus
// implementation.
type eventPublisher interface {
	Publish(topic string, payload any)
	Subscribe(id string, handler events.Handler)
	Unsubscribe(id string)
}

func newJobsHandler(coordinator *engine.Coordinator, events eventPublisher) *jobsHandler {
	return &jobsHandler{coordinator: coordinator, events: events}
}

func (h *jobsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := h.coordinator.Create(r.Context(), in)
	if err != nil && !errors.Is(err, engine.ErrSpecificTimeInPast) {
		h.writeCoordinatorError(w, err)
		return
	}

	h.publish("job.created", job)
	writeJSON(w, http.StatusCreated, jobResponse{Message: "job created", Job: job})
}

func (h *jobsHandler) list(w http.ResponseWriter, r *http.Request) {
	var filter store.Filter
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = store.Status(status)
	}

	jobs, err := h.coordinator.ListAll(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (h *jobsHandler) get(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	job, err := h.coordinator.Get(r.Context(), id)
	if err != nil {
		h.writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *jobsHandler) update(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req jobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := h.coordinator.Update(r.Context(), id, in)
	if err != nil && !errors.Is(err, engine.ErrSpecificTimeInPast) {
		h.writeCoordinatorError(w, err)
		return
	}

	h.publish("job.updated", job)
	writeJSON(w, http.StatusOK, jobResponse{Message: "job updated", Job: job})
}

func (h *jobsHandler) delete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	job, err := h.coordinator.Delete(r.Context(), id)
	if err != nil {
		h.writeCoordinatorError(w, err)
		return
	}
	h.publish("job.deleted", job)
	writeMessage(w, http.StatusOK, "job deleted")
}

func (h *jobsHandler) runNow(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.coordinator.RunNow(r.Context(), id); err != nil {
		h.writeCoordinatorError(w, err)
		return
	}
	h.publish("job.run_now", map[string]uuid.UUID{"job_id": id})
	writeMessage(w, http.StatusOK, "run scheduled")
}

type toggleStatusRequest struct {
	Status store.Status `json:"status"`
}

func (h *jobsHandler) toggleStatus(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req toggleStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Status != store.StatusActive && req.Status != store.StatusInactive {
		writeError(w, http.StatusBadRequest, "status must be ACTIVE or INACTIVE")
		return
	}

	job, err := h.coordinator.ToggleStatus(r.Context(), id, req.Status)
	if err != nil {
		h.writeCoordinatorError(w, err)
		return
	}
	h.publish("job.status_changed", job)
	writeJSON(w, http.StatusOK, job)
}

func (h *jobsHandler) publish(topic string, payload any) {
	if h.events != nil {
		h.events.Publish(topic, payload)
	}
}

func (h *jobsHandler) writeCoordinatorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		writeError(w, http.StatusNotFound, "job not found")
	case errors.Is(err, engine.ErrConflict):
		writeError(w, http.StatusConflict, "job already exists")
	case errors.Is(err, engine.ErrInvalidSchedule):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
