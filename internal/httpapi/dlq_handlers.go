package httpapi

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/open-crosspost/scheduler-service/internal/engine"
)

// dlqHandler implements the /dlq routes of spec.md §6: the operator surface
// over jobs the Delivery Worker has dead-lettered (status FAILED).
type dlqHandler struct {
	coordinator *engine.Coordinator
	events      eventPublisher
}

func newDLQHandler(coordinator *engine.Coordinator, events eventPublisher) *dlqHandler {
	return &dlqHandler{coordinator: coordinator, events: events}
}

func (h *dlqHandler) list(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.coordinator.ListDLQ(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (h *dlqHandler) reactivate(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	job, err := h.coordinator.Reactivate(r.Context(), id)
	if err != nil {
		h.writeCoordinatorError(w, err)
		return
	}
	if h.events != nil {
		h.events.Publish("job.reactivated", job)
	}
	writeMessage(w, http.StatusOK, "job reactivated")
}

func (h *dlqHandler) complete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	job, err := h.coordinator.Complete(r.Context(), id)
	if err != nil {
		h.writeCoordinatorError(w, err)
		return
	}
	if h.events != nil {
		h.events.Publish("job.completed", job)
	}
	writeMessage(w, http.StatusOK, "job marked complete")
}

func (h *dlqHandler) delete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	job, err := h.coordinator.DeleteDLQ(r.Context(), id)
	if err != nil {
		h.writeCoordinatorError(w, err)
		return
	}
	if h.events != nil {
		h.events.Publish("job.deleted", job)
	}
	writeMessage(w, http.StatusOK, "job deleted")
}

func (h *dlqHandler) writeCoordinatorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		writeError(w, http.StatusNotFound, "job not found")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
