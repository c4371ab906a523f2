package httpapi

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/open-crosspost/scheduler-service/internal/store"
)

// deliveriesHandler implements GET /jobs/:id/deliveries (SPEC_FULL.md §4's
// durable run log), reading straight through to the DeliveryLogStore.
type deliveriesHandler struct {
	log store.DeliveryLogStore
}

func newDeliveriesHandler(log store.DeliveryLogStore) *deliveriesHandler {
	return &deliveriesHandler{log: log}
}

func (h *deliveriesHandler) list(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	records, err := h.log.ListForJob(r.Context(), id, 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, records)
}
