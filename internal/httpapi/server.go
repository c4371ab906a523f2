package httpapi

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/open-crosspost/scheduler-service/internal/engine"
	"github.com/open-crosspost/scheduler-service/internal/store"
)

// Server wires the REST surface described in spec.md §6 onto a ServeMux,
// mirroring the teacher's hand-rolled Go 1.22 pattern-based routing rather
// than pulling in a router library.
type Server struct {
	mux            *http.ServeMux
	token          string
	allowedOrigins string
}

// NewServer builds the HTTP surface for a Coordinator. token, when
// non-empty, is the bearer token every /jobs and /dlq route requires
// (GET /health and GET /jobs/events are not token-checked); allowedOrigins
// is the raw ALLOWED_ORIGINS env value (spec.md §6); events, when non-nil,
// receives a notification for every state-changing operation (used to drive
// the /jobs/events WebSocket stream).
func NewServer(coordinator *engine.Coordinator, deliveryLog store.DeliveryLogStore, token, allowedOrigins string, events eventPublisher) *Server {
	s := &Server{mux: http.NewServeMux(), token: token, allowedOrigins: allowedOrigins}

	jobs := newJobsHandler(coordinator, events)
	dlq := newDLQHandler(coordinator, events)
	deliveries := newDeliveriesHandler(deliveryLog)

	s.mux.HandleFunc("GET /health", healthHandler)

	s.mux.HandleFunc("POST /jobs", s.authed(jobs.create))
	s.mux.HandleFunc("GET /jobs", s.authed(jobs.list))
	s.mux.HandleFunc("GET /jobs/{id}", s.authed(s.withID(jobs.get)))
	s.mux.HandleFunc("PUT /jobs/{id}", s.authed(s.withID(jobs.update)))
	s.mux.HandleFunc("DELETE /jobs/{id}", s.authed(s.withID(jobs.delete)))
	s.mux.HandleFunc("POST /jobs/{id}/run", s.authed(s.withID(jobs.runNow)))
	s.mux.HandleFunc("PATCH /jobs/{id}/status", s.authed(s.withID(jobs.toggleStatus)))
	s.mux.HandleFunc("GET /jobs/{id}/deliveries", s.authed(s.withID(deliveries.list)))

	s.mux.HandleFunc("GET /dlq", s.authed(dlq.list))
	s.mux.HandleFunc("POST /dlq/{id}/reactivate", s.authed(s.withID(dlq.reactivate)))
	s.mux.HandleFunc("POST /dlq/{id}/complete", s.authed(s.withID(dlq.complete)))
	s.mux.HandleFunc("DELETE /dlq/{id}", s.authed(s.withID(dlq.delete)))

	s.mux.HandleFunc("GET /jobs/events", newWebSocketHandler(events).serve)

	return s
}

// ServeHTTP makes Server itself usable as an http.Handler, with CORS applied
// over the whole mux.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.withCORS(s.mux).ServeHTTP(w, r)
}

func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !tokenMatch(extractBearerToken(r), s.token) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

// withID parses the {id} path value shared by every /jobs/{id}... and
// /dlq/{id}... route before handing off to a per-resource handler.
func (s *Server) withID(next func(http.ResponseWriter, *http.Request, uuid.UUID)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		next(w, r, id)
	}
}
