package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"google.golang.org/protobuf/encoding/protojson"

	api "github.com/oshokin/sos-button/internal/api/emergencyv1"
	domain "github.com/oshokin/sos-button/internal/domain/emergency"
	"github.com/oshokin/sos-button/internal/logger"
	"github.com/oshokin/sos-button/internal/service/coordinator"
)

const (
	// readHeaderTimeout bounds slow clients.
	readHeaderTimeout = 15 * time.Second
	// maxBodySize bounds request bodies.
	maxBodySize = 4 << 10
	// webUsername is the actor username when a request names nobody.
	webUsername = "web"
)

// Service is the part of the emergency service the dashboard needs.
type Service interface {
	Start(ctx context.Context, actor *domain.Actor) (*domain.State, error)
	Cancel(ctx context.Context, actor *domain.Actor) (*domain.State, error)
	Reset(ctx context.Context, actor *domain.Actor) (*domain.State, error)
	State() *domain.State
}

// actorRequest is the body of the state-changing routes.
type actorRequest struct {
	Hostname string `json:"hostname"`
	Username string `json:"username"`
}

// Server is the dashboard HTTP server.
type Server struct {
	*http.Server

	service Service
}

// NewServer creates the HTTP server for addr.
func NewServer(ctx context.Context, addr string, service Service) *Server {
	s := &Server{
		service: service,
	}

	s.Server = &http.Server{
		Addr:              addr,
		Handler:           s.routes(ctx),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	return s
}

// routes builds the router.
func (s *Server) routes(ctx context.Context) chi.Router {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(ctx))
	router.Use(VersionMiddleware)
	router.Use(middleware.Recoverer)

	router.Get("/health", handleHealth)

	router.Route("/api/emergency", func(r chi.Router) {
		r.Get("/", s.handleState)
		r.Post("/start", s.handleChange("start", s.service.Start))
		r.Post("/cancel", s.handleChange("cancel", s.service.Cancel))
		r.Post("/reset", s.handleChange("reset", s.service.Reset))
	})

	return router
}

// handleHealth handles health check requests.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "sos-button",
	})
}

// handleState returns the current state.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeState(w, r, s.service.State())
}

// handleChange returns a handler running a state-changing operation.
func (s *Server) handleChange(
	operation string,
	fn func(context.Context, *domain.Actor) (*domain.State, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actor, err := decodeActor(r)
		if err != nil {
			writeError(ctx, w, http.StatusBadRequest, err.Error())

			return
		}

		state, err := fn(ctx, actor)
		if err != nil {
			if errors.Is(err, coordinator.ErrClosed) {
				writeError(ctx, w, http.StatusServiceUnavailable, "service is shutting down")

				return
			}

			logger.ErrorKV(ctx, "Emergency request failed", "operation", operation, "error", err)
			writeError(ctx, w, http.StatusInternalServerError, "unable to "+operation)

			return
		}

		logger.InfoKV(ctx, "Emergency request handled",
			"operation", operation,
			"actor", actor,
			"phase", state.Phase.String())

		s.writeState(w, r, state)
	}
}

// writeState renders the state with the gRPC Struct encoding.
func (s *Server) writeState(w http.ResponseWriter, r *http.Request, state *domain.State) {
	body, err := protojson.Marshal(api.StateToStruct(state))
	if err != nil {
		logger.ErrorKV(r.Context(), "Failed to encode state", "error", err)
		writeError(r.Context(), w, http.StatusInternalServerError, "unable to encode state")

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if _, err = w.Write(body); err != nil {
		logger.DebugKV(r.Context(), "Failed to write state", "error", err)
	}
}

// decodeActor reads the actor from the body. An empty body names the
// remote address.
func decodeActor(r *http.Request) (*domain.Actor, error) {
	var req actorRequest

	err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.New("invalid request body") //nolint:err113 // Client-facing message.
	}

	if req.Hostname == "" {
		req.Hostname = remoteHost(r.RemoteAddr)
	}

	if req.Username == "" {
		req.Username = webUsername
	}

	return &domain.Actor{
		Hostname: req.Hostname,
		Username: req.Username,
	}, nil
}

// remoteHost strips the port from a remote address.
func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}

	return host
}

// writeError writes a JSON error document.
func writeError(ctx context.Context, w http.ResponseWriter, code int, message string) {
	writeJSON(ctx, w, code, map[string]string{"error": message})
}

// writeJSON writes v as a JSON document.
func writeJSON(ctx context.Context, w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.DebugKV(ctx, "Failed to write response", "error", err)
	}
}
