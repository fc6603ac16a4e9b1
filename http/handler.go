package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/sagarc03/mongolink"
)

// Source is the part of mongolink.Manager the HTTP layer needs.
type Source interface {
	Get(ctx context.Context, alias string, opts ...mongolink.GetOption) (*mongolink.Handle, error)
	Status() []mongolink.Status
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type HandlerConfig struct {
	CORS CORSConfig
	// Alias, when set, mounts GET /ping bound to that alias through Middleware.
	Alias string
}

// Handler serves health and status endpoints for a connection manager.
type Handler struct {
	config HandlerConfig
	source Source
}

// NewHandler creates a new Handler with the given configuration and source.
func NewHandler(config *HandlerConfig, source Source) *Handler {
	return &Handler{
		config: *config,
		source: source,
	}
}

// Router returns an http.Handler with the status routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Get("/healthz", h.handleHealth)
	r.Get("/connections", h.handleConnections)
	r.Get("/connections/{alias}", h.handleConnection)

	if h.config.Alias != "" {
		r.With(Middleware(h.source, h.config.Alias)).Get("/ping", h.handlePing)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusNotFound, "not_found", "Route not found")
	})

	return r
}

// ConnectionInfo is the public view of one alias.
type ConnectionInfo struct {
	Alias          string `json:"alias"`
	Host           string `json:"host"`
	Port           int    `json:"port"`
	Name           string `json:"db"`
	Username       string `json:"username,omitempty"`
	ReadPreference string `json:"read_preference"`
	ReplicaSet     string `json:"replica_set,omitempty"`
	Connected      bool   `json:"connected"`
	Shared         bool   `json:"shared"`
}

func connectionInfo(s mongolink.Status) ConnectionInfo {
	d := s.Descriptor
	return ConnectionInfo{
		Alias:          s.Alias,
		Host:           d.Host,
		Port:           d.Port,
		Name:           d.Name,
		Username:       d.Username,
		ReadPreference: d.ReadPreference.String(),
		ReplicaSet:     d.ReplicaSet,
		Connected:      s.Connected,
		Shared:         s.Shared,
	}
}

// HealthCheck is the result of pinging one alias.
type HealthCheck struct {
	Alias string `json:"alias"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string        `json:"status"`
	Checks []HealthCheck `json:"checks"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Checks: []HealthCheck{}}
	code := http.StatusOK

	for _, s := range h.source.Status() {
		if !s.Connected {
			continue
		}
		check := HealthCheck{Alias: s.Alias, OK: true}

		handle, err := h.source.Get(r.Context(), s.Alias)
		if err == nil {
			err = handle.Ping(r.Context())
		}
		if err != nil {
			slog.Warn("health check failed", "alias", s.Alias, "err", err)
			check.OK = false
			check.Error = err.Error()
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
		resp.Checks = append(resp.Checks, check)
	}

	if err := WriteJSON(w, code, resp); err != nil {
		slog.Error("failed to encode health response", "error", err)
	}
}

func (h *Handler) handleConnections(w http.ResponseWriter, _ *http.Request) {
	status := h.source.Status()
	out := make([]ConnectionInfo, 0, len(status))
	for _, s := range status {
		out = append(out, connectionInfo(s))
	}

	if err := WriteJSON(w, http.StatusOK, out); err != nil {
		slog.Error("failed to encode connections response", "error", err)
	}
}

func (h *Handler) handleConnection(w http.ResponseWriter, r *http.Request) {
	alias := chi.URLParam(r, "alias")
	for _, s := range h.source.Status() {
		if s.Alias == alias {
			if err := WriteJSON(w, http.StatusOK, connectionInfo(s)); err != nil {
				slog.Error("failed to encode connection response", "error", err)
			}
			return
		}
	}
	WriteError(w, http.StatusNotFound, "not_defined", "Connection not defined")
}

// PingResponse is the body of GET /ping.
type PingResponse struct {
	Alias string `json:"alias"`
	DB    string `json:"db"`
	OK    bool   `json:"ok"`
}

func (h *Handler) handlePing(w http.ResponseWriter, r *http.Request) {
	handle, ok := HandleFromContext(r.Context())
	if !ok {
		HandleError(w, ErrNoHandle)
		return
	}

	if err := handle.Ping(r.Context()); err != nil {
		HandleError(w, &mongolink.ConnectionError{Alias: handle.Alias(), Err: err})
		return
	}

	if err := WriteJSON(w, http.StatusOK, PingResponse{Alias: handle.Alias(), DB: handle.Name(), OK: true}); err != nil {
		slog.Error("failed to encode ping response", "error", err)
	}
}
