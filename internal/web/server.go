// internal/web/server.go
package web

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/tamzrod/greenhouse-bridge/internal/command"
	"github.com/tamzrod/greenhouse-bridge/internal/registry"
	"github.com/tamzrod/greenhouse-bridge/internal/state"
)

// Server wires the HTTP API, the live feed and the static dashboard
// assets over the shared state and the command gateway.
type Server struct {
	store   *state.Store
	gateway *command.Gateway
	htmlDir string

	// feedInterval is the live-feed push cadence; tests shorten it.
	feedInterval time.Duration
}

// NewServer builds a server with the default 1s live-feed cadence.
// htmlDir may be empty to disable static assets.
func NewServer(store *state.Store, gateway *command.Gateway, htmlDir string) *Server {
	return &Server{
		store:        store,
		gateway:      gateway,
		htmlDir:      htmlDir,
		feedInterval: time.Second,
	}
}

// Router assembles the route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Recoverer) // make sure this is last

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/setpoint", s.handleSetpoint)
		r.Post("/command", s.handleCommand)
	})

	r.Route("/ws", func(r chi.Router) {
		r.Get("/live", s.handleLive)
	})

	if s.htmlDir != "" {
		fileServer(r, "/", http.Dir(s.htmlDir))
	}
	return r
}

// ---- payloads ----

type statusResponse struct {
	Connected bool                      `json:"connected"`
	Timestamp string                    `json:"timestamp"`
	Values    map[string]registry.Value `json:"values"`
	Setpoints map[string]registry.Value `json:"setpoints"`
}

type setpointResponse struct {
	Status string `json:"status"`
	Name   string `json:"name"`
	Value  int    `json:"value"`
}

type commandResponse struct {
	Status string `json:"status"`
	Name   string `json:"name"`
	State  bool   `json:"state"`
}

type errResponse struct {
	Error string `json:"error"`
}

func snapshotPayload(snap state.Snapshot) statusResponse {
	return statusResponse{
		Connected: snap.Connected(),
		Timestamp: snap.LastUpdated.Format(time.RFC3339Nano),
		Values:    snap.Values,
		Setpoints: snap.Setpoints,
	}
}

// ---- handlers ----

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, snapshotPayload(s.store.Snapshot()))
}

func (s *Server) handleSetpoint(w http.ResponseWriter, r *http.Request) {
	req := &SetpointRequest{}
	if err := render.Bind(r, req); err != nil {
		renderError(w, r, http.StatusBadRequest, err)
		return
	}
	if err := s.gateway.SetSetpoint(req.Name, uint16(req.Value)); err != nil {
		renderError(w, r, commandStatus(err), err)
		return
	}
	render.JSON(w, r, setpointResponse{Status: "ok", Name: req.Name, Value: req.Value})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	req := &CommandRequest{}
	if err := render.Bind(r, req); err != nil {
		renderError(w, r, http.StatusBadRequest, err)
		return
	}
	newState, err := s.gateway.ToggleOrSet(req.Name, req.action)
	if err != nil {
		renderError(w, r, commandStatus(err), err)
		return
	}
	render.JSON(w, r, commandResponse{Status: "ok", Name: req.Name, State: newState})
}

// commandStatus maps the gateway taxonomy onto HTTP: caller errors are
// 4xx, failed writes are a bad upstream.
func commandStatus(err error) int {
	switch {
	case errors.Is(err, command.ErrUnknownSetpoint):
		return http.StatusNotFound
	case errors.Is(err, command.ErrInvalidCommand):
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

func renderError(w http.ResponseWriter, r *http.Request, status int, err error) {
	render.Status(r, status)
	render.JSON(w, r, errResponse{Error: err.Error()})
}

// fileServer conveniently sets up a http.FileServer handler to serve
// static files from a http.FileSystem.
func fileServer(r chi.Router, path string, root http.FileSystem) {
	if strings.ContainsAny(path, "{}*") {
		panic("fileServer does not permit URL parameters.")
	}

	fs := http.StripPrefix(path, http.FileServer(root))

	if path != "/" && path[len(path)-1] != '/' {
		r.Get(path, http.RedirectHandler(path+"/", http.StatusMovedPermanently).ServeHTTP)
		path += "/"
	}
	path += "*"

	r.Get(path, func(w http.ResponseWriter, r *http.Request) {
		fs.ServeHTTP(w, r)
	})
}
