package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/alecthomas/units"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/volkshash/volkshash/controller"
	"github.com/volkshash/volkshash/lib"
)

const (
	colon = ":"

	SoftwareVersion = "0.1.0-alpha"
	ContentType     = "Content-Type"
	ApplicationJSON = "application/json; charset=utf-8"
	localhost       = "localhost"
)

// Server serves the quorum commitment queries of a node over http
type Server struct {
	// node controller
	controller *controller.Controller

	// node configuration
	config lib.Config

	// the http server, built up front so Shutdown() may race ListenAndServe()
	server *http.Server

	logger lib.LoggerI
}

// NewServer constructs and returns a new RPC server
func NewServer(controller *controller.Controller, config lib.Config, logger lib.LoggerI) *Server {
	s := &Server{
		controller: controller,
		config:     config,
		logger:     logger,
	}
	s.server = &http.Server{
		Addr:              colon + config.RPCPort,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler() returns the router wrapped by the CORS policy and the request timeout
func (s *Server) Handler() http.Handler {
	// Create CORS policy
	cor := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS", "POST"},
	})

	// Create a default timeout for HTTP requests
	timeout := time.Duration(s.config.TimeoutS) * time.Second

	return cor.Handler(http.TimeoutHandler(createRouter(s), timeout, ErrServerTimeout().Error()))
}

// ListenAndServe() blocks serving the rpc on the configured port until Shutdown() is called
// A graceful shutdown is not an error
func (s *Server) ListenAndServe() lib.ErrorI {
	s.logger.Infof("Starting RPC server at 0.0.0.0:%s", s.config.RPCPort)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return ErrServerStop(err)
	}
	return nil
}

// Shutdown() gracefully stops the listening server
func (s *Server) Shutdown(ctx context.Context) lib.ErrorI {
	if err := s.server.Shutdown(ctx); err != nil {
		return ErrServerStop(err)
	}
	return nil
}

// logHandler wraps a route handler with debug logging of its path
type logHandler struct {
	path string
	h    httprouter.Handle
	log  lib.LoggerI
}

// Handle
func (h logHandler) Handle(resp http.ResponseWriter, req *http.Request, p httprouter.Params) {
	h.log.Debugf("RPC %s %s", req.Method, h.path)
	h.h(resp, req, p)
}

// unmarshal the request body into ptr, writing a bad request on failure
func unmarshal(w http.ResponseWriter, r *http.Request, ptr interface{}) bool {
	bz, err := io.ReadAll(io.LimitReader(r.Body, int64(units.MB)))
	if err != nil {
		write(w, ErrInvalidArgs(err), http.StatusBadRequest)
		return false
	}
	defer func() { _ = r.Body.Close() }()
	if err = json.Unmarshal(bz, ptr); err != nil {
		write(w, ErrInvalidArgs(err), http.StatusBadRequest)
		return false
	}
	return true
}

// write marshaled payload to w
func write(w http.ResponseWriter, payload interface{}, code int) {
	w.Header().Set(ContentType, ApplicationJSON)
	w.WriteHeader(code)

	// Marshal and indent the payload
	bz, _ := json.MarshalIndent(payload, "", "  ")
	_, _ = w.Write(bz)
}
