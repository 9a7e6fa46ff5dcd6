// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package server exposes rendered configuration headers to build pipelines over HTTP.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/dhtnode/internal/config"
	"github.com/ManuGH/dhtnode/internal/log"
	"github.com/ManuGH/dhtnode/internal/middleware"
	"github.com/ManuGH/dhtnode/internal/render"
)

// Source provides the active configuration. *config.Holder satisfies it.
type Source interface {
	Get() config.Snapshot
}

// Options configures the HTTP surface.
type Options struct {
	Stack   middleware.StackConfig
	Header  render.HeaderOptions
	Version string
}

// Server serves variants, rendered headers and diffs.
type Server struct {
	src    Source
	opts   Options
	router *chi.Mux
	logger zerolog.Logger
}

// New builds the router. The active variant is served from src; every other
// variant is served with its defaults.
func New(src Source, opts Options) *Server {
	s := &Server{
		src:    src,
		opts:   opts,
		logger: log.WithComponent("server"),
	}
	s.router = middleware.NewRouter(opts.Stack)
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/variants", s.handleListVariants)
		r.Route("/variants/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetVariant)
			r.Get("/config.h", s.handleHeader)
			r.Get("/example.yaml", s.handleExample)
			r.Get("/diff/{to}", s.handleDiff)
		})
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// resolve returns the variant and configuration served for id.
func (s *Server) resolve(id string) (config.Variant, config.DeviceConfig, bool, error) {
	v, err := config.LookupVariant(id)
	if err != nil {
		return config.Variant{}, config.DeviceConfig{}, false, err
	}
	snap := s.src.Get()
	if snap.Variant.ID == v.ID {
		return v, snap.Device, true, nil
	}
	return v, v.Defaults(), false, nil
}
