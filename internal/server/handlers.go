// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/dhtnode/internal/config"
	"github.com/ManuGH/dhtnode/internal/log"
	"github.com/ManuGH/dhtnode/internal/metrics"
	"github.com/ManuGH/dhtnode/internal/render"
	"github.com/ManuGH/dhtnode/internal/telemetry"
)

type variantSummary struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Active      bool     `json:"active"`
	Keys        []string `json:"keys"`
}

type variantDetail struct {
	variantSummary
	Fingerprint string                   `json:"fingerprint"`
	Values      map[string]any           `json:"values"`
	Sources     map[string]config.Source `json:"sources,omitempty"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, kind, detail string) {
	writeJSON(w, code, map[string]string{"error": kind, "detail": detail})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	snap := s.src.Get()
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"variant": snap.Variant.ID,
		"version": s.opts.Version,
	})
}

func (s *Server) handleListVariants(w http.ResponseWriter, _ *http.Request) {
	active := s.src.Get().Variant.ID
	out := make([]variantSummary, 0, len(config.Variants()))
	for _, v := range config.Variants() {
		out = append(out, variantSummary{
			ID:          v.ID,
			Description: v.Description,
			Active:      v.ID == active,
			Keys:        v.Keys(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetVariant(w http.ResponseWriter, r *http.Request) {
	v, cfg, active, ok := s.lookup(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	header, err := render.Header(v, cfg, s.opts.Header)
	if err != nil {
		s.renderFailed(w, r, v.ID, err)
		return
	}

	detail := variantDetail{
		variantSummary: variantSummary{ID: v.ID, Description: v.Description, Active: active, Keys: v.Keys()},
		Fingerprint:    render.Fingerprint(header),
		Values:         config.Masked(cfg),
	}
	if active {
		detail.Sources = s.src.Get().Sources
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleHeader(w http.ResponseWriter, r *http.Request) {
	v, cfg, active, ok := s.lookup(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	_, span := telemetry.Tracer("dhtnode/server").Start(r.Context(), "render.header",
		trace.WithAttributes(telemetry.RenderAttributes(v.ID, active)...))
	header, err := render.Header(v, cfg, s.opts.Header)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		span.End()
		s.renderFailed(w, r, v.ID, err)
		return
	}
	span.SetAttributes(telemetry.ResultAttributes(render.Fingerprint(header), len(v.Keys()))...)
	span.End()

	etag := `"` + render.Fingerprint(header) + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	metrics.RecordRender(v.ID)
	w.Header().Set("Content-Type", "text/x-c; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="config.h"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(header)
}

func (s *Server) handleExample(w http.ResponseWriter, r *http.Request) {
	v, err := config.LookupVariant(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown_variant", err.Error())
		return
	}
	data, err := render.ExampleYAML(v)
	if err != nil {
		s.renderFailed(w, r, v.ID, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	from, err := config.LookupVariant(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown_variant", err.Error())
		return
	}
	to, err := config.LookupVariant(chi.URLParam(r, "to"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown_variant", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, config.DiffVariants(from, to))
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request, id string) (config.Variant, config.DeviceConfig, bool, bool) {
	v, cfg, active, err := s.resolve(id)
	if err != nil {
		if errors.Is(err, config.ErrUnknownVariant) {
			writeError(w, http.StatusNotFound, "unknown_variant", err.Error())
		} else {
			s.renderFailed(w, r, id, err)
		}
		return v, cfg, active, false
	}
	return v, cfg, active, true
}

func (s *Server) renderFailed(w http.ResponseWriter, r *http.Request, variant string, err error) {
	logger := log.WithContext(r.Context(), s.logger)
	logger.Error().
		Err(err).
		Str(log.FieldEvent, "render.failed").
		Str(log.FieldVariant, variant).
		Msg("failed to render configuration")
	writeError(w, http.StatusInternalServerError, "render_failed", "failed to render configuration")
}

// etagMatches implements the weak comparison used by If-None-Match.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
