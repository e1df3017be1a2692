package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"safestay/internal/app"
	"safestay/internal/domain"
)

type Handlers struct {
	Reports   *app.ReportService
	Takeaways *app.TakeawayService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/reports", h.getReportByURL)
	s.mux.Get("/v1/accommodations/{id}/report", h.getReport)
	s.mux.Get("/v1/accommodations/{id}/alternatives", h.listAlternatives)
	s.mux.Get("/v1/accommodations/{id}/takeaways", h.getTakeaways)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeDomainErr maps service errors onto problem responses.
func writeDomainErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownListing):
		writeProblem(w, http.StatusBadRequest, "Unrecognized listing URL", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "accommodation not found")
	case errors.Is(err, domain.ErrNoLocation):
		writeProblem(w, http.StatusUnprocessableEntity, "No location", "accommodation has no coordinates")
	default:
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		// Log but don't fail the whole response; return empty ETag and best-effort body.
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

func (h *Handlers) getReportByURL(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		writeProblem(w, http.StatusBadRequest, "Missing url", "url query parameter is required")
		return
	}
	resp, err := h.Reports.GetReportByURL(r.Context(), rawURL)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, r, resp)
}

func (h *Handlers) getReport(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Reports.GetReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, r, resp)
}

func (h *Handlers) listAlternatives(w http.ResponseWriter, r *http.Request) {
	limit := 0 // service applies its default
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 50 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 50")
			return
		}
		limit = l
	}

	out, err := h.Reports.SimilarStays(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	if out == nil {
		out = []domain.SimilarStay{}
	}
	writeJSON(w, r, out)
}

func (h *Handlers) getTakeaways(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Takeaways.Takeaways(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, r, resp)
}
