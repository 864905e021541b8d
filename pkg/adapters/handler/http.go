package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/wadjakorntonsri/go-shortlink/pkg/core/domain"
	"github.com/wadjakorntonsri/go-shortlink/pkg/ports"
)

type HTTPHandler struct {
	service ports.LinkService
}

func NewHTTPHandler(service ports.LinkService) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// CreateLinkRequest payload
type CreateLinkRequest struct {
	TargetURL   string `json:"target_url"`
	IsPermanent *bool  `json:"is_permanent,omitempty"` // defaults to true
	Slug        string `json:"slug,omitempty"`
}

// Create Link
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "expected application/json body")
		return
	}

	isPermanent := true
	if req.IsPermanent != nil {
		isPermanent = *req.IsPermanent
	}

	created, err := h.service.CreateLink(r.Context(), req.TargetURL, isPermanent, req.Slug, ClientIP(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	log.Printf("link created slug=%s is_permanent=%t target=%s", created.Slug, created.IsPermanent, created.TargetURL)

	w.Header().Set("Location", created.ShortURL)
	writeJSON(w, http.StatusCreated, created)
}

// Redirect resolves a slug, records the click and answers with the decided
// status and cache headers. The click insert happens before the response:
// a failed insert is a 500, never a silent redirect.
func (h *HTTPHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	decision, err := h.service.ResolveAndRecord(r.Context(), slug, ClientIP(r), r.UserAgent(), r.Header.Get("Referer"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		log.Printf("redirect failed slug=%s: %v", slug, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	for k, v := range decision.Headers {
		w.Header().Set(k, v)
	}
	http.Redirect(w, r, decision.Location, decision.Status)
}

// Analytics returns click totals for one slug; ?aggregate=day adds the
// per-day histogram. ?start/?end are inclusive YYYY-MM-DD bounds.
func (h *HTTPHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	dr, ok := parseRange(w, r)
	if !ok {
		return
	}

	out, err := h.service.GetLinkAnalytics(r.Context(), slug, dr, r.URL.Query().Get("aggregate"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// AdminList pages through all links with click totals in the range.
func (h *HTTPHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	dr, ok := parseRange(w, r)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	q := r.URL.Query().Get("q")

	out, err := h.service.ListLinks(r.Context(), dr, q, page, pageSize)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// AdminDetail shows one link: per-day histogram plus recent clicks. With no
// bounds given it defaults to the last 30 days.
func (h *HTTPHandler) AdminDetail(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	dr, ok := parseRange(w, r)
	if !ok {
		return
	}
	if dr.Start == nil && dr.End == nil {
		end := time.Now().UTC().Truncate(24 * time.Hour)
		start := end.AddDate(0, 0, -30)
		dr = domain.DateRange{Start: &start, End: &end}
	}

	analytics, err := h.service.GetLinkAnalytics(r.Context(), slug, dr, "day")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	recent, err := h.service.RecentClicks(r.Context(), slug, dr, 100)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"link":          analytics,
		"recent_clicks": recent,
		"start":         formatBound(dr.Start),
		"end":           formatBound(dr.End),
	})
}

func parseRange(w http.ResponseWriter, r *http.Request) (domain.DateRange, bool) {
	var dr domain.DateRange
	if raw := r.URL.Query().Get("start"); raw != "" {
		t, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start date, expected YYYY-MM-DD")
			return dr, false
		}
		dr.Start = &t
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		t, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end date, expected YYYY-MM-DD")
			return dr, false
		}
		dr.End = &t
	}
	return dr, true
}

func formatBound(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps domain errors onto HTTP statuses. Anything
// unrecognized is a 500 with the detail kept out of the response.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrSlugConflict):
		writeError(w, http.StatusConflict, "slug conflict")
	case errors.Is(err, domain.ErrInvalidURL),
		errors.Is(err, domain.ErrInvalidSlug),
		errors.Is(err, domain.ErrLoopURL):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrAllocationExhausted):
		log.Printf("slug allocation exhausted: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to allocate slug")
	default:
		log.Printf("request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
