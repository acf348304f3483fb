package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/breatheroute/envhealth/internal/api/models"
	"github.com/breatheroute/envhealth/internal/api/response"
	"github.com/breatheroute/envhealth/internal/dashboard"
	"github.com/breatheroute/envhealth/internal/health"
	"github.com/breatheroute/envhealth/internal/query"
	"github.com/breatheroute/envhealth/internal/upstream"
)

// MaxWait bounds how long a dashboard request may wait for fetches to settle.
const MaxWait = 10 * time.Second

// SessionHandler handles dashboard session endpoints.
type SessionHandler struct {
	sessions *dashboard.Manager
	logger   zerolog.Logger
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(sessions *dashboard.Manager, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// CreateSession handles POST /v1/sessions.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	d := h.sessions.Create()

	tabs := make([]string, 0, len(dashboard.AllTabs()))
	for _, t := range dashboard.AllTabs() {
		tabs = append(tabs, string(t))
	}

	self := "/v1/sessions/" + d.ID()
	response.Created(w, r, self, models.Session{
		ID:        d.ID(),
		Tab:       string(d.Tab()),
		Tabs:      tabs,
		CreatedAt: models.Timestamp(d.LastSeen()),
		Links: models.SessionLinks{
			Self:      self,
			Dashboard: self + "/dashboard",
		},
	})
}

// GetDashboard handles GET /v1/sessions/{sessionId}/dashboard.
// Query parameters: tab, conditions, allergies, uvSensitivity and wait.
func (h *SessionHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	d, ok := h.session(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	var fieldErrs []models.FieldError

	tab, err := dashboard.ParseTab(q.Get("tab"))
	if err != nil {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "tab", Message: err.Error(), Code: "INVALID_ENUM"})
	}

	profile, profileErrs := health.ParseProfile(q)
	for _, fe := range profileErrs {
		fieldErrs = append(fieldErrs, models.FieldError{Field: fe.Field, Message: fe.Message, Code: "INVALID_VALUE"})
	}

	wait, err := parseWait(q.Get("wait"))
	if err != nil {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "wait", Message: err.Error(), Code: "INVALID_DURATION"})
	}

	if len(fieldErrs) > 0 {
		response.BadRequest(w, r, "invalid dashboard query", fieldErrs)
		return
	}

	d.SelectTab(tab)

	if wait > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), wait)
		err := d.Wait(ctx)
		cancel()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			// Client went away.
			return
		}
	}

	response.JSON(w, r, http.StatusOK, d.View(profile))
}

// CloseSession handles DELETE /v1/sessions/{sessionId}.
func (h *SessionHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(chi.URLParam(r, "sessionId")); err != nil {
		response.NotFound(w, r, "dashboard session not found")
		return
	}
	response.NoContent(w, r)
}

// RefetchDomain handles POST /v1/sessions/{sessionId}/domains/{domain}/refetch.
func (h *SessionHandler) RefetchDomain(w http.ResponseWriter, r *http.Request) {
	d, ok := h.session(w, r)
	if !ok {
		return
	}

	domain, err := upstream.ParseDomain(chi.URLParam(r, "domain"))
	if err != nil {
		response.BadRequest(w, r, "invalid domain", []models.FieldError{
			{Field: "domain", Message: err.Error(), Code: "INVALID_ENUM"},
		})
		return
	}

	err = d.Refetch(domain)
	switch {
	case err == nil, errors.Is(err, query.ErrDisabled):
	case errors.Is(err, query.ErrClosed):
		response.NotFound(w, r, "dashboard session not found")
		return
	default:
		h.logger.Error().Err(err).Str("domain", string(domain)).Msg("refetch failed")
		response.InternalError(w, r, "could not refetch domain")
		return
	}

	response.Accepted(w, r, models.RefetchResult{
		Domain:  string(domain),
		Started: err == nil,
	})
}

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*dashboard.Dashboard, bool) {
	d, err := h.sessions.Get(chi.URLParam(r, "sessionId"))
	if err != nil {
		response.NotFound(w, r, "dashboard session not found")
		return nil, false
	}
	return d, true
}

var errInvalidWait = errors.New("must be a duration such as 2s or a number of milliseconds, at most 10s")

// parseWait accepts Go durations ("1500ms", "2s") or plain milliseconds.
func parseWait(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		ms, convErr := strconv.Atoi(s)
		if convErr != nil {
			return 0, errInvalidWait
		}
		d = time.Duration(ms) * time.Millisecond
	}
	if d < 0 || d > MaxWait {
		return 0, errInvalidWait
	}
	return d, nil
}
