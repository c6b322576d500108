package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rapportlabs/rapport/internal/export"
	"github.com/rapportlabs/rapport/internal/metrics"
	"github.com/rapportlabs/rapport/internal/models"
	"github.com/rapportlabs/rapport/internal/pipeline"
	"github.com/rapportlabs/rapport/internal/store"
)

// Server is an HTTP API server exposing contact and meeting operations.
// All operations act as the single configured owner.
type Server struct {
	store     store.Store
	pipeline  *pipeline.Pipeline
	owner     string
	logger    *slog.Logger
	authToken string // empty = no auth required
}

// NewServer creates a new Server with the given dependencies.
func NewServer(st store.Store, pl *pipeline.Pipeline, owner string, logger *slog.Logger, authToken string) *Server {
	return &Server{
		store:     st,
		pipeline:  pl,
		owner:     owner,
		logger:    logger,
		authToken: authToken,
	}
}

// Handler returns an http.Handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check is unauthenticated.
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	mux.HandleFunc("POST /v1/meetings", s.auth(s.handleLogMeeting))
	mux.HandleFunc("GET /v1/meetings/{id}", s.auth(s.handleGetMeeting))
	mux.HandleFunc("GET /v1/contacts", s.auth(s.handleListContacts))
	mux.HandleFunc("GET /v1/contacts/{id}", s.auth(s.handleGetContact))
	mux.HandleFunc("DELETE /v1/contacts/{id}", s.auth(s.handleDeleteContact))
	mux.HandleFunc("GET /v1/contacts/{id}/playbook", s.auth(s.handleGetPlaybook))
	mux.HandleFunc("GET /v1/contacts/{id}/meetings", s.auth(s.handleListMeetings))
	mux.HandleFunc("GET /v1/contacts/{id}/export", s.auth(s.handleExport))
	mux.HandleFunc("GET /v1/stats", s.auth(s.handleStats))

	return mux
}

// --- middleware ---

// auth wraps a handler with Bearer token authentication when authToken is set.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authToken == "" {
			next(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

// --- handlers ---

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// logMeetingRequest is the body accepted by POST /v1/meetings.
type logMeetingRequest struct {
	ContactName string `json:"contact_name"`
	RawText     string `json:"raw_text"`
	MeetingDate string `json:"meeting_date"` // RFC 3339 or YYYY-MM-DD, optional
	Location    string `json:"location"`
	Scenario    string `json:"scenario"`
}

func (s *Server) handleLogMeeting(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req logMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.RawText) == "" {
		s.writeError(w, http.StatusBadRequest, "raw_text is required")
		return
	}

	var meetingDate time.Time
	if req.MeetingDate != "" {
		var err error
		meetingDate, err = parseDate(req.MeetingDate)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "meeting_date must be RFC 3339 or YYYY-MM-DD")
			return
		}
	}

	meeting, err := s.pipeline.LogMeeting(r.Context(), s.owner, pipeline.Request{
		ContactName: req.ContactName,
		RawText:     req.RawText,
		MeetingDate: meetingDate,
		Location:    req.Location,
		Scenario:    req.Scenario,
	})
	if err != nil {
		s.logger.Error("failed to log meeting", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to log meeting")
		return
	}

	// Extraction failures are reported through the meeting's status, not as
	// a request failure; the caller reads the outcome from the entry.
	s.writeJSON(w, http.StatusCreated, meeting)
}

func (s *Server) handleGetMeeting(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m, err := s.store.GetMeeting(r.Context(), s.owner, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "meeting not found")
			return
		}
		s.logger.Error("failed to get meeting", "id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get meeting")
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := s.store.ListContacts(r.Context(), s.owner)
	if err != nil {
		s.logger.Error("failed to list contacts", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list contacts")
		return
	}

	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		contacts = filterContacts(contacts, q)
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"contacts": contacts,
		"total":    len(contacts),
	})
}

// filterContacts keeps contacts whose name, company, or position contains the
// query, case-insensitively.
func filterContacts(contacts []models.Contact, q string) []models.Contact {
	q = strings.ToLower(q)
	out := make([]models.Contact, 0, len(contacts))
	for i := range contacts {
		c := &contacts[i]
		if strings.Contains(strings.ToLower(c.Name), q) ||
			strings.Contains(strings.ToLower(c.CurrentCompany), q) ||
			strings.Contains(strings.ToLower(c.CurrentPosition), q) {
			out = append(out, *c)
		}
	}
	return out
}

func (s *Server) handleGetContact(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	c, err := s.store.GetContact(r.Context(), s.owner, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "contact not found")
			return
		}
		s.logger.Error("failed to get contact", "id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get contact")
		return
	}
	s.writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteContact(r.Context(), s.owner, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "contact not found")
			return
		}
		s.logger.Error("failed to delete contact", "id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to delete contact")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleGetPlaybook(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, err := s.store.GetPlaybook(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "playbook not found")
			return
		}
		s.logger.Error("failed to get playbook", "contact_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get playbook")
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleListMeetings(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.store.GetContact(r.Context(), s.owner, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "contact not found")
			return
		}
		s.logger.Error("failed to get contact", "id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list meetings")
		return
	}

	meetings, err := s.store.ListMeetings(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to list meetings", "contact_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list meetings")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"meetings": meetings,
		"total":    len(meetings),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	c, err := s.store.GetContact(r.Context(), s.owner, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "contact not found")
			return
		}
		s.logger.Error("failed to get contact", "id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to export contact")
		return
	}

	meetings, err := s.store.ListMeetings(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to list meetings", "contact_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to export contact")
		return
	}

	playbook, err := s.store.GetPlaybook(r.Context(), id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.Error("failed to get playbook", "contact_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to export contact")
		return
	}

	md := export.Markdown(c, meetings, playbook, time.Now())
	metrics.Inc(metrics.ExportsTotal)

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(md)); err != nil {
		s.logger.Error("failed to write export", "error", err)
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.logger.Error("failed to get stats", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

// --- helpers ---

// parseDate accepts RFC 3339 timestamps or bare YYYY-MM-DD dates.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// writeJSON encodes v as JSON and writes it to w with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(v); encErr != nil {
		s.logger.Error("failed to encode response", "error", encErr)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// Shutdown gracefully shuts down an http.Server with the given timeout.
// This is a convenience helper used by the serve command.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
