// Package mcp implements the Model Context Protocol server for rapport.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/rapportlabs/rapport/internal/export"
	"github.com/rapportlabs/rapport/internal/metrics"
	"github.com/rapportlabs/rapport/internal/models"
	"github.com/rapportlabs/rapport/internal/pipeline"
	"github.com/rapportlabs/rapport/internal/store"
)

// Server wraps an MCPServer with rapport dependencies. All tool calls act as
// the single configured owner.
type Server struct {
	mcp    *mcpserver.MCPServer
	st     store.Store
	pl     *pipeline.Pipeline
	owner  string
	logger *slog.Logger
}

// NewServer creates a new MCP server. If st or pl are nil, the corresponding
// tool calls return an error response instead of panicking.
func NewServer(st store.Store, pl *pipeline.Pipeline, owner string, logger *slog.Logger) *Server {
	s := &Server{
		st:     st,
		pl:     pl,
		owner:  owner,
		logger: logger,
	}

	mcpSrv := mcpserver.NewMCPServer(
		"rapport",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
	)

	mcpSrv.AddTool(buildLogMeetingTool(), s.handleLogMeeting)
	mcpSrv.AddTool(buildGetProfileTool(), s.handleGetProfile)
	mcpSrv.AddTool(buildSearchContactsTool(), s.handleSearchContacts)
	mcpSrv.AddTool(buildStatsTool(), s.handleStats)

	s.mcp = mcpSrv
	return s
}

// MCPServer returns the underlying mcp-go MCPServer for use with ServeStdio.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcp
}

// HandleLogMeeting is the exported handler for the "log_meeting" tool.
// It is exposed for direct testing without the mcp-go transport layer.
func (s *Server) HandleLogMeeting(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleLogMeeting(ctx, req)
}

// HandleGetProfile is the exported handler for the "get_profile" tool.
func (s *Server) HandleGetProfile(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleGetProfile(ctx, req)
}

// HandleSearchContacts is the exported handler for the "search_contacts" tool.
func (s *Server) HandleSearchContacts(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleSearchContacts(ctx, req)
}

// HandleStats is the exported handler for the "stats" tool.
func (s *Server) HandleStats(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleStats(ctx, req)
}

// --- helpers ---

// toolResultJSON marshals v to JSON and returns it as a tool text result.
func toolResultJSON(v any) (*mcpgo.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcp: marshaling result: %w", err)
	}
	return mcpgo.NewToolResultText(string(b)), nil
}

// parseDate accepts RFC 3339 timestamps or bare YYYY-MM-DD dates.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// --- tool definitions ---

func buildLogMeetingTool() mcpgo.Tool {
	return mcpgo.NewTool("log_meeting",
		mcpgo.WithDescription("Record free-text meeting notes about a contact. Extracts structured knowledge and merges it into the contact's profile and action playbook."),
		mcpgo.WithString("raw_text",
			mcpgo.Required(),
			mcpgo.Description("The free-text meeting notes"),
		),
		mcpgo.WithString("contact_name",
			mcpgo.Description("Name of the contact the meeting was with. Omit to create an unnamed contact."),
		),
		mcpgo.WithString("meeting_date",
			mcpgo.Description("Meeting date, RFC 3339 or YYYY-MM-DD (default: now)"),
		),
		mcpgo.WithString("location",
			mcpgo.Description("Where the meeting took place"),
		),
		mcpgo.WithString("scenario",
			mcpgo.Description("Meeting scenario, e.g. dinner, conference, video call"),
		),
	)
}

func buildGetProfileTool() mcpgo.Tool {
	return mcpgo.NewTool("get_profile",
		mcpgo.WithDescription("Get a contact's full profile as markdown: identity, status, meeting timeline, and action playbook."),
		mcpgo.WithString("contact_id",
			mcpgo.Description("The contact's ID"),
		),
		mcpgo.WithString("name",
			mcpgo.Description("The contact's name; used when contact_id is not given"),
		),
	)
}

func buildSearchContactsTool() mcpgo.Tool {
	return mcpgo.NewTool("search_contacts",
		mcpgo.WithDescription("Search contacts by name, company, or position. Returns matching contacts ordered by most recent meeting."),
		mcpgo.WithString("query",
			mcpgo.Description("Substring to match, case-insensitive. Omit to list all contacts."),
		),
	)
}

func buildStatsTool() mcpgo.Tool {
	return mcpgo.NewTool("stats",
		mcpgo.WithDescription("Get store statistics: total contacts, meetings, playbooks, and meetings by status."),
	)
}

// --- tool handlers ---

// handleLogMeeting runs the full extraction pipeline for a note.
func (s *Server) handleLogMeeting(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.pl == nil {
		return mcpgo.NewToolResultError("pipeline is unavailable"), nil
	}

	rawText := req.GetString("raw_text", "")
	if strings.TrimSpace(rawText) == "" {
		return mcpgo.NewToolResultError("raw_text is required and must not be empty"), nil
	}

	var meetingDate time.Time
	if d := req.GetString("meeting_date", ""); d != "" {
		var err error
		meetingDate, err = parseDate(d)
		if err != nil {
			return mcpgo.NewToolResultErrorf("invalid meeting_date %q: use RFC 3339 or YYYY-MM-DD", d), nil
		}
	}

	meeting, err := s.pl.LogMeeting(ctx, s.owner, pipeline.Request{
		ContactName: req.GetString("contact_name", ""),
		RawText:     rawText,
		MeetingDate: meetingDate,
		Location:    req.GetString("location", ""),
		Scenario:    req.GetString("scenario", ""),
	})
	if err != nil {
		return mcpgo.NewToolResultErrorf("logging meeting failed: %s", err.Error()), nil
	}

	s.logger.Info("mcp: logged meeting", "meeting_id", meeting.ID, "contact_id", meeting.ContactID, "status", meeting.Status)

	result := map[string]any{
		"meeting_id": meeting.ID,
		"contact_id": meeting.ContactID,
		"status":     meeting.Status,
	}
	if meeting.ErrorMessage != "" {
		result["error_message"] = meeting.ErrorMessage
	}
	return toolResultJSON(result)
}

// handleGetProfile renders a contact's profile as markdown.
func (s *Server) handleGetProfile(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.st == nil {
		return mcpgo.NewToolResultError("store is unavailable"), nil
	}

	contact, err := s.lookupContact(ctx, req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return mcpgo.NewToolResultError("contact not found"), nil
		}
		return mcpgo.NewToolResultErrorf("looking up contact failed: %s", err.Error()), nil
	}

	meetings, err := s.st.ListMeetings(ctx, contact.ID)
	if err != nil {
		return mcpgo.NewToolResultErrorf("listing meetings failed: %s", err.Error()), nil
	}

	playbook, err := s.st.GetPlaybook(ctx, contact.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return mcpgo.NewToolResultErrorf("loading playbook failed: %s", err.Error()), nil
	}

	md := export.Markdown(contact, meetings, playbook, time.Now())
	metrics.Inc(metrics.ExportsTotal)
	return mcpgo.NewToolResultText(md), nil
}

// lookupContact resolves the contact_id or name argument to a contact record.
func (s *Server) lookupContact(ctx context.Context, req mcpgo.CallToolRequest) (*models.Contact, error) {
	if id := req.GetString("contact_id", ""); id != "" {
		return s.st.GetContact(ctx, s.owner, id)
	}
	name := req.GetString("name", "")
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("contact_id or name is required: %w", store.ErrNotFound)
	}
	c, err := s.st.FindContactByName(ctx, s.owner, name, store.MatchExact)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return s.st.FindContactByName(ctx, s.owner, name, store.MatchFuzzy)
}

// handleSearchContacts filters the contact list by a substring query.
func (s *Server) handleSearchContacts(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.st == nil {
		return mcpgo.NewToolResultError("store is unavailable"), nil
	}

	contacts, err := s.st.ListContacts(ctx, s.owner)
	if err != nil {
		return mcpgo.NewToolResultErrorf("listing contacts failed: %s", err.Error()), nil
	}

	query := strings.ToLower(strings.TrimSpace(req.GetString("query", "")))
	matches := make([]map[string]any, 0, len(contacts))
	for i := range contacts {
		c := &contacts[i]
		if query != "" &&
			!strings.Contains(strings.ToLower(c.Name), query) &&
			!strings.Contains(strings.ToLower(c.CurrentCompany), query) &&
			!strings.Contains(strings.ToLower(c.CurrentPosition), query) {
			continue
		}
		entry := map[string]any{
			"contact_id": c.ID,
			"name":       c.Name,
		}
		if c.CurrentCompany != "" {
			entry["company"] = c.CurrentCompany
		}
		if c.CurrentPosition != "" {
			entry["position"] = c.CurrentPosition
		}
		if c.LastMeetingDate != nil {
			entry["last_meeting_date"] = c.LastMeetingDate.Format("2006-01-02")
		}
		matches = append(matches, entry)
	}

	result := map[string]any{
		"contacts": matches,
		"total":    len(matches),
	}
	return toolResultJSON(result)
}

// handleStats returns store statistics.
func (s *Server) handleStats(ctx context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.st == nil {
		return mcpgo.NewToolResultError("store is unavailable"), nil
	}

	stats, err := s.st.Stats(ctx)
	if err != nil {
		return mcpgo.NewToolResultErrorf("stats failed: %s", err.Error()), nil
	}
	return toolResultJSON(stats)
}
