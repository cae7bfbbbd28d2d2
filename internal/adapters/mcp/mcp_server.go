// Package mcp provides the MCP (Model Context Protocol) server implementation.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/xvierd/focusos/internal/domain"
	"github.com/xvierd/focusos/internal/ports"
)

const (
	timeLayout         = "2006-01-02T15:04:05"
	defaultSessionList = 20
	noActiveSession    = "no active session"
)

// Server implements the MCP server using mark3labs/mcp-go.
type Server struct {
	server        *server.MCPServer
	stateProvider ports.MCPStateProvider
	logger        *slog.Logger
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewServer creates a new MCP server instance.
func NewServer(stateProvider ports.MCPStateProvider, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		stateProvider: stateProvider,
		logger:        logger,
	}

	s.server = server.NewMCPServer(
		"focusos",
		"1.0.0",
		server.WithLogging(),
	)

	s.registerTools()

	return s
}

// registerTools registers all available MCP tools.
func (s *Server) registerTools() {
	s.server.AddTool(
		mcp.NewTool(
			"get_state",
			mcp.WithDescription("Get the engine state, the active focus session and today's statistics"),
		),
		s.handleGetState,
	)

	startTool := mcp.NewTool(
		"start_session",
		mcp.WithDescription("Start a new focus session"),
		mcp.WithString(
			"tag",
			mcp.Description("Optional label for the session"),
		),
		mcp.WithNumber(
			"planned_minutes",
			mcp.Description("Optional goal in minutes; omit for an open-ended session"),
		),
	)
	s.server.AddTool(startTool, s.handleStartSession)

	s.server.AddTool(
		mcp.NewTool(
			"pause_session",
			mcp.WithDescription("Pause the running focus session"),
		),
		s.handlePauseSession,
	)

	s.server.AddTool(
		mcp.NewTool(
			"resume_session",
			mcp.WithDescription("Resume the paused focus session"),
		),
		s.handleResumeSession,
	)

	logDistractionTool := mcp.NewTool(
		"log_distraction",
		mcp.WithDescription("Log a distraction on the running focus session"),
		mcp.WithString(
			"description",
			mcp.Required(),
			mcp.Description("What pulled you away"),
		),
	)
	s.server.AddTool(logDistractionTool, s.handleLogDistraction)

	s.server.AddTool(
		mcp.NewTool(
			"end_session",
			mcp.WithDescription("End the active focus session and score it"),
		),
		s.handleEndSession,
	)

	dailyStatsTool := mcp.NewTool(
		"get_daily_stats",
		mcp.WithDescription("Get the statistics of one day"),
		mcp.WithString(
			"date",
			mcp.Description("Day in YYYY-MM-DD format (default: today)"),
		),
	)
	s.server.AddTool(dailyStatsTool, s.handleGetDailyStats)

	listSessionsTool := mcp.NewTool(
		"list_sessions",
		mcp.WithDescription("List recent focus sessions, newest first"),
		mcp.WithNumber(
			"limit",
			mcp.Description("Maximum number of sessions (default: 20)"),
		),
	)
	s.server.AddTool(listSessionsTool, s.handleListSessions)

	addHabitTool := mcp.NewTool(
		"add_habit",
		mcp.WithDescription("Add a habit to break"),
		mcp.WithString(
			"name",
			mcp.Required(),
			mcp.Description("Name of the habit"),
		),
		mcp.WithString(
			"icon",
			mcp.Description("Optional icon name"),
		),
	)
	s.server.AddTool(addHabitTool, s.handleAddHabit)

	s.server.AddTool(
		mcp.NewTool(
			"list_habits",
			mcp.WithDescription("List the habits being tracked"),
		),
		s.handleListHabits,
	)

	deleteHabitTool := mcp.NewTool(
		"delete_habit",
		mcp.WithDescription("Delete a habit"),
		mcp.WithString(
			"habit_id",
			mcp.Required(),
			mcp.Description("The ID of the habit to delete"),
		),
	)
	s.server.AddTool(deleteHabitTool, s.handleDeleteHabit)
}

// Start begins serving MCP requests via stdio.
func (s *Server) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.logger.Debug("mcp server listening on stdio")
	return server.ServeStdio(s.server)
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// IsRunning returns true if the server is active.
func (s *Server) IsRunning() bool {
	if s.ctx == nil {
		return false
	}
	return s.ctx.Err() == nil
}

// Ensure Server implements ports.MCPHandler.
var _ ports.MCPHandler = (*Server)(nil)

func (s *Server) handleGetState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state, err := s.stateProvider.GetCurrentState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current state: %w", err)
	}

	snap := state.Engine
	result := map[string]interface{}{
		"state":          string(snap.State),
		"active_session": nil,
		"elapsed":        snap.Elapsed.Round(time.Second).String(),
		"goal_reached":   snap.GoalReached,
		"today_stats":    statToMap(state.Today),
	}
	if snap.Session != nil {
		session := sessionToMap(*snap.Session)
		if snap.Session.PlannedDuration != nil {
			session["remaining_time"] = snap.Remaining().Round(time.Second).String()
			session["progress"] = snap.Progress()
		}
		result["active_session"] = session
	}

	return jsonResult(result)
}

func (s *Server) handleStartSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var tag *string
	if t := request.GetString("tag", ""); t != "" {
		tag = &t
	}

	var planned *time.Duration
	// JSON numbers arrive as float64; some clients send strings.
	if m := request.GetFloat("planned_minutes", 0); m > 0 {
		d := time.Duration(m * float64(time.Minute))
		planned = &d
	} else if raw := request.GetString("planned_minutes", ""); raw != "" {
		if m, err := strconv.Atoi(raw); err == nil && m > 0 {
			d := time.Duration(m) * time.Minute
			planned = &d
		}
	}

	session, err := s.stateProvider.StartSession(ctx, tag, planned)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to start session: %v", err)), nil
	}

	return jsonResult(sessionToMap(*session))
}

func (s *Server) handlePauseSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, ok := s.stateProvider.PauseSession(ctx)
	if !ok {
		return mcp.NewToolResultText("no running session to pause"), nil
	}
	result := sessionToMap(*session)
	result["status"] = string(domain.StatePaused)
	return jsonResult(result)
}

func (s *Server) handleResumeSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, ok := s.stateProvider.ResumeSession(ctx)
	if !ok {
		return mcp.NewToolResultText("no paused session to resume"), nil
	}
	result := sessionToMap(*session)
	result["status"] = string(domain.StateRunning)
	return jsonResult(result)
}

func (s *Server) handleLogDistraction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	description, err := request.RequireString("description")
	if err != nil {
		return mcp.NewToolResultError("description is required: " + err.Error()), nil
	}

	record, ok := s.stateProvider.LogDistraction(ctx, description)
	if !ok {
		return mcp.NewToolResultText(noActiveSession + ": distraction not recorded"), nil
	}

	return jsonResult(map[string]interface{}{
		"id":          record.ID,
		"description": record.Description,
		"timestamp":   record.Timestamp.Format(timeLayout),
	})
}

func (s *Server) handleEndSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, ok := s.stateProvider.EndSession(ctx)
	if !ok {
		return mcp.NewToolResultText(noActiveSession + " to end"), nil
	}

	result := sessionToMap(*session)
	result["summary"] = domain.Summary(*session, time.Now())
	return jsonResult(result)
}

func (s *Server) handleGetDailyStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date := request.GetString("date", "")

	stat, err := s.stateProvider.GetDailyStats(ctx, date)
	if errors.Is(err, domain.ErrInvalidDate) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily stats: %w", err)
	}

	return jsonResult(statToMap(*stat))
}

func (s *Server) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := int(request.GetFloat("limit", defaultSessionList))
	if limit <= 0 {
		limit = defaultSessionList
	}

	sessions, err := s.stateProvider.ListSessions(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	list := make([]map[string]interface{}, 0, len(sessions))
	for _, session := range sessions {
		list = append(list, sessionToMap(*session))
	}

	return jsonResult(map[string]interface{}{
		"sessions":    list,
		"total_count": len(list),
	})
}

func (s *Server) handleAddHabit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name is required: " + err.Error()), nil
	}

	habit, err := s.stateProvider.AddHabit(ctx, name, request.GetString("icon", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to add habit: %v", err)), nil
	}

	return jsonResult(habitToMap(habit))
}

func (s *Server) handleListHabits(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	habits, err := s.stateProvider.ListHabits(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}

	list := make([]map[string]interface{}, 0, len(habits))
	for _, h := range habits {
		list = append(list, habitToMap(h))
	}

	return jsonResult(map[string]interface{}{
		"habits":      list,
		"total_count": len(list),
	})
}

func (s *Server) handleDeleteHabit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("habit_id")
	if err != nil {
		return mcp.NewToolResultError("habit_id is required: " + err.Error()), nil
	}

	if err := s.stateProvider.DeleteHabit(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete habit: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("habit %s deleted", id)), nil
}

func sessionToMap(session domain.FocusSession) map[string]interface{} {
	data := map[string]interface{}{
		"id":           session.ID,
		"start_time":   session.StartTime.Format(timeLayout),
		"focus_score":  session.FocusScore,
		"distractions": len(session.Distractions),
	}
	if session.Tag != nil {
		data["tag"] = *session.Tag
	}
	if session.PlannedDuration != nil {
		data["planned_duration"] = session.PlannedDuration.String()
	}
	if session.EndTime != nil {
		data["end_time"] = session.EndTime.Format(timeLayout)
		data["duration_seconds"] = session.DurationSeconds(*session.EndTime)
	}
	return data
}

func statToMap(stat domain.DailyStatistic) map[string]interface{} {
	return map[string]interface{}{
		"date":              stat.Date,
		"session_count":     stat.SessionCount,
		"total_focus_time":  stat.TotalFocusDuration().String(),
		"avg_focus_score":   stat.AvgProductivityScore,
		"distraction_count": stat.DistractionCount,
		"intensity":         stat.Intensity(),
	}
}

func habitToMap(h *domain.Habit) map[string]interface{} {
	return map[string]interface{}{
		"id":         h.ID,
		"name":       h.Name,
		"icon":       h.Icon,
		"created_at": h.CreatedAt.Format(timeLayout),
	}
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
