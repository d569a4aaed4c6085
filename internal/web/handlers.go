package web

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskmind/taskmind/internal/db"
	"github.com/taskmind/taskmind/internal/metrics"
	"github.com/taskmind/taskmind/internal/model"
)

const maxContentSize = 64 << 10 // 64KB of pasted context text

var sourceTypes = map[string]bool{
	model.SourceEmail:   true,
	model.SourceMessage: true,
	model.SourceNote:    true,
	model.SourceMeeting: true,
}

func (s *Server) handleListTasks(c *gin.Context) {
	session, err := s.session(c)
	if err != nil {
		serverError(c, err)
		return
	}

	session.Tasks.SetFilter(model.Filter{
		Category: c.Query("category"),
		Priority: c.Query("priority"),
		Status:   c.Query("status"),
		Search:   c.Query("search"),
	})

	view := session.Tasks.FilteredView()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"tasks":   view,
		"count":   len(view),
	})
}

type taskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	Deadline    string `json:"deadline"`
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var req taskRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		badRequest(c, "title is required")
		return
	}

	deadline, ok := parseDeadline(req.Deadline)
	if !ok {
		badRequest(c, "deadline must be YYYY-MM-DD")
		return
	}

	session, err := s.session(c)
	if err != nil {
		serverError(c, err)
		return
	}

	task, err := session.Tasks.Create(c.Request.Context(), db.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
		Status:      req.Status,
		Deadline:    deadline,
	})
	if err != nil {
		serverError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "task": task})
}

type taskUpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Priority    *string `json:"priority"`
	Status      *string `json:"status"`
	Deadline    *string `json:"deadline"`
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	var req taskUpdateRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	update := db.TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
		Status:      req.Status,
	}
	if req.Deadline != nil {
		deadline, ok := parseDeadline(*req.Deadline)
		if !ok {
			badRequest(c, "deadline must be YYYY-MM-DD")
			return
		}
		update.Deadline = deadline
		update.DeadlineSet = true
	}

	session, err := s.session(c)
	if err != nil {
		serverError(c, err)
		return
	}

	task, err := session.Tasks.Update(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "task": task})
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	session, err := s.session(c)
	if err != nil {
		serverError(c, err)
		return
	}

	if err := session.Tasks.Delete(c.Request.Context(), c.Param("id")); err != nil {
		storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "task deleted"})
}

func (s *Server) handleToggleTask(c *gin.Context) {
	session, err := s.session(c)
	if err != nil {
		serverError(c, err)
		return
	}

	task, err := session.Tasks.ToggleStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "task": task})
}

type enhanceRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (s *Server) handleEnhanceTask(c *gin.Context) {
	var req enhanceRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		badRequest(c, "title is required")
		return
	}

	session, err := s.session(c)
	if err != nil {
		serverError(c, err)
		return
	}

	// Enhancement never fails; degraded model calls come back as the
	// fixed fallback suggestion.
	enhancement := session.Tasks.Enhance(c.Request.Context(), req.Title, req.Description)
	c.JSON(http.StatusOK, gin.H{"success": true, "enhancement": enhancement})
}

func (s *Server) handleListContexts(c *gin.Context) {
	session, err := s.session(c)
	if err != nil {
		serverError(c, err)
		return
	}

	records := session.Contexts.All()
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"contexts": records,
		"count":    len(records),
	})
}

type addContextRequest struct {
	Content    string `json:"content"`
	SourceType string `json:"source_type"`
}

func (s *Server) handleAddContext(c *gin.Context) {
	var req addContextRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		badRequest(c, "content is required")
		return
	}
	if len(req.Content) > maxContentSize {
		badRequest(c, "content exceeds maximum size of 64KB")
		return
	}
	if !sourceTypes[req.SourceType] {
		badRequest(c, "source_type must be one of email, message, note, meeting")
		return
	}

	session, err := s.session(c)
	if err != nil {
		serverError(c, err)
		return
	}

	record, err := session.Contexts.AddContext(c.Request.Context(), req.Content, req.SourceType)
	if err != nil {
		serverError(c, err)
		return
	}

	// Newly extracted tasks live in the store, not yet in the task list;
	// reload so the next task fetch surfaces them.
	if err := session.Tasks.Load(c.Request.Context()); err != nil {
		serverError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "context": record})
}

func (s *Server) handleMetrics(c *gin.Context) {
	session, err := s.session(c)
	if err != nil {
		serverError(c, err)
		return
	}

	all := session.Tasks.All()
	now := time.Now()
	c.JSON(http.StatusOK, gin.H{
		"success":                  true,
		"summary":                  metrics.Summarize(all, now),
		"category_breakdown":       metrics.CategoryBreakdown(all),
		"most_productive_category": metrics.MostProductiveCategory(all),
		"priority_distribution":    metrics.PriorityDistribution(all),
		"weekly_trend":             metrics.WeeklyTrend(all, now),
		"average_task_duration":    metrics.AverageTaskDuration(all),
		"upcoming_deadlines":       metrics.UpcomingDeadlines(all, now),
	})
}

func parseDeadline(value string) (*time.Time, bool) {
	if strings.TrimSpace(value) == "" {
		return nil, true
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, false
	}
	return &parsed, true
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": message})
}

func serverError(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
}

func storeError(c *gin.Context, err error) {
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
		return
	}
	serverError(c, err)
}
