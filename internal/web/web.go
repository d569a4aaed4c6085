package web

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/taskmind/taskmind/internal/ai"
	"github.com/taskmind/taskmind/internal/contexts"
	"github.com/taskmind/taskmind/internal/db"
	"github.com/taskmind/taskmind/internal/model"
	"github.com/taskmind/taskmind/internal/tasks"
)

// TaskManager is the task-collection surface the handlers use.
type TaskManager interface {
	Load(ctx context.Context) error
	Create(ctx context.Context, input db.TaskInput) (model.Task, error)
	Update(ctx context.Context, taskID string, update db.TaskUpdate) (model.Task, error)
	Delete(ctx context.Context, taskID string) error
	ToggleStatus(ctx context.Context, taskID string) (model.Task, error)
	SetFilter(filter model.Filter)
	FilteredView() []model.Task
	All() []model.Task
	Enhance(ctx context.Context, title, description string) model.Enhancement
}

// ContextManager is the context-collection surface the handlers use.
type ContextManager interface {
	Load(ctx context.Context) error
	AddContext(ctx context.Context, content, sourceType string) (model.Context, error)
	All() []model.Context
}

// Session holds one authenticated user's collection managers.
type Session struct {
	Tasks    TaskManager
	Contexts ContextManager
}

// SessionFactory builds a session for a user id. Injectable for tests.
type SessionFactory func(userID string) *Session

// Server is the TaskMind HTTP server. Authentication is delegated to an
// external provider; the caller's identity arrives as the X-User-ID header.
type Server struct {
	router     *gin.Engine
	newSession SessionFactory

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewServer wires the production session factory over the store and the AI
// services.
func NewServer(store *db.Store, client ai.CompletionClient) *Server {
	enhancer := ai.NewEnhancer(client)
	extractor := ai.NewExtractor(client)

	return newServerWith(func(userID string) *Session {
		return &Session{
			Tasks:    tasks.NewManager(store, enhancer, userID),
			Contexts: contexts.NewManager(store, extractor, userID),
		}
	})
}

func newServerWith(factory SessionFactory) *Server {
	s := &Server{
		router:     gin.Default(),
		newSession: factory,
		sessions:   make(map[string]*Session),
	}
	s.routes(s.router)
	return s
}

func (s *Server) routes(router *gin.Engine) {
	api := router.Group("/api", requireUser())
	{
		api.GET("/tasks", s.handleListTasks)
		api.POST("/tasks", s.handleCreateTask)
		api.PUT("/tasks/:id", s.handleUpdateTask)
		api.DELETE("/tasks/:id", s.handleDeleteTask)
		api.POST("/tasks/:id/toggle", s.handleToggleTask)
		api.POST("/tasks/enhance", s.handleEnhanceTask)
		api.GET("/contexts", s.handleListContexts)
		api.POST("/contexts", s.handleAddContext)
		api.GET("/metrics", s.handleMetrics)
	}
}

// Run starts the web server.
func (s *Server) Run(addr string) error {
	log.Printf("taskmind server listening on %s", addr)
	return s.router.Run(addr)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-User-ID") == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "X-User-ID header required",
			})
			return
		}
		c.Next()
	}
}

// session returns the caller's session, creating and loading it on first
// touch. Load failures are returned so the caller sees the store error.
func (s *Server) session(c *gin.Context) (*Session, error) {
	userID := c.GetHeader("X-User-ID")

	s.mu.Lock()
	session, ok := s.sessions[userID]
	if !ok {
		session = s.newSession(userID)
		s.sessions[userID] = session
	}
	s.mu.Unlock()

	if !ok {
		if err := s.loadSession(c, session); err != nil {
			s.mu.Lock()
			delete(s.sessions, userID)
			s.mu.Unlock()
			return nil, err
		}
	}
	return session, nil
}

func (s *Server) loadSession(c *gin.Context, session *Session) error {
	if err := session.Tasks.Load(c.Request.Context()); err != nil {
		return err
	}
	return session.Contexts.Load(c.Request.Context())
}
