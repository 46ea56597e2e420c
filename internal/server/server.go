// Package server предоставляет HTTP API поверх менеджера задач.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"browserTasks/internal/config"
	"browserTasks/internal/database"
	"browserTasks/internal/logger"
	"browserTasks/internal/script"
	"browserTasks/internal/task"
)

type Server struct {
	cfg     *config.Cfg
	log     *logger.Zap
	manager *task.Manager
	repo    *database.TaskRepository
}

// New создает сервер. repo может быть nil — тогда endpoint архива недоступен.
func New(cfg *config.Cfg, log *logger.Zap, manager *task.Manager, repo *database.TaskRepository) *Server {
	return &Server{
		cfg:     cfg,
		log:     log,
		manager: manager,
		repo:    repo,
	}
}

type createTaskRequest struct {
	Script         *script.AutomationScript `json:"script"`
	Goal           string                   `json:"goal"`
	Variables      map[string]string        `json:"variables"`
	MaxRetries     int                      `json:"max_retries"`
	MaxSteps       int                      `json:"max_steps"`
	StopOnError    *bool                    `json:"stop_on_error"`
	TimeoutSeconds int                      `json:"timeout_seconds"`
	Periodic       bool                     `json:"periodic"`
	PeriodSeconds  int                      `json:"period_seconds"`
}

func (req *createTaskRequest) toSpec() task.Spec {
	spec := task.Spec{
		Script:      req.Script,
		Goal:        req.Goal,
		Variables:   req.Variables,
		MaxRetries:  req.MaxRetries,
		MaxSteps:    req.MaxSteps,
		StopOnError: true,
		Timeout:     time.Duration(req.TimeoutSeconds) * time.Second,
		Periodic:    req.Periodic,
		Period:      time.Duration(req.PeriodSeconds) * time.Second,
	}
	if req.StopOnError != nil {
		spec.StopOnError = *req.StopOnError
	}
	return spec
}

func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%s", s.cfg.App.Host, s.cfg.App.Port)
	s.log.Info("Сервер запущен", zap.String("addr", addr))
	return s.router().Run(addr)
}

func (s *Server) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	// Простейший лог-мидлвар
	r.Use(func(c *gin.Context) {
		s.log.Info("HTTP",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/api/tasks", s.createTask)
	r.GET("/api/tasks", s.listTasks)
	r.GET("/api/tasks/archive", s.listArchive)
	r.GET("/api/tasks/:id", s.getTask)
	r.POST("/api/tasks/:id/cancel", s.cancelTask)
	r.DELETE("/api/tasks/history", s.clearHistory)

	return r
}

func (s *Server) createTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	t, err := s.manager.Create(req.toSpec())
	if err != nil {
		if errors.Is(err, task.ErrInvalidSpec) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.log.Error("Ошибка создания задачи", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"task_id": t.ID, "status": t.Status})
}

func (s *Server) getTask(c *gin.Context) {
	t, err := s.manager.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) cancelTask(c *gin.Context) {
	t, err := s.manager.Cancel(c.Param("id"))
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) listTasks(c *gin.Context) {
	c.JSON(http.StatusOK, s.manager.List())
}

// listArchive отдает задачи из БД: историю, пережившую перезапуск процесса.
func (s *Server) listArchive(c *gin.Context) {
	if s.repo == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "архив недоступен без БД"})
		return
	}
	records, err := s.repo.ListRecords(50, 0)
	if err != nil {
		s.log.Error("Ошибка чтения архива задач", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) clearHistory(c *gin.Context) {
	removed := s.manager.ClearHistory()
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
