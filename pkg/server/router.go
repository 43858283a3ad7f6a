// Package server 提供 HTTP Server 功能
package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/KodaTao/SessionAdapter/pkg/adapter"
	"github.com/KodaTao/SessionAdapter/pkg/observability"
	"github.com/KodaTao/SessionAdapter/pkg/session"
)

// Server HTTP 服务器
type Server struct {
	app    *adapter.App
	engine *gin.Engine
	config *ServerConfig
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string
	Port int
	Mode string // debug, release, test
}

// NewServer 创建 HTTP 服务器
func NewServer(app *adapter.App, config *ServerConfig) *Server {
	// 设置 Gin 模式
	switch config.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()

	// 添加中间件
	engine.Use(gin.Recovery())
	engine.Use(LoggerMiddleware())
	engine.Use(CORSMiddleware())

	server := &Server{
		app:    app,
		engine: engine,
		config: config,
	}

	// 注册路由
	server.setupRoutes()

	return server
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	// 健康检查
	s.engine.GET("/health", s.healthCheck)

	// API v1
	v1 := s.engine.Group("/api/v1")
	{
		// 消息入口：原始消息进，线格式应答出
		v1.POST("/messages", s.handleMessage)

		// Session 管理
		v1.GET("/sessions", s.listSessions)
		v1.POST("/sessions", s.createSession)
		v1.DELETE("/sessions/:id", s.deleteSession)
		v1.GET("/sessions/:id/messages", s.listSessionMessages)

		// 任务
		v1.GET("/tasks/types", s.listTaskTypes)
		v1.GET("/tasks", s.listTaskRecords)
	}
}

// Run 启动服务器
func (s *Server) Run() error {
	addr := s.config.Host + ":" + itoa(s.config.Port)
	observability.Info("Starting HTTP server", "address", addr)
	return s.engine.Run(addr)
}

// GetEngine 获取 Gin 引擎（用于测试）
func (s *Server) GetEngine() *gin.Engine {
	return s.engine
}

// 健康检查
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

// 消息入口
// 请求体原样透传给适配器，应答已经是序列化好的 JSON
func (s *Server) handleMessage(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body: " + err.Error(),
		})
		return
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "message is required",
		})
		return
	}

	resp := s.app.GetAdapter().HandleMessage(c.Request.Context(), string(body))
	c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(resp))
}

// 列出用户的 Session
func (s *Server) listSessions(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "user_id is required",
		})
		return
	}

	sessions, err := s.app.GetSessionService().GetUserSessions(userID)
	if err != nil {
		observability.Error("List sessions failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "List sessions failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// createSessionRequest 创建 Session 的请求体
type createSessionRequest struct {
	Title            string `json:"title"`
	AgentID          string `json:"agent_id"`
	AgentName        string `json:"agent_name"`
	AgentDescription string `json:"agent_description"`
	AgentAddress     string `json:"agent_address"`
	CreatorID        string `json:"creator_id"`
}

// 创建 Session
func (s *Server) createSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	sess, err := s.app.GetSessionService().CreateSession(&session.Session{
		Title:            req.Title,
		AgentID:          req.AgentID,
		AgentName:        req.AgentName,
		AgentDescription: req.AgentDescription,
		AgentAddress:     req.AgentAddress,
		CreatorID:        req.CreatorID,
	})
	if err != nil {
		if errors.Is(err, session.ErrCreatorRequired) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		observability.Error("Create session failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Create session failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, sess)
}

// 删除 Session
func (s *Server) deleteSession(c *gin.Context) {
	id := c.Param("id")
	userID := c.Query("user_id")

	err := s.app.GetSessionService().DeleteSession(id, userID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "Session deleted"})
	case errors.Is(err, session.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found: " + id})
	case errors.Is(err, session.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed to delete session: " + id})
	default:
		observability.Error("Delete session failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Delete session failed: " + err.Error(),
		})
	}
}

// 列出 Session 的历史消息
func (s *Server) listSessionMessages(c *gin.Context) {
	id := c.Param("id")
	userID := c.Query("user_id")

	messages, err := s.app.GetSessionService().GetSessionMessages(id, userID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"messages": messages,
			"count":    len(messages),
		})
	case errors.Is(err, session.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found: " + id})
	case errors.Is(err, session.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed to read session: " + id})
	default:
		observability.Error("List messages failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "List messages failed: " + err.Error(),
		})
	}
}

// 列出可用任务类型
func (s *Server) listTaskTypes(c *gin.Context) {
	types := s.app.GetTaskManager().AvailableTasks()
	c.JSON(http.StatusOK, gin.H{
		"task_types": types,
		"count":      len(types),
	})
}

// 列出最近的任务执行记录
func (s *Server) listTaskRecords(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	records, err := s.app.GetTaskStore().ListRecent(limit)
	if err != nil {
		observability.Error("List tasks failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "List tasks failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": records,
		"count": len(records),
	})
}

// LoggerMiddleware 日志中间件
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		observability.Info("HTTP request",
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency_ms", latency.Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}

// CORSMiddleware 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// itoa 简单的整数转字符串
func itoa(n int) string {
	if n == 0 {
		return "0"
	}

	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
