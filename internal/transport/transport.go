// Package transport implements the HTTP/SSE MCP transport (C15): bearer
// authentication, JSON-RPC request dispatch into the Tool Dispatcher, and
// opening a session on a caller's first request. Sessions are not closed
// on disconnect; they expire through the session reaper. Router
// construction follows the teacher's cmd/registry/main.go gin wiring: CORS,
// security headers, a body-size limiter, rate limiting keyed by bearer
// token (per-IP only for requests without one), and a zap request logger,
// in that order.
package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/quoth-dev/quoth-mcp/internal/auth"
	"github.com/quoth-dev/quoth-mcp/internal/mcp"
	"github.com/quoth-dev/quoth-mcp/internal/session"
)

// Config holds the router's tunables, sourced from config.Config by the
// caller rather than read from viper directly, so the transport package
// stays independent of the config format.
type Config struct {
	CORSOrigins  []string
	RateLimitRPS int
}

// Server wires the Tool Dispatcher behind a gin router exposing one MCP
// JSON-RPC endpoint and the operational endpoints (§4.9, §4.13).
type Server struct {
	registry *mcp.Registry
	verifier *auth.Verifier
	sessions *session.Manager
	log      *zap.Logger

	router *gin.Engine

	callsTotal *prometheus.CounterVec
	callLatency *prometheus.HistogramVec
}

// New constructs a Server and its gin router.
func New(registry *mcp.Registry, verifier *auth.Verifier, sessions *session.Manager, log *zap.Logger, cfg Config) *Server {
	s := &Server{
		registry: registry,
		verifier: verifier,
		sessions: sessions,
		log:      log,
		callsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "quoth_tool_calls_total", Help: "Total MCP tool calls by tool name and outcome."},
			[]string{"tool", "outcome"},
		),
		callLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "quoth_tool_call_duration_seconds", Help: "MCP tool call latency by tool name."},
			[]string{"tool"},
		),
	}
	prometheus.MustRegister(s.callsTotal, s.callLatency)
	s.router = s.buildRouter(cfg)
	return s
}

// Handler returns the http.Handler to pass to http.Server.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) buildRouter(cfg Config) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !containsWildcard(cfg.CORSOrigins),
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	router.Use(func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	})

	// Request body size limit (2 MB — quoth_propose_update's new_content
	// caps at 500000 bytes, plus JSON-RPC envelope overhead).
	router.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 2<<20)
		c.Next()
	})

	if cfg.RateLimitRPS > 0 {
		router.Use(RateLimiter(cfg.RateLimitRPS, cfg.RateLimitRPS*2))
	}

	router.Use(requestLogger(s.log))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/mcp", s.handleRPC)
	router.GET("/mcp/sse", s.handleSSE)

	return router
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// bearerToken extracts the caller's token from the Authorization header,
// falling back to a ?token= query parameter for SSE clients that cannot
// set custom headers (§4.7, §4.13).
func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.Query("token")
}

// rpcRequest is the JSON-RPC 2.0 envelope the MCP client posts.
type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ensureSession opens a session for rec's connection if one isn't already
// live, loading the caller's project memberships via OpenSession. The
// connection id is the caller's resolved (project_id, user_id) rather
// than anything transport-level, so a client reconnecting with the same
// token resumes its session's active project instead of defaulting back
// to the token's claim every call.
func (s *Server) ensureSession(ctx context.Context, rec *auth.Record) string {
	connID := rec.ProjectID.String() + ":" + rec.UserID.String()
	if _, err := s.sessions.Active(connID); err == nil {
		return connID
	}
	if _, err := s.registry.OpenSession(ctx, connID, rec.UserID, rec.ProjectID); err != nil {
		s.log.Warn("failed to open session", zap.Error(err), zap.String("connection_id", connID))
	}
	return connID
}

func (s *Server) handleRPC(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}

	rec, err := s.verifier.Verify(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	var req rpcRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: -32700, Message: "parse error"}})
		return
	}

	connID := s.ensureSession(c.Request.Context(), rec)

	switch req.Method {
	case "initialize":
		c.JSON(http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{"protocolVersion":"2024-11-05","capabilities":{"tools":{}},"serverInfo":{"name":"quoth","version":"1"}}`)})
	case "tools/list":
		defs := s.registry.Definitions()
		result, _ := json.Marshal(gin.H{"tools": defs})
		c.JSON(http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: result})
	case "tools/call":
		var params toolCallParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			c.JSON(http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32602, Message: "invalid params"}})
			return
		}
		start := time.Now()
		out, isErr := s.registry.Call(c.Request.Context(), connID, params.Name, params.Arguments)
		s.callLatency.WithLabelValues(params.Name).Observe(time.Since(start).Seconds())
		outcome := "ok"
		if isErr {
			outcome = "error"
		}
		s.callsTotal.WithLabelValues(params.Name, outcome).Inc()

		content := []gin.H{{"type": "text", "text": out}}
		result, _ := json.Marshal(gin.H{"content": content, "isError": isErr})
		c.JSON(http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: result})
	default:
		c.JSON(http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32601, Message: "method not found"}})
	}
}

// handleSSE serves the MCP SSE transport: an event stream announcing the
// POST endpoint the client should call for subsequent requests, kept
// alive with periodic comment pings until the client disconnects.
func (s *Server) handleSSE(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}
	if _, err := s.verifier.Verify(c.Request.Context(), token); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	endpoint := "/mcp?token=" + token
	c.SSEvent("endpoint", endpoint)
	c.Writer.Flush()

	ticker := time.NewTicker(25 * time.Second)
	defer ticker.Stop()

	notify := c.Writer.CloseNotify()
	for {
		select {
		case <-notify:
			return
		case <-ticker.C:
			c.SSEvent("ping", strconv.FormatInt(time.Now().Unix(), 10))
			c.Writer.Flush()
		}
	}
}
