// Package server exposes the audit pipeline over HTTP.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rezonia/nfe-auditor/internal/auth"
	"github.com/rezonia/nfe-auditor/internal/consolidate"
	"github.com/rezonia/nfe-auditor/internal/export"
	"github.com/rezonia/nfe-auditor/internal/model"
	"github.com/rezonia/nfe-auditor/internal/processor"
	"github.com/rezonia/nfe-auditor/internal/reference"
	"github.com/rezonia/nfe-auditor/internal/reference/xlsx"
	"github.com/rezonia/nfe-auditor/internal/validate"
)

// Config holds server configuration
type Config struct {
	Address       string
	DataDir       string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	Debug         bool
	CSTPrecedence bool
}

// Server represents the HTTP API server
type Server struct {
	config   *Config
	router   *gin.Engine
	pipeline *processor.Pipeline
	tables   *xlsx.Store
	users    *auth.Store
}

// NewServer creates a new API server. DataDir hosts the reference table
// spreadsheets and the users file; when empty, validation runs against empty
// tables and the admin endpoints are disabled.
func NewServer(config *Config) (*Server, error) {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if config.Debug {
		router.Use(gin.Logger())
	}

	var tables *xlsx.Store
	var users *auth.Store
	if config.DataDir != "" {
		var err error
		tables, err = xlsx.NewStore(config.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open reference table store: %w", err)
		}
		users = auth.NewStore(config.DataDir)
	}

	var validateOpts []validate.Option
	if config.CSTPrecedence {
		validateOpts = append(validateOpts, validate.WithCSTPrecedence())
	}
	pipelineOpts := []processor.Option{
		processor.WithValidateOptions(validateOpts...),
	}
	if tables != nil {
		pipelineOpts = append(pipelineOpts, processor.WithGateway(tables))
	}

	s := &Server{
		config:   config,
		router:   router,
		pipeline: processor.NewPipeline(pipelineOpts...),
		tables:   tables,
		users:    users,
	}

	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/process/xml", s.handleProcessXML)
		v1.POST("/audit", s.handleAudit)
		v1.POST("/validate", s.handleValidate)
		v1.POST("/report", s.handleReport)
		v1.POST("/info", s.handleInfo)

		v1.GET("/tables/status", s.handleTableStatus)
		v1.PUT("/tables/:key", s.requireAdmin, s.handleTableImport)
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	return srv.ListenAndServe()
}

// Handler returns the http.Handler for use with custom servers and tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// requireAdmin gates mutating endpoints behind basic auth against the user
// store, admin role only.
func (s *Server) requireAdmin(c *gin.Context) {
	if s.users == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{Error: "user store not configured"})
		return
	}

	username, password, ok := c.Request.BasicAuth()
	if !ok {
		c.Header("WWW-Authenticate", `Basic realm="nfe-auditor"`)
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}

	identity, err := s.users.Authenticate(username, password)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to check credentials"})
		return
	}
	if identity == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
		return
	}
	if identity.Role != auth.RoleAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "admin role required"})
		return
	}

	c.Next()
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleProcessXML(c *gin.Context) {
	body, ok := rawBody(c)
	if !ok {
		return
	}

	doc, err := s.pipeline.Extract(processor.Payload{Name: "upload.xml", Data: body})
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (s *Server) handleAudit(c *gin.Context) {
	result, ok := s.runAudit(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleReport(c *gin.Context) {
	result, ok := s.runAudit(c)
	if !ok {
		return
	}

	workbook, err := export.Workbook(result)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	filename := fmt.Sprintf("xml_fiscal_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", workbook)
}

// runAudit reads the request payload (XML, or ZIP of XMLs) and runs the full
// pipeline over it.
func (s *Server) runAudit(c *gin.Context) (*processor.Result, bool) {
	body, ok := rawBody(c)
	if !ok {
		return nil, false
	}

	name := c.Query("filename")
	if name == "" {
		name = "upload"
	}

	payloads, err := processor.ExpandPayloads(name, body)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return nil, false
	}
	if len(payloads) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "no XML payloads found"})
		return nil, false
	}

	runValidation := c.DefaultQuery("validate", "true") != "false"
	keys := consolidate.KeysFor(c.Query("by"))

	result, err := s.pipeline.Audit(payloads, keys, runValidation)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return nil, false
	}
	return result, true
}

func (s *Server) handleValidate(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}

	var tables reference.Tables
	if s.tables != nil {
		tables = s.tables.Tables()
	}

	var opts []validate.Option
	if s.config.CSTPrecedence {
		opts = append(opts, validate.WithCSTPrecedence())
	}
	findings := validate.NewEngine(opts...).Validate(req.Items, tables)

	resp := ValidateResponse{Findings: findings}
	for _, f := range findings {
		switch f.Severity {
		case model.SeverityError:
			resp.Errors++
		case model.SeverityWarning:
			resp.Warnings++
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleInfo(c *gin.Context) {
	body, ok := rawBody(c)
	if !ok {
		return
	}

	format := processor.DetectFormat(body)
	resp := InfoResponse{Format: string(format), Size: len(body)}

	if payloads, err := processor.ExpandPayloads("upload", body); err == nil {
		resp.Payloads = len(payloads)
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleTableStatus(c *gin.Context) {
	if s.tables == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "reference table store not configured"})
		return
	}
	c.JSON(http.StatusOK, s.tables.StatusAll())
}

func (s *Server) handleTableImport(c *gin.Context) {
	body, ok := rawBody(c)
	if !ok {
		return
	}

	status, err := s.tables.Import(c.Param("key"), body)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}

func rawBody(c *gin.Context) ([]byte, bool) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "failed to read request body"})
		return nil, false
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "empty request body"})
		return nil, false
	}
	return body, true
}
