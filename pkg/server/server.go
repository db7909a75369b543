package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/duynguyendang/pyscope/internal/manager"
	"github.com/duynguyendang/pyscope/pkg/service/ai"
)

// Server holds the state for the REST API server.
type Server struct {
	manager       *manager.SourceManager
	geminiService *ai.GeminiService
	defaultLang   string
	router        *gin.Engine

	// MaxSourceBytes overrides the analyzer's parse bound when positive.
	MaxSourceBytes int
}

// NewServer creates a new Server instance. gemini may be nil; the explain
// endpoint then reports the AI service as unavailable.
func NewServer(mgr *manager.SourceManager, defaultLang string, gemini *ai.GeminiService) *Server {
	r := gin.Default()
	s := &Server{
		manager:       mgr,
		geminiService: gemini,
		defaultLang:   defaultLang,
		router:        r,
	}
	s.setupRoutes()
	return s
}

// Run starts the server on the specified address.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.POST("/v1/files", s.handleUpload)
	s.router.GET("/v1/files", s.handleFiles)
	s.router.GET("/v1/analyze", s.handleAnalyze)
	s.router.GET("/v1/source", s.handleSource)
	s.router.POST("/v1/patch", s.handlePatch)
	s.router.GET("/v1/symbols", s.handleSymbols)
	s.router.GET("/v1/graph", s.handleGraph)
	s.router.GET("/v1/explain", s.handleExplain)
}

// Health check
func (s *Server) healthCheck(c *gin.Context) {
	c.Status(http.StatusOK)
}
