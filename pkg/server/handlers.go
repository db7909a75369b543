package server

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/duynguyendang/pyscope/internal/manager"
	"github.com/duynguyendang/pyscope/pkg/analyzer"
	"github.com/duynguyendang/pyscope/pkg/common/errors"
	"github.com/duynguyendang/pyscope/pkg/export"
	"github.com/duynguyendang/pyscope/pkg/search"
)

// maxUploadBytes bounds the multipart upload body. Larger sources would be
// rejected by the analyzer anyway.
const maxUploadBytes = 4 << 20

// handleUpload stores an uploaded source file and returns its id and revision.
// The file arrives as the multipart "file" part; an optional "id" form field
// overrides the generated id, which lets a client re-upload under a stable name.
func (s *Server) handleUpload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		handleError(c, errors.NewAppError(http.StatusBadRequest, errors.KindBadRequest, "Missing file part", err))
		return
	}
	if header.Size > maxUploadBytes {
		handleError(c, fmt.Errorf("%w: upload is %d bytes", errors.ErrTooLarge, header.Size))
		return
	}

	id := c.PostForm("id")
	if id == "" {
		id = uuid.NewString() + filepath.Ext(header.Filename)
	}
	if !analyzer.SupportsPath(id) && !analyzer.SupportsPath(header.Filename) {
		handleError(c, errors.NewAppError(http.StatusBadRequest, errors.KindBadRequest,
			fmt.Sprintf("Unsupported file type, expected one of: %s", strings.Join(analyzer.SupportedExtensions(), ", ")), nil))
		return
	}

	f, err := header.Open()
	if err != nil {
		handleError(c, err)
		return
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		handleError(c, err)
		return
	}

	revision, err := s.manager.Put(id, string(content))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "revision": revision})
}

// handleFiles lists the stored source records.
func (s *Server) handleFiles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"files": s.manager.List()})
}

// handleAnalyze runs the structure and call graph extraction for a file.
// A source that fails to parse is not an HTTP error: the response is a
// normal tree payload with the error field set, so clients render the
// failure in place of the structure.
func (s *Server) handleAnalyze(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		handleError(c, errors.NewAppError(http.StatusBadRequest, errors.KindBadRequest, "Missing id parameter", nil))
		return
	}

	analysis, revision, err := s.analyze(c, id)
	if err != nil {
		if stderrors.Is(err, errors.ErrSyntax) {
			c.JSON(http.StatusOK, gin.H{"tree": analyzer.ErrorTree(err.Error()), "revision": revision})
			return
		}
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tree": analysis.Tree, "revision": revision})
}

// handleSource returns the current text of a file, optionally sliced to a
// 1-indexed inclusive line range. Out-of-range values are clamped rather than
// rejected; an empty window yields an empty body.
func (s *Server) handleSource(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		handleError(c, errors.NewAppError(http.StatusBadRequest, errors.KindBadRequest, "Missing id parameter", nil))
		return
	}

	text, revision, err := s.manager.Get(id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.Header("X-Revision", strconv.FormatInt(revision, 10))

	start, err := strconv.Atoi(c.Query("start"))
	if err != nil {
		start = 1
	}
	end, err := strconv.Atoi(c.Query("end"))
	if err != nil {
		end = -1
	}

	lines := strings.Split(text, "\n")
	if start < 1 {
		start = 1
	}
	if end == -1 || end > len(lines) {
		end = len(lines)
	}
	if start > len(lines) || start > end {
		c.String(http.StatusOK, "")
		return
	}

	c.String(http.StatusOK, strings.Join(lines[start-1:end], "\n"))
}

// handlePatch replaces a line range of a stored file with new text.
func (s *Server) handlePatch(c *gin.Context) {
	var req struct {
		ID          string `json:"id"`
		StartLine   int    `json:"start_line"`
		EndLine     int    `json:"end_line"`
		Replacement string `json:"replacement"`
		Revision    int64  `json:"revision"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, errors.NewAppError(http.StatusBadRequest, errors.KindBadRequest, "Invalid request body", err))
		return
	}
	if req.ID == "" {
		handleError(c, errors.NewAppError(http.StatusBadRequest, errors.KindBadRequest, "Missing id field", nil))
		return
	}

	_, revision, err := s.manager.Patch(req.ID, req.StartLine, req.EndLine, req.Replacement, req.Revision)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  fmt.Sprintf("Replaced lines %d-%d of %s", req.StartLine, req.EndLine, req.ID),
		"revision": revision,
	})
}

// handleSymbols provides fuzzy symbol search over a file's definition ids.
func (s *Server) handleSymbols(c *gin.Context) {
	id := c.Query("id")
	query := c.Query("q")
	if id == "" {
		handleError(c, errors.NewAppError(http.StatusBadRequest, errors.KindBadRequest, "Missing id parameter", nil))
		return
	}

	analysis, _, err := s.analyze(c, id)
	if err != nil {
		handleError(c, err)
		return
	}

	ids := make([]string, 0, len(analysis.Index))
	for defID := range analysis.Index {
		ids = append(ids, defID)
	}
	if query == "" {
		c.JSON(http.StatusOK, gin.H{"symbols": ids})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbols": search.Rank(query, ids, 10)})
}

// handleGraph returns the file's call graph in D3 force-layout format.
func (s *Server) handleGraph(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		handleError(c, errors.NewAppError(http.StatusBadRequest, errors.KindBadRequest, "Missing id parameter", nil))
		return
	}

	analysis, _, err := s.analyze(c, id)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, export.FromTree(analysis.Tree, analysis.Index))
}

// handleExplain asks the AI service for a natural language summary of one
// definition.
func (s *Server) handleExplain(c *gin.Context) {
	id := c.Query("id")
	defID := c.Query("def")
	if id == "" || defID == "" {
		handleError(c, errors.NewAppError(http.StatusBadRequest, errors.KindBadRequest, "Missing id or def parameter", nil))
		return
	}

	if s.geminiService == nil {
		handleError(c, errors.NewAppError(http.StatusServiceUnavailable, errors.KindIOFailure, "AI service not initialized", nil))
		return
	}

	analysis, _, err := s.analyze(c, id)
	if err != nil {
		handleError(c, err)
		return
	}

	def, ok := analysis.Index[defID]
	if !ok {
		handleError(c, fmt.Errorf("%w: definition %s", errors.ErrNotFound, defID))
		return
	}

	explanation, err := s.geminiService.Explain(c.Request.Context(), def)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": defID, "explanation": explanation})
}

// analyze runs the pipeline for the current revision of id, reusing a cached
// result when one exists.
func (s *Server) analyze(c *gin.Context, id string) (*manager.Analysis, int64, error) {
	text, revision, err := s.manager.Get(id)
	if err != nil {
		return nil, 0, err
	}

	if cached, ok := s.manager.CachedAnalysis(id, revision); ok {
		return cached, revision, nil
	}

	lang := analyzer.LanguageForPath(id)
	if !analyzer.SupportsPath(id) {
		if l := analyzer.LanguageByName(s.defaultLang); l != nil {
			lang = l
		}
	}

	a := analyzer.New(lang)
	if s.MaxSourceBytes > 0 {
		a.MaxSourceBytes = s.MaxSourceBytes
	}
	tree, index, err := a.Analyze(c.Request.Context(), []byte(text))
	if err != nil {
		return nil, revision, err
	}

	analysis := &manager.Analysis{Tree: tree, Index: index}
	s.manager.StoreAnalysis(id, revision, analysis)
	return analysis, revision, nil
}

// handleError maps any error to its HTTP response.
func handleError(c *gin.Context, err error) {
	appErr := errors.MapError(err)
	c.JSON(appErr.Code, gin.H{"error": appErr.Message, "kind": appErr.Kind})
}
