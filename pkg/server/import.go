package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/denysvitali/fatture/pkg/importer"
	"github.com/denysvitali/fatture/pkg/indexer"
)

// handleImport imports the files of a multipart upload (field "files") as
// one batch and answers with the batch report.
func (s *Server) handleImport(c *gin.Context) {
	if s.importer == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "import is not configured"})
		return
	}
	if c.Request.ContentLength > s.maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadSize)
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, badRequest)
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files"})
		return
	}

	items := make([]importer.SourceItem, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			log.Errorf("unable to open upload %s: %v", h.Filename, err)
			c.JSON(http.StatusInternalServerError, internalServerError)
			return
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			log.Errorf("unable to read upload %s: %v", h.Filename, err)
			c.JSON(http.StatusInternalServerError, internalServerError)
			return
		}
		items = append(items, importer.FromBytes(h.Filename, content))
	}

	report := s.importer.ImportBatch(c.Request.Context(), items)
	c.JSON(http.StatusOK, report)
}

type SearchRequest struct {
	SearchTerm string `json:"searchTerm"`
	Size       int    `json:"size"`
}

func (s *Server) handleSearch(c *gin.Context) {
	if s.index == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "search is not configured"})
		return
	}
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SearchTerm == "" {
		c.JSON(http.StatusBadRequest, badRequest)
		return
	}
	res, err := s.index.Search(c.Request.Context(), req.SearchTerm, req.Size)
	if err != nil {
		log.Errorf("unable to perform search: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "search unavailable"})
		return
	}
	if res == nil {
		res = &indexer.SearchResult{Hits: []indexer.Hit{}}
	}
	c.JSON(http.StatusOK, res)
}
