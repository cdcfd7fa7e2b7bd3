// Package server exposes the invoice store over a JSON HTTP API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/docker/go-units"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/denysvitali/fatture/pkg/importer"
	"github.com/denysvitali/fatture/pkg/indexer"
	"github.com/denysvitali/fatture/pkg/models"
	"github.com/denysvitali/fatture/pkg/render"
	"github.com/denysvitali/fatture/pkg/store"
)

var log = logrus.StandardLogger().WithField("package", "server")

const DefaultMaxUploadSize = "32MB"

type Store interface {
	List(ctx context.Context, f store.ListFilter) ([]models.Invoice, int64, error)
	Get(ctx context.Context, id uint) (*models.Invoice, error)
	MarkPaid(ctx context.Context, id uint) (*models.Invoice, error)
	SetDueDate(ctx context.Context, id uint, due *time.Time) error
	Delete(ctx context.Context, id uint) error
	Issuers(ctx context.Context) ([]string, error)
	Deadlines(ctx context.Context, today time.Time, days int) (overdue, upcoming []models.Invoice, err error)
}

type Importer interface {
	ImportBatch(ctx context.Context, items []importer.SourceItem) *importer.BatchReport
}

// Index is the optional search mirror.
type Index interface {
	Index(ctx context.Context, inv *models.Invoice) error
	Delete(ctx context.Context, fingerprint string) error
	Search(ctx context.Context, term string, size int) (*indexer.SearchResult, error)
}

type Config struct {
	Store    Store
	Importer Importer
	Renderer render.Renderer
	Index    Index
	// MaxUploadSize is a human readable size, "32MB" when empty.
	MaxUploadSize string
	Now           func() time.Time
}

type Server struct {
	e             *gin.Engine
	store         Store
	importer      Importer
	renderer      render.Renderer
	index         Index
	maxUploadSize int64
	now           func() time.Time
}

func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	size := cfg.MaxUploadSize
	if size == "" {
		size = DefaultMaxUploadSize
	}
	maxUploadSize, err := units.RAMInBytes(size)
	if err != nil {
		return nil, fmt.Errorf("invalid upload size %q: %w", size, err)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	s := &Server{
		e:             gin.New(),
		store:         cfg.Store,
		importer:      cfg.Importer,
		renderer:      cfg.Renderer,
		index:         cfg.Index,
		maxUploadSize: maxUploadSize,
		now:           now,
	}
	s.e.MaxMultipartMemory = maxUploadSize
	s.initRoutes()
	return s, nil
}

func (s *Server) Run(addr string) error {
	log.Infof("listening on %s", addr)
	return s.e.Run(addr)
}

func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) initRoutes() {
	s.e.Use(gin.Logger())
	s.e.Use(gin.Recovery())
	s.e.Use(cors.Default())

	g := s.e.Group("/api/v1")
	g.GET("/invoices", s.handleListInvoices)
	g.GET("/invoices/:id", s.handleGetInvoice)
	g.DELETE("/invoices/:id", s.handleDeleteInvoice)
	g.GET("/invoices/:id/xml", s.handleGetXML)
	g.GET("/invoices/:id/render", s.handleRender)
	g.POST("/invoices/:id/paid", s.handleMarkPaid)
	g.PUT("/invoices/:id/due-date", s.handleSetDueDate)
	g.GET("/issuers", s.handleIssuers)
	g.GET("/deadlines", s.handleDeadlines)
	g.POST("/import", s.handleImport)
	g.POST("/search", s.handleSearch)
}

var badRequest = gin.H{
	"error": "bad request",
}

var notFound = gin.H{
	"error": "not found",
}

var internalServerError = gin.H{
	"error": "internal server error",
}
