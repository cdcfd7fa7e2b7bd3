package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/denysvitali/fatture/pkg/models"
	"github.com/denysvitali/fatture/pkg/store"
	"github.com/denysvitali/fatture/pkg/xmltree"
)

const dateLayout = time.DateOnly

type listResponse struct {
	Total    int64            `json:"total"`
	Invoices []models.Invoice `json:"invoices"`
}

func (s *Server) handleListInvoices(c *gin.Context) {
	var f store.ListFilter
	f.Issuer = c.Query("issuer")
	if v := c.Query("paid"); v != "" {
		paid, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, badRequest)
			return
		}
		f.Paid = &paid
	}
	var ok bool
	if f.From, ok = queryDate(c, "from"); !ok {
		c.JSON(http.StatusBadRequest, badRequest)
		return
	}
	if f.To, ok = queryDate(c, "to"); !ok {
		c.JSON(http.StatusBadRequest, badRequest)
		return
	}
	if f.Limit, ok = queryInt(c, "limit", 100); !ok {
		c.JSON(http.StatusBadRequest, badRequest)
		return
	}
	if f.Offset, ok = queryInt(c, "offset", 0); !ok {
		c.JSON(http.StatusBadRequest, badRequest)
		return
	}

	invoices, total, err := s.store.List(c.Request.Context(), f)
	if err != nil {
		log.Errorf("unable to list invoices: %v", err)
		c.JSON(http.StatusInternalServerError, internalServerError)
		return
	}
	if invoices == nil {
		invoices = []models.Invoice{}
	}
	c.JSON(http.StatusOK, listResponse{Total: total, Invoices: invoices})
}

func queryDate(c *gin.Context, key string) (*time.Time, bool) {
	v := c.Query(key)
	if v == "" {
		return nil, true
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return nil, false
	}
	return &t, true
}

func queryInt(c *gin.Context, key string, def int) (int, bool) {
	v := c.Query(key)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// invoice loads the invoice named by the :id parameter, answering the
// request itself when that fails.
func (s *Server) invoice(c *gin.Context) (*models.Invoice, bool) {
	id, ok := invoiceID(c)
	if !ok {
		return nil, false
	}
	inv, err := s.store.Get(c.Request.Context(), id)
	if !s.storeOK(c, err) {
		return nil, false
	}
	return inv, true
}

func invoiceID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, badRequest)
		return 0, false
	}
	return uint(id), true
}

func (s *Server) storeOK(c *gin.Context, err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, notFound)
		return false
	}
	log.Errorf("store error: %v", err)
	c.JSON(http.StatusInternalServerError, internalServerError)
	return false
}

func (s *Server) handleGetInvoice(c *gin.Context) {
	inv, ok := s.invoice(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (s *Server) handleGetXML(c *gin.Context) {
	inv, ok := s.invoice(c)
	if !ok {
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", xmltree.UTF8(inv.RawXML))
}

// handleRender answers 502 when the renderer fails: the stored data is fine,
// only the display is not available.
func (s *Server) handleRender(c *gin.Context) {
	if s.renderer == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "rendering is not configured"})
		return
	}
	inv, ok := s.invoice(c)
	if !ok {
		return
	}
	if inv.RawXML == "" {
		c.JSON(http.StatusNotFound, notFound)
		return
	}
	html, err := s.renderer.Render(c.Request.Context(), inv.RawXML)
	if err != nil {
		log.Warnf("unable to render invoice %d: %v", inv.ID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to render invoice"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

func (s *Server) handleMarkPaid(c *gin.Context) {
	id, ok := invoiceID(c)
	if !ok {
		return
	}
	inv, err := s.store.MarkPaid(c.Request.Context(), id)
	if !s.storeOK(c, err) {
		return
	}
	s.reindex(c, inv)
	c.JSON(http.StatusOK, inv)
}

type dueDateRequest struct {
	// DueDate is YYYY-MM-DD; null clears it.
	DueDate *string `json:"dueDate"`
}

func (s *Server) handleSetDueDate(c *gin.Context) {
	id, ok := invoiceID(c)
	if !ok {
		return
	}
	var req dueDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, badRequest)
		return
	}
	var due *time.Time
	if req.DueDate != nil {
		t, err := time.Parse(dateLayout, *req.DueDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, badRequest)
			return
		}
		due = &t
	}
	if !s.storeOK(c, s.store.SetDueDate(c.Request.Context(), id, due)) {
		return
	}
	inv, ok := s.invoice(c)
	if !ok {
		return
	}
	s.reindex(c, inv)
	c.JSON(http.StatusOK, inv)
}

func (s *Server) handleDeleteInvoice(c *gin.Context) {
	inv, ok := s.invoice(c)
	if !ok {
		return
	}
	if !s.storeOK(c, s.store.Delete(c.Request.Context(), inv.ID)) {
		return
	}
	if s.index != nil {
		if err := s.index.Delete(c.Request.Context(), inv.Fingerprint); err != nil {
			log.Warnf("unable to remove %s from the index: %v", inv.Label(), err)
		}
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) reindex(c *gin.Context, inv *models.Invoice) {
	if s.index == nil {
		return
	}
	if err := s.index.Index(c.Request.Context(), inv); err != nil {
		log.Warnf("unable to update index for %s: %v", inv.Label(), err)
	}
}

func (s *Server) handleIssuers(c *gin.Context) {
	issuers, err := s.store.Issuers(c.Request.Context())
	if !s.storeOK(c, err) {
		return
	}
	if issuers == nil {
		issuers = []string{}
	}
	c.JSON(http.StatusOK, issuers)
}

type deadlinesResponse struct {
	Today    string           `json:"today"`
	Days     int              `json:"days"`
	Overdue  []models.Invoice `json:"overdue"`
	Upcoming []models.Invoice `json:"upcoming"`
}

func (s *Server) handleDeadlines(c *gin.Context) {
	days, ok := queryInt(c, "days", 7)
	if !ok {
		c.JSON(http.StatusBadRequest, badRequest)
		return
	}
	today := s.now()
	overdue, upcoming, err := s.store.Deadlines(c.Request.Context(), today, days)
	if !s.storeOK(c, err) {
		return
	}
	if overdue == nil {
		overdue = []models.Invoice{}
	}
	if upcoming == nil {
		upcoming = []models.Invoice{}
	}
	c.JSON(http.StatusOK, deadlinesResponse{
		Today:    store.Day(today).Format(dateLayout),
		Days:     days,
		Overdue:  overdue,
		Upcoming: upcoming,
	})
}
