// Package httpapi exposes import, export and totals over HTTP.
package httpapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/papapumpkin/surveyor/internal/bc3"
	"github.com/papapumpkin/surveyor/internal/budget"
	"github.com/papapumpkin/surveyor/internal/importer"
	"github.com/papapumpkin/surveyor/internal/preflight"
	"github.com/papapumpkin/surveyor/internal/report"
	"github.com/papapumpkin/surveyor/internal/store"
)

// uploadField is the multipart form field carrying the file.
const uploadField = "file"

const defaultUploadName = "upload.bc3"

// Importer runs the import pipeline on an uploaded file.
type Importer interface {
	ImportBytes(ctx context.Context, file string, data []byte, name string) (*importer.Outcome, error)
}

// PriceLister serves catalog queries.
type PriceLister interface {
	ListPrices(ctx context.Context, f store.PriceFilter) ([]budget.Price, error)
}

// Server is the HTTP front end.
type Server struct {
	Importer Importer
	Prices   PriceLister // optional; nil disables /v1/prices
	MaxBytes int64       // upload ceiling; 0 = preflight.DefaultMaxBytes

	// Logger receives one access line per request. If nil, requests are
	// not logged.
	Logger io.Writer

	srv *http.Server
	ln  net.Listener
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	if s.Logger != nil {
		r.Use(gin.LoggerWithWriter(s.Logger))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	{
		v1.POST("/import", s.handleImport)
		v1.POST("/export", s.handleExport)
		v1.POST("/totals", s.handleTotals)
		v1.POST("/report", s.handleReport)
		v1.GET("/prices", s.handlePrices)
	}
	return r
}

// Start listens on addr and serves in the background. Use Addr to learn
// the bound address when addr has port 0.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("httpapi: listen %s: %w", addr, err)
	}
	s.ln = ln
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) && s.Logger != nil {
			fmt.Fprintf(s.Logger, "httpapi: serve: %v\n", err)
		}
	}()
	return nil
}

// Addr returns the listening address, or "" before Start.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("httpapi: shutdown: %w", err)
	}
	return nil
}

func (s *Server) maxBytes() int64 {
	if s.MaxBytes > 0 {
		return s.MaxBytes
	}
	return preflight.DefaultMaxBytes
}

// importResponse is the body returned by /v1/import.
type importResponse struct {
	Budget    *budget.Budget    `json:"budget"`
	Metadata  bc3.Metadata      `json:"metadata"`
	Preflight *preflight.Result `json:"preflight"`
	NewPrices int               `json:"newPrices"`
	Formatted string            `json:"formattedTotal"`
}

func (s *Server) handleImport(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBytes())

	name, data, err := readUpload(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := s.Importer.ImportBytes(c.Request.Context(), name, data, c.Query("name"))
	if err != nil {
		c.JSON(importStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, importResponse{
		Budget:    out.Budget,
		Metadata:  out.Result.Metadata,
		Preflight: out.Preflight,
		NewPrices: out.NewPrices,
		Formatted: budget.FormatMoney(out.Budget.Totals.Presupuesto),
	})
}

// readUpload accepts either a multipart form with a "file" field or the
// raw file as the request body.
func readUpload(c *gin.Context) (string, []byte, error) {
	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		fh, err := c.FormFile(uploadField)
		if err != nil {
			return "", nil, err
		}
		f, err := fh.Open()
		if err != nil {
			return "", nil, err
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		return fh.Filename, data, err
	}

	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", nil, err
	}
	name := c.Query("file")
	if name == "" {
		name = defaultUploadName
	}
	return name, data, nil
}

func importStatus(err error) int {
	switch {
	case errors.Is(err, bc3.ErrEmptyFile), errors.Is(err, bc3.ErrEncoding), errors.Is(err, bc3.ErrNoData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// bindBudget decodes a budget body and recomputes its totals.
func bindBudget(c *gin.Context) (*budget.Budget, bool) {
	var b budget.Budget
	if err := c.ShouldBindJSON(&b); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	b.Recalculate()
	return &b, true
}

func (s *Server) handleExport(c *gin.Context) {
	b, ok := bindBudget(c)
	if !ok {
		return
	}
	codepage := c.DefaultQuery("codepage", bc3.CodepageWindows1252)
	data, err := bc3.Encode(bc3.Export(b, b.Name), codepage)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename(b, ".bc3")))
	c.Data(http.StatusOK, "text/plain; charset="+codepage, data)
}

// totalsRequest is the body accepted by /v1/totals.
type totalsRequest struct {
	Items       []*budget.Item      `json:"items"`
	Percentages *budget.Percentages `json:"percentages"`
}

func (s *Server) handleTotals(c *gin.Context) {
	var req totalsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pct := bc3.DefaultPercentages()
	if req.Percentages != nil {
		pct = *req.Percentages
	}
	if pct.GG < 0 || pct.BI < 0 || pct.IVA < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": budget.ErrNegativeValue.Error()})
		return
	}
	budget.Rollup(req.Items)
	t := budget.ComputeTotals(req.Items, pct)
	c.JSON(http.StatusOK, gin.H{
		"totals":         t,
		"percentages":    pct,
		"formattedTotal": budget.FormatMoney(t.Presupuesto),
	})
}

func (s *Server) handleReport(c *gin.Context) {
	b, ok := bindBudget(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, b); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename(b, ".xlsx")))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (s *Server) handlePrices(c *gin.Context) {
	if s.Prices == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "catalog not configured"})
		return
	}
	prices, err := s.Prices.ListPrices(c.Request.Context(), store.PriceFilter{
		Kind:   budget.Kind(c.Query("kind")),
		Search: c.Query("q"),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if prices == nil {
		prices = make([]budget.Price, 0)
	}
	c.JSON(http.StatusOK, prices)
}

func filename(b *budget.Budget, ext string) string {
	slug := b.Name
	if slug == "" {
		slug = "budget"
	}
	return slug + ext
}
