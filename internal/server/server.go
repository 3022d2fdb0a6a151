// Package server exposes the extraction pipeline over HTTP. Process
// endpoints are synchronous; when a job store is configured the /jobs
// endpoints accept documents for background processing and serve the
// stored results in JSON, CSV or XLSX form.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rezonia/invoice-extractor/internal/config"
	"github.com/rezonia/invoice-extractor/internal/decimal"
	"github.com/rezonia/invoice-extractor/internal/export"
	"github.com/rezonia/invoice-extractor/internal/llm"
	"github.com/rezonia/invoice-extractor/internal/model"
	"github.com/rezonia/invoice-extractor/internal/processor"
	"github.com/rezonia/invoice-extractor/internal/store"
)

// jobTimeout bounds background job processing. Jobs run detached from the
// request, so the request timeout does not apply to them.
const jobTimeout = 5 * time.Minute

// Server represents the HTTP API server
type Server struct {
	cfg      *config.Config
	router   *gin.Engine
	pipeline *processor.Pipeline
	exporter *export.Exporter
	jobs     *store.Store
	logger   *slog.Logger
}

// New creates the API server. A non-empty store path opens the job store;
// a non-empty LLM API key enables the fallback extractor.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Server.Debug {
		router.Use(gin.Logger())
	}

	// Create LLM extractor if API key provided
	var llmExtractor *llm.Extractor
	if cfg.LLM.APIKey != "" {
		var clientOpts []llm.ClientOption
		if cfg.LLM.BaseURL != "" {
			clientOpts = append(clientOpts, llm.WithBaseURL(cfg.LLM.BaseURL))
		}
		if cfg.LLM.Timeout > 0 {
			clientOpts = append(clientOpts, llm.WithTimeout(cfg.LLM.Timeout))
		}

		client := llm.NewClient(cfg.LLM.APIKey, clientOpts...)

		var extractorOpts []llm.ExtractorOption
		if cfg.LLM.Model != "" {
			extractorOpts = append(extractorOpts, llm.WithTextModel(cfg.LLM.Model))
		}
		if cfg.LLM.VisionModel != "" {
			extractorOpts = append(extractorOpts, llm.WithVisionModel(cfg.LLM.VisionModel))
		}

		llmExtractor = llm.NewExtractor(client, extractorOpts...)
	}

	pipeline := processor.NewPipeline(
		processor.WithLLMExtractor(llmExtractor),
		processor.WithLogger(logger),
	)

	var jobs *store.Store
	if cfg.Store.Path != "" {
		var err error
		jobs, err = store.Open(cfg.Store.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("opening job store: %w", err)
		}
	}

	s := &Server{
		cfg:      cfg,
		router:   router,
		pipeline: pipeline,
		exporter: export.NewExporter(logger),
		jobs:     jobs,
		logger:   logger,
	}

	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(s.limitBody)

	// Health check
	s.router.GET("/health", s.handleHealth)

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		// Process endpoints
		v1.POST("/process/pdf", s.handleProcessPDF)
		v1.POST("/process/text", s.handleProcessText)
		v1.POST("/process/image", s.handleProcessImage)
		v1.POST("/process/auto", s.handleProcessAuto)

		// Validate endpoint
		v1.POST("/validate", s.handleValidate)

		// Info endpoint
		v1.POST("/info", s.handleInfo)

		// Job endpoints are only served with a store configured
		if s.jobs != nil {
			v1.POST("/jobs", s.handleCreateJob)
			v1.GET("/jobs", s.handleListJobs)
			v1.GET("/jobs/:id", s.handleGetJob)
			v1.GET("/jobs/:id/result", s.handleJobResult)
			v1.GET("/jobs/:id/export", s.handleJobExport)
		}
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:        s.cfg.Server.Addr,
		Handler:     s.router,
		ReadTimeout: s.cfg.Server.RequestTimeout,
		// Responses must still go out after a handler spends its full deadline.
		WriteTimeout: 2 * s.cfg.Server.RequestTimeout,
	}

	s.logger.Info("server.listen",
		"addr", s.cfg.Server.Addr,
		"store", s.jobs != nil,
		"llm", s.cfg.LLM.APIKey != "")
	return srv.ListenAndServe()
}

// Handler returns the http.Handler for use with custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the job store, if one is open.
func (s *Server) Close() error {
	if s.jobs != nil {
		return s.jobs.Close()
	}
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleProcessPDF(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.Server.RequestTimeout)
	defer cancel()

	s.writeResult(c, s.pipeline.ProcessPDF(ctx, body))
}

func (s *Server) handleProcessText(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.Server.RequestTimeout)
	defer cancel()

	s.writeResult(c, s.pipeline.ProcessText(ctx, string(body)))
}

func (s *Server) handleProcessImage(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}

	contentType := c.GetHeader("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.Server.RequestTimeout)
	defer cancel()

	s.writeResult(c, s.pipeline.ProcessImage(ctx, body, contentType))
}

func (s *Server) handleProcessAuto(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.Server.RequestTimeout)
	defer cancel()

	var result *processor.Result

	switch processor.DetectFormat(body) {
	case processor.FormatPDF:
		result = s.pipeline.ProcessPDF(ctx, body)

	case processor.FormatText:
		result = s.pipeline.ProcessText(ctx, string(body))

	case processor.FormatImage:
		mimeType := c.GetHeader("Content-Type")
		if mimeType == "" || mimeType == "application/octet-stream" {
			mimeType = detectMimeType(body)
		}
		result = s.pipeline.ProcessImage(ctx, body, mimeType)

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file format"})
		return
	}

	s.writeResult(c, result)
}

func (s *Server) handleValidate(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.Server.RequestTimeout)
	defer cancel()

	result := s.pipeline.ProcessBytes(ctx, body)
	if result.Error != nil {
		c.JSON(http.StatusUnprocessableEntity, ValidationResponse{
			Valid:  false,
			Errors: []string{result.Error.Error()},
		})
		return
	}

	errs, warnings := validateInvoice(result)
	c.JSON(http.StatusOK, ValidationResponse{
		Valid:    len(errs) == 0,
		Errors:   errs,
		Warnings: warnings,
	})
}

func (s *Server) handleInfo(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, InfoResponse{
		Format:   processor.DetectFormat(body).String(),
		MimeType: detectMimeType(body),
		Size:     len(body),
		Pages:    s.pipeline.PageCount(body),
	})
}

func (s *Server) handleCreateJob(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}

	// The same document never runs twice; repeat uploads get the prior job.
	existing, err := s.jobs.FindJobByHash(store.HashBytes(body))
	if err == nil {
		c.JSON(http.StatusOK, existing)
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	filename := c.Query("filename")
	if filename == "" {
		filename = "upload"
	}

	job := store.NewJob(filename, body)
	if err := s.jobs.SaveJob(job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	go s.runJob(job, body)

	c.JSON(http.StatusAccepted, job)
}

// runJob processes a stored document in the background and records the
// outcome on the job.
func (s *Server) runJob(job *store.Job, data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	job.MarkProcessing()
	if err := s.jobs.SaveJob(job); err != nil {
		s.logger.Error("server.job.save_failed", "id", job.ID, "err", err)
		return
	}

	result := s.pipeline.ProcessBytes(ctx, data)
	if result.Error != nil {
		job.MarkFailed(result.Error)
		if err := s.jobs.SaveJob(job); err != nil {
			s.logger.Error("server.job.save_failed", "id", job.ID, "err", err)
		}
		s.logger.Warn("server.job.failed", "id", job.ID, "source", job.SourceFile, "err", result.Error)
		return
	}

	if err := s.jobs.SaveResult(job.ID, result.Invoice); err != nil {
		job.MarkFailed(err)
		if err := s.jobs.SaveJob(job); err != nil {
			s.logger.Error("server.job.save_failed", "id", job.ID, "err", err)
		}
		return
	}

	job.MarkCompleted(string(result.Method), s.pipeline.PageCount(data), len(result.Invoice.Items), len(result.Warnings))
	if err := s.jobs.SaveJob(job); err != nil {
		s.logger.Error("server.job.save_failed", "id", job.ID, "err", err)
		return
	}

	s.logger.Info("server.job.completed",
		"id", job.ID,
		"source", job.SourceFile,
		"method", job.Method,
		"items", job.ItemCount)
}

func (s *Server) handleListJobs(c *gin.Context) {
	jobs, err := s.jobs.ListJobs()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

func (s *Server) handleGetJob(c *gin.Context) {
	job, ok := s.lookupJob(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) handleJobResult(c *gin.Context) {
	job, ok := s.lookupJob(c)
	if !ok {
		return
	}

	inv, ok := s.lookupResult(c, job)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (s *Server) handleJobExport(c *gin.Context) {
	job, ok := s.lookupJob(c)
	if !ok {
		return
	}

	inv, ok := s.lookupResult(c, job)
	if !ok {
		return
	}

	name := "invoice"
	if inv.Header != nil && inv.Header.InvoiceID != "" {
		name = "invoice_" + inv.Header.InvoiceID
	}

	format := c.DefaultQuery("format", "xlsx")
	switch format {
	case "xlsx":
		data, err := s.exporter.XLSX(inv, export.Metadata{
			SourceFile:  job.SourceFile,
			Method:      job.Method,
			PageCount:   job.PageCount,
			GeneratedAt: time.Now().UTC(),
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		s.sendAttachment(c, name+".xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)

	case "csv":
		data, err := s.exporter.CSV(inv)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		s.sendAttachment(c, name+".csv", "text/csv; charset=utf-8", data)

	case "json":
		data, err := s.exporter.JSON(inv)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		s.sendAttachment(c, name+".json", "application/json", data)

	case "xml":
		data, err := s.exporter.XML(inv)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		s.sendAttachment(c, name+".xml", "application/xml; charset=utf-8", data)

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported export format: " + format})
	}
}

// Helper functions

// limitBody caps request bodies at the configured upload limit.
func (s *Server) limitBody(c *gin.Context) {
	if s.cfg.Server.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.Server.MaxUploadBytes)
	}
	c.Next()
}

func (s *Server) readBody(c *gin.Context) ([]byte, bool) {
	body, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return nil, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return nil, false
	}

	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty request body"})
		return nil, false
	}

	return body, true
}

func (s *Server) writeResult(c *gin.Context, result *processor.Result) {
	if result.Error != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":    result.Error.Error(),
			"warnings": result.Warnings,
		})
		return
	}

	c.JSON(http.StatusOK, ProcessResponse{
		Invoice:    result.Invoice,
		Method:     string(result.Method),
		Confidence: result.Confidence,
		Warnings:   result.Warnings,
	})
}

func (s *Server) lookupJob(c *gin.Context) (*store.Job, bool) {
	job, err := s.jobs.GetJob(c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return nil, false
	}
	return job, true
}

func (s *Server) lookupResult(c *gin.Context, job *store.Job) (*model.ParsedInvoice, bool) {
	if job.Status != store.StatusCompleted {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "job not completed",
			"status": job.Status,
		})
		return nil, false
	}

	inv, err := s.jobs.GetResult(job.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return nil, false
	}
	return inv, true
}

func (s *Server) sendAttachment(c *gin.Context, filename, contentType string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}

func detectMimeType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}

	// PNG
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	// JPEG
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// TIFF
	if (data[0] == 0x49 && data[1] == 0x49) || (data[0] == 0x4D && data[1] == 0x4D) {
		return "image/tiff"
	}
	// PDF
	if data[0] == '%' && data[1] == 'P' && data[2] == 'D' && data[3] == 'F' {
		return "application/pdf"
	}

	if processor.DetectFormat(data) == processor.FormatText {
		return "text/plain; charset=utf-8"
	}

	return "application/octet-stream"
}

func validateInvoice(result *processor.Result) ([]string, []string) {
	var errs, warnings []string

	if result == nil || result.Invoice == nil || result.Invoice.Header == nil {
		return []string{"no invoice data"}, nil
	}

	inv := result.Invoice
	header := inv.Header

	// Required fields
	if header.InvoiceID == "" {
		errs = append(errs, "missing invoice number")
	}
	if header.TransactionDate == "" || header.TransactionDate == model.SentinelDate {
		warnings = append(warnings, "missing or unparseable transaction date")
	}
	if header.Currency == "" {
		warnings = append(warnings, "missing currency")
	}
	if len(inv.Items) == 0 {
		errs = append(errs, "no line items")
	}

	for i, item := range inv.Items {
		if item.StyleColor == "" {
			errs = append(errs, fmt.Sprintf("item %d: missing style-color", i+1))
		}
		if item.Qty <= 0 {
			warnings = append(warnings, fmt.Sprintf("item %d: zero quantity", i+1))
		}

		// Check calculation
		if !item.Price.IsZero() && !item.ExtPrice.IsZero() {
			expected := decimal.ExtendedPrice(item.Price, item.Qty)
			if !expected.Equal(item.ExtPrice) {
				warnings = append(warnings, fmt.Sprintf("item %d: extended price mismatch", i+1))
			}
		}
	}

	if sum := inv.Summary; sum != nil {
		if sum.TotalUnits != inv.TotalQty() {
			warnings = append(warnings, "total units do not match line item quantities")
		}
		if !sum.MerchandiseTotal.IsZero() && !sum.MerchandiseTotal.Equal(inv.SumExtPrice()) {
			warnings = append(warnings, "merchandise total does not match line item extended prices")
		}
	}

	warnings = append(warnings, result.Warnings...)
	return errs, warnings
}
