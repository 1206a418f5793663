package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"github.com/biomed-dq-validator/internal/archive"
	"github.com/biomed-dq-validator/internal/domain"
	"github.com/biomed-dq-validator/internal/middleware"
	"github.com/biomed-dq-validator/internal/report"
	"github.com/biomed-dq-validator/internal/service"
)

// Pagination bounds for report listings
const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// CleanResponse is the validate-and-clean result with the cleaned table
// inlined as row objects.
type CleanResponse struct {
	*domain.CleanResult
	Columns []string         `json:"columns,omitempty"`
	Rows    []map[string]any `json:"rows,omitempty"`
}

// ReportList is a page of archived report summaries.
type ReportList struct {
	Reports []*archive.ReportSummary `json:"reports"`
	Total   int64                    `json:"total"`
	Limit   int                      `json:"limit"`
	Offset  int                      `json:"offset"`
}

// bind decodes the JSON body into dst, bounded by the configured body size.
func (s *Server) bind(c *gin.Context, dst any) error {
	if limit := s.configManager.GetServerConfig().MaxBodyBytes; limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		return domain.NewValidationError("body", err.Error(), nil)
	}
	return nil
}

// decodeDataset turns a request into a table plus engine options.
func decodeDataset(req *service.ValidateRequest) (*domain.Table, service.ValidateOptions, error) {
	table, err := req.Table()
	if err != nil {
		return nil, service.ValidateOptions{}, err
	}
	opts, err := req.Options()
	if err != nil {
		return nil, service.ValidateOptions{}, err
	}
	return table, opts, nil
}

// handleValidate runs the full validation. The report is JSON unless the
// format query parameter asks for text, markdown or html.
func (s *Server) handleValidate(c *gin.Context) {
	format := report.FORMAT_JSON
	if q := c.Query("format"); q != "" {
		f, err := report.ParseFormat(q)
		if err != nil {
			s.respondError(c, err)
			return
		}
		format = f
	}

	var req service.ValidateRequest
	if err := s.bind(c, &req); err != nil {
		s.respondError(c, err)
		return
	}
	table, opts, err := decodeDataset(&req)
	if err != nil {
		s.respondError(c, err)
		return
	}

	result, err := s.engine.Validate(c.Request.Context(), table, opts)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.metrics.ObserveReport(result)
	s.persist(c.Request.Context(), result)

	c.Header("X-Report-ID", result.Metadata.ReportID)
	s.render(c, result, format)
}

// handleQuickValidate runs the PHI, completeness and exact duplicate
// pre-screen.
func (s *Server) handleQuickValidate(c *gin.Context) {
	var req service.ValidateRequest
	if err := s.bind(c, &req); err != nil {
		s.respondError(c, err)
		return
	}
	table, err := req.Table()
	if err != nil {
		s.respondError(c, err)
		return
	}

	result, err := s.engine.QuickValidate(c.Request.Context(), table, req.DatasetName)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.metrics.ObserveQuick(result)

	c.JSON(http.StatusOK, result)
}

// handleValidateAndClean cleans a PHI-free dataset and validates the result.
// Datasets containing PHI are refused with 422.
func (s *Server) handleValidateAndClean(c *gin.Context) {
	var req service.CleanRequest
	if err := s.bind(c, &req); err != nil {
		s.respondError(c, err)
		return
	}
	table, opts, err := decodeDataset(&req.ValidateRequest)
	if err != nil {
		s.respondError(c, err)
		return
	}

	result, err := s.engine.ValidateAndClean(c.Request.Context(), table, opts, req.Clean)
	if err != nil {
		s.respondError(c, err)
		return
	}

	if result.Refused {
		s.metrics.ObserveRefusal()
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  domain.NewEngineError(domain.ErrPHIBlocked, result.Reason, "", c.GetString(middleware.CorrelationIDKey)),
			"result": result,
		})
		return
	}

	s.metrics.ObserveReport(result.Report)
	s.persist(c.Request.Context(), result.Report)

	c.Header("X-Report-ID", result.Report.Metadata.ReportID)
	c.JSON(http.StatusOK, CleanResponse{
		CleanResult: result,
		Columns:     result.Table.Columns(),
		Rows:        result.Table.Records(),
	})
}

// handleListReports returns archived report summaries, newest first.
func (s *Server) handleListReports(c *gin.Context) {
	if s.store == nil {
		s.respondError(c, archiveDisabled())
		return
	}

	limit := cast.ToInt(c.DefaultQuery("limit", "0"))
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := cast.ToInt(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	ctx := c.Request.Context()
	summaries, err := s.store.List(ctx, limit, offset)
	if err != nil {
		s.respondError(c, archiveError(err))
		return
	}
	total, err := s.store.Count(ctx)
	if err != nil {
		s.respondError(c, archiveError(err))
		return
	}

	c.JSON(http.StatusOK, ReportList{
		Reports: summaries,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

// handleGetReport returns a stored report as JSON.
func (s *Server) handleGetReport(c *gin.Context) {
	r, err := s.lookupReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// handleGetReportHTML renders a stored report as a standalone HTML page.
func (s *Server) handleGetReportHTML(c *gin.Context) {
	r, err := s.lookupReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.render(c, r, report.FORMAT_HTML)
}

// handleGetReportSummary renders a stored report as text, or markdown with
// ?format=markdown.
func (s *Server) handleGetReportSummary(c *gin.Context) {
	format, err := report.ParseFormat(c.Query("format"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if format == report.FORMAT_JSON || format == report.FORMAT_HTML {
		format = report.FORMAT_TEXT
	}

	r, err := s.lookupReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.render(c, r, format)
}

// handleDeleteReport removes a report from the archive and the cache.
func (s *Server) handleDeleteReport(c *gin.Context) {
	if s.store == nil {
		s.respondError(c, archiveDisabled())
		return
	}
	id := c.Param("id")
	ctx := c.Request.Context()

	if err := s.store.Delete(ctx, id); err != nil {
		s.respondError(c, archiveError(err))
		return
	}
	if s.reports != nil {
		s.reports.Invalidate(ctx, id)
	}
	c.Status(http.StatusNoContent)
}

// handleListRanges returns every range spec currently registered.
func (s *Server) handleListRanges(c *gin.Context) {
	specs := s.engine.Ranges().Registry().Specs()
	c.JSON(http.StatusOK, gin.H{
		"count": len(specs),
		"specs": specs,
	})
}

// handleAddRange registers or replaces a custom range spec at runtime.
func (s *Server) handleAddRange(c *gin.Context) {
	var spec domain.RangeSpec
	if err := s.bind(c, &spec); err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.engine.Ranges().AddSpec(spec); err != nil {
		s.respondError(c, err)
		return
	}

	s.logger.WithField("field_name", spec.FieldName).Info("Custom range spec registered")
	c.JSON(http.StatusCreated, spec)
}

// render writes a report in the requested format.
func (s *Server) render(c *gin.Context, r *domain.ValidationReport, format report.Format) {
	if format == report.FORMAT_JSON {
		c.JSON(http.StatusOK, r)
		return
	}
	var buf bytes.Buffer
	if err := report.Render(&buf, r, format); err != nil {
		s.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// persist archives and caches a fresh report. Archive failures are logged
// and never fail the request that produced the report.
func (s *Server) persist(ctx context.Context, r *domain.ValidationReport) {
	if s.reports != nil {
		s.reports.Set(ctx, r)
	}
	if s.store == nil {
		return
	}
	if err := s.store.Save(ctx, r); err != nil {
		s.logger.WithError(err).WithField("report_id", r.Metadata.ReportID).Warn("Failed to archive report")
	}
}

// lookupReport checks the cache, then the archive.
func (s *Server) lookupReport(ctx context.Context, id string) (*domain.ValidationReport, error) {
	if s.reports != nil {
		if r, ok := s.reports.Get(ctx, id); ok {
			return r, nil
		}
	}
	if s.store == nil {
		return nil, fmt.Errorf("report %s: %w", id, domain.ErrNotFound)
	}

	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, archiveError(err)
	}
	if s.reports != nil {
		s.reports.Set(ctx, r)
	}
	return r, nil
}

func archiveDisabled() error {
	return domain.NewEngineError(domain.ErrArchive, "report archive is disabled", "", "")
}

// archiveError keeps not-found errors as they are and marks everything else
// as an archive failure.
func archiveError(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return domain.WrapEngineError(domain.ErrArchive, "report archive unavailable", err)
}
