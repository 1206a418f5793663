package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/biomed-dq-validator/internal/domain"
	"github.com/biomed-dq-validator/internal/report"
	"github.com/biomed-dq-validator/internal/service"
)

// RangeSpecList is the list_range_specs result.
type RangeSpecList struct {
	Count int                `json:"count"`
	Specs []domain.RangeSpec `json:"specs"`
}

// decodeArguments unmarshals the raw tool arguments into dst. Missing
// arguments leave dst at its zero value.
func decodeArguments(req *mcp.CallToolRequest, dst any) error {
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return nil
	}
	if err := json.Unmarshal(req.Params.Arguments, dst); err != nil {
		return domain.NewValidationError("arguments", err.Error(), nil)
	}
	return nil
}

// handleValidateDataset handles the validate_dataset tool invocation
func (s *Server) handleValidateDataset(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.WithField("tool", TOOL_VALIDATE_DATASET).Info("Tool invoked")

	var args ValidateDatasetArgs
	if err := decodeArguments(req, &args); err != nil {
		return s.createErrorResult("Invalid parameters", err), nil
	}
	return s.validateDataset(ctx, &args), nil
}

// handleQuickValidate handles the quick_validate tool invocation
func (s *Server) handleQuickValidate(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.WithField("tool", TOOL_QUICK_VALIDATE).Info("Tool invoked")

	var args service.ValidateRequest
	if err := decodeArguments(req, &args); err != nil {
		return s.createErrorResult("Invalid parameters", err), nil
	}
	return s.quickValidate(ctx, &args), nil
}

// handleListRangeSpecs handles the list_range_specs tool invocation
func (s *Server) handleListRangeSpecs(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.WithField("tool", TOOL_LIST_RANGE_SPECS).Info("Tool invoked")

	var args ListRangeSpecsArgs
	if err := decodeArguments(req, &args); err != nil {
		return s.createErrorResult("Invalid parameters", err), nil
	}
	return s.listRangeSpecs(&args), nil
}

// validateDataset runs the full validation and returns the summary and the
// JSON report as two text contents.
func (s *Server) validateDataset(ctx context.Context, args *ValidateDatasetArgs) *mcp.CallToolResult {
	format := report.FORMAT_TEXT
	if args.Format != "" {
		f, err := report.ParseFormat(args.Format)
		if err != nil {
			return s.createErrorResult("Invalid parameters", err)
		}
		if f != report.FORMAT_TEXT && f != report.FORMAT_MARKDOWN {
			return s.createErrorResult("Invalid parameters",
				domain.NewValidationError("format", "summary format must be text or markdown", args.Format))
		}
		format = f
	}

	if err := s.checkRowLimit(&args.ValidateRequest); err != nil {
		return s.createErrorResult("Dataset rejected", err)
	}
	table, err := args.Table()
	if err != nil {
		return s.createErrorResult("Invalid dataset", err)
	}
	opts, err := args.Options()
	if err != nil {
		return s.createErrorResult("Invalid parameters", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	result, err := s.engine.Validate(ctx, table, opts)
	if err != nil {
		return s.createErrorResult("Validation failed", err)
	}

	summary := report.Summary(result)
	if format == report.FORMAT_MARKDOWN {
		summary = report.Markdown(result)
	}
	return s.createResult(summary, result)
}

// quickValidate runs the PHI, completeness and exact duplicate pre-screen.
func (s *Server) quickValidate(ctx context.Context, args *service.ValidateRequest) *mcp.CallToolResult {
	if err := s.checkRowLimit(args); err != nil {
		return s.createErrorResult("Dataset rejected", err)
	}
	table, err := args.Table()
	if err != nil {
		return s.createErrorResult("Invalid dataset", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	result, err := s.engine.QuickValidate(ctx, table, args.DatasetName)
	if err != nil {
		return s.createErrorResult("Validation failed", err)
	}
	return s.createResult(report.QuickSummary(result), result)
}

// listRangeSpecs lists the registered range specs, optionally filtered by
// category.
func (s *Server) listRangeSpecs(args *ListRangeSpecsArgs) *mcp.CallToolResult {
	specs := s.engine.Ranges().Registry().Specs()
	if args.Category != "" {
		filtered := make([]domain.RangeSpec, 0, len(specs))
		for _, spec := range specs {
			if strings.EqualFold(spec.Category, args.Category) {
				filtered = append(filtered, spec)
			}
		}
		specs = filtered
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d range specs\n", len(specs)))
	for _, spec := range specs {
		sb.WriteString(fmt.Sprintf("  %s: %g to %g %s (%s)\n", spec.FieldName, spec.Min, spec.Max, spec.Unit, spec.Category))
	}
	return s.createResult(sb.String(), RangeSpecList{Count: len(specs), Specs: specs})
}

// checkRowLimit rejects datasets larger than the configured maximum.
func (s *Server) checkRowLimit(req *service.ValidateRequest) error {
	if len(req.Rows) > s.cfg.MaxRows {
		return domain.NewValidationError("rows",
			fmt.Sprintf("dataset has %d rows, the limit is %d", len(req.Rows), s.cfg.MaxRows), len(req.Rows))
	}
	return nil
}

// createResult builds a tool result from a summary and its JSON payload.
func (s *Server) createResult(summary string, payload any) *mcp.CallToolResult {
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return s.createErrorResult("Failed to encode result", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: summary},
			&mcp.TextContent{Text: string(raw)},
		},
	}
}

// createErrorResult builds an IsError tool result carrying the error code.
func (s *Server) createErrorResult(message string, err error) *mcp.CallToolResult {
	code := domain.CodeFor(err)
	s.logger.WithError(err).WithField("code", code).Warn(message)

	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("%s [%s]: %v", message, code, err)},
		},
	}
}
