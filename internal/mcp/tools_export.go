package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"fcexport/internal/export"
	"fcexport/internal/service"
)

func (s *Server) registerExportTools() {
	s.mcp.AddTool(mcp.NewTool("run_export",
		mcp.WithDescription("Export a feature class to CSV, JSON, or GeoJSON. Geometry is reprojected to EPSG:4326. Writes a file into the output directory and returns the result."),
		mcp.WithString("location", mcp.Description("Source location: a .gpkg/.sqlite path or a postgres://, mysql://, mongodb:// URL"), mcp.Required()),
		mcp.WithString("layer", mcp.Description("Feature class (layer/table/collection) name"), mcp.Required()),
		mcp.WithString("outputDir", mcp.Description("Directory to write the export into (created if missing)"), mcp.Required()),
		mcp.WithString("format", mcp.Description("Output format: csv, json, or geojson"), mcp.Required()),
		mcp.WithString("fileName", mcp.Description("Output file name without extension (optional, derived from layer + timestamp when empty)")),
	), s.handleRunExport)

	s.mcp.AddTool(mcp.NewTool("preview_source",
		mcp.WithDescription("Read up to 10 normalized records from a layer without writing anything"),
		mcp.WithString("location", mcp.Description("Source location"), mcp.Required()),
		mcp.WithString("layer", mcp.Description("Feature class name"), mcp.Required()),
	), s.handlePreviewSource)

	s.mcp.AddTool(mcp.NewTool("list_source_types",
		mcp.WithDescription("List available source types with example locations"),
	), s.handleListSourceTypes)

	s.mcp.AddTool(mcp.NewTool("list_export_jobs",
		mcp.WithDescription("List saved export jobs with their triggers and last-run status"),
	), s.handleListExportJobs)

	s.mcp.AddTool(mcp.NewTool("create_export_job",
		mcp.WithDescription("Save a repeatable export job. Trigger types: manual, schedule (cron expression), file_watch (re-export when the source file changes)."),
		mcp.WithString("name", mcp.Description("Job name"), mcp.Required()),
		mcp.WithString("location", mcp.Description("Source location"), mcp.Required()),
		mcp.WithString("layer", mcp.Description("Feature class name"), mcp.Required()),
		mcp.WithString("outputDir", mcp.Description("Output directory"), mcp.Required()),
		mcp.WithString("format", mcp.Description("Output format: csv, json, or geojson"), mcp.Required()),
		mcp.WithString("triggerType", mcp.Description("manual (default), schedule, or file_watch")),
		mcp.WithString("triggerConfig", mcp.Description("Cron expression for schedule, watched path for file_watch (defaults to the source location)")),
	), s.handleCreateExportJob)

	s.mcp.AddTool(mcp.NewTool("run_export_job",
		mcp.WithDescription("Execute a saved export job and record a run log entry"),
		mcp.WithString("jobId", mcp.Description("Export job ID"), mcp.Required()),
	), s.handleRunExportJob)

	s.mcp.AddTool(mcp.NewTool("list_export_runs",
		mcp.WithDescription("List recent run logs for a saved export job"),
		mcp.WithString("jobId", mcp.Description("Export job ID"), mcp.Required()),
	), s.handleListExportRuns)
}

func (s *Server) handleRunExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format, err := export.ParseFormat(req.GetString("format", ""))
	if err != nil {
		return nil, err
	}
	request := export.Request{
		Location:  req.GetString("location", ""),
		Layer:     req.GetString("layer", ""),
		OutputDir: req.GetString("outputDir", ""),
		Format:    format,
		Name:      req.GetString("fileName", ""),
	}

	res, err := s.exports.Run(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("run export: %w", err)
	}
	return jsonResult(res)
}

func (s *Server) handlePreviewSource(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	location := req.GetString("location", "")
	layer := req.GetString("layer", "")
	if location == "" || layer == "" {
		return nil, fmt.Errorf("location and layer are required")
	}

	records, schema, err := s.exports.Preview(ctx, location, layer, 10)
	if err != nil {
		return nil, fmt.Errorf("preview source: %w", err)
	}
	return jsonResult(map[string]any{
		"schema":  schema,
		"records": records,
	})
}

func (s *Server) handleListSourceTypes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.exports.ListSourceTypes())
}

func (s *Server) handleListExportJobs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobs, err := s.exports.ListJobs()
	if err != nil {
		return nil, fmt.Errorf("list export jobs: %w", err)
	}
	return jsonResult(jobs)
}

func (s *Server) handleCreateExportJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input := service.CreateExportJobInput{
		Name:          req.GetString("name", ""),
		Location:      req.GetString("location", ""),
		Layer:         req.GetString("layer", ""),
		OutputDir:     req.GetString("outputDir", ""),
		Format:        req.GetString("format", ""),
		TriggerType:   req.GetString("triggerType", ""),
		TriggerConfig: req.GetString("triggerConfig", ""),
		Enabled:       true,
	}

	job, err := s.exports.CreateJob(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("create export job: %w", err)
	}
	return jsonResult(job)
}

func (s *Server) handleRunExportJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := req.GetString("jobId", "")
	if jobID == "" {
		return nil, fmt.Errorf("jobId is required")
	}

	result, err := s.exports.RunJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("run export job: %w", err)
	}
	return jsonResult(result)
}

func (s *Server) handleListExportRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := req.GetString("jobId", "")
	if jobID == "" {
		return nil, fmt.Errorf("jobId is required")
	}

	runs, err := s.exports.ListRuns(jobID)
	if err != nil {
		return nil, fmt.Errorf("list export runs: %w", err)
	}
	return jsonResult(runs)
}
