// Package mcp exposes the review workflow as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"rubric-review/backend/internal/export"
	"rubric-review/backend/internal/rubric"
	"rubric-review/backend/internal/services"
	"rubric-review/backend/pkg/models"
)

type Server struct {
	mcpServer *server.MCPServer
	workflows *services.WorkflowService
}

func NewServer(workflows *services.WorkflowService, version string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Rubric Review",
			version,
			server.WithToolCapabilities(true),
		),
		workflows: workflows,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

var stageNames = []string{"task-zero", "task-one", "task-two", "task-three", "task-four"}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"create_workflow",
			mcp.WithDescription("Create a workflow from a Task 0 submission"),
			mcp.WithString("payload", mcp.Required(), mcp.Description("Task 0 inputs as a JSON object")),
		),
		s.handleCreateWorkflow,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_workflow",
			mcp.WithDescription("Fetch a workflow record"),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("The workflow id")),
		),
		s.handleGetWorkflow,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"submit_stage",
			mcp.WithDescription("Submit the response for one review stage (task-one to task-four)"),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("The workflow id")),
			mcp.WithString("stage", mcp.Required(), mcp.Enum(stageNames[1:]...), mcp.Description("The stage to submit")),
			mcp.WithString("payload", mcp.Required(), mcp.Description("The stage response as a JSON object")),
		),
		s.handleSubmitStage,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"set_step",
			mcp.WithDescription("Move a workflow's current step"),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("The workflow id")),
			mcp.WithString("step", mcp.Required(), mcp.Enum(stageNames...), mcp.Description("The new current step")),
		),
		s.handleSetStep,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"parse_rubric",
			mcp.WithDescription("Extract rubric item names from free text"),
			mcp.WithString("text", mcp.Required(), mcp.Description("Rubric text, tagged or bulleted")),
		),
		s.handleParseRubric,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"rubric_draft",
			mcp.WithDescription("Get the Task 2 rubric items for a workflow"),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("The workflow id")),
		),
		s.handleRubricDraft,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"export_stage",
			mcp.WithDescription("Render one stage of a workflow as a document"),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("The workflow id")),
			mcp.WithString("stage", mcp.Required(), mcp.Enum(stageNames...), mcp.Description("The stage to export")),
			mcp.WithString("format", mcp.Enum("text", "yaml"), mcp.Description("Document format, text by default")),
		),
		s.handleExportStage,
	)
}

func (s *Server) handleCreateWorkflow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	payload, ok := payloadArg(args)
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: payload"), nil
	}

	rec, err := s.workflows.CreateWorkflow(ctx, payload)
	if err != nil {
		return toolError("Failed to create workflow", err), nil
	}
	return jsonResult(rec), nil
}

func (s *Server) handleGetWorkflow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	id, ok := idArg(args)
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: id"), nil
	}

	rec, err := s.workflows.GetWorkflow(ctx, id)
	if err != nil {
		return toolError("Failed to get workflow", err), nil
	}
	return jsonResult(rec), nil
}

func (s *Server) handleSubmitStage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	id, ok := idArg(args)
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: id"), nil
	}
	stage, ok := args["stage"].(string)
	if !ok || stage == "" {
		return mcp.NewToolResultError("Missing required parameter: stage"), nil
	}
	payload, ok := payloadArg(args)
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: payload"), nil
	}

	rec, err := s.workflows.SubmitStage(ctx, id, models.Step(stage), payload)
	if err != nil {
		return toolError("Failed to submit "+stage, err), nil
	}
	return jsonResult(rec), nil
}

func (s *Server) handleSetStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	id, ok := idArg(args)
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: id"), nil
	}
	step, ok := args["step"].(string)
	if !ok || step == "" {
		return mcp.NewToolResultError("Missing required parameter: step"), nil
	}

	rec, err := s.workflows.SetStep(ctx, id, step)
	if err != nil {
		return toolError("Failed to set step", err), nil
	}
	return jsonResult(rec), nil
}

func (s *Server) handleParseRubric(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	text, ok := args["text"].(string)
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: text"), nil
	}
	return jsonResult(rubric.ParseNames(text)), nil
}

func (s *Server) handleRubricDraft(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	id, ok := idArg(args)
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: id"), nil
	}

	draft, err := s.workflows.RubricDraft(ctx, id)
	if err != nil {
		return toolError("Failed to build rubric draft", err), nil
	}
	return jsonResult(draft), nil
}

func (s *Server) handleExportStage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	id, ok := idArg(args)
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: id"), nil
	}
	stage, ok := models.ParseStep(stringArg(args, "stage"))
	if !ok {
		return mcp.NewToolResultError("Missing or unknown parameter: stage"), nil
	}
	format, ok := export.ParseFormat(stringArg(args, "format"))
	if !ok {
		return mcp.NewToolResultError("Unknown parameter value: format"), nil
	}

	res, err := s.workflows.Export(ctx, id, stage, format)
	if err != nil {
		return toolError("Failed to export "+string(stage), err), nil
	}
	return mcp.NewToolResultText(string(res.Body)), nil
}

// idArg reads a positive workflow id. JSON numbers arrive as float64.
func idArg(args map[string]interface{}) (int64, bool) {
	v, ok := args["id"].(float64)
	if !ok || v < 1 || v != float64(int64(v)) {
		return 0, false
	}
	return int64(v), true
}

func stringArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}

// payloadArg accepts the payload either as a JSON string or as an object.
func payloadArg(args map[string]interface{}) ([]byte, bool) {
	switch v := args["payload"].(type) {
	case string:
		return []byte(v), v != ""
	case map[string]interface{}:
		b, err := json.Marshal(v)
		return b, err == nil
	}
	return nil, false
}

func jsonResult(v any) *mcp.CallToolResult {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err))
	}
	return mcp.NewToolResultText(string(jsonBytes))
}

// toolError reports envelope errors as JSON so callers see the field details.
func toolError(prefix string, err error) *mcp.CallToolResult {
	var env *models.ErrorEnvelope
	if errors.As(err, &env) {
		jsonBytes, _ := json.Marshal(env)
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s", prefix, jsonBytes))
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", prefix, err))
}

func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	// Use SSE server for /mcp/sse and /mcp/message endpoints
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		// Direct POST for tool calls
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	// SSE endpoints
	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
