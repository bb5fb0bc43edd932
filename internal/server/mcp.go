// Package server exposes the toolset over its two transports: the MCP
// stdio protocol and a chi HTTP API.
package server

import (
	"context"

	"github.com/JonMunkholm/DbToolServer/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Version is reported during the MCP handshake.
const Version = "1.0.0"

// NewMCP builds the stdio MCP server with every tool registered. Handlers
// always answer with a text result; collaborator failures are rendered into
// the flat error string rather than surfaced as protocol errors.
func NewMCP(ts *tools.Toolset) *server.MCPServer {
	s := server.NewMCPServer("db-tool-server", Version,
		server.WithToolCapabilities(false),
	)

	s.AddTool(mcp.NewTool("query_database",
		mcp.WithDescription("Execute a SQL query on the database (SELECT statements only for safety)."),
		mcp.WithString("sql", mcp.Required(), mcp.Description("The SQL query to execute")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sqlText, err := req.RequireString("sql")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(tools.Render(ts.QueryDatabase(ctx, sqlText))), nil
	})

	s.AddTool(mcp.NewTool("insert_sample_data",
		mcp.WithDescription("Insert sample data into the users and products tables."),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(tools.Render(ts.InsertSampleData(ctx))), nil
	})

	s.AddTool(mcp.NewTool("get_database_schema",
		mcp.WithDescription("Get the complete database schema with per-table columns and row counts."),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(tools.Render(ts.GetDatabaseSchema(ctx))), nil
	})

	s.AddTool(mcp.NewTool("create_table",
		mcp.WithDescription("Create a new table in the database (CREATE TABLE statements only)."),
		mcp.WithString("table_name", mcp.Required(), mcp.Description("Name for the new table")),
		mcp.WithString("schema_sql", mcp.Required(), mcp.Description("SQL CREATE TABLE statement")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("table_name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		schemaSQL, err := req.RequireString("schema_sql")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(tools.Render(ts.CreateTable(ctx, name, schemaSQL))), nil
	})

	s.AddTool(mcp.NewTool("chat_with_ollama",
		mcp.WithDescription("Chat with the local LLM via Ollama."),
		mcp.WithString("prompt", mcp.Required(), mcp.Description("The prompt to send to the LLM")),
		mcp.WithString("model", mcp.Description("Ollama model to use (defaults to the configured model)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		promptText, err := req.RequireString("prompt")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		model := req.GetString("model", "")
		return mcp.NewToolResultText(tools.Render(ts.ChatWithOllama(ctx, promptText, model))), nil
	})

	s.AddTool(mcp.NewTool("chat_with_context",
		mcp.WithDescription("Chat with the local LLM with additional context prepended."),
		mcp.WithString("message", mcp.Required(), mcp.Description("The message to send to the LLM")),
		mcp.WithString("context", mcp.Description("Additional context for the LLM")),
		mcp.WithString("model", mcp.Description("Ollama model to use (defaults to the configured model)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		message, err := req.RequireString("message")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		contextText := req.GetString("context", "")
		model := req.GetString("model", "")
		return mcp.NewToolResultText(tools.Render(ts.ChatWithContext(ctx, message, contextText, model))), nil
	})

	s.AddTool(mcp.NewTool("analyze_data_with_llm",
		mcp.WithDescription("Analyze one database table with the local LLM: schema, sample rows, and your question."),
		mcp.WithString("table_name", mcp.Required(), mcp.Description("Name of the table to analyze")),
		mcp.WithString("question", mcp.Required(), mcp.Description("Question to ask about the data")),
		mcp.WithString("model", mcp.Description("Ollama model to use (defaults to the configured model)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		table, err := req.RequireString("table_name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		question, err := req.RequireString("question")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		model := req.GetString("model", "")
		return mcp.NewToolResultText(tools.Render(ts.AnalyzeTable(ctx, table, question, model))), nil
	})

	s.AddTool(mcp.NewTool("analyze_database",
		mcp.WithDescription("Analyze the entire database with the local LLM: full schema plus sample rows per table."),
		mcp.WithString("question", mcp.Required(), mcp.Description("Question about the database")),
		mcp.WithString("model", mcp.Description("Ollama model to use (defaults to the configured model)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		model := req.GetString("model", "")
		return mcp.NewToolResultText(tools.Render(ts.AnalyzeDatabase(ctx, question, model))), nil
	})

	s.AddTool(mcp.NewTool("generate_sql",
		mcp.WithDescription("Generate a SELECT query from a natural language description using the live schema."),
		mcp.WithString("description", mcp.Required(), mcp.Description("Natural language description of the desired query")),
		mcp.WithString("model", mcp.Description("Ollama model to use (defaults to the configured model)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		description, err := req.RequireString("description")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		model := req.GetString("model", "")
		return mcp.NewToolResultText(tools.Render(ts.GenerateSQL(ctx, description, model))), nil
	})

	s.AddTool(mcp.NewTool("list_ollama_models",
		mcp.WithDescription("List all models installed in the Ollama runtime."),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(tools.Render(ts.ListModels(ctx))), nil
	})

	return s
}

// ServeStdio blocks serving MCP over stdin/stdout until the stream closes.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
