// Package tools implements the operations exposed over the transports:
// database query/insert/schema plus LLM chat, analysis, and SQL generation.
//
// Handlers return (text, *Failure). A nil Failure means the text is the
// final result, including advisory strings like gate rejections and the
// empty-result notice. Transports render a Failure back into the flat
// "<label>: <detail>" string external clients expect (see Render), so a
// collaborator fault never escapes a tool handler.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JonMunkholm/DbToolServer/internal/db"
	"github.com/JonMunkholm/DbToolServer/internal/gate"
	"github.com/JonMunkholm/DbToolServer/internal/prompt"
)

// LLM is the completion surface the handlers need from the model runtime.
type LLM interface {
	Generate(ctx context.Context, model, promptText string) (string, error)
	ListModels(ctx context.Context) ([]string, error)
}

// Failure pairs an error with the label external clients expect in the flat
// text channel.
type Failure struct {
	Label string
	Err   error
}

func (f *Failure) Error() string {
	return f.Label + ": " + f.Err.Error()
}

func fail(label string, err error) *Failure {
	return &Failure{Label: label, Err: err}
}

// Render flattens a handler result into the single text value delivered to
// clients. Failures become normal text responses, never transport errors.
func Render(text string, f *Failure) string {
	if f != nil {
		return f.Error()
	}
	return text
}

// Toolset holds the injected collaborators. One value serves all requests;
// it carries no per-request state.
type Toolset struct {
	DB           *db.Manager
	LLM          LLM
	DefaultModel string
}

// NewToolset wires the tool handlers to their collaborators.
func NewToolset(database *db.Manager, llm LLM, defaultModel string) *Toolset {
	return &Toolset{DB: database, LLM: llm, DefaultModel: defaultModel}
}

func (t *Toolset) model(requested string) string {
	if strings.TrimSpace(requested) == "" {
		return t.DefaultModel
	}
	return requested
}

// QueryDatabase executes a read query. Only SELECT statements pass the
// gate; matching zero rows reports that explicitly instead of returning an
// empty array.
func (t *Toolset) QueryDatabase(ctx context.Context, sqlText string) (string, *Failure) {
	if res := gate.ReadQuery.Check(sqlText); !res.Allowed {
		return res.Reason, nil
	}

	rows, err := t.DB.Query(ctx, sqlText)
	if err != nil {
		return "", fail("Database error", err)
	}
	if len(rows) == 0 {
		return "Query executed successfully but returned no results.", nil
	}

	out, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", fail("Database error", err)
	}
	return string(out), nil
}

// InsertSampleData seeds the fixture tables.
func (t *Toolset) InsertSampleData(ctx context.Context) (string, *Failure) {
	if _, err := t.DB.InsertSampleData(ctx); err != nil {
		return "", fail("Error inserting sample data", err)
	}
	return "Sample data inserted successfully!", nil
}

// GetDatabaseSchema introspects every table and returns the schema map as
// indented JSON.
func (t *Toolset) GetDatabaseSchema(ctx context.Context) (string, *Failure) {
	schema, err := t.DB.Schema(ctx)
	if err != nil {
		return "", fail("Error getting database schema", err)
	}
	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", fail("Error getting database schema", err)
	}
	return string(out), nil
}

// CreateTable runs a CREATE TABLE statement after the admission gate.
func (t *Toolset) CreateTable(ctx context.Context, name, schemaSQL string) (string, *Failure) {
	if res := gate.TableCreation.Check(schemaSQL); !res.Allowed {
		return res.Reason, nil
	}
	if _, err := t.DB.Exec(ctx, schemaSQL); err != nil {
		return "", fail("Error creating table", err)
	}
	return fmt.Sprintf("Table '%s' created successfully!", name), nil
}

// ChatWithOllama forwards a prompt to the model unchanged.
func (t *Toolset) ChatWithOllama(ctx context.Context, promptText, model string) (string, *Failure) {
	resp, err := t.LLM.Generate(ctx, t.model(model), promptText)
	if err != nil {
		return "", fail("Error communicating with Ollama", err)
	}
	return resp, nil
}

// ChatWithContext forwards a message with optional context prepended. An
// empty context sends the message unmodified.
func (t *Toolset) ChatWithContext(ctx context.Context, message, contextText, model string) (string, *Failure) {
	resp, err := t.LLM.Generate(ctx, t.model(model), prompt.BuildChatPrompt(message, contextText))
	if err != nil {
		return "", fail("Error in chat with context", err)
	}
	return resp, nil
}

// AnalyzeTable asks the model a question about one table, giving it the
// table's schema and up to ten sample rows.
func (t *Toolset) AnalyzeTable(ctx context.Context, table, question, model string) (string, *Failure) {
	cols, err := t.DB.TableColumns(ctx, table)
	if err != nil {
		return "", fail("Error analyzing data with LLM", err)
	}
	schemaJSON, err := json.MarshalIndent(cols, "", "  ")
	if err != nil {
		return "", fail("Error analyzing data with LLM", err)
	}

	rows, err := t.DB.SampleRows(ctx, table, prompt.TableSampleLimit)
	if err != nil {
		return "", fail("Error analyzing data with LLM", err)
	}
	sampleJSON, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", fail("Error analyzing data with LLM", err)
	}

	p := prompt.BuildTableAnalysisPrompt(table, string(schemaJSON), string(sampleJSON), question)
	resp, err := t.LLM.Generate(ctx, t.model(model), p)
	if err != nil {
		return "", fail("Error analyzing data with LLM", err)
	}
	return resp, nil
}

// AnalyzeDatabase asks the model a question about the whole database,
// giving it the full schema and up to five sample rows per table.
func (t *Toolset) AnalyzeDatabase(ctx context.Context, question, model string) (string, *Failure) {
	schema, err := t.DB.Schema(ctx)
	if err != nil {
		return "", fail("Error analyzing database", err)
	}
	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", fail("Error analyzing database", err)
	}

	names, err := t.DB.TableNames(ctx)
	if err != nil {
		return "", fail("Error analyzing database", err)
	}
	samples := make(map[string][]map[string]any, len(names))
	for _, name := range names {
		rows, err := t.DB.SampleRows(ctx, name, prompt.DatabaseSampleLimit)
		if err != nil {
			return "", fail("Error analyzing database", err)
		}
		samples[name] = rows
	}
	samplesJSON, err := json.MarshalIndent(samples, "", "  ")
	if err != nil {
		return "", fail("Error analyzing database", err)
	}

	p := prompt.BuildDatabaseAnalysisPrompt(string(schemaJSON), string(samplesJSON), question)
	resp, err := t.LLM.Generate(ctx, t.model(model), p)
	if err != nil {
		return "", fail("Error analyzing database", err)
	}
	return resp, nil
}

// GenerateSQL turns a natural-language description into a SQL query using
// the live schema, stripping any code-fence wrapper from the reply.
func (t *Toolset) GenerateSQL(ctx context.Context, description, model string) (string, *Failure) {
	schema, err := t.DB.Schema(ctx)
	if err != nil {
		return "", fail("Error generating SQL", err)
	}
	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", fail("Error generating SQL", err)
	}

	p := prompt.BuildGenerationPrompt(string(schemaJSON), description)
	raw, err := t.LLM.Generate(ctx, t.model(model), p)
	if err != nil {
		return "", fail("Error generating SQL", err)
	}

	sqlQuery := prompt.StripCodeFence(raw)
	return fmt.Sprintf("Generated SQL Query:\n%s\n\nTo execute this query, use the query_database tool.", sqlQuery), nil
}

// ListModels reports the models installed in the Ollama runtime.
func (t *Toolset) ListModels(ctx context.Context) (string, *Failure) {
	models, err := t.LLM.ListModels(ctx)
	if err != nil {
		return "", fail("Error listing models", err)
	}
	if len(models) == 0 {
		return "No models found. Make sure Ollama is running and has models installed.", nil
	}

	var sb strings.Builder
	sb.WriteString("Available Ollama models:")
	for _, m := range models {
		sb.WriteString("\n- ")
		sb.WriteString(m)
	}
	return sb.String(), nil
}
