package tools

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/JonMunkholm/DbToolServer/internal/db"

	_ "modernc.org/sqlite"
)

// fakeLLM records the last request and replies with canned output.
type fakeLLM struct {
	reply      string
	err        error
	models     []string
	listErr    error
	lastModel  string
	lastPrompt string
}

func (f *fakeLLM) Generate(ctx context.Context, model, promptText string) (string, error) {
	f.lastModel = model
	f.lastPrompt = promptText
	return f.reply, f.err
}

func (f *fakeLLM) ListModels(ctx context.Context) ([]string, error) {
	return f.models, f.listErr
}

func setupToolset(t *testing.T, llm LLM) *Toolset {
	t.Helper()

	database, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	dialect, err := db.DialectFor("sqlite")
	if err != nil {
		t.Fatalf("dialect: %v", err)
	}
	manager := db.New(database, dialect)
	if err := manager.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return NewToolset(manager, llm, "llama3.2")
}

func TestQueryDatabaseGateRejection(t *testing.T) {
	ts := setupToolset(t, &fakeLLM{})

	text, f := ts.QueryDatabase(context.Background(), "DELETE FROM users")
	if f != nil {
		t.Fatalf("gate rejection should not be a failure: %v", f)
	}
	if text != "Error: Only SELECT queries are allowed for safety reasons." {
		t.Errorf("rejection text = %q", text)
	}
}

func TestQueryDatabaseNoResults(t *testing.T) {
	ts := setupToolset(t, &fakeLLM{})

	text, f := ts.QueryDatabase(context.Background(), "SELECT * FROM users")
	if f != nil {
		t.Fatalf("unexpected failure: %v", f)
	}
	if !strings.Contains(text, "no results") {
		t.Errorf("empty result text = %q, want a 'no results' notice", text)
	}
}

func TestQueryDatabaseReturnsRowsAsJSON(t *testing.T) {
	ts := setupToolset(t, &fakeLLM{})
	ctx := context.Background()
	if _, f := ts.InsertSampleData(ctx); f != nil {
		t.Fatalf("seed: %v", f)
	}

	text, f := ts.QueryDatabase(ctx, "select name, age from users order by age")
	if f != nil {
		t.Fatalf("unexpected failure: %v", f)
	}

	var rows []map[string]any
	if err := json.Unmarshal([]byte(text), &rows); err != nil {
		t.Fatalf("result is not JSON: %v\n%s", err, text)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0]["name"] != "Jane Smith" {
		t.Errorf("rows[0] = %v", rows[0])
	}
}

func TestQueryDatabaseFailureRendering(t *testing.T) {
	ts := setupToolset(t, &fakeLLM{})

	text, f := ts.QueryDatabase(context.Background(), "SELECT * FROM missing_table")
	if f == nil {
		t.Fatal("want failure for a missing table")
	}
	if f.Label != "Database error" {
		t.Errorf("failure label = %q", f.Label)
	}
	rendered := Render(text, f)
	if !strings.HasPrefix(rendered, "Database error: ") {
		t.Errorf("rendered = %q", rendered)
	}
}

func TestRenderPassthrough(t *testing.T) {
	if got := Render("fine", nil); got != "fine" {
		t.Errorf("Render passthrough = %q", got)
	}
}

func TestCreateTable(t *testing.T) {
	ts := setupToolset(t, &fakeLLM{})
	ctx := context.Background()

	text, f := ts.CreateTable(ctx, "notes", "CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT)")
	if f != nil {
		t.Fatalf("CreateTable: %v", f)
	}
	if text != "Table 'notes' created successfully!" {
		t.Errorf("success text = %q", text)
	}

	names, err := ts.DB.TableNames(ctx)
	if err != nil {
		t.Fatalf("TableNames: %v", err)
	}
	found := false
	for _, n := range names {
		if n == "notes" {
			found = true
		}
	}
	if !found {
		t.Errorf("notes table missing after create: %v", names)
	}
}

func TestCreateTableGateRejection(t *testing.T) {
	ts := setupToolset(t, &fakeLLM{})

	text, f := ts.CreateTable(context.Background(), "t", "DROP TABLE users")
	if f != nil {
		t.Fatalf("gate rejection should not be a failure: %v", f)
	}
	if !strings.Contains(text, "Only CREATE TABLE statements are allowed") {
		t.Errorf("rejection text = %q", text)
	}
}

func TestInsertSampleData(t *testing.T) {
	ts := setupToolset(t, &fakeLLM{})

	text, f := ts.InsertSampleData(context.Background())
	if f != nil {
		t.Fatalf("InsertSampleData: %v", f)
	}
	if text != "Sample data inserted successfully!" {
		t.Errorf("success text = %q", text)
	}
}

func TestGetDatabaseSchema(t *testing.T) {
	ts := setupToolset(t, &fakeLLM{})
	ctx := context.Background()
	if _, f := ts.InsertSampleData(ctx); f != nil {
		t.Fatalf("seed: %v", f)
	}

	text, f := ts.GetDatabaseSchema(ctx)
	if f != nil {
		t.Fatalf("GetDatabaseSchema: %v", f)
	}

	var schema map[string]struct {
		Columns  []map[string]any `json:"columns"`
		RowCount int64            `json:"row_count"`
	}
	if err := json.Unmarshal([]byte(text), &schema); err != nil {
		t.Fatalf("schema is not JSON: %v", err)
	}
	users, ok := schema["users"]
	if !ok {
		t.Fatal("schema missing users table")
	}
	if users.RowCount != 2 {
		t.Errorf("users row_count = %d", users.RowCount)
	}
	if len(users.Columns) == 0 {
		t.Error("users columns empty")
	}
}

func TestChatWithOllama(t *testing.T) {
	llm := &fakeLLM{reply: "hello there"}
	ts := setupToolset(t, llm)

	text, f := ts.ChatWithOllama(context.Background(), "hi", "")
	if f != nil {
		t.Fatalf("ChatWithOllama: %v", f)
	}
	if text != "hello there" {
		t.Errorf("reply = %q", text)
	}
	if llm.lastModel != "llama3.2" {
		t.Errorf("empty model should fall back to default, got %q", llm.lastModel)
	}
	if llm.lastPrompt != "hi" {
		t.Errorf("prompt forwarded as %q", llm.lastPrompt)
	}
}

func TestChatWithOllamaFailure(t *testing.T) {
	llm := &fakeLLM{err: errors.New("connection refused")}
	ts := setupToolset(t, llm)

	text, f := ts.ChatWithOllama(context.Background(), "hi", "mistral")
	if f == nil {
		t.Fatal("want failure")
	}
	got := Render(text, f)
	if !strings.HasPrefix(got, "Error communicating with Ollama: ") {
		t.Errorf("rendered = %q", got)
	}
	if llm.lastModel != "mistral" {
		t.Errorf("explicit model not forwarded: %q", llm.lastModel)
	}
}

func TestChatWithContext(t *testing.T) {
	llm := &fakeLLM{reply: "ok"}
	ts := setupToolset(t, llm)
	ctx := context.Background()

	if _, f := ts.ChatWithContext(ctx, "Hello", "", ""); f != nil {
		t.Fatalf("ChatWithContext: %v", f)
	}
	if llm.lastPrompt != "Hello" {
		t.Errorf("empty context should pass message through, got %q", llm.lastPrompt)
	}

	if _, f := ts.ChatWithContext(ctx, "Hello", "X", ""); f != nil {
		t.Fatalf("ChatWithContext: %v", f)
	}
	if !strings.Contains(llm.lastPrompt, "Context: X") || !strings.Contains(llm.lastPrompt, "User: Hello") {
		t.Errorf("context prompt = %q", llm.lastPrompt)
	}
}

func TestAnalyzeTablePromptContents(t *testing.T) {
	llm := &fakeLLM{reply: "analysis"}
	ts := setupToolset(t, llm)
	ctx := context.Background()
	if _, f := ts.InsertSampleData(ctx); f != nil {
		t.Fatalf("seed: %v", f)
	}

	text, f := ts.AnalyzeTable(ctx, "users", "What is the age spread?", "")
	if f != nil {
		t.Fatalf("AnalyzeTable: %v", f)
	}
	if text != "analysis" {
		t.Errorf("reply = %q", text)
	}
	for _, want := range []string{"'users'", "declared_type", "john@example.com", "What is the age spread?"} {
		if !strings.Contains(llm.lastPrompt, want) {
			t.Errorf("analysis prompt missing %q", want)
		}
	}
}

func TestAnalyzeTableMissingTable(t *testing.T) {
	ts := setupToolset(t, &fakeLLM{})

	// PRAGMA on a missing table yields no columns, but the sample query fails.
	_, f := ts.AnalyzeTable(context.Background(), "ghosts", "anything?", "")
	if f == nil {
		t.Fatal("want failure for missing table")
	}
	if f.Label != "Error analyzing data with LLM" {
		t.Errorf("label = %q", f.Label)
	}
}

func TestAnalyzeDatabasePromptContents(t *testing.T) {
	llm := &fakeLLM{reply: "db analysis"}
	ts := setupToolset(t, llm)
	ctx := context.Background()
	if _, f := ts.InsertSampleData(ctx); f != nil {
		t.Fatalf("seed: %v", f)
	}

	_, f := ts.AnalyzeDatabase(ctx, "Which table is largest?", "")
	if f != nil {
		t.Fatalf("AnalyzeDatabase: %v", f)
	}
	for _, want := range []string{"Database Schema:", "Sample Data:", "orders", "Which table is largest?"} {
		if !strings.Contains(llm.lastPrompt, want) {
			t.Errorf("database prompt missing %q", want)
		}
	}
}

func TestGenerateSQLStripsFence(t *testing.T) {
	llm := &fakeLLM{reply: "```sql\nSELECT name FROM users\n```"}
	ts := setupToolset(t, llm)

	text, f := ts.GenerateSQL(context.Background(), "all user names", "")
	if f != nil {
		t.Fatalf("GenerateSQL: %v", f)
	}
	want := "Generated SQL Query:\nSELECT name FROM users\n\nTo execute this query, use the query_database tool."
	if text != want {
		t.Errorf("GenerateSQL = %q, want %q", text, want)
	}
	if !strings.Contains(llm.lastPrompt, "all user names") {
		t.Errorf("generation prompt missing description: %q", llm.lastPrompt)
	}
}

func TestListModels(t *testing.T) {
	ts := setupToolset(t, &fakeLLM{models: []string{"llama3.2:latest", "mistral:7b"}})

	text, f := ts.ListModels(context.Background())
	if f != nil {
		t.Fatalf("ListModels: %v", f)
	}
	want := "Available Ollama models:\n- llama3.2:latest\n- mistral:7b"
	if text != want {
		t.Errorf("ListModels = %q", text)
	}
}

func TestListModelsEmpty(t *testing.T) {
	ts := setupToolset(t, &fakeLLM{})

	text, f := ts.ListModels(context.Background())
	if f != nil {
		t.Fatalf("ListModels: %v", f)
	}
	if !strings.Contains(text, "No models found") {
		t.Errorf("empty list text = %q", text)
	}
}

func TestListModelsFailure(t *testing.T) {
	ts := setupToolset(t, &fakeLLM{listErr: errors.New("boom")})

	text, f := ts.ListModels(context.Background())
	if f == nil {
		t.Fatal("want failure")
	}
	if got := Render(text, f); got != "Error listing models: boom" {
		t.Errorf("rendered = %q", got)
	}
}
