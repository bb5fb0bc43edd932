// Package prompt builds the text prompts sent to the LLM collaborator and
// cleans up its replies. Every function is a pure string transform: given
// identical inputs the output is byte-identical.
package prompt

import (
	"fmt"
	"strings"
)

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Sample-row caps applied by the callers before serializing data blocks.
const (
	TableSampleLimit    = 10
	DatabaseSampleLimit = 5
)

// BuildTableAnalysisPrompt assembles the prompt for analyzing a single
// table: schema, then sample rows, then the question. schemaJSON and
// sampleJSON are embedded verbatim.
func BuildTableAnalysisPrompt(table, schemaJSON, sampleJSON, question string) string {
	return fmt.Sprintf(`You are a data analyst. I have a database table called '%s' with the following schema:
%s

Here's a sample of the data:
%s

Question: %s

Please provide insights and analysis based on this data. If you need to suggest SQL queries, make sure they are SELECT queries only.`,
		table, schemaJSON, sampleJSON, question)
}

// BuildDatabaseAnalysisPrompt assembles the whole-database analysis prompt:
// full schema, sample rows per table, then the question.
func BuildDatabaseAnalysisPrompt(schemaJSON, samplesJSON, question string) string {
	return fmt.Sprintf(`You are a database analyst with access to a SQL database.

Database Schema:
%s

Sample Data:
%s

Question: %s

Please provide a comprehensive analysis. If you suggest SQL queries, ensure they are SELECT statements only.
Include insights, patterns, and recommendations based on the data.`,
		schemaJSON, samplesJSON, question)
}

// BuildGenerationPrompt assembles the natural-language-to-SQL prompt:
// schema, then the user's description, closing with the SELECT-only rule.
func BuildGenerationPrompt(schemaJSON, description string) string {
	return fmt.Sprintf(`You are a SQL expert. Given the following database schema, generate a SQL query based on the user's description.

Database Schema:
%s

User Request: %s

Generate only a SELECT SQL query that fulfills the request. Do not include explanations, just the SQL query.
Ensure the query is safe and only uses SELECT statements.`,
		schemaJSON, description)
}

// BuildChatPrompt prefixes a message with optional context. An empty
// context passes the message through unmodified.
func BuildChatPrompt(message, context string) string {
	if context == "" {
		return message
	}
	return fmt.Sprintf("Context: %s\n\nUser: %s\n\nAssistant:", context, message)
}

// FlattenMessages renders a chat transcript as a single completion prompt,
// one "<role>: <content>" line per message. The LLM collaborator has no
// native multi-turn call.
func FlattenMessages(messages []Message) string {
	lines := make([]string, len(messages))
	for i, m := range messages {
		lines[i] = m.Role + ": " + m.Content
	}
	return strings.Join(lines, "\n")
}

// StripCodeFence removes a Markdown code-fence wrapper from a model reply.
// Replies without fence markers are returned trimmed but otherwise
// unchanged; a missing closing fence leaves the content intact.
func StripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(s, "```sql"):
		s = s[len("```sql"):]
	case strings.HasPrefix(s, "```SQL"):
		s = s[len("```SQL"):]
	case strings.HasPrefix(s, "```"):
		s = s[len("```"):]
	default:
		return s
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
