package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/DbToolServer/internal/tools"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

// toolResponse is the JSON envelope for every tool endpoint. Result carries
// the same flat text the MCP transport delivers, failures included.
type toolResponse struct {
	Result string `json:"result"`
}

// NewRouter builds the HTTP transport. Each tool is a POST endpoint under
// /tools taking a JSON body that mirrors the tool's arguments. When
// jwtSecret is non-empty the tool routes require a valid HS256 bearer token.
func NewRouter(ts *tools.Toolset, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		if jwtSecret != "" {
			r.Use(jwtAuth(jwtSecret))
		}

		r.Post("/tools/query_database", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				SQL string `json:"sql"`
			}
			if !decodeBody(w, req, &body) {
				return
			}
			respondTool(w)(ts.QueryDatabase(req.Context(), body.SQL))
		})

		r.Post("/tools/insert_sample_data", func(w http.ResponseWriter, req *http.Request) {
			respondTool(w)(ts.InsertSampleData(req.Context()))
		})

		r.Post("/tools/get_database_schema", func(w http.ResponseWriter, req *http.Request) {
			respondTool(w)(ts.GetDatabaseSchema(req.Context()))
		})

		r.Post("/tools/create_table", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				TableName string `json:"table_name"`
				SchemaSQL string `json:"schema_sql"`
			}
			if !decodeBody(w, req, &body) {
				return
			}
			respondTool(w)(ts.CreateTable(req.Context(), body.TableName, body.SchemaSQL))
		})

		r.Post("/tools/chat_with_ollama", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Prompt string `json:"prompt"`
				Model  string `json:"model"`
			}
			if !decodeBody(w, req, &body) {
				return
			}
			respondTool(w)(ts.ChatWithOllama(req.Context(), body.Prompt, body.Model))
		})

		r.Post("/tools/chat_with_context", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Message string `json:"message"`
				Context string `json:"context"`
				Model   string `json:"model"`
			}
			if !decodeBody(w, req, &body) {
				return
			}
			respondTool(w)(ts.ChatWithContext(req.Context(), body.Message, body.Context, body.Model))
		})

		r.Post("/tools/analyze_data_with_llm", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				TableName string `json:"table_name"`
				Question  string `json:"question"`
				Model     string `json:"model"`
			}
			if !decodeBody(w, req, &body) {
				return
			}
			respondTool(w)(ts.AnalyzeTable(req.Context(), body.TableName, body.Question, body.Model))
		})

		r.Post("/tools/analyze_database", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Question string `json:"question"`
				Model    string `json:"model"`
			}
			if !decodeBody(w, req, &body) {
				return
			}
			respondTool(w)(ts.AnalyzeDatabase(req.Context(), body.Question, body.Model))
		})

		r.Post("/tools/generate_sql", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Description string `json:"description"`
				Model       string `json:"model"`
			}
			if !decodeBody(w, req, &body) {
				return
			}
			respondTool(w)(ts.GenerateSQL(req.Context(), body.Description, body.Model))
		})

		r.Post("/tools/list_ollama_models", func(w http.ResponseWriter, req *http.Request) {
			respondTool(w)(ts.ListModels(req.Context()))
		})
	})

	return r
}

// jwtAuth validates an HS256 bearer token against a shared secret.
func jwtAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || tokenString == "" {
				respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
				return
			}

			token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !token.Valid {
				respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return false
	}
	return true
}

// respondTool writes a handler's (text, failure) pair as the flat result
// envelope. Curried so handlers can feed it a tool call directly.
func respondTool(w http.ResponseWriter) func(string, *tools.Failure) {
	return func(text string, f *tools.Failure) {
		respondJSON(w, http.StatusOK, toolResponse{Result: tools.Render(text, f)})
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
