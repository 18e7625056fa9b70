package backendtest

import (
	"encoding/json"
	"log"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlError struct {
	Message string `json:"message"`
}

var rootFieldRe = regexp.MustCompile(`\{\s*([A-Za-z_][A-Za-z0-9_]*)`)

// rootField returns the first selected field of the operation, which names the call.
func rootField(query string) string {
	m := rootFieldRe.FindStringSubmatch(query)
	if m == nil {
		return ""
	}
	return m[1]
}

// Handler routes /graphql/ and /auth/ the way the real backend does.
func (b *Backend) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(csrfCookie)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/graphql/", b.serve(false))
	r.Post("/auth/", b.serve(true))
	return r
}

// csrfCookie hands out the CSRF cookie on every response, like Django does on first visit.
func csrfCookie(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: CSRFToken, Path: "/"})
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) serve(auth bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req graphqlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondErrors(w, http.StatusBadRequest, "invalid request body")
			return
		}

		op := rootField(req.Query)
		fault, hold := b.record(op, r.Header.Get("X-CSRFToken"))
		if hold != nil {
			select {
			case <-hold:
			case <-r.Context().Done():
				return
			}
		}

		switch fault {
		case FailServer:
			respondErrors(w, http.StatusOK, op+" failed")
			return
		case FailTransport:
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("bad gateway"))
			return
		}

		if (op == OpLogin) != auth {
			respondErrors(w, http.StatusOK, "Cannot query field '"+op+"' on type 'Mutation'.")
			return
		}

		data, err := b.resolve(op, vars(req.Variables))
		if err != nil {
			respondErrors(w, http.StatusOK, err.Error())
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"data": map[string]any{op: data}})
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondErrors(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{
		"data":   nil,
		"errors": []graphqlError{{Message: message}},
	})
}
