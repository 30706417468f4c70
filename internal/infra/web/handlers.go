// File: internal/infra/web/handlers.go
package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"jobsieve/internal/domain"
	"jobsieve/internal/domain/model"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type loginRequest struct {
	Password string `json:"password"`
}

func (s *Server) loginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if !s.auth.CheckPassword(req.Password) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		token, err := s.auth.Mint(w)
		if err != nil {
			http.Error(w, "Failed to mint session", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}

// postingView flattens a posting for the API.
type postingView struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	URL         string       `json:"url"`
	Description *string      `json:"description,omitempty"`
	Salary      model.Salary `json:"salary"`
	Blacklisted bool         `json:"blacklisted"`
	State       string       `json:"processing_state"`
	HasVector   bool         `json:"has_embedding"`
	CreatedAt   string       `json:"created_at"`
	LastSeenAt  string       `json:"last_seen_at"`
}

func toView(p *model.Posting) postingView {
	return postingView{
		ID:          p.ID,
		Title:       p.Title,
		URL:         p.URL,
		Description: p.Description,
		Salary:      p.Salary,
		Blacklisted: p.Blacklisted,
		State:       string(p.State),
		HasVector:   len(p.Embedding) > 0,
		CreatedAt:   p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		LastSeenAt:  p.LastSeenAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (s *Server) listPostingsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var f model.PostingFilter
		if v := q.Get("state"); v != "" {
			st := model.ProcessingState(v)
			if !st.Valid() {
				http.Error(w, "Unknown processing state", http.StatusBadRequest)
				return
			}
			f.State = &st
		}
		if v := q.Get("blacklisted"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				http.Error(w, "blacklisted must be a boolean", http.StatusBadRequest)
				return
			}
			f.Blacklisted = &b
		}
		f.Search = q.Get("q")
		f.Limit, _ = strconv.Atoi(q.Get("limit"))
		f.Offset, _ = strconv.Atoi(q.Get("offset"))
		if f.Offset < 0 {
			f.Offset = 0
		}

		postings, err := s.postingUC.List(r.Context(), f)
		if err != nil {
			http.Error(w, "Failed to list postings", http.StatusInternalServerError)
			return
		}
		views := make([]postingView, 0, len(postings))
		for _, p := range postings {
			views = append(views, toView(p))
		}
		writeJSON(w, http.StatusOK, struct {
			Data   []postingView `json:"data"`
			Limit  int           `json:"limit"`
			Offset int           `json:"offset"`
		}{views, f.Limit, f.Offset})
	}
}

func (s *Server) getPostingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := s.postingUC.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "Failed to get posting", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, toView(p))
	}
}

func (s *Server) deletePostingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.postingUC.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "Failed to delete posting", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) triggerScanHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := s.scanUC.Run(r.Context())
		if err != nil {
			if errors.Is(err, domain.ErrScanInProgress) {
				http.Error(w, "A scan is already running", http.StatusConflict)
				return
			}
			http.Error(w, "Scan failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func (s *Server) getBlacklistHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kws, err := s.blacklistUC.List(r.Context())
		if err != nil {
			http.Error(w, "Failed to list blacklist", http.StatusInternalServerError)
			return
		}
		type view struct {
			ID       string `json:"id"`
			Text     string `json:"text"`
			Embedded bool   `json:"embedded"`
		}
		out := make([]view, 0, len(kws))
		for _, kw := range kws {
			out = append(out, view{ID: kw.ID, Text: kw.Text, Embedded: len(kw.Embedding) > 0})
		}
		writeJSON(w, http.StatusOK, struct {
			Data []view `json:"data"`
		}{out})
	}
}

// replaceBlacklistHandler accepts the newline-delimited keyword list as a
// plain text body.
func (s *Server) replaceBlacklistHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		kws, err := s.blacklistUC.Replace(r.Context(), string(body))
		if err != nil {
			http.Error(w, "Failed to replace blacklist", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"keywords": len(kws)})
	}
}

func (s *Server) deadTasksHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := make(map[string][]*model.Task, len(model.AllTaskKinds()))
		for _, kind := range model.AllTaskKinds() {
			tasks, err := s.queue.Dead(r.Context(), kind, 100)
			if err != nil {
				http.Error(w, "Failed to read dead tasks", http.StatusInternalServerError)
				return
			}
			out[string(kind)] = tasks
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) queueDepthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := make(map[string]any, len(model.AllTaskKinds()))
		for _, kind := range model.AllTaskKinds() {
			depth, err := s.queue.Depth(r.Context(), kind)
			if err != nil {
				http.Error(w, "Failed to read queue depth", http.StatusInternalServerError)
				return
			}
			out[string(kind)] = depth
		}
		writeJSON(w, http.StatusOK, out)
	}
}
