package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"salesbot/internal/domain"
)

type articleRequest struct {
	Name   string `json:"name"`
	Text   string `json:"text"`
	URL    string `json:"url"`
	Active *bool  `json:"active"`
}

func (s *Server) handleListArticles(rw http.ResponseWriter, r *http.Request) {
	articles, err := s.knowledge.ListArticles(r.Context())
	if err != nil {
		writeError(rw, http.StatusInternalServerError, err.Error())
		return
	}
	if articles == nil {
		articles = []domain.KnowledgeArticle{}
	}
	writeJSON(rw, http.StatusOK, articles)
}

// handleCreateArticle creates an article from inline text or from a source
// URL. URL-backed articles are stored inactive and activated once the page
// has been fetched and extracted in the background.
func (s *Server) handleCreateArticle(rw http.ResponseWriter, r *http.Request) {
	var req articleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(rw, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Name == "" {
		writeError(rw, http.StatusBadRequest, "name is required")
		return
	}
	if req.Text == "" && req.URL == "" {
		writeError(rw, http.StatusBadRequest, "text or url is required")
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	article := &domain.KnowledgeArticle{
		Name:   req.Name,
		Text:   req.Text,
		URL:    req.URL,
		Active: active,
	}

	pending := article.Text == "" && article.URL != ""
	if pending {
		article.Active = false
	}

	if err := s.knowledge.SaveArticle(r.Context(), article); err != nil {
		writeError(rw, http.StatusInternalServerError, err.Error())
		return
	}

	if pending {
		go s.populateArticle(article.ID, active)
	}

	writeJSON(rw, http.StatusCreated, article)
}

// populateArticle fetches a URL-backed article's text after creation. The
// request that created the article has already returned, so this runs on a
// fresh context.
func (s *Server) populateArticle(id string, activate bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	article, err := s.knowledge.GetArticle(ctx, id)
	if err != nil || article == nil {
		s.logger.Error("article fetch: reload failed", "id", id, "err", err)
		return
	}

	text, err := s.processor.Extract(ctx, article.URL)
	if err != nil {
		s.logger.Error("article fetch failed, article stays inactive", "id", id, "url", article.URL, "err", err)
		return
	}

	article.Text = text
	article.Active = activate
	if err := s.knowledge.SaveArticle(ctx, article); err != nil {
		s.logger.Error("article fetch: save failed", "id", id, "err", err)
		return
	}
	s.logger.Info("article populated from URL", "id", id, "name", article.Name, "text_len", len(text))
}

func (s *Server) handleGetArticle(rw http.ResponseWriter, r *http.Request) {
	article, err := s.knowledge.GetArticle(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(rw, http.StatusInternalServerError, err.Error())
		return
	}
	if article == nil {
		writeError(rw, http.StatusNotFound, "article not found")
		return
	}
	writeJSON(rw, http.StatusOK, article)
}

func (s *Server) handleUpdateArticle(rw http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := s.knowledge.GetArticle(r.Context(), id)
	if err != nil {
		writeError(rw, http.StatusInternalServerError, err.Error())
		return
	}
	if existing == nil {
		writeError(rw, http.StatusNotFound, "article not found")
		return
	}

	var req articleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(rw, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.Name != "" {
		existing.Name = req.Name
	}
	if req.Text != "" {
		existing.Text = req.Text
	}
	if req.URL != "" {
		existing.URL = req.URL
	}
	if req.Active != nil {
		existing.Active = *req.Active
	}

	if err := s.knowledge.SaveArticle(r.Context(), existing); err != nil {
		writeError(rw, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(rw, http.StatusOK, existing)
}

func (s *Server) handleDeleteArticle(rw http.ResponseWriter, r *http.Request) {
	if err := s.knowledge.DeleteArticle(r.Context(), r.PathValue("id")); err != nil {
		writeError(rw, http.StatusInternalServerError, err.Error())
		return
	}
	rw.WriteHeader(http.StatusNoContent)
}
