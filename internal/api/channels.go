package api

import (
	"net/http"

	"salesbot/internal/domain"
)

func (s *Server) handleListChannels(rw http.ResponseWriter, r *http.Request) {
	channels, err := s.conversations.ListChannels(r.Context())
	if err != nil {
		writeError(rw, http.StatusInternalServerError, err.Error())
		return
	}
	if channels == nil {
		channels = []domain.Channel{}
	}
	writeJSON(rw, http.StatusOK, channels)
}

func (s *Server) handleChannelMessages(rw http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	channel, err := s.conversations.GetChannel(r.Context(), id)
	if err != nil {
		writeError(rw, http.StatusInternalServerError, err.Error())
		return
	}
	if channel == nil {
		writeError(rw, http.StatusNotFound, "channel not found")
		return
	}

	messages, err := s.conversations.GetMessages(r.Context(), id)
	if err != nil {
		writeError(rw, http.StatusInternalServerError, err.Error())
		return
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	writeJSON(rw, http.StatusOK, messages)
}
