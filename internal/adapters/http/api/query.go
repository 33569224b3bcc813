package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"cardbot/internal/adapters/dispatch"
	"cardbot/internal/app"
	"cardbot/internal/domain/model"
)

// QueryService runs one user query and replies through a sink.
// Satisfied by app.Service.
type QueryService interface {
	HandleQuery(ctx context.Context, req app.QueryRequest, sink dispatch.Sink) error
}

// queryRequest is the POST /query body.
type queryRequest struct {
	Command     string `json:"command"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Query       string `json:"query"`
}

// queryMessage is one reply message in the /query response. Placeholder
// is true for the message that would edit the deferred placeholder.
type queryMessage struct {
	Placeholder bool               `json:"placeholder"`
	Text        string             `json:"text,omitempty"`
	Cards       []model.VisualCard `json:"cards,omitempty"`
}

type queryResponse struct {
	Messages []queryMessage `json:"messages"`
}

// bufferSink collects dispatched payloads instead of sending them to a
// chat platform.
type bufferSink struct {
	messages []queryMessage
}

func (s *bufferSink) EditPlaceholder(_ context.Context, p dispatch.Payload) error {
	s.messages = append(s.messages, queryMessage{Placeholder: true, Text: p.Text, Cards: p.Cards})
	return nil
}

func (s *bufferSink) SendFollowUp(_ context.Context, p dispatch.Payload) error {
	s.messages = append(s.messages, queryMessage{Text: p.Text, Cards: p.Cards})
	return nil
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.svc == nil {
		http.Error(w, "query service not configured", http.StatusServiceUnavailable)
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		req.UserID = "anonymous"
	}
	if req.Command == "" {
		req.Command = string(app.CommandCard)
	}

	sink := &bufferSink{}
	err := s.svc.HandleQuery(r.Context(), app.QueryRequest{
		Command:     app.Command(req.Command),
		UserID:      req.UserID,
		DisplayName: req.DisplayName,
		Query:       req.Query,
	}, sink)
	if err != nil {
		http.Error(w, "query handling failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, s.log, http.StatusOK, queryResponse{Messages: sink.messages})
}
