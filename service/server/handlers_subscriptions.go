package server

import (
	"net/http"

	"pushrelay/service/util"
)

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, err, "")
		return
	}

	if err := s.registry.Subscribe(r.Context(), req.UserID, req.Subscription); err != nil {
		s.writeError(w, err, "")
		return
	}

	util.WriteJSON(w, s.logger, http.StatusOK, successResponse{
		Success: true,
		Message: "Subscribed to push notifications",
	})
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, err, "")
		return
	}

	if err := s.registry.Unsubscribe(r.Context(), req.UserID); err != nil {
		s.writeError(w, err, "")
		return
	}

	util.WriteJSON(w, s.logger, http.StatusOK, successResponse{
		Success: true,
		Message: "Unsubscribed from push notifications",
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.registry.Stats(r.Context())
	if err != nil {
		s.writeError(w, err, "")
		return
	}

	util.WriteJSON(w, s.logger, http.StatusOK, stats)
}
