package server

import (
	"net/http"
	"time"

	"pushrelay/service/util"
)

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Uptime    string `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	util.WriteJSON(w, s.logger, http.StatusOK, healthResponse{
		Status:    "Backend is running!",
		Timestamp: s.now().UTC().Format(time.RFC3339Nano),
		Uptime:    util.FormatUptime(time.Since(s.startTime)),
	})
}

type vapidKeyResponse struct {
	VAPIDPublicKey string `json:"vapidPublicKey"`
}

func (s *Server) handleVAPIDPublicKey(w http.ResponseWriter, r *http.Request) {
	util.WriteJSON(w, s.logger, http.StatusOK, vapidKeyResponse{VAPIDPublicKey: s.cfg.VAPIDPublicKey})
}
