package server

import (
	"fmt"
	"net/http"

	"pushrelay/service/delivery"
	"pushrelay/service/util"
)

type broadcastResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	SuccessCount int    `json:"successCount"`
	FailureCount int    `json:"failureCount"`
}

type notifyBroadcastResponse struct {
	Success      bool                  `json:"success"`
	Message      string                `json:"message"`
	Type         string                `json:"type"`
	SuccessCount int                   `json:"successCount"`
	FailureCount int                   `json:"failureCount"`
	Results      []delivery.UserResult `json:"results"`
}

type individualResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Type    string `json:"type"`
	UserID  string `json:"userId"`
}

func broadcastMessage(res delivery.BroadcastResult) string {
	return fmt.Sprintf("Broadcast sent to %d users, %d failed", res.SuccessCount, res.FailureCount)
}

func (s *Server) handleSendNotification(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, err, "")
		return
	}

	notif := delivery.Simple(s.defaults, req.Title, req.Body, req.Icon, req.Badge, req.Tag)
	if err := s.publisher.SendToUser(detach(r), req.UserID, notif); err != nil {
		s.writeError(w, err, "Failed to send notification")
		return
	}

	util.WriteJSON(w, s.logger, http.StatusOK, successResponse{
		Success: true,
		Message: "Notification sent successfully",
	})
}

func (s *Server) handleBroadcastNotification(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, err, "")
		return
	}

	notif := delivery.Simple(s.defaults, req.Title, req.Body, req.Icon, req.Badge, req.Tag)
	res, err := s.publisher.Broadcast(detach(r), notif)
	if err != nil {
		s.writeError(w, err, "")
		return
	}

	util.WriteJSON(w, s.logger, http.StatusOK, broadcastResponse{
		Success:      true,
		Message:      broadcastMessage(res),
		SuccessCount: res.SuccessCount,
		FailureCount: res.FailureCount,
	})
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, err, "")
		return
	}

	notif := delivery.Universal(s.defaults, req.options(), s.now())

	if req.Broadcast {
		res, err := s.publisher.Broadcast(detach(r), notif)
		if err != nil {
			s.writeError(w, err, "")
			return
		}

		util.WriteJSON(w, s.logger, http.StatusOK, notifyBroadcastResponse{
			Success:      true,
			Message:      broadcastMessage(res),
			Type:         "broadcast",
			SuccessCount: res.SuccessCount,
			FailureCount: res.FailureCount,
			Results:      res.Results,
		})
		return
	}

	if err := s.publisher.SendToUser(detach(r), req.UserID, notif); err != nil {
		s.writeError(w, err, "Failed to send notification")
		return
	}

	util.WriteJSON(w, s.logger, http.StatusOK, individualResponse{
		Success: true,
		Message: "Notification sent successfully",
		Type:    "individual",
		UserID:  req.UserID,
	})
}

func (s *Server) handleNotifyNewLead(w http.ResponseWriter, r *http.Request) {
	var req newLeadRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, err, "")
		return
	}

	notif := delivery.NewLead(s.defaults, req.ClientName, req.YachtName, req.Priority)
	if err := s.publisher.SendToUser(detach(r), req.UserID, notif); err != nil {
		s.writeError(w, err, "Failed to send lead notification")
		return
	}

	util.WriteJSON(w, s.logger, http.StatusOK, successResponse{
		Success: true,
		Message: "Lead notification sent!",
	})
}

func (s *Server) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	var req testNotificationRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, err, "")
		return
	}

	if err := s.publisher.SendToUser(detach(r), req.UserID, delivery.Test(s.defaults)); err != nil {
		s.writeError(w, err, "Failed to send test notification")
		return
	}

	util.WriteJSON(w, s.logger, http.StatusOK, successResponse{
		Success: true,
		Message: "Test notification sent!",
	})
}
