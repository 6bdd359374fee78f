package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"pushrelay/service/delivery"
)

type subscribeRequest struct {
	Subscription json.RawMessage `json:"subscription"`
	UserID       string          `json:"userId"`
}

func (r subscribeRequest) Validate() error {
	if delivery.DescriptorMissing(r.Subscription) {
		return delivery.NewValidationError("Subscription is required")
	}
	return nil
}

type unsubscribeRequest struct {
	UserID string `json:"userId"`
}

func (r unsubscribeRequest) Validate() error {
	return nil
}

type sendRequest struct {
	UserID string `json:"userId"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	Icon   string `json:"icon"`
	Badge  string `json:"badge"`
	Tag    string `json:"tag"`
}

func (r sendRequest) Validate() error {
	if r.UserID == "" || r.Title == "" || r.Body == "" {
		return delivery.NewValidationError("userId, title, and body are required")
	}
	return nil
}

type broadcastRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon"`
	Badge string `json:"badge"`
	Tag   string `json:"tag"`
}

func (r broadcastRequest) Validate() error {
	if r.Title == "" || r.Body == "" {
		return delivery.NewValidationError("title and body are required")
	}
	return nil
}

type notifyRequest struct {
	UserID    string            `json:"userId"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Icon      string            `json:"icon"`
	Badge     string            `json:"badge"`
	Tag       string            `json:"tag"`
	URL       string            `json:"url"`
	Type      string            `json:"type"`
	Priority  delivery.Priority `json:"priority"`
	Data      map[string]any    `json:"data"`
	Broadcast bool              `json:"broadcast"`
}

func (r notifyRequest) Validate() error {
	if r.Title == "" || r.Body == "" {
		return delivery.NewValidationError("title and body are required")
	}
	if !r.Broadcast && r.UserID == "" {
		return delivery.NewValidationError("userId is required for individual notifications, or set broadcast: true")
	}
	return nil
}

func (r notifyRequest) options() delivery.UniversalOptions {
	return delivery.UniversalOptions{
		Title:    r.Title,
		Body:     r.Body,
		Icon:     r.Icon,
		Badge:    r.Badge,
		Tag:      r.Tag,
		URL:      r.URL,
		Type:     r.Type,
		Priority: r.Priority,
		Data:     r.Data,
	}
}

type newLeadRequest struct {
	UserID     string            `json:"userId"`
	ClientName string            `json:"clientName"`
	YachtName  string            `json:"yachtName"`
	Priority   delivery.Priority `json:"priority"`
}

func (r newLeadRequest) Validate() error {
	if r.UserID == "" || r.ClientName == "" || r.YachtName == "" {
		return delivery.NewValidationError("userId, clientName, and yachtName are required")
	}
	return nil
}

type testNotificationRequest struct {
	UserID string `json:"userId"`
}

func (r testNotificationRequest) Validate() error {
	if r.UserID == "" {
		return delivery.NewValidationError("userId is required")
	}
	return nil
}

type validator interface {
	Validate() error
}

// decodeRequest reads a JSON body into req and validates it. An empty body
// decodes as an empty request so that field checks produce the error.
func decodeRequest(r *http.Request, req validator) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(req); err != nil && !errors.Is(err, io.EOF) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &requestError{status: http.StatusRequestEntityTooLarge, message: "Request body too large"}
		}
		return &requestError{status: http.StatusBadRequest, message: "Invalid request body", details: err.Error()}
	}
	return req.Validate()
}

type requestError struct {
	status  int
	message string
	details string
}

func (e *requestError) Error() string {
	return e.message
}
