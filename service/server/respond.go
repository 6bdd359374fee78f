package server

import (
	"context"
	"errors"
	"net/http"

	"pushrelay/service/delivery"
	"pushrelay/service/util"
)

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// writeError maps an error onto the JSON error contract. failMessage is the
// error text used when the push service rejected the delivery.
func (s *Server) writeError(w http.ResponseWriter, err error, failMessage string) {
	var (
		reqErr      *requestError
		validErr    *delivery.ValidationError
		notFoundErr *delivery.NotFoundError
		deliveryErr *delivery.DeliveryError
	)

	switch {
	case errors.As(err, &reqErr):
		util.JSONError(w, s.logger, reqErr.message, reqErr.details, reqErr.status)
	case errors.As(err, &validErr):
		util.JSONError(w, s.logger, validErr.Message, "", http.StatusBadRequest)
	case errors.As(err, &notFoundErr):
		util.JSONError(w, s.logger, notFoundErr.Error(), "", http.StatusNotFound)
	case errors.As(err, &deliveryErr):
		util.JSONError(w, s.logger, failMessage, deliveryErr.Err.Error(), http.StatusInternalServerError)
	default:
		util.LogAndError(w, s.logger, "Internal server error", http.StatusInternalServerError, err)
	}
}

// detach keeps request values but drops cancellation so a client that hangs
// up mid-broadcast does not abort deliveries already under way.
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}
