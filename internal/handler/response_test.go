package handler

import (
	"errors"
	"net/http"
	"testing"

	"tricycle/internal/repository"
	"tricycle/internal/service"
)

func TestMapErrorToHTTPStatus(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", repository.ErrNotFound, http.StatusNotFound},
		{"ride not available", service.ErrRideNotAvailable, http.StatusBadRequest},
		{"invalid transition", service.ErrInvalidTransition, http.StatusBadRequest},
		{"already assigned", service.ErrRideAlreadyAssigned, http.StatusBadRequest},
		{"not assigned driver", service.ErrNotAssignedDriver, http.StatusForbidden},
		{"invalid status filter", service.ErrInvalidStatusFilter, http.StatusBadRequest},
		{"payment not successful", service.ErrPaymentNotSuccessful, http.StatusBadRequest},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := mapErrorToHTTPStatus(tc.err); got != tc.want {
				t.Errorf("expected %d, got %d", tc.want, got)
			}
		})
	}
}
