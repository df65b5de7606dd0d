package service

import "errors"

var (
	// ErrRideNotAvailable is returned when a ride cannot be claimed:
	// it does not exist, is no longer pending, or another driver's
	// concurrent assignment landed first.
	ErrRideNotAvailable = errors.New("ride not available")

	// ErrInvalidTransition is returned when a lifecycle guard on the
	// ride's current status fails.
	ErrInvalidTransition = errors.New("invalid ride state transition")

	// ErrNotAssignedDriver is returned when the requesting driver is not
	// the driver currently assigned to the ride.
	ErrNotAssignedDriver = errors.New("driver not assigned to this ride")

	// ErrRideAlreadyAssigned is returned when cancelling a ride that
	// already has a driver.
	ErrRideAlreadyAssigned = errors.New("ride already assigned, cannot cancel")

	// ErrInvalidCustomerID is returned when customer ID is empty.
	ErrInvalidCustomerID = errors.New("invalid customer id")

	// ErrInvalidRideID is returned when ride ID is empty.
	ErrInvalidRideID = errors.New("invalid ride id")

	// ErrInvalidDriverID is returned when driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidOriginLocation is returned when origin coordinates are
	// out of range.
	ErrInvalidOriginLocation = errors.New("invalid origin location")

	// ErrInvalidDestinationLocation is returned when destination
	// coordinates are out of range.
	ErrInvalidDestinationLocation = errors.New("invalid destination location")

	// ErrInvalidStatusFilter is returned when a status query parameter is
	// not a known ride status.
	ErrInvalidStatusFilter = errors.New("invalid status filter")

	// ErrInvalidPaymentAmount is returned when a payment amount is not
	// positive.
	ErrInvalidPaymentAmount = errors.New("invalid payment amount")

	// ErrInvalidPaymentEmail is returned when the payer email is empty.
	ErrInvalidPaymentEmail = errors.New("invalid payment email")

	// ErrInvalidPaymentReference is returned when a payment reference is
	// empty.
	ErrInvalidPaymentReference = errors.New("invalid payment reference")

	// ErrPaymentNotSuccessful is returned when the payment provider
	// reports a non-successful transaction.
	ErrPaymentNotSuccessful = errors.New("payment not successful")
)
