package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"tricycle/internal/domain"
	"tricycle/internal/repository"
)

// Provider is the interface to the external payment provider. It is a
// black box that initializes a transaction and later reports its outcome
// for a reference; it is never called inside a lifecycle transition.
type Provider interface {
	// Initialize starts a transaction and returns the checkout URL and
	// the provider reference.
	Initialize(ctx context.Context, email string, amount float64) (authorizationURL, reference string, err error)

	// Verify reports whether the transaction for the reference succeeded
	// and the settled amount.
	Verify(ctx context.Context, reference string) (success bool, amount float64, err error)
}

// MockProvider is a Provider for tests and local runs. Every transaction
// succeeds.
type MockProvider struct{}

// NewMockProvider creates a new MockProvider.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// Initialize returns a synthetic checkout URL and reference.
func (p *MockProvider) Initialize(ctx context.Context, email string, amount float64) (string, string, error) {
	reference := uuid.New().String()
	return "https://checkout.invalid/" + reference, reference, nil
}

// Verify always reports success.
func (p *MockProvider) Verify(ctx context.Context, reference string) (bool, float64, error) {
	return true, 0, nil
}

// PaystackProvider talks to a Paystack-compatible transaction API.
type PaystackProvider struct {
	client      *http.Client
	baseURL     string
	secretKey   string
	callbackURL string
}

// NewPaystackProvider creates a provider against the given API base URL.
func NewPaystackProvider(baseURL, secretKey, callbackURL string) *PaystackProvider {
	return &PaystackProvider{
		client:      &http.Client{Timeout: 15 * time.Second},
		baseURL:     baseURL,
		secretKey:   secretKey,
		callbackURL: callbackURL,
	}
}

// Initialize starts a transaction via POST /transaction/initialize.
func (p *PaystackProvider) Initialize(ctx context.Context, email string, amount float64) (string, string, error) {
	body, err := json.Marshal(map[string]any{
		"email":        email,
		"amount":       amount,
		"callback_url": p.callbackURL,
	})
	if err != nil {
		return "", "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("payment initialize: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Data struct {
			AuthorizationURL string `json:"authorization_url"`
			Reference        string `json:"reference"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", "", err
	}

	return payload.Data.AuthorizationURL, payload.Data.Reference, nil
}

// Verify checks a transaction via GET /transaction/verify/{reference}.
func (p *PaystackProvider) Verify(ctx context.Context, reference string) (bool, float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/transaction/verify/"+reference, nil)
	if err != nil {
		return false, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return false, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, 0, fmt.Errorf("payment verify: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Data struct {
			Status string  `json:"status"`
			Amount float64 `json:"amount"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return false, 0, err
	}

	return payload.Data.Status == "success", payload.Data.Amount, nil
}

// PaymentService reconciles ride payment status with the provider.
type PaymentService struct {
	rides    *RideService
	rideRepo repository.RideRepository
	provider Provider
	notifier *NotificationService
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(rides *RideService, rideRepo repository.RideRepository, provider Provider, notifier *NotificationService) *PaymentService {
	return &PaymentService{
		rides:    rides,
		rideRepo: rideRepo,
		provider: provider,
		notifier: notifier,
	}
}

// InitializePaymentRequest contains the parameters for starting a paid
// ride flow.
type InitializePaymentRequest struct {
	Email  string
	Amount float64
	Ride   CreateRideRequest
}

// PaymentInitialization is the result of starting a payment flow.
type PaymentInitialization struct {
	AuthorizationURL string
	Reference        string
	Ride             *domain.Ride
}

// InitializePayment starts a provider transaction and creates the ride
// carrying the returned reference, payment status pending.
func (s *PaymentService) InitializePayment(ctx context.Context, req InitializePaymentRequest) (*PaymentInitialization, error) {
	if req.Email == "" {
		return nil, ErrInvalidPaymentEmail
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidPaymentAmount
	}

	authorizationURL, reference, err := s.provider.Initialize(ctx, req.Email, req.Amount)
	if err != nil {
		return nil, err
	}

	rideReq := req.Ride
	rideReq.PaymentReference = reference

	ride, err := s.rides.CreateRide(ctx, rideReq)
	if err != nil {
		return nil, err
	}

	return &PaymentInitialization{
		AuthorizationURL: authorizationURL,
		Reference:        reference,
		Ride:             ride,
	}, nil
}

// VerifyPayment asks the provider for the transaction outcome and, on
// success, marks the matching ride paid.
func (s *PaymentService) VerifyPayment(ctx context.Context, reference string) (*domain.Ride, error) {
	if reference == "" {
		return nil, ErrInvalidPaymentReference
	}

	success, _, err := s.provider.Verify(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !success {
		return nil, ErrPaymentNotSuccessful
	}

	ride, err := s.rideRepo.MarkPaidByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	if s.notifier != nil {
		go s.notifier.PaymentConfirmed(context.Background(), ride)
	}

	return ride, nil
}
