package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"vipps/internal/domain"
)

// HTTPClient talks to the Vipps APIs over HTTP. The API generation is fixed
// per instance; all three generations normalize into domain.PaymentState so
// the reconciliation logic is written once.
type HTTPClient struct {
	baseURL         string
	version         APIVersion
	merchantSerial  string
	subscriptionKey string
	tokens          TokenSource
	httpClient      *http.Client
}

// NewHTTPClient creates a provider client for the given API generation.
func NewHTTPClient(baseURL string, version APIVersion, merchantSerial, subscriptionKey string, tokens TokenSource, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPClient{
		baseURL:         baseURL,
		version:         version,
		merchantSerial:  merchantSerial,
		subscriptionKey: subscriptionKey,
		tokens:          tokens,
		httpClient:      httpClient,
	}
}

var _ Client = (*HTTPClient)(nil)

// Initiate starts a payment and returns the buyer redirect URL.
func (c *HTTPClient) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error) {
	var (
		path string
		body any
	)

	switch c.version {
	case APIVersionCheckout:
		path = "/checkout/v3/session"
		body = map[string]any{
			"merchantInfo": map[string]any{
				"callbackUrl":                req.CallbackURL,
				"returnUrl":                  req.FallbackURL,
				"callbackAuthorizationToken": req.CallbackAuthToken,
			},
			"transaction": map[string]any{
				"reference": req.OrderID,
				"amount":    map[string]any{"value": req.AmountMinor, "currency": req.CurrencyCode},
			},
		}
	case APIVersionEpayment:
		path = "/epayment/v1/payments"
		body = map[string]any{
			"reference":          req.OrderID,
			"amount":             map[string]any{"value": req.AmountMinor, "currency": req.CurrencyCode},
			"paymentMethod":      map[string]any{"type": "WALLET"},
			"returnUrl":          req.FallbackURL,
			"userFlow":           "WEB_REDIRECT",
			"paymentDescription": "Order " + req.OrderID,
		}
	default:
		path = "/ecomm/v2/payments"
		body = map[string]any{
			"merchantInfo": map[string]any{
				"merchantSerialNumber": c.merchantSerial,
				"callbackPrefix":       req.CallbackURL,
				"fallBack":             req.FallbackURL,
				"authToken":            req.CallbackAuthToken,
				"paymentType":          paymentType(req.Express),
			},
			"customerInfo": map[string]any{"mobileNumber": req.CustomerPhone},
			"transaction": map[string]any{
				"orderId":         req.OrderID,
				"amount":          req.AmountMinor,
				"transactionText": "Order " + req.OrderID,
			},
		}
	}

	var decoded struct {
		URL         string `json:"url"`
		RedirectURL string `json:"redirectUrl"`
		CheckoutURL string `json:"checkoutFrontendUrl"`
	}
	if err := c.do(ctx, http.MethodPost, path, body, &decoded); err != nil {
		return nil, err
	}

	url := decoded.URL
	if url == "" {
		url = decoded.RedirectURL
	}
	if url == "" {
		url = decoded.CheckoutURL
	}
	if url == "" {
		return nil, &Error{Message: "initiate response missing redirect url"}
	}
	return &InitiateResponse{OrderID: req.OrderID, URL: url}, nil
}

func paymentType(express bool) string {
	if express {
		return "eComm Express Payment"
	}
	return "eComm Regular Payment"
}

// GetPaymentState fetches the authoritative payment state and normalizes it.
func (c *HTTPClient) GetPaymentState(ctx context.Context, orderReference string) (*domain.PaymentState, error) {
	switch c.version {
	case APIVersionCheckout:
		var session checkoutSession
		if err := c.do(ctx, http.MethodGet, "/checkout/v3/session/"+orderReference, nil, &session); err != nil {
			return nil, err
		}
		return session.normalize(), nil

	case APIVersionEpayment:
		var payment epaymentPayment
		if err := c.do(ctx, http.MethodGet, "/epayment/v1/payments/"+orderReference, nil, &payment); err != nil {
			return nil, err
		}
		var events []epaymentEvent
		if err := c.do(ctx, http.MethodGet, "/epayment/v1/payments/"+orderReference+"/events", nil, &events); err != nil {
			return nil, err
		}
		return normalizeEpayment(&payment, events), nil

	default:
		var details ecommPaymentDetails
		if err := c.do(ctx, http.MethodGet, "/ecomm/v2/payments/"+orderReference+"/details", nil, &details); err != nil {
			return nil, err
		}
		if details.OrderID == "" {
			details.OrderID = orderReference
		}
		return details.normalize(), nil
	}
}

// Cancel cancels the payment on the provider side.
func (c *HTTPClient) Cancel(ctx context.Context, orderReference string) error {
	switch c.version {
	case APIVersionCheckout:
		return c.do(ctx, http.MethodPost, "/checkout/v3/session/"+orderReference+"/cancel", nil, nil)
	case APIVersionEpayment:
		body := map[string]any{"cancelTransactionOnly": false}
		return c.do(ctx, http.MethodPost, "/epayment/v1/payments/"+orderReference+"/cancel", body, nil)
	default:
		body := map[string]any{
			"merchantInfo": map[string]any{"merchantSerialNumber": c.merchantSerial},
			"transaction":  map[string]any{"transactionText": "Order cancelled"},
		}
		return c.do(ctx, http.MethodPut, "/ecomm/v2/payments/"+orderReference+"/cancel", body, nil)
	}
}

// SendReceipt pushes an order receipt to the provider. Callers treat a
// failure here as non-fatal.
func (c *HTTPClient) SendReceipt(ctx context.Context, order *domain.Order) error {
	totalMinor := order.GrandTotal.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	body := map[string]any{
		"orderLines": []map[string]any{{
			"name":           "Order " + order.IncrementID,
			"id":             order.IncrementID,
			"totalAmount":    totalMinor,
			"totalTaxAmount": 0,
			"taxPercentage":  0,
		}},
		"bottomLine": map[string]any{"currency": "NOK"},
	}
	return c.do(ctx, http.MethodPost, "/order-management/v2/ecom/receipts/"+order.IncrementID, body, nil)
}

// do performs one provider call with auth headers and decodes the response
// into out (when out is non-nil).
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)
	req.Header.Set("Merchant-Serial-Number", c.merchantSerial)
	req.Header.Set("Content-Type", "application/json")
	if method != http.MethodGet {
		req.Header.Set("Idempotency-Key", uuid.New().String())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Message: fmt.Sprintf("%s %s: %v", method, path, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &Error{
			Status:  resp.StatusCode,
			Code:    resp.Status,
			Message: fmt.Sprintf("%s %s: %s", method, path, string(payload)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Message: fmt.Sprintf("%s %s: decode: %v", method, path, err)}
	}
	return nil
}
