package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"backend/internal/models"
)

// SessionRequest carries everything needed to open a hosted checkout
// session for one order.
type SessionRequest struct {
	OrderID    string
	Print      models.Print
	FullName   string
	Email      string
	Address    models.Address
	Notes      string
	SuccessURL string
	CancelURL  string
}

// Session is the provider's answer: an opaque session id plus the hosted
// payment page URL.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// SessionCreator opens checkout sessions. The HTTP client below is the
// real implementation; tests substitute their own.
type SessionCreator interface {
	CreateSession(ctx context.Context, req SessionRequest) (Session, error)
}

// UpstreamError reports a failed call to the payment provider.
type UpstreamError struct {
	Status int
	Body   string
}

func (e UpstreamError) Error() string {
	return fmt.Sprintf("payment provider returned %d: %s", e.Status, e.Body)
}

// Client calls the provider's checkout session API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a session client for the given API key. An empty
// baseURL uses the provider default.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.stripe.com"
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func cents(usd float64) int64 {
	return int64(math.Round(usd * 100))
}

// idempotencyKey is stable for one logical checkout attempt: retrying the
// same order with the same form fields reuses the key, so the provider
// returns the already-created session instead of opening another. A
// changed attempt (new address, new quantity) gets a fresh key.
func idempotencyKey(req SessionRequest) string {
	fingerprint := strings.Join([]string{
		"checkout",
		req.OrderID,
		req.FullName,
		req.Email,
		req.Address.Line1,
		req.Address.Line2,
		req.Address.City,
		req.Address.State,
		req.Address.PostalCode,
		req.Address.Country,
		req.Notes,
		strconv.FormatInt(cents(req.Print.PriceEach), 10),
		strconv.FormatInt(cents(req.Print.BaseFee), 10),
		strconv.Itoa(req.Print.Qty),
	}, "|")
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fingerprint)).String()
}

// CreateSession opens a hosted checkout session with one line item for the
// print (unit price × quantity) and, when present, a second one-off line
// for the base fee. The order id rides along in the session metadata so
// webhook events can be correlated back.
func (c *Client) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	qty := req.Print.Qty
	if qty < 1 {
		qty = 1
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("line_items[0][price_data][currency]", "usd")
	form.Set("line_items[0][price_data][product_data][name]", req.Print.FileName)
	form.Set("line_items[0][price_data][product_data][description]",
		fmt.Sprintf("%s • %s • %s", strings.ToUpper(req.Print.Material), req.Print.Quality, req.Print.Color))
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(cents(req.Print.PriceEach), 10))
	form.Set("line_items[0][quantity]", strconv.Itoa(qty))

	if req.Print.BaseFee > 0 {
		form.Set("line_items[1][price_data][currency]", "usd")
		form.Set("line_items[1][price_data][product_data][name]", "Base fee")
		form.Set("line_items[1][price_data][unit_amount]", strconv.FormatInt(cents(req.Print.BaseFee), 10))
		form.Set("line_items[1][quantity]", "1")
	}

	form.Set("customer_email", req.Email)
	form.Set("payment_intent_data[shipping][name]", req.FullName)
	form.Set("payment_intent_data[shipping][address][line1]", req.Address.Line1)
	form.Set("payment_intent_data[shipping][address][city]", req.Address.City)
	form.Set("payment_intent_data[shipping][address][state]", req.Address.State)
	form.Set("payment_intent_data[shipping][address][postal_code]", req.Address.PostalCode)
	form.Set("payment_intent_data[shipping][address][country]", req.Address.Country)
	form.Set("automatic_tax[enabled]", "true")
	form.Set("billing_address_collection", "required")
	form.Set("shipping_address_collection[allowed_countries][0]", "US")
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	form.Set("metadata[orderId]", req.OrderID)
	if req.Notes != "" {
		form.Set("metadata[notes]", req.Notes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return Session{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Idempotency-Key", idempotencyKey(req))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Session{}, UpstreamError{Status: 0, Body: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Session{}, UpstreamError{Status: resp.StatusCode, Body: "unreadable response"}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Session{}, UpstreamError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var session Session
	if err := json.Unmarshal(body, &session); err != nil {
		return Session{}, UpstreamError{Status: resp.StatusCode, Body: "malformed session response"}
	}
	if session.ID == "" {
		return Session{}, UpstreamError{Status: resp.StatusCode, Body: "session response missing id"}
	}
	return session, nil
}
