package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"backend/internal/models"
)

func testSessionRequest() SessionRequest {
	return SessionRequest{
		OrderID: "6570a000000000000000000a",
		Print: models.Print{
			FileName:  "bracket.stl",
			Material:  "pla",
			Quality:   "standard",
			Color:     "black",
			Qty:       3,
			PriceEach: 5.00,
			BaseFee:   3.00,
		},
		FullName:   "Buyer One",
		Email:      "buyer@example.com",
		SuccessURL: "https://shop.example/order-success",
		CancelURL:  "https://shop.example/checkout",
	}
}

func TestCreateSessionFormEncoding(t *testing.T) {
	var form map[string][]string
	var sentKeys []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		form = r.PostForm
		sentKeys = append(sentKeys, r.Header.Get("Idempotency-Key"))
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test" {
			t.Fatalf("unexpected authorization header %q", got)
		}
		_ = json.NewEncoder(w).Encode(Session{ID: "cs_1", URL: "https://pay.example/cs_1"})
	}))
	defer srv.Close()

	client := NewClient("sk_test", srv.URL)
	session, err := client.CreateSession(context.Background(), testSessionRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.ID != "cs_1" || session.URL != "https://pay.example/cs_1" {
		t.Fatalf("unexpected session %+v", session)
	}
	// A retry of the same request must reuse the key so the provider
	// deduplicates the session.
	if _, err := client.CreateSession(context.Background(), testSessionRequest()); err != nil {
		t.Fatalf("unexpected error on retry: %v", err)
	}
	if len(sentKeys) != 2 || sentKeys[0] == "" || sentKeys[0] != sentKeys[1] {
		t.Fatalf("expected a stable Idempotency-Key across retries, got %v", sentKeys)
	}

	expect := map[string]string{
		"mode": "payment",
		"line_items[0][price_data][unit_amount]": "500",
		"line_items[0][quantity]":                "3",
		"line_items[1][price_data][unit_amount]": "300",
		"line_items[1][quantity]":                "1",
		"metadata[orderId]":                      "6570a000000000000000000a",
		"customer_email":                         "buyer@example.com",
	}
	for key, want := range expect {
		got := form[key]
		if len(got) != 1 || got[0] != want {
			t.Fatalf("form[%s] = %v, want %s", key, got, want)
		}
	}
}

func TestIdempotencyKeyTracksAttempt(t *testing.T) {
	base := idempotencyKey(testSessionRequest())
	if base != idempotencyKey(testSessionRequest()) {
		t.Fatal("same request must produce the same key")
	}

	other := testSessionRequest()
	other.OrderID = "6570a000000000000000000b"
	if idempotencyKey(other) == base {
		t.Fatal("a different order must produce a different key")
	}

	changed := testSessionRequest()
	changed.Address.Line1 = "42 Elm St"
	if idempotencyKey(changed) == base {
		t.Fatal("a changed checkout attempt must produce a different key")
	}
}

func TestCreateSessionSkipsZeroBaseFee(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Has("line_items[1][price_data][unit_amount]") {
			t.Fatal("expected no base fee line item")
		}
		_ = json.NewEncoder(w).Encode(Session{ID: "cs_2", URL: "u"})
	}))
	defer srv.Close()

	req := testSessionRequest()
	req.Print.BaseFee = 0

	client := NewClient("sk_test", srv.URL)
	if _, err := client.CreateSession(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateSessionUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient("sk_test", srv.URL)
	_, err := client.CreateSession(context.Background(), testSessionRequest())
	var upstream UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.Status != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", upstream.Status)
	}
}

func TestCreateSessionRejectsMissingSessionID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient("sk_test", srv.URL)
	if _, err := client.CreateSession(context.Background(), testSessionRequest()); err == nil {
		t.Fatal("expected error for response without session id")
	}
}
