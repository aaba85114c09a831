package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/aduboahen/juicekart/pkg/config"
	pkgerrors "github.com/aduboahen/juicekart/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

type staticTokens struct{ token string }

func (s staticTokens) Token() string { return s.token }

func newTestClient(t *testing.T, rt roundTripFunc, opts ...Option) *Client {
	t.Helper()
	opts = append(opts, WithHTTPClient(&http.Client{Transport: rt}))
	client, err := NewClient(config.BackendConfig{BaseURL: "http://backend.test"}, nil, opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

func TestGetCartAttachesBearerAndDecodes(t *testing.T) {
	respBody := `{"data":[{"id":"line-1","quantity":2,"product":{"id":"p1","name":"Mango Blast","price":12.5,"pack_size":"6-pack"}}]}`

	var capturedAuth string
	var capturedURL string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedAuth = req.Header.Get("Authorization")
		capturedURL = req.URL.String()
		return jsonResponse(http.StatusOK, respBody), nil
	})

	client := newTestClient(t, rt, WithTokenSource(staticTokens{token: "tok-123"}))
	lines, err := client.GetCart(context.Background())
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if capturedAuth != "Bearer tok-123" {
		t.Fatalf("unexpected authorization header %q", capturedAuth)
	}
	if capturedURL != "http://backend.test/cart" {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if len(lines) != 1 || lines[0].CartItemID != "line-1" || lines[0].Quantity != 2 {
		t.Fatalf("unexpected lines %+v", lines)
	}
	if lines[0].UnitPrice.String() != "12.5" {
		t.Fatalf("unexpected unit price %s", lines[0].UnitPrice)
	}
}

func TestGuestRequestsCarryNoAuthorization(t *testing.T) {
	var capturedAuth string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedAuth = req.Header.Get("Authorization")
		return jsonResponse(http.StatusOK, `{"data":[]}`), nil
	})

	client := newTestClient(t, rt, WithTokenSource(staticTokens{}))
	if _, err := client.GetCart(context.Background()); err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if capturedAuth != "" {
		t.Fatalf("expected no authorization header, got %q", capturedAuth)
	}
}

func TestUnauthorizedFiresHookAndMapsCode(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnauthorized, `{"error":{"code":"UNAUTHORIZED"}}`), nil
	})

	hookFired := 0
	client := newTestClient(t, rt, WithUnauthorizedHook(func() { hookFired++ }))

	_, err := client.GetCart(context.Background())
	if err == nil {
		t.Fatal("expected error on 401")
	}
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized code, got %v", err)
	}
	if hookFired != 1 {
		t.Fatalf("expected hook fired once, got %d", hookFired)
	}
}

func TestAddCartItemSendsBodyAndReturnsCanonicalLine(t *testing.T) {
	var payload map[string]any
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodPost || req.URL.Path != "/cart" {
			t.Fatalf("unexpected request %s %s", req.Method, req.URL.Path)
		}
		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if err := json.Unmarshal(bodyBytes, &payload); err != nil {
			t.Fatalf("unmarshal body: %v", err)
		}
		return jsonResponse(http.StatusCreated, `{"data":{"id":"srv-9","quantity":3,"product":{"id":"p1","name":"Mango Blast","price":12.5}}}`), nil
	})

	client := newTestClient(t, rt)
	line, err := client.AddCartItem(context.Background(), "p1", "6-pack", 3)
	if err != nil {
		t.Fatalf("add cart item: %v", err)
	}
	if payload["product_id"] != "p1" || payload["quantity"] != float64(3) || payload["pack_size"] != "6-pack" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if line.CartItemID != "srv-9" || line.Quantity != 3 {
		t.Fatalf("unexpected line %+v", line)
	}
}

func TestAddCartItemRejectsBadInputWithoutNetwork(t *testing.T) {
	calls := 0
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(http.StatusOK, `{}`), nil
	})

	client := newTestClient(t, rt)
	if _, err := client.AddCartItem(context.Background(), "", "", 1); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := client.AddCartItem(context.Background(), "p1", "", 0); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected zero network calls, got %d", calls)
	}
}

func TestRemoveCartItemIssuesDelete(t *testing.T) {
	var method, path string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		method = req.Method
		path = req.URL.Path
		return jsonResponse(http.StatusOK, `{"data":{"ok":true}}`), nil
	})

	client := newTestClient(t, rt)
	if err := client.RemoveCartItem(context.Background(), "line-1"); err != nil {
		t.Fatalf("remove cart item: %v", err)
	}
	if method != http.MethodDelete || path != "/cart/line-1" {
		t.Fatalf("unexpected request %s %s", method, path)
	}
}

func TestServerErrorsMapToDependencyCode(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadGateway, `upstream broke`), nil
	})

	client := newTestClient(t, rt)
	err := client.RemoveCartItem(context.Background(), "line-1")
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency code, got %v", err)
	}
}

func TestInitializePaymentRequiresAuthorizationURL(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"data":{"access_code":"abc"}}`), nil
	})

	client := newTestClient(t, rt)
	_, err := client.InitializePayment(context.Background(), PaymentInitRequest{
		Reference:   "JK-1",
		AmountMinor: 3500,
		Currency:    "GHS",
		Email:       "ama@example.com",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error for missing authorization url, got %v", err)
	}
}

func TestInitializePaymentReturnsGatewayHandoff(t *testing.T) {
	var payload map[string]any
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		bodyBytes, _ := io.ReadAll(req.Body)
		if err := json.Unmarshal(bodyBytes, &payload); err != nil {
			t.Fatalf("unmarshal body: %v", err)
		}
		return jsonResponse(http.StatusOK, `{"data":{"authorization_url":"https://pay.example/x","reference":"JK-1"}}`), nil
	})

	client := newTestClient(t, rt)
	init, err := client.InitializePayment(context.Background(), PaymentInitRequest{
		Reference:   "JK-1",
		AmountMinor: 3500,
		Currency:    "GHS",
		Email:       "ama@example.com",
	})
	if err != nil {
		t.Fatalf("initialize payment: %v", err)
	}
	if init.AuthorizationURL != "https://pay.example/x" {
		t.Fatalf("unexpected authorization url %q", init.AuthorizationURL)
	}
	if payload["amount"] != float64(3500) {
		t.Fatalf("expected amount in smallest unit, got %v", payload["amount"])
	}
}

func TestRefreshTokenRequiresHeldToken(t *testing.T) {
	calls := 0
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(http.StatusOK, `{"data":{"access_token":"new","user_id":"u1"}}`), nil
	})

	client := newTestClient(t, rt)
	if _, err := client.RefreshToken(context.Background(), ""); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for empty refresh token, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no network call, got %d", calls)
	}

	result, err := client.RefreshToken(context.Background(), "refresh-1")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if result.AccessToken != "new" || result.UserID != "u1" {
		t.Fatalf("unexpected refresh result %+v", result)
	}
}
