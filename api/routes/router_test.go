package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aduboahen/juicekart/internal/backend"
	"github.com/aduboahen/juicekart/internal/checkout"
	"github.com/aduboahen/juicekart/pkg/config"
	pkgerrors "github.com/aduboahen/juicekart/pkg/errors"
)

type stubConfirmer struct {
	confirmed []string
	err       error
}

func (s *stubConfirmer) ConfirmPayment(_ context.Context, reference string) (*checkout.Confirmation, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.confirmed = append(s.confirmed, reference)
	return &checkout.Confirmation{Reference: reference, Method: checkout.MethodCard}, nil
}

type stubOrders struct {
	orders    []backend.Order
	cancelled []string
}

func (s *stubOrders) ListMine(context.Context) ([]backend.Order, error) {
	return s.orders, nil
}

func (s *stubOrders) Cancel(_ context.Context, orderID string) error {
	s.cancelled = append(s.cancelled, orderID)
	return nil
}

func newTestRouter(confirmer *stubConfirmer) http.Handler {
	return NewRouter(config.AppConfig{Env: "test"}, nil, prometheus.NewRegistry(), confirmer, &stubOrders{})
}

func TestHealthz(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter(&stubConfirmer{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := rr.Header().Get("X-JuiceKart-Env"); got != "test" {
		t.Fatalf("env header = %q", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter(&stubConfirmer{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestPaymentReturnConfirmsReference(t *testing.T) {
	confirmer := &stubConfirmer{}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/payments/return?reference=JK-20260829-abcd1234", nil)
	newTestRouter(confirmer).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	if len(confirmer.confirmed) != 1 || confirmer.confirmed[0] != "JK-20260829-abcd1234" {
		t.Fatalf("confirmed = %v", confirmer.confirmed)
	}

	var envelope struct {
		Data checkout.Confirmation `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.Reference != "JK-20260829-abcd1234" {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
}

func TestPaymentReturnAcceptsTrxref(t *testing.T) {
	confirmer := &stubConfirmer{}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/payments/return?trxref=JK-20260829-ffff0000", nil)
	newTestRouter(confirmer).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if len(confirmer.confirmed) != 1 {
		t.Fatalf("expected confirmation via trxref")
	}
}

func TestPaymentReturnRequiresReference(t *testing.T) {
	confirmer := &stubConfirmer{}
	rr := httptest.NewRecorder()
	newTestRouter(confirmer).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/payments/return", nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	if len(confirmer.confirmed) != 0 {
		t.Fatalf("nothing may confirm without a reference")
	}
}

func TestOrderRoutes(t *testing.T) {
	ordersStub := &stubOrders{orders: []backend.Order{{ID: "ord-1"}}}
	router := NewRouter(config.AppConfig{Env: "test"}, nil, prometheus.NewRegistry(), &stubConfirmer{}, ordersStub)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/orders", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/orders/ord-1/cancel", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("cancel status = %d", rr.Code)
	}
	if len(ordersStub.cancelled) != 1 || ordersStub.cancelled[0] != "ord-1" {
		t.Fatalf("cancelled = %v", ordersStub.cancelled)
	}
}

func TestPaymentReturnSurfacesConfirmError(t *testing.T) {
	confirmer := &stubConfirmer{err: pkgerrors.New(pkgerrors.CodeDependency, "backend unavailable")}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/payments/return?reference=JK-1", nil)
	newTestRouter(confirmer).ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}
}
