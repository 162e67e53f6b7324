package sap

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/vladislavdragonenkov/sapsync/internal/domain"
)

// recordedRequest — запрос, который увидел фейковый Service Layer.
type recordedRequest struct {
	Method  string
	Path    string
	Filter  string
	Cookies []string
	Body    string
}

// fakeServiceLayer эмулирует SAP Service Layer: логин и произвольные маршруты.
type fakeServiceLayer struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	logins   int
	requests []recordedRequest
	routes   map[string]http.HandlerFunc
	loginFn  http.HandlerFunc
}

func newFakeServiceLayer(t *testing.T) *fakeServiceLayer {
	t.Helper()
	f := &fakeServiceLayer{t: t, routes: make(map[string]http.HandlerFunc)}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeServiceLayer) handle(method, path string, fn http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+path] = fn
}

func (f *fakeServiceLayer) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	if r.URL.Path == "/Login/" {
		f.logins++
		loginFn := f.loginFn
		f.mu.Unlock()
		if loginFn != nil {
			loginFn(w, r)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "B1SESSION", Value: "11111111-2222-3333-4444-555555555555", Path: "/b1s/v1", HttpOnly: true})
		http.SetCookie(w, &http.Cookie{Name: "ROUTEID", Value: ".node1", Path: "/b1s"})
		w.WriteHeader(http.StatusOK)
		return
	}

	f.requests = append(f.requests, recordedRequest{
		Method:  r.Method,
		Path:    r.URL.Path,
		Filter:  r.URL.Query().Get("$filter"),
		Cookies: r.Header.Values("Cookie"),
		Body:    string(body),
	})
	fn, ok := f.routes[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	fn(w, r)
}

func (f *fakeServiceLayer) loginCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins
}

func (f *fakeServiceLayer) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

func (f *fakeServiceLayer) config(code string) domain.MarketConfig {
	return domain.MarketConfig{
		Code:                     code,
		BaseURL:                  f.server.URL + "/",
		BusinessPartnerEndpoint:  "BusinessPartners",
		BillingEndpoint:          "Invoices",
		CreditNotesEndpoint:      "CreditNotes",
		IncomingPaymentsEndpoint: "IncomingPayments",
		OutgoingPaymentEndpoint:  "VendorPayments",
		CurrencyRateEndpoint:     "SBOBobService_SetCurrencyRate",
	}
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode response: %v", err)
	}
}
