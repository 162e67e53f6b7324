package workflow

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/sapsync/internal/domain"
	"github.com/vladislavdragonenkov/sapsync/internal/sap"
)

const testBaseURL = "https://sap.local/b1s/v1/"

func testConfig(code string, needPayments bool) domain.MarketConfig {
	return domain.MarketConfig{
		Code:                       code,
		BaseURL:                    testBaseURL,
		BusinessPartnerEndpoint:    "BusinessPartners",
		BillingEndpoint:            "Invoices",
		CreditNotesEndpoint:        "CreditNotes",
		IncomingPaymentsEndpoint:   "IncomingPayments",
		OutgoingPaymentEndpoint:    "VendorPayments",
		CurrencyRateEndpoint:       "SBOBobService_SetCurrencyRate",
		NeedCreateIncomingPayments: needPayments,
	}
}

type stubMarketHandler struct {
	cfg   domain.MarketConfig
	rules domain.MarketRules

	mu         sync.Mutex
	partner    *domain.BusinessPartner
	invoice    *domain.Invoice
	creditNote *domain.CreditNote
	snapshot   domain.BusinessPartnerSnapshot
	lookupErr  error
	sessionErr error
	panicOn    string
	lookups    []string
}

func newStubMarketHandler(t *testing.T, code string, needPayments bool) *stubMarketHandler {
	t.Helper()
	rules, err := sap.RulesFor(code, time.UTC)
	if err != nil {
		t.Fatalf("rules for %s: %v", code, err)
	}
	return &stubMarketHandler{cfg: testConfig(code, needPayments), rules: rules}
}

func (s *stubMarketHandler) record(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups = append(s.lookups, name)
	if s.panicOn == name {
		panic("boom in " + name)
	}
}

func (s *stubMarketHandler) Market() string { return s.cfg.Code }
func (s *stubMarketHandler) Config() domain.MarketConfig { return s.cfg }
func (s *stubMarketHandler) Rules() domain.MarketRules { return s.rules }

func (s *stubMarketHandler) StartSession(context.Context) (domain.Session, error) {
	if s.sessionErr != nil {
		return domain.Session{}, s.sessionErr
	}
	return domain.Session{PrimaryToken: "B1SESSION=abc", RouteToken: "ROUTEID=.node1", ObtainedAt: time.Now()}, nil
}

func (s *stubMarketHandler) TryGetBusinessPartner(context.Context, int, string, int) (*domain.BusinessPartner, error) {
	s.record("partner")
	return s.partner, s.lookupErr
}

func (s *stubMarketHandler) TryGetBusinessPartnerByCardCode(context.Context, string) (*domain.BusinessPartner, error) {
	s.record("partner-by-code")
	return s.partner, s.lookupErr
}

func (s *stubMarketHandler) CreateBusinessPartnerFromUser(context.Context, domain.DopplerUser) (domain.BusinessPartnerSnapshot, error) {
	s.record("snapshot")
	return s.snapshot, s.lookupErr
}

func (s *stubMarketHandler) TryGetInvoiceByInvoiceIDAndOrigin(context.Context, int, string) (*domain.Invoice, error) {
	s.record("invoice")
	return s.invoice, s.lookupErr
}

func (s *stubMarketHandler) TryGetCreditNoteByCreditNoteID(context.Context, int) (*domain.CreditNote, error) {
	s.record("credit-note")
	return s.creditNote, s.lookupErr
}

type stubMarkets struct {
	handlers map[string]domain.MarketTaskHandler
	systems  map[int]string
}

func marketsWith(handlers ...*stubMarketHandler) *stubMarkets {
	m := &stubMarkets{
		handlers: make(map[string]domain.MarketTaskHandler),
		systems:  map[int]string{2: domain.MarketAR, 9: domain.MarketUS},
	}
	for _, h := range handlers {
		m.handlers[h.Market()] = h
	}
	return m
}

func (m *stubMarkets) HandlerFor(billingSystemID int) (domain.MarketTaskHandler, error) {
	code, ok := m.systems[billingSystemID]
	if !ok {
		return nil, domain.ErrUnsupportedMarket
	}
	return m.GetHandler(code)
}

func (m *stubMarkets) GetHandler(code string) (domain.MarketTaskHandler, error) {
	h, ok := m.handlers[code]
	if !ok {
		return nil, domain.ErrMarketNotImplemented
	}
	return h, nil
}

type sentRequest struct {
	Method  string
	URL     string
	Body    string
	Cookies []string
}

// recordingTransport запоминает запросы и отвечает по первому совпавшему правилу.
type recordingTransport struct {
	mu        sync.Mutex
	requests  []sentRequest
	responses map[string]sap.Response
	err       error
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{responses: make(map[string]sap.Response)}
}

func (r *recordingTransport) respond(method, urlSuffix string, status int, body string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[method+" "+urlSuffix] = sap.Response{StatusCode: status, Body: body}
}

func (r *recordingTransport) Send(_ context.Context, method, url string, body any, session *domain.Session) (sap.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	raw := ""
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return sap.Response{}, err
		}
		raw = string(payload)
	}
	r.requests = append(r.requests, sentRequest{Method: method, URL: url, Body: raw, Cookies: session.Cookies()})

	if r.err != nil {
		return sap.Response{}, r.err
	}
	path := strings.TrimPrefix(url, testBaseURL)
	if resp, ok := r.responses[method+" "+path]; ok {
		return resp, nil
	}
	return sap.Response{StatusCode: 200, Body: "{}"}, nil
}

func (r *recordingTransport) sent() []sentRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sentRequest, len(r.requests))
	copy(out, r.requests)
	return out
}

func decodeBody(t *testing.T, raw string) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("decode request body %q: %v", raw, err)
	}
	return out
}

func fixedClock(t time.Time) Option {
	return WithClock(func() time.Time { return t })
}
