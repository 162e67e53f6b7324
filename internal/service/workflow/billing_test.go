package workflow

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/sapsync/internal/domain"
)

func TestBilling_Create_PostsInvoiceWithPartnerCardCode(t *testing.T) {
	t.Parallel()

	handler := newStubMarketHandler(t, domain.MarketUS, false)
	handler.partner = &domain.BusinessPartner{CardCode: "CD00000000010.0", CreateDate: "2024-01-01"}
	transport := newRecordingTransport()
	transport.respond(http.MethodPost, "Invoices", http.StatusCreated, `{"DocEntry":1}`)

	billing := NewBilling(marketsWith(handler), transport)
	result := billing.Create(context.Background(), domain.SaleOrder{
		SaleOrderDocument: domain.SaleOrderDocument{InvoiceID: 55, NumAtCard: "INV-55"},
		UserID:            10,
		PlanType:          2,
		BillingSystemID:   9,
	})

	if !result.IsSuccessful {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.TaskName != "Creating Billing Request" {
		t.Fatalf("unexpected task name %q", result.TaskName)
	}
	if result.SapResponseContent != `{"DocEntry":1}` {
		t.Fatalf("expected raw response body, got %q", result.SapResponseContent)
	}

	sent := transport.sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 request, got %d", len(sent))
	}
	if sent[0].Method != http.MethodPost || sent[0].URL != testBaseURL+"Invoices" {
		t.Fatalf("unexpected request %s %s", sent[0].Method, sent[0].URL)
	}
	body := decodeBody(t, sent[0].Body)
	if body["CardCode"] != "CD00000000010.0" {
		t.Fatalf("expected partner card code in body, got %v", body["CardCode"])
	}
	if _, ok := body["userId"]; ok {
		t.Fatalf("routing fields must not reach ERP: %v", body)
	}
	if len(sent[0].Cookies) != 2 {
		t.Fatalf("expected both session cookies, got %v", sent[0].Cookies)
	}
}

func TestBilling_Create_RejectedByMarketRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		market  string
		system  int
		partner *domain.BusinessPartner
	}{
		{name: "us partner absent", market: domain.MarketUS, system: 9},
		{name: "ar partner without tax id", market: domain.MarketAR, system: 2, partner: &domain.BusinessPartner{CardCode: "CD1"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := newStubMarketHandler(t, tt.market, false)
			handler.partner = tt.partner
			transport := newRecordingTransport()

			result := NewBilling(marketsWith(handler), transport).Create(context.Background(), domain.SaleOrder{
				UserID:          77,
				BillingSystemID: tt.system,
			})

			if result.IsSuccessful {
				t.Fatal("expected failure")
			}
			if result.SapResponseContent != "Failed at generating billing request for the user: 77." {
				t.Fatalf("unexpected message %q", result.SapResponseContent)
			}
			if result.TaskName != "Creating Billing Request" {
				t.Fatalf("unexpected task name %q", result.TaskName)
			}
			if got := len(transport.sent()); got != 0 {
				t.Fatalf("expected no ERP calls, got %d", got)
			}
		})
	}
}

func TestBilling_Create_UnsupportedMarket(t *testing.T) {
	t.Parallel()

	transport := newRecordingTransport()
	result := NewBilling(marketsWith(), transport).Create(context.Background(), domain.SaleOrder{BillingSystemID: 42})

	if result.IsSuccessful {
		t.Fatal("expected failure")
	}
	if result.SapResponseContent != domain.ErrUnsupportedMarket.Error() {
		t.Fatalf("expected raw routing error, got %q", result.SapResponseContent)
	}
	if result.TaskName != "Creating Billing Request" {
		t.Fatalf("unexpected task name %q", result.TaskName)
	}
}

func TestBilling_Update_ApprovedWithIncomingPayment(t *testing.T) {
	t.Parallel()

	handler := newStubMarketHandler(t, domain.MarketUS, true)
	handler.invoice = &domain.Invoice{CardCode: "CD00000000003.0", DocEntry: 321, DocTotal: decimal.NewFromInt(80)}
	transport := newRecordingTransport()
	transport.respond(http.MethodPost, "IncomingPayments", http.StatusCreated, `{"DocEntry":9}`)

	result := NewBilling(marketsWith(handler), transport).Update(context.Background(), domain.SaleOrder{
		SaleOrderDocument:   domain.SaleOrderDocument{InvoiceID: 15, CardErrorCode: "00"},
		BillingSystemID:     9,
		TransactionApproved: true,
		TransferReference:   "TR-15",
		PaymentDate:         "2024-04-02",
	})

	if !result.IsSuccessful {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.TaskName != "Creating/Updating Billing with Payment Request" {
		t.Fatalf("unexpected task name %q", result.TaskName)
	}

	sent := transport.sent()
	if len(sent) != 2 {
		t.Fatalf("expected PATCH and POST, got %d requests", len(sent))
	}
	if sent[0].Method != http.MethodPatch || sent[0].URL != testBaseURL+"Invoices(321)" {
		t.Fatalf("expected invoice PATCH first, got %s %s", sent[0].Method, sent[0].URL)
	}
	patch := decodeBody(t, sent[0].Body)
	if patch["U_DPL_INV_ID"] != float64(15) || patch["U_DPL_CARD_ERROR_COD"] != "00" {
		t.Fatalf("unexpected patch body %v", patch)
	}
	if _, ok := patch["U_DPL_CARD_ERROR_DET"]; ok {
		t.Fatalf("empty fields must be omitted: %v", patch)
	}
	if sent[1].Method != http.MethodPost || sent[1].URL != testBaseURL+"IncomingPayments" {
		t.Fatalf("expected incoming payment POST second, got %s %s", sent[1].Method, sent[1].URL)
	}
	payment := decodeBody(t, sent[1].Body)
	if payment["TransferReference"] != "TR-15" || payment["DocDate"] != "2024-04-02" {
		t.Fatalf("unexpected payment body %v", payment)
	}
	if payment["TransferSum"] != float64(80) {
		t.Fatalf("expected transfer sum 80, got %v", payment["TransferSum"])
	}
}

func TestBilling_Update_NotApprovedPatchesOnly(t *testing.T) {
	t.Parallel()

	handler := newStubMarketHandler(t, domain.MarketUS, true)
	handler.invoice = &domain.Invoice{DocEntry: 5}
	transport := newRecordingTransport()

	result := NewBilling(marketsWith(handler), transport).Update(context.Background(), domain.SaleOrder{
		SaleOrderDocument: domain.SaleOrderDocument{InvoiceID: 1},
		BillingSystemID:   9,
	})

	if !result.IsSuccessful || result.TaskName != "Updating Invoice" {
		t.Fatalf("unexpected result %+v", result)
	}
	if got := len(transport.sent()); got != 1 {
		t.Fatalf("expected only PATCH, got %d requests", got)
	}
}

func TestBilling_Update_MarketWithoutPaymentFlag(t *testing.T) {
	t.Parallel()

	handler := newStubMarketHandler(t, domain.MarketAR, false)
	handler.invoice = &domain.Invoice{DocEntry: 5}
	transport := newRecordingTransport()

	result := NewBilling(marketsWith(handler), transport).Update(context.Background(), domain.SaleOrder{
		SaleOrderDocument:   domain.SaleOrderDocument{InvoiceID: 1},
		BillingSystemID:     2,
		TransactionApproved: true,
	})

	if result.TaskName != "Updating Invoice" {
		t.Fatalf("unexpected task name %q", result.TaskName)
	}
	if got := len(transport.sent()); got != 1 {
		t.Fatalf("expected only PATCH, got %d requests", got)
	}
}

func TestBilling_Update_PatchFailureSkipsPayment(t *testing.T) {
	t.Parallel()

	handler := newStubMarketHandler(t, domain.MarketUS, true)
	handler.invoice = &domain.Invoice{DocEntry: 5}
	transport := newRecordingTransport()
	transport.respond(http.MethodPatch, "Invoices(5)", http.StatusBadRequest, `{"error":"bad"}`)

	result := NewBilling(marketsWith(handler), transport).Update(context.Background(), domain.SaleOrder{
		SaleOrderDocument:   domain.SaleOrderDocument{InvoiceID: 1},
		BillingSystemID:     9,
		TransactionApproved: true,
	})

	if result.IsSuccessful {
		t.Fatal("expected failure")
	}
	if result.TaskName != "Updating Invoice" || result.SapResponseContent != `{"error":"bad"}` {
		t.Fatalf("unexpected result %+v", result)
	}
	if got := len(transport.sent()); got != 1 {
		t.Fatalf("expected no payment after failed PATCH, got %d requests", got)
	}
}

func TestBilling_Update_InvoiceMissing(t *testing.T) {
	t.Parallel()

	handler := newStubMarketHandler(t, domain.MarketUS, true)
	transport := newRecordingTransport()

	result := NewBilling(marketsWith(handler), transport).Update(context.Background(), domain.SaleOrder{
		SaleOrderDocument: domain.SaleOrderDocument{InvoiceID: 404},
		BillingSystemID:   9,
	})

	if result.IsSuccessful {
		t.Fatal("expected failure")
	}
	if result.SapResponseContent != "Failed at updating billing request for the invoice: 404." {
		t.Fatalf("unexpected message %q", result.SapResponseContent)
	}
	if result.TaskName != "Updating Billing Request" {
		t.Fatalf("unexpected task name %q", result.TaskName)
	}
	if got := len(transport.sent()); got != 0 {
		t.Fatalf("expected no ERP calls, got %d", got)
	}
}

func TestBilling_Update_TransportErrorBecomesFailedResult(t *testing.T) {
	t.Parallel()

	handler := newStubMarketHandler(t, domain.MarketUS, true)
	handler.invoice = &domain.Invoice{DocEntry: 5}
	transport := newRecordingTransport()
	transport.err = errors.New("connection reset")

	result := NewBilling(marketsWith(handler), transport).Update(context.Background(), domain.SaleOrder{BillingSystemID: 9})

	if result.IsSuccessful || result.SapResponseContent != "connection reset" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.TaskName != "Updating Billing Request" {
		t.Fatalf("unexpected task name %q", result.TaskName)
	}
}

func TestBilling_Update_PanicIsContained(t *testing.T) {
	t.Parallel()

	handler := newStubMarketHandler(t, domain.MarketUS, true)
	handler.panicOn = "invoice"

	result := NewBilling(marketsWith(handler), newRecordingTransport()).Update(context.Background(), domain.SaleOrder{BillingSystemID: 9})

	if result.IsSuccessful {
		t.Fatal("expected failure")
	}
	if result.TaskName != "Updating Billing Request" || result.SapResponseContent != "boom in invoice" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestBilling_PaymentDate(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("ART", -3*60*60)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	billing := NewBilling(marketsWith(), newRecordingTransport(), fixedClock(now), WithLocation(loc))

	if got := billing.paymentDate("2024-05-20"); !got.Equal(time.Date(2024, 5, 20, 0, 0, 0, 0, loc)) {
		t.Fatalf("unexpected date-only parse: %v", got)
	}
	if got := billing.paymentDate("2024-05-20T10:00:00Z"); !got.Equal(time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected RFC3339 parse: %v", got)
	}
	if got := billing.paymentDate(""); !got.Equal(now) {
		t.Fatalf("expected fallback to clock, got %v", got)
	}
}
