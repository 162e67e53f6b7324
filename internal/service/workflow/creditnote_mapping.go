package workflow

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/sapsync/internal/domain"
)

const (
	documentDateLayout  = "2006-01-02"
	invoiceBaseType     = 13
	unknownReturnReason = -1
)

// creditNoteReasons — коды причин возврата ERP. Рынки без таблицы получают unknownReturnReason.
var creditNoteReasons = map[string]map[string]int{
	domain.MarketUS: {
		"Account cancellation":          1,
		"Bonus":                         2,
		"Rebilling":                     3,
		"Chargeback":                    4,
		"Payment method change":         5,
		"First data refund":             6,
		"Doppler failure bonus":         7,
		"Plan change":                   8,
		"Doppler failure refund":        10,
		"Duplicated invoice":            11,
		"Transfer refund":               13,
		"Credits purchase cancellation": 14,
		"Credit memo without refund - account cancellation": 15,
	},
}

func returnReason(market, reason string) int {
	if code, ok := creditNoteReasons[market][reason]; ok && reason != "" {
		return code
	}
	return unknownReturnReason
}

// apportion раскладывает сумму возврата по строкам счёта в исходном порядке:
// строка получает min(цена строки, остаток), пока остаток не станет нулевым.
func apportion(lines []domain.InvoiceLine, amount decimal.Decimal) []decimal.Decimal {
	balance := amount
	parts := make([]decimal.Decimal, 0, len(lines))
	for _, line := range lines {
		if !balance.IsPositive() {
			break
		}
		part := decimal.Min(line.UnitPrice, balance)
		parts = append(parts, part)
		balance = balance.Sub(part)
	}
	return parts
}

// mapCreditNote строит кредит-ноту к счёту invoice на сумму req.Amount.
func mapCreditNote(market string, invoice domain.Invoice, req domain.CreditNoteRequest, now time.Time) domain.CreditNoteDocument {
	today := now.Format(documentDateLayout)

	freeText := fmt.Sprintf("Cancel invoice: %d.", invoice.DocNum)
	if invoice.DocTotal.GreaterThan(req.Amount) {
		freeText = fmt.Sprintf("Partial refund - Invoice: %d.", invoice.DocNum)
	}
	reason := returnReason(market, req.Reason)

	parts := apportion(invoice.DocumentLines, req.Amount)
	lines := make([]domain.CreditNoteLine, 0, len(parts))
	for i, part := range parts {
		src := invoice.DocumentLines[i]
		line := domain.CreditNoteLine{
			TaxCode:      src.TaxCode,
			ItemCode:     src.ItemCode,
			Quantity:     src.Quantity,
			UnitPrice:    part,
			Currency:     src.Currency,
			FreeText:     freeText,
			CostingCode:  src.CostingCode,
			CostingCode2: src.CostingCode2,
			CostingCode3: src.CostingCode3,
			CostingCode4: src.CostingCode4,
			ReturnReason: reason,
		}
		if req.Type == domain.CreditNoteTypeNoRefund {
			baseType, baseEntry, baseLine := invoiceBaseType, invoice.DocEntry, src.LineNum
			line.BaseType = &baseType
			line.BaseEntry = &baseEntry
			line.BaseLine = &baseLine
		}
		lines = append(lines, line)
	}

	return domain.CreditNoteDocument{
		CardCode:         invoice.CardCode,
		DocDate:          today,
		DocDueDate:       today,
		TaxDate:          today,
		NumAtCard:        invoice.NumAtCard,
		RecurringService: invoice.RecurringService,
		CardHolder:       invoice.CardHolder,
		CardNumber:       invoice.CardNumber,
		CardType:         invoice.CardType,
		CardErrorCode:    req.CardErrorCode,
		CardErrorDetail:  req.CardErrorDetail,
		CreditNoteID:     req.CreditNoteID,
		DocumentLines:    lines,
	}
}

func mapCreditNoteUpdate(req domain.CreditNoteRequest) domain.CreditNoteUpdate {
	return domain.CreditNoteUpdate{
		CardErrorCode:   req.CardErrorCode,
		CardErrorDetail: req.CardErrorDetail,
		CreditNoteID:    req.CreditNoteID,
	}
}
