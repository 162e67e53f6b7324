package workflow

import (
	"context"

	"github.com/vladislavdragonenkov/sapsync/internal/domain"
)

// HandlerFunc выполняет задачу одного типа.
type HandlerFunc func(ctx context.Context, task domain.Task) domain.TaskResult

// Router сопоставляет тип задачи сценарию. Таблица строится один раз при создании.
type Router struct {
	table map[domain.TaskType]HandlerFunc
}

// NewRouter строит таблицу маршрутизации.
// Billing обслуживает создание и обновление счёта, CreditNotes три типа задач кредит-нот.
func NewRouter(billing *Billing, creditNotes *CreditNotes, partners *BusinessPartners, rates *CurrencyRates) *Router {
	return &Router{table: map[domain.TaskType]HandlerFunc{
		domain.TaskTypeBillingRequest: func(ctx context.Context, t domain.Task) domain.TaskResult {
			return billing.Create(ctx, *t.Billing)
		},
		domain.TaskTypeUpdateBilling: func(ctx context.Context, t domain.Task) domain.TaskResult {
			return billing.Update(ctx, *t.Billing)
		},
		domain.TaskTypeCreateCreditNote: func(ctx context.Context, t domain.Task) domain.TaskResult {
			return creditNotes.Create(ctx, *t.CreditNote)
		},
		domain.TaskTypeUpdateCreditNote: func(ctx context.Context, t domain.Task) domain.TaskResult {
			return creditNotes.UpdatePaymentStatus(ctx, *t.CreditNote)
		},
		domain.TaskTypeCancelCreditNote: func(ctx context.Context, t domain.Task) domain.TaskResult {
			return creditNotes.Cancel(ctx, *t.CancelCreditNote)
		},
		domain.TaskTypeCreateOrUpdateBusinessPartner: func(ctx context.Context, t domain.Task) domain.TaskResult {
			return partners.CreateOrUpdate(ctx, *t.User)
		},
		domain.TaskTypeCurrencyRate: func(ctx context.Context, t domain.Task) domain.TaskResult {
			return rates.Set(ctx, *t.CurrencyRate)
		},
	}}
}

// Route возвращает сценарий задачи. Неизвестный тип или payload не того вида
// считаются ошибкой программы: задача не исполняется.
func (r *Router) Route(task domain.Task) (HandlerFunc, error) {
	if err := task.Validate(); err != nil {
		return nil, err
	}
	handler, ok := r.table[task.Type]
	if !ok {
		return nil, domain.ErrUnknownTaskType
	}
	return handler, nil
}
