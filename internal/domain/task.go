package domain

import (
	"fmt"
	"time"
)

// TaskType определяет категорию задачи, отправляемой в ERP.
// Числовые значения стабильны: их используют продюсеры и сообщения Kafka.
type TaskType int

const (
	TaskTypeCreateOrUpdateBusinessPartner TaskType = 1
	TaskTypeBillingRequest                TaskType = 2
	TaskTypeCurrencyRate                  TaskType = 3
	TaskTypeUpdateBilling                 TaskType = 4
	TaskTypeCreateCreditNote              TaskType = 5
	TaskTypeUpdateCreditNote              TaskType = 6
	TaskTypeCancelCreditNote              TaskType = 7
)

var taskTypeNames = map[TaskType]string{
	TaskTypeCreateOrUpdateBusinessPartner: "CreateOrUpdateBusinessPartner",
	TaskTypeBillingRequest:                "BillingRequest",
	TaskTypeCurrencyRate:                  "CurrencyRate",
	TaskTypeUpdateBilling:                 "UpdateBilling",
	TaskTypeCreateCreditNote:              "CreateCreditNote",
	TaskTypeUpdateCreditNote:              "UpdateCreditNote",
	TaskTypeCancelCreditNote:              "CancelCreditNote",
}

// String возвращает имя типа для логов и меток метрик.
func (t TaskType) String() string {
	if name, ok := taskTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TaskType(%d)", int(t))
}

// Valid сообщает, известен ли тип задачи.
func (t TaskType) Valid() bool {
	_, ok := taskTypeNames[t]
	return ok
}

// Task — единица работы в очереди. Ровно один payload заполнен и соответствует Type.
// После постановки в очередь задача не изменяется.
type Task struct {
	ID         string
	Type       TaskType
	EnqueuedAt time.Time

	Billing          *SaleOrder
	CreditNote       *CreditNoteRequest
	CancelCreditNote *CancelCreditNoteRequest
	User             *DopplerUser
	CurrencyRate     *CurrencyRate
}

// NewBillingTask создаёт задачу создания счёта.
func NewBillingTask(order SaleOrder) Task {
	return Task{Type: TaskTypeBillingRequest, Billing: &order}
}

// NewUpdateBillingTask создаёт задачу обновления статуса оплаты счёта.
func NewUpdateBillingTask(order SaleOrder) Task {
	return Task{Type: TaskTypeUpdateBilling, Billing: &order}
}

// NewCreditNoteTask создаёт задачу создания кредит-ноты.
func NewCreditNoteTask(req CreditNoteRequest) Task {
	return Task{Type: TaskTypeCreateCreditNote, CreditNote: &req}
}

// NewUpdateCreditNoteTask создаёт задачу обновления статуса оплаты кредит-ноты.
func NewUpdateCreditNoteTask(req CreditNoteRequest) Task {
	return Task{Type: TaskTypeUpdateCreditNote, CreditNote: &req}
}

// NewCancelCreditNoteTask создаёт задачу отмены кредит-ноты.
func NewCancelCreditNoteTask(req CancelCreditNoteRequest) Task {
	return Task{Type: TaskTypeCancelCreditNote, CancelCreditNote: &req}
}

// NewBusinessPartnerTask создаёт задачу upsert карточки контрагента.
func NewBusinessPartnerTask(user DopplerUser) Task {
	return Task{Type: TaskTypeCreateOrUpdateBusinessPartner, User: &user}
}

// NewCurrencyRateTask создаёт задачу установки курса валюты.
func NewCurrencyRateTask(rate CurrencyRate) Task {
	return Task{Type: TaskTypeCurrencyRate, CurrencyRate: &rate}
}

// Validate проверяет, что задача несёт ровно один payload нужного вида.
func (t Task) Validate() error {
	if !t.Type.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownTaskType, int(t.Type))
	}

	populated := 0
	for _, set := range []bool{
		t.Billing != nil,
		t.CreditNote != nil,
		t.CancelCreditNote != nil,
		t.User != nil,
		t.CurrencyRate != nil,
	} {
		if set {
			populated++
		}
	}
	if populated > 1 {
		return ErrPayloadAmbiguous
	}

	var ok bool
	switch t.Type {
	case TaskTypeBillingRequest, TaskTypeUpdateBilling:
		ok = t.Billing != nil
	case TaskTypeCreateCreditNote, TaskTypeUpdateCreditNote:
		ok = t.CreditNote != nil
	case TaskTypeCancelCreditNote:
		ok = t.CancelCreditNote != nil
	case TaskTypeCreateOrUpdateBusinessPartner:
		ok = t.User != nil
	case TaskTypeCurrencyRate:
		ok = t.CurrencyRate != nil
	}
	if !ok {
		return fmt.Errorf("%w for %s", ErrPayloadMissing, t.Type)
	}
	return nil
}

// BillingSystemID возвращает идентификатор биллинговой системы из payload.
// Для курсов валют возвращается 0: они всегда идут на рынок по умолчанию.
func (t Task) BillingSystemID() int {
	switch {
	case t.Billing != nil:
		return t.Billing.BillingSystemID
	case t.CreditNote != nil:
		return t.CreditNote.BillingSystemID
	case t.CancelCreditNote != nil:
		return t.CancelCreditNote.BillingSystemID
	case t.User != nil:
		return t.User.BillingSystemID
	default:
		return 0
	}
}
