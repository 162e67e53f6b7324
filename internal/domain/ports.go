package domain

import (
	"context"
	"time"
)

// TaskQueue — FIFO задач между продюсерами и диспетчером.
type TaskQueue interface {
	// Enqueue не блокирует и не завершается ошибкой.
	Enqueue(task Task)
	// TryDequeue возвращает следующую задачу или false, если очередь пуста.
	TryDequeue() (Task, bool)
	Len() int
}

// BusinessPartnerSnapshot — пара "новая карточка / карточка из ERP" для решения create vs update.
type BusinessPartnerSnapshot struct {
	New      BusinessPartner
	Existing BusinessPartner
}

// MarketTaskHandler — возможности ERP для одного рынка. Каждая реализация владеет своей сессией.
type MarketTaskHandler interface {
	Market() string
	Config() MarketConfig
	Rules() MarketRules
	StartSession(ctx context.Context) (Session, error)
	TryGetBusinessPartner(ctx context.Context, userID int, fiscalID string, planType int) (*BusinessPartner, error)
	TryGetBusinessPartnerByCardCode(ctx context.Context, cardCode string) (*BusinessPartner, error)
	CreateBusinessPartnerFromUser(ctx context.Context, user DopplerUser) (BusinessPartnerSnapshot, error)
	TryGetInvoiceByInvoiceIDAndOrigin(ctx context.Context, invoiceID int, origin string) (*Invoice, error)
	TryGetCreditNoteByCreditNoteID(ctx context.Context, creditNoteID int) (*CreditNote, error)
}

// MarketRules — рыночные правила, не зависящие от сессии.
type MarketRules interface {
	// CanCreateBilling решает, можно ли выставить счёт найденному контрагенту.
	CanCreateBilling(partner *BusinessPartner) bool
	// CanUpdateBilling решает, можно ли обновить найденный счёт.
	CanUpdateBilling(invoice *Invoice) bool
	// ShapeContactDiff приводит список изменений контактов к виду, ожидаемому рынком.
	ShapeContactDiff(diff []ContactEmployee) []ContactEmployee
	MapIncomingPayment(invoice Invoice, transferReference string, paymentDate time.Time) (Payment, error)
	MapOutgoingPayment(note CreditNote, transferReference string, paymentDate time.Time) (Payment, error)
}

// Notifier отправляет оповещение о сбое во внешний канал.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// ResultSink получает запись о каждой обработанной задаче.
type ResultSink interface {
	Record(ctx context.Context, record TaskRecord) error
}

// ResultPruner удаляет записи результатов старше before порциями не больше limit.
type ResultPruner interface {
	DeleteFinishedBefore(ctx context.Context, before time.Time, limit int) (int, error)
}
