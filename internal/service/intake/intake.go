// Package intake принимает запросы продюсеров, проверяет их и ставит задачи в очередь.
package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/sapsync/internal/domain"
)

// marketRequiringFiscalID — рынок, где счёт без налогового номера не принимается.
const marketRequiringFiscalID = domain.MarketAR

// MarketResolver определяет рынок по идентификатору биллинговой системы.
type MarketResolver interface {
	ResolveMarket(billingSystemID int) (string, error)
}

// Options задаёт параметры Service.
type Options struct {
	Logger   *log.Entry
	Notifier domain.Notifier
	Clock    func() time.Time
}

// Option настраивает Service.
type Option func(*Options)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithNotifier задаёт канал оповещений об отклонённых запросах.
func WithNotifier(notifier domain.Notifier) Option {
	return func(opts *Options) {
		opts.Notifier = notifier
	}
}

// WithClock подменяет источник времени (определение пятницы для курсов валют).
func WithClock(now func() time.Time) Option {
	return func(opts *Options) {
		opts.Clock = now
	}
}

// Service — API продюсеров: validate → resolve market → enqueue.
type Service struct {
	queue    domain.TaskQueue
	markets  MarketResolver
	validate *validator.Validate
	logger   *log.Entry
	notifier domain.Notifier
	now      func() time.Time
}

// NewService создаёт Service.
func NewService(queue domain.TaskQueue, markets MarketResolver, options ...Option) *Service {
	opts := Options{}
	for _, option := range options {
		option(&opts)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "intake")
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Service{
		queue:    queue,
		markets:  markets,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
		notifier: opts.Notifier,
		now:      opts.Clock,
	}
}

// SubmitBilling ставит в очередь создание счетов. Ошибка одного запроса не мешает остальным.
func (s *Service) SubmitBilling(ctx context.Context, orders []domain.SaleOrder) error {
	var errs []error
	for _, order := range orders {
		err := s.submitBilling(order)
		if err != nil {
			s.reject(ctx, err, "Failed at generating billing request for user: %d and billingSystem: %d. Error: %s",
				order.UserID, order.BillingSystemID, err.Error())
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) submitBilling(order domain.SaleOrder) error {
	if err := s.validate.StructPartial(order, "UserID", "BillingSystemID"); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	market, err := s.markets.ResolveMarket(order.BillingSystemID)
	if err != nil {
		return err
	}
	if market == marketRequiringFiscalID {
		if err := s.validate.Var(order.FiscalID, "required"); err != nil {
			return fmt.Errorf("%w: fiscal id is required for market %s", domain.ErrInvalidRequest, market)
		}
	}
	s.enqueue(domain.NewBillingTask(order), market)
	return nil
}

// SubmitBillingUpdate ставит в очередь обновление статуса оплаты счёта.
func (s *Service) SubmitBillingUpdate(ctx context.Context, order domain.SaleOrder) error {
	err := s.submitBillingUpdate(order)
	if err != nil {
		s.reject(ctx, err, "Failed at update billing request for invoice: %d. Error: %s", order.InvoiceID, err.Error())
	}
	return err
}

func (s *Service) submitBillingUpdate(order domain.SaleOrder) error {
	if err := s.validate.Var(order.InvoiceID, "required"); err != nil {
		return fmt.Errorf("%w: invoice id is required", domain.ErrInvalidRequest)
	}
	if err := s.validate.StructPartial(order, "BillingSystemID"); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	market, err := s.markets.ResolveMarket(order.BillingSystemID)
	if err != nil {
		return err
	}
	s.enqueue(domain.NewUpdateBillingTask(order), market)
	return nil
}

// SubmitCreditNote ставит в очередь создание кредит-ноты.
func (s *Service) SubmitCreditNote(ctx context.Context, req domain.CreditNoteRequest) error {
	err := s.submitCreditNote(domain.NewCreditNoteTask(req), req, "InvoiceID", "ClientID", "BillingSystemID", "Type")
	if err != nil {
		s.reject(ctx, err, "Failed at generating create credit note request for user: %d. Error: %s", req.ClientID, err.Error())
	}
	return err
}

// SubmitCreditNoteUpdate ставит в очередь обновление статуса оплаты кредит-ноты.
func (s *Service) SubmitCreditNoteUpdate(ctx context.Context, req domain.CreditNoteRequest) error {
	err := s.submitCreditNote(domain.NewUpdateCreditNoteTask(req), req, "CreditNoteID", "BillingSystemID", "Type")
	if err != nil {
		s.reject(ctx, err, "Failed at update credit note request for credit note: %d. Error: %s", req.CreditNoteID, err.Error())
	}
	return err
}

func (s *Service) submitCreditNote(task domain.Task, req domain.CreditNoteRequest, fields ...string) error {
	if err := s.validate.StructPartial(req, fields...); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	market, err := s.markets.ResolveMarket(req.BillingSystemID)
	if err != nil {
		return err
	}
	s.enqueue(task, market)
	return nil
}

// SubmitCreditNoteCancel ставит в очередь отмену кредит-ноты.
func (s *Service) SubmitCreditNoteCancel(ctx context.Context, req domain.CancelCreditNoteRequest) error {
	err := s.submitCreditNoteCancel(req)
	if err != nil {
		s.reject(ctx, err, "Failed at cancel credit note request for credit note: %d. Error: %s", req.CreditNoteID, err.Error())
	}
	return err
}

func (s *Service) submitCreditNoteCancel(req domain.CancelCreditNoteRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	market, err := s.markets.ResolveMarket(req.BillingSystemID)
	if err != nil {
		return err
	}
	s.enqueue(domain.NewCancelCreditNoteTask(req), market)
	return nil
}

// SubmitBusinessPartner ставит в очередь upsert карточки контрагента.
func (s *Service) SubmitBusinessPartner(ctx context.Context, user domain.DopplerUser) error {
	err := s.submitBusinessPartner(user)
	if err != nil {
		s.reject(ctx, err, "Failed at creating or updating the business partner for user: %s. Error: %s", user.Email, err.Error())
	}
	return err
}

func (s *Service) submitBusinessPartner(user domain.DopplerUser) error {
	if err := s.validate.Struct(user); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	market, err := s.markets.ResolveMarket(user.BillingSystemID)
	if err != nil {
		return err
	}
	s.enqueue(domain.NewBusinessPartnerTask(user), market)
	return nil
}

// SubmitCurrencyRates ставит в очередь курсы валют.
// В пятницу каждый курс дублируется на субботу и воскресенье.
func (s *Service) SubmitCurrencyRates(ctx context.Context, rates []domain.CurrencyRate) error {
	var errs []error
	for _, rate := range rates {
		if err := s.validate.Struct(rate); err != nil {
			err = fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
			s.reject(ctx, err, "Failed at setting currency rate %s. Error: %s", rate.CurrencyCode, err.Error())
			errs = append(errs, err)
			continue
		}
		for _, expanded := range s.expandWeekend(rate) {
			s.enqueue(domain.NewCurrencyRateTask(expanded), "")
		}
	}
	return errors.Join(errs...)
}

func (s *Service) expandWeekend(rate domain.CurrencyRate) []domain.CurrencyRate {
	if s.now().UTC().Weekday() != time.Friday {
		return []domain.CurrencyRate{rate}
	}
	rates := make([]domain.CurrencyRate, 0, 3)
	for day := 0; day < 3; day++ {
		next := rate
		next.Date = rate.Date.AddDate(0, 0, day)
		rates = append(rates, next)
	}
	return rates
}

// Submit принимает готовую задачу (например, из Kafka) и направляет её по типу.
func (s *Service) Submit(ctx context.Context, task domain.Task) error {
	if err := task.Validate(); err != nil {
		s.reject(ctx, err, "Task of type %s was rejected. Error: %s", task.Type, err.Error())
		return err
	}

	switch task.Type {
	case domain.TaskTypeBillingRequest:
		return s.SubmitBilling(ctx, []domain.SaleOrder{*task.Billing})
	case domain.TaskTypeUpdateBilling:
		return s.SubmitBillingUpdate(ctx, *task.Billing)
	case domain.TaskTypeCreateCreditNote:
		return s.SubmitCreditNote(ctx, *task.CreditNote)
	case domain.TaskTypeUpdateCreditNote:
		return s.SubmitCreditNoteUpdate(ctx, *task.CreditNote)
	case domain.TaskTypeCancelCreditNote:
		return s.SubmitCreditNoteCancel(ctx, *task.CancelCreditNote)
	case domain.TaskTypeCreateOrUpdateBusinessPartner:
		return s.SubmitBusinessPartner(ctx, *task.User)
	case domain.TaskTypeCurrencyRate:
		return s.SubmitCurrencyRates(ctx, []domain.CurrencyRate{*task.CurrencyRate})
	default:
		return fmt.Errorf("%w: %d", domain.ErrUnknownTaskType, int(task.Type))
	}
}

func (s *Service) enqueue(task domain.Task, market string) {
	s.queue.Enqueue(task)
	s.logger.WithFields(log.Fields{
		"task_type": task.Type.String(),
		"market":    market,
	}).Debug("task enqueued")
}

func (s *Service) reject(ctx context.Context, err error, format string, args ...any) {
	message := fmt.Sprintf(format, args...)
	s.logger.WithError(err).Error(message)
	if s.notifier == nil {
		return
	}
	if notifyErr := s.notifier.Notify(ctx, message); notifyErr != nil {
		s.logger.WithError(notifyErr).Warn("failed to send rejection notification")
	}
}
