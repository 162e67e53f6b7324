package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedMarket возвращается, если billing system id не сопоставлен ни одному рынку.
	ErrUnsupportedMarket = errors.New("unsupported market")
	// ErrMarketNotConfigured возвращается, если для рынка нет настроек ERP.
	ErrMarketNotConfigured = errors.New("market settings missing")
	// ErrMarketNotImplemented — рынок настроен, но обработчик для него не зарегистрирован.
	ErrMarketNotImplemented = errors.New("market handler not implemented")
	// ErrAuthentication — ERP отклонил логин.
	ErrAuthentication = errors.New("sap authentication failed")
	// ErrUnknownTaskType — тип задачи не известен маршрутизатору.
	ErrUnknownTaskType = errors.New("unknown task type")
	// ErrPayloadMissing — задача не содержит payload, соответствующий её типу.
	ErrPayloadMissing = errors.New("task payload missing")
	// ErrPayloadAmbiguous — в задаче заполнено больше одного payload.
	ErrPayloadAmbiguous = errors.New("task carries more than one payload")
	// ErrTooManyAccounts — у пользователя уже максимальное число карточек контрагента.
	ErrTooManyAccounts = errors.New("too many business partner accounts")
	// ErrPaymentNotSupported — рынок не поддерживает платёжные документы.
	ErrPaymentNotSupported = errors.New("payment mapping not supported for market")
	// ErrInvalidPlanType — тип плана не сопоставлен префиксу card code.
	ErrInvalidPlanType = errors.New("plan type does not match any card code prefix")
	// ErrInvalidRequest — запрос продюсера не прошёл проверку и не поставлен в очередь.
	ErrInvalidRequest = errors.New("invalid request")
)

// IsRoutingError сообщает, относится ли ошибка к маршрутизации/конфигурации рынка.
func IsRoutingError(err error) bool {
	return errors.Is(err, ErrUnsupportedMarket) ||
		errors.Is(err, ErrMarketNotConfigured) ||
		errors.Is(err, ErrMarketNotImplemented)
}

// messageError отдаёт наружу готовое сообщение и сохраняет sentinel для errors.Is.
type messageError struct {
	kind error
	msg  string
}

func (e *messageError) Error() string { return e.msg }

func (e *messageError) Unwrap() error { return e.kind }

// WithMessage возвращает ошибку вида kind с текстом, который попадёт в TaskResult как есть.
func WithMessage(kind error, format string, args ...any) error {
	return &messageError{kind: kind, msg: fmt.Sprintf(format, args...)}
}
