// Package market сопоставляет billing system id рынку, его настройкам и обработчику ERP.
package market

import (
	"fmt"
	"sync"

	"github.com/vladislavdragonenkov/sapsync/internal/domain"
)

// DefaultBillingSystems — соответствие billing system id коду рынка.
var DefaultBillingSystems = map[int]string{
	2: domain.MarketAR,
	9: domain.MarketUS,
}

// Registry — справочник рынков. Настройки неизменны после создания,
// обработчики регистрируются при сборке приложения.
type Registry struct {
	billingSystems map[int]string
	settings       map[string]domain.MarketConfig

	mu       sync.RWMutex
	handlers map[string]domain.MarketTaskHandler
}

// NewRegistry создаёт справочник. billingSystems == nil означает DefaultBillingSystems.
func NewRegistry(billingSystems map[int]string, settings []domain.MarketConfig) *Registry {
	if billingSystems == nil {
		billingSystems = DefaultBillingSystems
	}
	r := &Registry{
		billingSystems: make(map[int]string, len(billingSystems)),
		settings:       make(map[string]domain.MarketConfig, len(settings)),
		handlers:       make(map[string]domain.MarketTaskHandler),
	}
	for id, code := range billingSystems {
		r.billingSystems[id] = code
	}
	for _, cfg := range settings {
		r.settings[cfg.Code] = cfg
	}
	return r
}

// ResolveMarket возвращает код рынка для billing system id.
func (r *Registry) ResolveMarket(billingSystemID int) (string, error) {
	code, ok := r.billingSystems[billingSystemID]
	if !ok {
		return "", fmt.Errorf("%w: billing system %d", domain.ErrUnsupportedMarket, billingSystemID)
	}
	return code, nil
}

// Settings возвращает настройки ERP рынка.
func (r *Registry) Settings(code string) (domain.MarketConfig, error) {
	cfg, ok := r.settings[code]
	if !ok {
		return domain.MarketConfig{}, domain.WithMessage(domain.ErrMarketNotConfigured, "The sapSystem '%s' does not have settings.", code)
	}
	return cfg, nil
}

// Markets возвращает коды всех настроенных рынков.
func (r *Registry) Markets() []string {
	codes := make([]string, 0, len(r.settings))
	for code := range r.settings {
		codes = append(codes, code)
	}
	return codes
}

// Register привязывает обработчик к настроенному рынку.
func (r *Registry) Register(handler domain.MarketTaskHandler) error {
	code := handler.Market()
	if _, err := r.Settings(code); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[code] = handler
	return nil
}

// GetHandler возвращает обработчик рынка.
func (r *Registry) GetHandler(code string) (domain.MarketTaskHandler, error) {
	if _, err := r.Settings(code); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.handlers[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrMarketNotImplemented, code)
	}
	return handler, nil
}

// HandlerFor объединяет ResolveMarket и GetHandler.
func (r *Registry) HandlerFor(billingSystemID int) (domain.MarketTaskHandler, error) {
	code, err := r.ResolveMarket(billingSystemID)
	if err != nil {
		return nil, err
	}
	return r.GetHandler(code)
}
