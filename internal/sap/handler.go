package sap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/sapsync/internal/domain"
)

const (
	defaultMaxAccounts = 10
	defaultOrigin      = "doppler"
)

// HandlerOption — функциональная опция обработчика рынка.
type HandlerOption func(*Handler)

// WithMaxAccounts ограничивает число карточек контрагента на одного пользователя.
func WithMaxAccounts(n int) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxAccounts = n
		}
	}
}

// WithHandlerLogger задаёт логгер.
func WithHandlerLogger(logger *log.Entry) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// Handler — MarketTaskHandler для одного рынка. Владеет собственной сессией.
type Handler struct {
	cfg         domain.MarketConfig
	client      *Client
	sessions    *SessionManager
	rules       domain.MarketRules
	mapper      *BusinessPartnerMapper
	maxAccounts int
	logger      *log.Entry
}

// NewHandler создаёт обработчик рынка cfg.
func NewHandler(cfg domain.MarketConfig, client *Client, sessions *SessionManager, rules domain.MarketRules, mapper *BusinessPartnerMapper, opts ...HandlerOption) *Handler {
	h := &Handler{
		cfg:         cfg,
		client:      client,
		sessions:    sessions,
		rules:       rules,
		mapper:      mapper,
		maxAccounts: defaultMaxAccounts,
		logger:      log.WithField("component", "sap-handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.WithField("market", cfg.Code)
	return h
}

// Market возвращает код рынка.
func (h *Handler) Market() string { return h.cfg.Code }

// Config возвращает настройки ERP рынка.
func (h *Handler) Config() domain.MarketConfig { return h.cfg }

// Rules возвращает правила рынка.
func (h *Handler) Rules() domain.MarketRules { return h.rules }

// StartSession возвращает действующую сессию рынка.
func (h *Handler) StartSession(ctx context.Context) (domain.Session, error) {
	return h.sessions.EnsureSession(ctx)
}

// TryGetBusinessPartner ищет карточку пользователя с данным налоговым id среди всех его карточек;
// nil, если такой нет.
func (h *Handler) TryGetBusinessPartner(ctx context.Context, userID int, fiscalID string, planType int) (*domain.BusinessPartner, error) {
	_, partners, err := h.partnersOf(ctx, userID, planType)
	if err != nil {
		return nil, err
	}
	return matchFiscalID(partners, fiscalID), nil
}

// partnersOf возвращает базовый card code пользователя и все карточки с этим префиксом.
func (h *Handler) partnersOf(ctx context.Context, userID, planType int) (string, []domain.BusinessPartner, error) {
	cardCode, err := h.mapper.CardCode(userID, planType)
	if err != nil {
		return "", nil, err
	}

	var list struct {
		Value []domain.BusinessPartner `json:"value"`
	}
	path := h.cfg.BusinessPartnerEndpoint + filterQuery(fmt.Sprintf("startswith(CardCode,'%s')", cardCode))
	if err := h.getJSON(ctx, path, &list); err != nil {
		return "", nil, fmt.Errorf("lookup business partners %s: %w", cardCode, err)
	}
	return cardCode, list.Value, nil
}

func matchFiscalID(partners []domain.BusinessPartner, fiscalID string) *domain.BusinessPartner {
	for i := range partners {
		if partners[i].FederalTaxID == fiscalID {
			return &partners[i]
		}
	}
	return nil
}

// TryGetBusinessPartnerByCardCode читает карточку по card code; nil, если её нет.
func (h *Handler) TryGetBusinessPartnerByCardCode(ctx context.Context, cardCode string) (*domain.BusinessPartner, error) {
	session, err := h.StartSession(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := h.client.Send(ctx, http.MethodGet, h.cfg.URL(fmt.Sprintf("%s('%s')", h.cfg.BusinessPartnerEndpoint, cardCode)), nil, &session)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		h.logger.WithFields(log.Fields{"card_code": cardCode, "status": resp.StatusCode}).Debug("business partner not found")
		return nil, nil
	}

	var partner domain.BusinessPartner
	if err := json.Unmarshal([]byte(resp.Body), &partner); err != nil {
		return nil, fmt.Errorf("decode business partner %s: %w", cardCode, err)
	}
	return &partner, nil
}

// CreateBusinessPartnerFromUser строит новую карточку пользователя и находит существующую.
// Если карточки с налоговым id пользователя нет, Existing получает следующий свободный card code
// и пустой CreateDate.
func (h *Handler) CreateBusinessPartnerFromUser(ctx context.Context, user domain.DopplerUser) (domain.BusinessPartnerSnapshot, error) {
	planType := 0
	if user.PlanType != nil {
		planType = *user.PlanType
	}

	cardCode, partners, err := h.partnersOf(ctx, user.ID, planType)
	if err != nil {
		return domain.BusinessPartnerSnapshot{}, err
	}

	existing := matchFiscalID(partners, NormalizeTaxID(user.FederalTaxID))
	if existing == nil {
		if len(partners) >= h.maxAccounts {
			return domain.BusinessPartnerSnapshot{}, domain.WithMessage(domain.ErrTooManyAccounts, "User can't have more than %d accounts in Sap", h.maxAccounts)
		}
		existing = &domain.BusinessPartner{CardCode: fmt.Sprintf("%s%d", cardCode, len(partners))}
	}

	return domain.BusinessPartnerSnapshot{
		New:      h.mapper.Map(user, existing.CardCode),
		Existing: *existing,
	}, nil
}

// TryGetInvoiceByInvoiceIDAndOrigin ищет счёт по id системы учёта; nil, если не найден.
func (h *Handler) TryGetInvoiceByInvoiceIDAndOrigin(ctx context.Context, invoiceID int, origin string) (*domain.Invoice, error) {
	if origin == "" {
		origin = defaultOrigin
	}
	filter := fmt.Sprintf("U_DPL_INV_ID eq %d and U_DPL_ORIGIN eq '%s'", invoiceID, origin)
	return fetchFirst[domain.Invoice](ctx, h, h.cfg.BillingEndpoint+filterQuery(filter))
}

// TryGetCreditNoteByCreditNoteID ищет кредит-ноту по id системы учёта; nil, если не найдена.
func (h *Handler) TryGetCreditNoteByCreditNoteID(ctx context.Context, creditNoteID int) (*domain.CreditNote, error) {
	filter := fmt.Sprintf("U_DPL_CN_ID eq %d", creditNoteID)
	return fetchFirst[domain.CreditNote](ctx, h, h.cfg.CreditNotesEndpoint+filterQuery(filter))
}

func (h *Handler) getJSON(ctx context.Context, path string, out any) error {
	session, err := h.StartSession(ctx)
	if err != nil {
		return err
	}

	resp, err := h.client.Send(ctx, http.MethodGet, h.cfg.URL(path), nil, &session)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, resp.Body)
	}
	if err := json.Unmarshal([]byte(resp.Body), out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func fetchFirst[T any](ctx context.Context, h *Handler, path string) (*T, error) {
	var list struct {
		Value []T `json:"value"`
	}
	if err := h.getJSON(ctx, path, &list); err != nil {
		return nil, err
	}
	if len(list.Value) == 0 {
		return nil, nil
	}
	return &list.Value[0], nil
}

func filterQuery(expr string) string {
	return "?$filter=" + url.PathEscape(expr)
}

var _ domain.MarketTaskHandler = (*Handler)(nil)
