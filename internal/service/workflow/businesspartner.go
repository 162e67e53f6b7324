package workflow

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/vladislavdragonenkov/sapsync/internal/domain"
)

const (
	taskCreatingBusinessPartner = "Creating Business Partner"
	taskUpdatingBusinessPartner = "Updating Business Partner"
	taskUpsertBusinessPartner   = "Create Or Update Business Partner"

	contactActive   = "tYES"
	contactInactive = "tNO"
)

// BusinessPartners создаёт или обновляет карточку контрагента пользователя.
type BusinessPartners struct {
	caller
	markets Markets
}

// NewBusinessPartners создаёт сценарий контрагентов.
func NewBusinessPartners(markets Markets, transport Transport, options ...Option) *BusinessPartners {
	opts := buildOptions("business-partner-workflow", options)
	return &BusinessPartners{
		caller:  caller{transport: transport, logger: opts.Logger},
		markets: markets,
	}
}

// CreateOrUpdate создаёт карточку, если в ERP её ещё нет, иначе отправляет разреженный PATCH.
func (p *BusinessPartners) CreateOrUpdate(ctx context.Context, user domain.DopplerUser) (result domain.TaskResult) {
	var cardCode string
	userID := strconv.Itoa(user.ID)

	defer func() {
		if r := recover(); r != nil {
			p.logger.WithField("panic", r).Error("workflow panicked")
			result = p.failure(cardCode, fmt.Sprintf("%v", r)).WithUser(userID)
		}
	}()

	res, err := p.createOrUpdate(ctx, user, &cardCode)
	if err != nil {
		p.logger.WithError(err).WithField("user_id", user.ID).Error("business partner upsert failed")
		return p.failure(cardCode, err.Error()).WithUser(userID)
	}
	return res.WithUser(userID)
}

func (p *BusinessPartners) failure(cardCode, message string) domain.TaskResult {
	return domain.FailedResult(taskUpsertBusinessPartner,
		fmt.Sprintf("Failed to create or update the Business Partner for the user: %s. Error: %s", cardCode, message))
}

func (p *BusinessPartners) createOrUpdate(ctx context.Context, user domain.DopplerUser, cardCode *string) (domain.TaskResult, error) {
	handler, err := p.markets.HandlerFor(user.BillingSystemID)
	if err != nil {
		return domain.TaskResult{}, err
	}

	snapshot, err := handler.CreateBusinessPartnerFromUser(ctx, user)
	if err != nil {
		return domain.TaskResult{}, err
	}
	*cardCode = snapshot.New.CardCode

	cfg := handler.Config()
	if !snapshot.Existing.Exists() {
		partner := snapshot.New
		partner.Properties15 = contactActive
		res, _, err := p.call(ctx, handler, http.MethodPost, cfg.URL(cfg.BusinessPartnerEndpoint+"/"), partner, taskCreatingBusinessPartner)
		return res, err
	}

	patch := partnerPatch(snapshot, handler.Rules())
	url := cfg.URL(fmt.Sprintf("%s('%s')", cfg.BusinessPartnerEndpoint, snapshot.Existing.CardCode))
	res, _, err := p.call(ctx, handler, http.MethodPatch, url, patch, taskUpdatingBusinessPartner)
	return res, err
}

// partnerPatch готовит разреженный PATCH: налоговый id, валюта и имена адресов
// не перезаписываются, контакты передаются как разница с существующей карточкой.
func partnerPatch(snapshot domain.BusinessPartnerSnapshot, rules domain.MarketRules) domain.BusinessPartner {
	patch := snapshot.New
	patch.FederalTaxID = ""
	patch.Currency = ""
	patch.Properties15 = ""

	addresses := make([]domain.Address, len(patch.BPAddresses))
	for i, address := range patch.BPAddresses {
		address.AddressName = ""
		addresses[i] = address
	}
	patch.BPAddresses = addresses

	patch.ContactEmployees = rules.ShapeContactDiff(contactDiff(snapshot.New.ContactEmployees, snapshot.Existing.ContactEmployees))
	return patch
}

// contactDiff сравнивает контакты по e-mail: новые добавляются целиком, отсутствующие
// в новом списке деактивируются, присутствующие в обоих активируются по InternalCode.
func contactDiff(updated, existing []domain.ContactEmployee) []domain.ContactEmployee {
	inUpdated := make(map[string]bool, len(updated))
	for _, ce := range updated {
		inUpdated[ce.Email] = true
	}
	inExisting := make(map[string]bool, len(existing))
	for _, ce := range existing {
		inExisting[ce.Email] = true
	}

	diff := make([]domain.ContactEmployee, 0, len(updated)+len(existing))
	for _, ce := range updated {
		if !inExisting[ce.Email] {
			diff = append(diff, ce)
		}
	}
	for _, ce := range existing {
		if !inUpdated[ce.Email] {
			diff = append(diff, domain.ContactEmployee{Active: contactInactive, InternalCode: ce.InternalCode})
		}
	}
	for _, ce := range existing {
		if inUpdated[ce.Email] {
			diff = append(diff, domain.ContactEmployee{Active: contactActive, InternalCode: ce.InternalCode})
		}
	}
	return diff
}
