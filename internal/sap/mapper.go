package sap

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vladislavdragonenkov/sapsync/internal/domain"
)

const (
	billingEmailGroup = "Facturacion"
	activeYes         = "tYES"
	activeNo          = "tNO"
	defaultCurrency   = "##"
	defaultState      = "99"
)

// cardCodePrefixes — префикс card code по типу плана; relay-планы ведутся отдельно.
var cardCodePrefixes = map[int]string{
	0: "CD",
	1: "CD",
	2: "CD",
	3: "CD",
	4: "CD",
	5: "CR",
}

type groupCodes struct {
	plans          map[int]int
	clientManagers map[int]int
	relay          map[int]int
}

var marketGroupCodes = map[string]groupCodes{
	domain.MarketAR: {
		plans:          map[int]int{2: 104, 3: 105, 4: 100},
		clientManagers: map[int]int{1: 106, 2: 114},
		relay:          map[int]int{5: 115},
	},
	domain.MarketUS: {
		plans:          map[int]int{2: 103, 3: 102, 4: 100},
		clientManagers: map[int]int{1: 104, 2: 105},
		relay:          map[int]int{5: 106},
	},
}

// BusinessPartnerMapper строит карточку контрагента ERP из пользователя.
type BusinessPartnerMapper struct {
	market string
	groups groupCodes
}

// NewBusinessPartnerMapper создаёт маппер для рынка.
func NewBusinessPartnerMapper(market string) (*BusinessPartnerMapper, error) {
	groups, ok := marketGroupCodes[market]
	if !ok {
		return nil, fmt.Errorf("%w: no business partner mapping for %s", domain.ErrMarketNotImplemented, market)
	}
	return &BusinessPartnerMapper{market: market, groups: groups}, nil
}

// CardCode формирует базовый card code пользователя: префикс плана + 11 цифр id + точка.
func (m *BusinessPartnerMapper) CardCode(userID, planType int) (string, error) {
	prefix, ok := cardCodePrefixes[planType]
	if !ok {
		return "", fmt.Errorf("%w: %d", domain.ErrInvalidPlanType, planType)
	}
	return fmt.Sprintf("%s%011d.", prefix, userID), nil
}

// GroupCode выбирает группу контрагента по типу клиента.
func (m *BusinessPartnerMapper) GroupCode(user domain.DopplerUser) int {
	switch {
	case user.IsClientManager:
		return m.groups.clientManagers[user.ClientManagerType]
	case user.PlanType == nil:
		return 0
	case user.IsFromRelay:
		return m.groups.relay[*user.PlanType]
	default:
		return m.groups.plans[*user.PlanType]
	}
}

// Map строит карточку для cardCode.
func (m *BusinessPartnerMapper) Map(user domain.DopplerUser, cardCode string) domain.BusinessPartner {
	email := strings.ToLower(user.Email)
	contact := email
	if len(user.BillingEmails) > 0 && user.BillingEmails[0] != "" {
		contact = strings.ToLower(user.BillingEmails[0])
	}

	state := user.BillingStateID
	if state == "" {
		state = defaultState
	}

	addresses := make([]domain.Address, 0, 2)
	for i, kind := range []struct{ name, addressType string }{
		{name: "Bill to", addressType: "bo_BillTo"},
		{name: "Ship to", addressType: "bo_ShipTo"},
	} {
		addresses = append(addresses, domain.Address{
			AddressName: kind.name,
			Street:      strings.ToUpper(user.BillingAddress),
			ZipCode:     strings.ToUpper(user.BillingZip),
			City:        strings.ToUpper(user.BillingCity),
			Country:     strings.ToUpper(user.BillingCountryCode),
			County:      user.County,
			State:       state,
			AddressType: kind.addressType,
			BPCode:      cardCode,
			RowNum:      i,
		})
	}

	return domain.BusinessPartner{
		CardCode:         cardCode,
		CardName:         strings.ToUpper(strings.TrimSpace(user.FirstName + " " + user.LastName)),
		CardType:         "C",
		GroupCode:        m.GroupCode(user),
		FederalTaxID:     NormalizeTaxID(user.FederalTaxID),
		Currency:         defaultCurrency,
		EmailAddress:     email,
		AliasName:        email,
		ContactPerson:    localPart(contact),
		Phone1:           user.PhoneNumber,
		Canceled:         yesNo(user.Canceled),
		Suspended:        yesNo(user.Blocked),
		ContactEmployees: m.contactEmployees(user, cardCode),
		BPAddresses:      addresses,
	}
}

func (m *BusinessPartnerMapper) contactEmployees(user domain.DopplerUser, cardCode string) []domain.ContactEmployee {
	emails := make([]string, 0, len(user.BillingEmails)+1)
	if len(user.BillingEmails) > 0 && user.BillingEmails[0] != "" {
		emails = append(emails, user.BillingEmails...)
	}
	emails = append(emails, user.Email)

	seen := make(map[string]bool, len(emails))
	contacts := make([]domain.ContactEmployee, 0, len(emails))
	for _, raw := range emails {
		email := strings.ToLower(strings.TrimSpace(raw))
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true
		ce := domain.ContactEmployee{
			Name:           localPart(email),
			Email:          email,
			CardCode:       cardCode,
			Active:         activeYes,
			EmailGroupCode: billingEmailGroup,
		}
		if m.market != domain.MarketUS {
			ce.ElectronicInvoicing = electronicInvoicing
		}
		contacts = append(contacts, ce)
	}
	return uniqueContactNames(contacts)
}

// uniqueContactNames добавляет порядковый суффикс к повторяющимся именам,
// пока все имена не станут уникальными.
func uniqueContactNames(contacts []domain.ContactEmployee) []domain.ContactEmployee {
	for {
		counts := make(map[string]int, len(contacts))
		for _, ce := range contacts {
			counts[ce.Name]++
		}

		duplicated := false
		seen := make(map[string]int, len(contacts))
		for i := range contacts {
			name := contacts[i].Name
			if counts[name] < 2 {
				continue
			}
			duplicated = true
			seen[name]++
			contacts[i].Name = name + strconv.Itoa(seen[name])
		}
		if !duplicated {
			return contacts
		}
	}
}

// NormalizeTaxID убирает дефисы из налогового идентификатора.
func NormalizeTaxID(id string) string {
	return strings.ReplaceAll(id, "-", "")
}

func localPart(email string) string {
	user, _, _ := strings.Cut(email, "@")
	return user
}

func yesNo(v bool) string {
	if v {
		return "Y"
	}
	return "N"
}
