package domain

import "time"

// DefaultSessionTTL — время жизни сессии ERP.
const DefaultSessionTTL = 30 * time.Minute

// Session хранит пару cookie-токенов, выданных ERP при логине.
// Сессия не продлевается: по истечении TTL её заменяют новой.
type Session struct {
	PrimaryToken string
	RouteToken   string
	ObtainedAt   time.Time
}

// ValidAt сообщает, пригодна ли сессия в момент now.
func (s *Session) ValidAt(now time.Time, ttl time.Duration) bool {
	if s == nil || s.PrimaryToken == "" {
		return false
	}
	return now.Sub(s.ObtainedAt) < ttl
}

// Cookies возвращает непустые токены в порядке отправки.
func (s *Session) Cookies() []string {
	if s == nil {
		return nil
	}
	cookies := make([]string, 0, 2)
	for _, token := range []string{s.PrimaryToken, s.RouteToken} {
		if token != "" {
			cookies = append(cookies, token)
		}
	}
	return cookies
}
