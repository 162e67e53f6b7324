package sap

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/vladislavdragonenkov/sapsync/internal/domain"
)

const (
	sessionCookiePrefix = "B1SESSION="
	routeCookiePrefix   = "ROUTEID="
	loginPath           = "Login/"
)

var sapLoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sapsync_sap_logins_total",
		Help: "Количество логинов в ERP по рынкам и результату",
	},
	[]string{"market", "outcome"},
)

// SessionOption — функциональная опция SessionManager.
type SessionOption func(*SessionManager)

// WithSessionTTL задаёт время жизни сессии.
func WithSessionTTL(ttl time.Duration) SessionOption {
	return func(m *SessionManager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) SessionOption {
	return func(m *SessionManager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithSessionLogger задаёт логгер.
func WithSessionLogger(logger *log.Entry) SessionOption {
	return func(m *SessionManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// SessionManager выдаёт и кэширует сессию ERP одного рынка.
// Повторный логин выполняется только после истечения TTL; одновременные
// запросы на логин схлопываются через singleflight.
type SessionManager struct {
	client   *Client
	market   string
	loginURL string
	creds    domain.Credentials
	ttl      time.Duration
	now      func() time.Time
	logger   *log.Entry

	mu      sync.Mutex
	session *domain.Session
	group   singleflight.Group
}

// NewSessionManager создаёт менеджер сессий для рынка cfg.
func NewSessionManager(client *Client, cfg domain.MarketConfig, creds domain.Credentials, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		client:   client,
		market:   cfg.Code,
		loginURL: cfg.URL(loginPath),
		creds:    creds,
		ttl:      domain.DefaultSessionTTL,
		now:      time.Now,
		logger:   log.WithField("component", "sap-session"),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.WithField("market", cfg.Code)
	return m
}

// EnsureSession возвращает действующую сессию, при необходимости выполняя логин.
func (m *SessionManager) EnsureSession(ctx context.Context) (domain.Session, error) {
	if session, ok := m.cached(); ok {
		return session, nil
	}

	value, err, _ := m.group.Do(m.market, func() (any, error) {
		if session, ok := m.cached(); ok {
			return session, nil
		}
		session, err := m.login(ctx)
		if err != nil {
			return domain.Session{}, err
		}
		m.mu.Lock()
		m.session = &session
		m.mu.Unlock()
		return session, nil
	})
	if err != nil {
		return domain.Session{}, err
	}
	return value.(domain.Session), nil
}

// Invalidate сбрасывает кэш, следующий вызов EnsureSession выполнит логин.
func (m *SessionManager) Invalidate() {
	m.mu.Lock()
	m.session = nil
	m.mu.Unlock()
}

func (m *SessionManager) cached() (domain.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.ValidAt(m.now(), m.ttl) {
		return *m.session, true
	}
	return domain.Session{}, false
}

func (m *SessionManager) login(ctx context.Context) (domain.Session, error) {
	resp, err := m.client.Send(ctx, http.MethodPost, m.loginURL, m.creds, nil)
	if err != nil {
		sapLoginsTotal.WithLabelValues(m.market, "error").Inc()
		return domain.Session{}, fmt.Errorf("sap login for market %s: %w", m.market, err)
	}
	if !resp.OK() {
		sapLoginsTotal.WithLabelValues(m.market, "rejected").Inc()
		m.logger.WithField("status", resp.StatusCode).Warn("sap login rejected")
		return domain.Session{}, fmt.Errorf("%w: market %s responded with status %d", domain.ErrAuthentication, m.market, resp.StatusCode)
	}

	primary, route := parseSessionCookies(resp.Header.Values("Set-Cookie"))
	if primary == "" {
		sapLoginsTotal.WithLabelValues(m.market, "rejected").Inc()
		return domain.Session{}, fmt.Errorf("%w: market %s returned no session cookie", domain.ErrAuthentication, m.market)
	}

	sapLoginsTotal.WithLabelValues(m.market, "success").Inc()
	m.logger.Info("sap session started")

	return domain.Session{
		PrimaryToken: primary,
		RouteToken:   route,
		ObtainedAt:   m.now(),
	}, nil
}

// parseSessionCookies извлекает пары name=value сессии и маршрута из Set-Cookie.
func parseSessionCookies(values []string) (primary, route string) {
	for _, value := range values {
		pair, _, _ := strings.Cut(strings.TrimSpace(value), ";")
		switch {
		case primary == "" && strings.HasPrefix(pair, sessionCookiePrefix):
			primary = pair
		case route == "" && strings.HasPrefix(pair, routeCookiePrefix):
			route = pair
		}
	}
	return primary, route
}
