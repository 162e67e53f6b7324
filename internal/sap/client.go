// Package sap реализует транспорт, сессии и рыночные обработчики для SAP Business One Service Layer.
package sap

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/sapsync/internal/domain"
)

const (
	defaultHTTPTimeout = 60 * time.Second
	maxResponseSize    = 10 << 20
)

// Response — ответ ERP: статус, заголовки и сырое тело.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       string
}

// OK сообщает об успешном (2xx) ответе.
func (r Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ClientOptions задаёт параметры HTTP-клиента.
type ClientOptions struct {
	Timeout            time.Duration
	InsecureSkipVerify bool
	Transport          http.RoundTripper
	Logger             *log.Entry
}

// ClientOption — функциональная опция клиента.
type ClientOption func(*ClientOptions)

// WithTimeout ограничивает длительность одного вызова ERP.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(o *ClientOptions) {
		if timeout > 0 {
			o.Timeout = timeout
		}
	}
}

// WithInsecureSkipVerify отключает проверку TLS-сертификата ERP.
func WithInsecureSkipVerify(skip bool) ClientOption {
	return func(o *ClientOptions) {
		o.InsecureSkipVerify = skip
	}
}

// WithTransport подменяет RoundTripper (используется в тестах).
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(o *ClientOptions) {
		if rt != nil {
			o.Transport = rt
		}
	}
}

// WithClientLogger задаёт логгер клиента.
func WithClientLogger(logger *log.Entry) ClientOption {
	return func(o *ClientOptions) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// Client отправляет JSON-запросы в ERP. Cookie не хранятся в jar:
// токены сессии прикладываются к каждому запросу явно.
type Client struct {
	http   *http.Client
	logger *log.Entry
}

// NewClient создаёт HTTP-клиент ERP.
func NewClient(opts ...ClientOption) *Client {
	options := ClientOptions{
		Timeout: defaultHTTPTimeout,
		Logger:  log.WithField("component", "sap-client"),
	}
	for _, opt := range opts {
		opt(&options)
	}

	transport := options.Transport
	if transport == nil {
		base := http.DefaultTransport.(*http.Transport).Clone()
		// Service Layer обычно работает с self-signed сертификатом.
		base.TLSClientConfig = &tls.Config{InsecureSkipVerify: options.InsecureSkipVerify} // #nosec G402
		transport = base
	}

	return &Client{
		http:   &http.Client{Timeout: options.Timeout, Transport: transport},
		logger: options.Logger,
	}
}

// Send выполняет запрос. body == nil означает запрос без тела.
// Не-2xx ответ ошибкой не считается: решение принимает вызывающий workflow.
func (c *Client) Send(ctx context.Context, method, url string, body any, session *domain.Session) (Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return Response{}, fmt.Errorf("marshal %s %s body: %w", method, url, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return Response{}, fmt.Errorf("build %s %s request: %w", method, url, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for _, cookie := range session.Cookies() {
		req.Header.Add("Cookie", cookie)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return Response{}, fmt.Errorf("read %s %s response: %w", method, url, err)
	}

	c.logger.WithFields(log.Fields{
		"method":   method,
		"url":      url,
		"status":   resp.StatusCode,
		"duration": time.Since(started),
	}).Debug("sap call finished")

	return Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       string(raw),
	}, nil
}
