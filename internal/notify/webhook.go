// webhook.go — HTTP-клиент доставки уведомлений во внешний сервис.
// Поддерживает TLS с кастомным CA (RA_CA_CERT_PATH).
// POST <url> с JSON-телом и заголовком X-Delivery-ID для идемпотентности.
package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/bigkaa/recruitart/internal/domain/model"
)

// Payload — тело запроса к webhook.
type Payload struct {
	DeliveryID        string `json:"delivery_id"`
	UserID            string `json:"user_id"`
	Title             string `json:"title"`
	Message           string `json:"message"`
	Type              string `json:"notification_type"`
	Priority          string `json:"priority"`
	RelatedObjectType string `json:"related_object_type,omitempty"`
	RelatedObjectID   *int64 `json:"related_object_id,omitempty"`
	ActionURL         string `json:"action_url,omitempty"`
	CreatedAt         string `json:"created_at"`
}

// Webhook — клиент доставки уведомлений.
type Webhook struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewWebhook создаёт клиент webhook.
// caCertPath — путь к CA-сертификату для TLS (пустая строка — стандартный пул).
func NewWebhook(url, caCertPath string, timeout time.Duration, logger *slog.Logger) (*Webhook, error) {
	httpClient := &http.Client{Timeout: timeout}

	if caCertPath != "" {
		tlsConfig, err := buildTLSConfig(caCertPath)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата webhook: %w", err)
		}
		httpClient.Transport = &http.Transport{TLSClientConfig: tlsConfig}
		logger.Info("CA-сертификат webhook добавлен в пул доверия",
			slog.String("ca_cert", caCertPath),
		)
	}

	return &Webhook{
		url:        url,
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "notify_webhook")),
	}, nil
}

// buildTLSConfig создаёт TLS-конфигурацию с кастомным CA.
func buildTLSConfig(caCertPath string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("чтение CA-сертификата: %w", err)
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	caCertPool.AppendCertsFromPEM(caCert)

	return &tls.Config{RootCAs: caCertPool}, nil
}

// URL возвращает адрес webhook.
func (w *Webhook) URL() string {
	return w.url
}

// Send доставляет уведомление. Любой ответ вне 2xx — ошибка.
func (w *Webhook) Send(ctx context.Context, n *model.Notification) error {
	body, err := json.Marshal(Payload{
		DeliveryID:        n.DeliveryID.String(),
		UserID:            n.UserID,
		Title:             n.Title,
		Message:           n.Message,
		Type:              string(n.Type),
		Priority:          string(n.Priority),
		RelatedObjectType: n.RelatedObjectType,
		RelatedObjectID:   n.RelatedObjectID,
		ActionURL:         n.ActionURL,
		CreatedAt:         n.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("кодирование уведомления: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("создание запроса webhook: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-ID", n.DeliveryID.String())

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("запрос webhook %s: %w", w.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook %s вернул статус %d: %s", w.url, resp.StatusCode, string(msg))
	}

	w.logger.Debug("Уведомление доставлено",
		slog.String("delivery_id", n.DeliveryID.String()),
		slog.String("user_id", n.UserID),
	)
	return nil
}
