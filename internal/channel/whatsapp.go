// Package channel implements the chat transports that feed the worker.
package channel

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"salesbot/internal/config"
	"salesbot/internal/domain"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// WhatsApp implements domain.Transport over the Twilio WhatsApp API.
// Inbound messages arrive as form-encoded webhooks; outbound replies go
// through the Twilio Messages endpoint with basic auth.
type WhatsApp struct {
	cfg    config.TwilioConfig
	bus    domain.MessageBus
	logger *slog.Logger
	client *http.Client
	mux    *http.ServeMux

	apiBase string // overridable in tests
}

type WhatsAppConfig struct {
	Config  config.TwilioConfig
	Logger  *slog.Logger
	APIBase string
}

func NewWhatsApp(cfg WhatsAppConfig) *WhatsApp {
	if cfg.APIBase == "" {
		cfg.APIBase = twilioAPIBase
	}
	return &WhatsApp{
		cfg:     cfg.Config,
		logger:  cfg.Logger,
		client:  &http.Client{Timeout: 30 * time.Second},
		apiBase: cfg.APIBase,
	}
}

func (w *WhatsApp) Name() string { return "whatsapp" }

func (w *WhatsApp) Start(ctx context.Context, bus domain.MessageBus) error {
	w.bus = bus

	bus.OnOutbound("whatsapp", func(msg domain.OutboundMessage) {
		if err := w.Send(ctx, msg.SenderID, msg.Text); err != nil {
			w.logger.Error("whatsapp send failed", "err", err, "to", msg.SenderID)
		}
	})

	webhookPath := w.cfg.WebhookPath
	if webhookPath == "" {
		webhookPath = "/webhook/twilio"
	}
	w.mux = http.NewServeMux()
	w.mux.HandleFunc("POST "+webhookPath, w.handleIncoming)

	w.logger.Info("whatsapp channel ready", "webhook", webhookPath)
	return nil
}

func (w *WhatsApp) Stop() error { return nil }

// Handler returns the webhook handler to be mounted on the main mux.
func (w *WhatsApp) Handler() http.Handler {
	if w.mux == nil {
		return http.NotFoundHandler()
	}
	return w.mux
}

// handleIncoming processes one Twilio inbound webhook. Twilio retries on
// non-2xx, so acknowledgment is immediate: the pipeline run happens on the
// worker, and the reply is delivered asynchronously via the Messages API
// rather than as TwiML.
func (w *WhatsApp) handleIncoming(rw http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(rw, "bad form", http.StatusBadRequest)
		return
	}

	from := strings.TrimPrefix(r.PostFormValue("From"), "whatsapp:")
	body := r.PostFormValue("Body")
	name := r.PostFormValue("ProfileName")

	if from == "" || strings.TrimSpace(body) == "" {
		w.logger.Warn("whatsapp webhook missing From or Body")
		http.Error(rw, "missing From or Body", http.StatusBadRequest)
		return
	}

	w.logger.Info("whatsapp message received", "from", from, "text_len", len(body))

	w.bus.Publish(domain.InboundMessage{
		Transport:  "whatsapp",
		SenderID:   from,
		SenderName: name,
		Text:       body,
		Timestamp:  time.Now(),
	})

	// Empty TwiML keeps Twilio from sending an auto-reply.
	rw.Header().Set("Content-Type", "text/xml")
	rw.WriteHeader(http.StatusOK)
	fmt.Fprint(rw, `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`)
}

// Healthy verifies the Twilio credentials by fetching the account resource.
func (w *WhatsApp) Healthy(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/Accounts/%s.json", w.apiBase, w.cfg.AccountSID)

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(w.cfg.AccountSID, w.cfg.AuthToken)

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("twilio not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("twilio: invalid credentials")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("twilio returned %d", resp.StatusCode)
	}
	return nil
}

// Send delivers one message through the Twilio Messages API.
func (w *WhatsApp) Send(ctx context.Context, to, text string) error {
	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", w.apiBase, w.cfg.AccountSID)

	form := url.Values{}
	form.Set("From", "whatsapp:"+w.cfg.WhatsAppFrom)
	form.Set("To", "whatsapp:"+to)
	form.Set("Body", text)

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(w.cfg.AccountSID, w.cfg.AuthToken)

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("twilio API %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
