package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aaaiserr1401/smart-mabel-kz/internal/config"
	"github.com/aaaiserr1401/smart-mabel-kz/internal/domain"
	"github.com/aaaiserr1401/smart-mabel-kz/internal/metrics"
)

const (
	telegramTimeout = 5 * time.Second
	whatsappTimeout = 7 * time.Second

	// Response bodies in the notify log are capped to keep it readable
	notifyLogBodyLimit = 300
)

// Notifier fans a new-lead event out to the configured messaging channels.
// Each channel is optional and best-effort: failures are logged, appended to
// the notify log, and never returned to callers.
type Notifier struct {
	telegram config.TelegramConfig
	whatsapp config.WhatsAppConfig

	// defaultWhatsAppTo is used when WHATSAPP_NOTIFY_TO is not set
	defaultWhatsAppTo string
	logPath           string

	// Base URLs are fields so tests can point channels at local servers
	telegramBaseURL string
	whatsappBaseURL string

	telegramClient *http.Client
	whatsappClient *http.Client
}

// NewNotifier creates a notification dispatcher from the app configuration
func NewNotifier(cfg *config.Config) *Notifier {
	return &Notifier{
		telegram:          cfg.Telegram,
		whatsapp:          cfg.WhatsApp,
		defaultWhatsAppTo: cfg.Site.WhatsAppNumber,
		logPath:           cfg.Notify.LogPath,
		telegramBaseURL:   "https://api.telegram.org",
		whatsappBaseURL:   "https://graph.facebook.com",
		telegramClient:    &http.Client{Timeout: telegramTimeout},
		whatsappClient:    &http.Client{Timeout: whatsappTimeout},
	}
}

// Notify attempts delivery of a stored lead to both channels. Channels are
// independent: one failing never prevents the other from being attempted.
// There is no return value; delivery is at-most-once.
func (n *Notifier) Notify(lead *domain.Lead) {
	text := formatLeadMessage(lead)
	n.sendTelegram(text)
	n.sendWhatsApp(text)
}

// formatLeadMessage renders the notification text shared by both channels.
// Absent optional fields render as "-".
func formatLeadMessage(lead *domain.Lead) string {
	return fmt.Sprintf(
		"Новая заявка\nИмя: %s\nТелефон: %s\nКомментарий: %s\nUTM: %s\nReferrer: %s",
		lead.Name,
		lead.Phone,
		lead.CommentOrDash(),
		lead.UTMOrDash(),
		lead.ReferrerOrDash(),
	)
}

// sendTelegram posts the message to the Telegram Bot API
func (n *Notifier) sendTelegram(text string) {
	if n.telegram.BotToken == "" || n.telegram.ChatID == "" {
		metrics.RecordNotification("telegram", "skipped")
		n.appendNotifyLog("tg_env_missing")
		return
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.telegramBaseURL, n.telegram.BotToken)
	form := url.Values{
		"chat_id": {n.telegram.ChatID},
		"text":    {text},
	}

	resp, err := n.telegramClient.PostForm(endpoint, form)
	if err != nil {
		log.Printf("[NOTIFY] Telegram send failed: %v", err)
		metrics.RecordNotification("telegram", "failure")
		n.appendNotifyLog("tg_send_error")
		return
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, notifyLogBodyLimit))
	n.appendNotifyLog(fmt.Sprintf("tg_send_status %d %s", resp.StatusCode, body))

	if resp.StatusCode != http.StatusOK {
		log.Printf("[NOTIFY] Telegram API returned status %d", resp.StatusCode)
		metrics.RecordNotification("telegram", "failure")
		return
	}
	metrics.RecordNotification("telegram", "success")
}

// whatsappMessage is the Cloud API text message payload
type whatsappMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             whatsappText `json:"text"`
}

type whatsappText struct {
	Body string `json:"body"`
}

// sendWhatsApp posts the message via the WhatsApp Cloud API (Meta)
func (n *Notifier) sendWhatsApp(text string) {
	to := n.whatsapp.NotifyTo
	if to == "" {
		to = n.defaultWhatsAppTo
	}
	if n.whatsapp.Token == "" || n.whatsapp.PhoneNumberID == "" || to == "" {
		metrics.RecordNotification("whatsapp", "skipped")
		n.appendNotifyLog("wa_env_missing")
		return
	}

	// Cloud API expects digits only, no leading +
	to = strings.TrimSpace(strings.ReplaceAll(to, "+", ""))

	payload := whatsappMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             whatsappText{Body: text},
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[NOTIFY] WhatsApp payload marshal failed: %v", err)
		metrics.RecordNotification("whatsapp", "failure")
		return
	}

	endpoint := fmt.Sprintf("%s/v19.0/%s/messages", n.whatsappBaseURL, n.whatsapp.PhoneNumberID)
	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		log.Printf("[NOTIFY] WhatsApp request build failed: %v", err)
		metrics.RecordNotification("whatsapp", "failure")
		return
	}
	req.Header.Set("Authorization", "Bearer "+n.whatsapp.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.whatsappClient.Do(req)
	if err != nil {
		log.Printf("[NOTIFY] WhatsApp send failed: %v", err)
		metrics.RecordNotification("whatsapp", "failure")
		n.appendNotifyLog("wa_send_error")
		return
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, notifyLogBodyLimit))
	n.appendNotifyLog(fmt.Sprintf("wa_send_status %d %s", resp.StatusCode, body))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("[NOTIFY] WhatsApp API returned status %d", resp.StatusCode)
		metrics.RecordNotification("whatsapp", "failure")
		return
	}
	metrics.RecordNotification("whatsapp", "success")
}

// appendNotifyLog appends a diagnostic line to the notify log. The log is
// best-effort: any failure here is itself swallowed.
func (n *Notifier) appendNotifyLog(line string) {
	if n.logPath == "" {
		return
	}
	f, err := os.OpenFile(n.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintln(f, line)
}
