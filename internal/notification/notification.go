package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	NotifyTrade  NotificationType = "trade"
	NotifyScale  NotificationType = "scale"
	NotifyStatus NotificationType = "status"
	NotifyError  NotificationType = "error"
	NotifyInfo   NotificationType = "info"
)

// Notification represents a notification message
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	Symbol    string
	Price     float64
	Timestamp time.Time
	Extra     map[string]interface{}
}

// Notifier interface for different notification providers
type Notifier interface {
	Send(notification *Notification) error
	Name() string
	IsEnabled() bool
}

// Manager fans notifications out to all configured providers. Delivery is
// best effort: a provider failure is logged and never fails the trading
// cycle that produced the notification.
type Manager struct {
	notifiers []Notifier
	enabled   bool
	logger    zerolog.Logger
}

// NewManager creates a new notification manager
func NewManager(enabled bool, logger zerolog.Logger) *Manager {
	return &Manager{
		notifiers: make([]Notifier, 0),
		enabled:   enabled,
		logger:    logger.With().Str("component", "notification").Logger(),
	}
}

// AddNotifier adds a notification provider
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Send sends a notification to all enabled providers
func (m *Manager) Send(notification *Notification) {
	if !m.enabled {
		return
	}
	if notification.Timestamp.IsZero() {
		notification.Timestamp = time.Now()
	}

	for _, n := range m.notifiers {
		if !n.IsEnabled() {
			continue
		}
		if err := n.Send(notification); err != nil {
			m.logger.Warn().Err(err).Str("provider", n.Name()).Msg("failed to deliver notification")
		}
	}
}

// SendTradeOpened announces a freshly opened position
func (m *Manager) SendTradeOpened(symbol, action string, entry, tp, sl, sizeUSD float64) {
	emoji := "🟢"
	if strings.EqualFold(action, "short") {
		emoji = "🔴"
	}

	m.Send(&Notification{
		Type:    NotifyTrade,
		Title:   fmt.Sprintf("%s New %s: %s", emoji, strings.ToUpper(action), symbol),
		Message: fmt.Sprintf("Entry: %.4f\nTP: %.4f | SL: %.4f\nSize: %.2f USD", entry, tp, sl, sizeUSD),
		Symbol:  symbol,
		Price:   entry,
		Extra: map[string]interface{}{
			"action":      action,
			"take_profit": tp,
			"stop_loss":   sl,
			"size_usd":    sizeUSD,
		},
	})
}

// SendPositionScaled announces an addition to an existing position
func (m *Manager) SendPositionScaled(symbol string, addedSizeUSD, newAvgEntry, newTP float64) {
	m.Send(&Notification{
		Type:    NotifyScale,
		Title:   fmt.Sprintf("➕ Scaled In: %s", symbol),
		Message: fmt.Sprintf("Added: %.2f USD\nNew Avg Entry: %.4f\nNew TP: %.4f", addedSizeUSD, newAvgEntry, newTP),
		Symbol:  symbol,
		Price:   newAvgEntry,
		Extra: map[string]interface{}{
			"added_size_usd": addedSizeUSD,
			"new_avg_entry":  newAvgEntry,
			"new_tp":         newTP,
		},
	})
}

// SendStatus sends the periodic heartbeat with uptime and the position book
func (m *Manager) SendStatus(running bool, uptime string, positions []string) {
	state := "running"
	if !running {
		state = "stopped"
	}

	book := "none"
	if len(positions) > 0 {
		book = strings.Join(positions, "\n")
	}

	m.Send(&Notification{
		Type:    NotifyStatus,
		Title:   "📊 Bot Status",
		Message: fmt.Sprintf("State: %s\nUptime: %s\nOpen positions:\n%s", state, uptime, book),
	})
}

// SendError sends an error notification
func (m *Manager) SendError(title, message string) {
	m.Send(&Notification{
		Type:    NotifyError,
		Title:   fmt.Sprintf("⚠️ %s", title),
		Message: message,
	})
}

// SendInfo sends a plain informational notification
func (m *Manager) SendInfo(title, message string) {
	m.Send(&Notification{
		Type:    NotifyInfo,
		Title:   title,
		Message: message,
	})
}

// =============================================================================
// TELEGRAM NOTIFIER
// =============================================================================

// TelegramNotifier sends notifications via Telegram
type TelegramNotifier struct {
	botToken string
	chatID   string
	enabled  bool
	client   *http.Client
}

// TelegramConfig holds Telegram configuration
type TelegramConfig struct {
	BotToken string
	ChatID   string
	Enabled  bool
}

// NewTelegramNotifier creates a new Telegram notifier
func NewTelegramNotifier(config TelegramConfig) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: config.BotToken,
		chatID:   config.ChatID,
		enabled:  config.Enabled && config.BotToken != "" && config.ChatID != "",
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TelegramNotifier) Name() string {
	return "telegram"
}

func (t *TelegramNotifier) IsEnabled() bool {
	return t.enabled
}

func (t *TelegramNotifier) Send(notification *Notification) error {
	if !t.enabled {
		return nil
	}

	message := fmt.Sprintf("*%s*\n\n%s", notification.Title, notification.Message)

	payload := map[string]interface{}{
		"chat_id":    t.chatID,
		"text":       message,
		"parse_mode": "Markdown",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	resp, err := t.client.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}

// =============================================================================
// DISCORD NOTIFIER
// =============================================================================

// DiscordNotifier sends notifications via Discord webhook
type DiscordNotifier struct {
	webhookURL string
	enabled    bool
	client     *http.Client
}

// DiscordConfig holds Discord configuration
type DiscordConfig struct {
	WebhookURL string
	Enabled    bool
}

// NewDiscordNotifier creates a new Discord notifier
func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: config.WebhookURL,
		enabled:    config.Enabled && config.WebhookURL != "",
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *DiscordNotifier) Name() string {
	return "discord"
}

func (d *DiscordNotifier) IsEnabled() bool {
	return d.enabled
}

func (d *DiscordNotifier) Send(notification *Notification) error {
	if !d.enabled {
		return nil
	}

	color := 0x00FF00 // Green
	if notification.Type == NotifyError {
		color = 0xFF0000 // Red
	}

	embed := map[string]interface{}{
		"title":       notification.Title,
		"description": notification.Message,
		"color":       color,
		"timestamp":   notification.Timestamp.Format(time.RFC3339),
	}

	if notification.Symbol != "" {
		fields := []map[string]interface{}{
			{"name": "Symbol", "value": notification.Symbol, "inline": true},
		}
		if notification.Price > 0 {
			fields = append(fields, map[string]interface{}{
				"name": "Price", "value": fmt.Sprintf("%.4f", notification.Price), "inline": true,
			})
		}
		embed["fields"] = fields
	}

	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{embed},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal discord payload: %w", err)
	}

	resp, err := d.client.Post(d.webhookURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send discord message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("discord API returned status %d", resp.StatusCode)
	}

	return nil
}
