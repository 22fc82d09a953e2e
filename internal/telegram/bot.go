// Package telegram serves the meal planner as a Telegram bot behind a
// webhook.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"guarded-meal-planner/internal/config"
	"guarded-meal-planner/internal/guard"
	"guarded-meal-planner/internal/logger"
	"guarded-meal-planner/internal/metrics"
	"guarded-meal-planner/internal/observability"
	"guarded-meal-planner/internal/planner"
	"guarded-meal-planner/internal/ratelimit"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// SessionTTL bounds how long inline buttons stay usable.
const SessionTTL = 30 * time.Minute

// sender is the part of *tgbotapi.BotAPI the bot talks through.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot wraps the Telegram API and the meal planner.
type Bot struct {
	api          sender
	planner      *planner.Planner
	sessions     *SessionRepository
	metricsStore *metrics.Store
	cfg          *config.Config
	now          func() time.Time
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(cfg *config.Config, p *planner.Planner, sessions *SessionRepository, metricsStore *metrics.Store) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	logger.Info("Telegram bot authorized", logger.Fields{"account": api.Self.UserName})

	if cfg.TelegramWebhookURL != "" {
		wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
		if err != nil {
			return nil, fmt.Errorf("invalid webhook url %s: %w", cfg.TelegramWebhookURL, err)
		}
		resp, err := api.Request(wh)
		if err != nil {
			return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
		}
		logger.Info("Webhook set", logger.Fields{"description": resp.Description})
	}

	return newBot(api, cfg, p, sessions, metricsStore), nil
}

func newBot(api sender, cfg *config.Config, p *planner.Planner, sessions *SessionRepository, metricsStore *metrics.Store) *Bot {
	return &Bot{
		api:          api,
		planner:      p,
		sessions:     sessions,
		metricsStore: metricsStore,
		cfg:          cfg,
		now:          time.Now,
	}
}

// RegisterHandlers registers the webhook and health handlers on mux.
func (b *Bot) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", b.handleWebhook)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		logger.Warn("Error parsing update", logger.Fields{"error": err.Error()})
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)

	go b.HandleUpdate(context.Background(), update)
}

// HandleUpdate processes one update synchronously.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if !b.isAllowed(update.CallbackQuery.From) {
			return
		}
		b.handleCallbackQuery(ctx, update.CallbackQuery)
	case update.Message != nil:
		if !b.isAllowed(update.Message.From) {
			return
		}
		b.processMessage(ctx, update.Message)
	}
}

func (b *Bot) isAllowed(from *tgbotapi.User) bool {
	if from == nil {
		return false
	}
	for _, id := range b.cfg.TelegramAllowedUserIDs {
		if from.ID == id {
			return true
		}
	}
	logger.Warn("Unauthorized Telegram access attempt", logger.Fields{
		"telegram_id": from.ID,
		"username":    from.UserName,
	})
	return false
}

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := userIDOf(msg.From)
	ctx = observability.WithUser(ctx, userID)

	switch msg.Command() {
	case "start", "help":
		b.reply(msg.Chat.ID, helpText)
	case "plan":
		b.handlePlanRequest(ctx, userID, msg.Chat.ID, msg.CommandArguments())
	case "week":
		b.handleWeekCommand(ctx, userID, msg.Chat.ID, msg.CommandArguments())
	case "shopping":
		b.handleShoppingCommand(ctx, userID, msg.Chat.ID, msg.CommandArguments())
	case "swap":
		b.handleSwapCommand(ctx, userID, msg.Chat.ID, msg.CommandArguments())
	case "profile":
		b.handleProfileCommand(ctx, userID, msg.Chat.ID, msg.CommandArguments())
	case "metrics":
		b.handleMetricsRequest(ctx, msg)
	case "":
		if strings.TrimSpace(msg.Text) == "" {
			return
		}
		b.handlePlanRequest(ctx, userID, msg.Chat.ID, msg.Text)
	default:
		b.reply(msg.Chat.ID, "🤔 Unknown command. Send /help for the list.")
	}
}

func (b *Bot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	userID := userIDOf(query.From)
	ctx = observability.WithUser(ctx, userID)

	// Answer callback to remove spinner
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		logger.Warn("Failed to answer callback", logger.Fields{"error": err.Error()})
	}
	if query.Message == nil {
		return
	}
	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID

	action, sessionID, choice, ok := parseCallbackData(query.Data)
	if !ok {
		return
	}

	session, err := b.sessions.Get(ctx, sessionID, userID)
	if err != nil {
		logger.Error("Failed to load session", err, logger.Fields{"user_id": userID, "session_id": sessionID})
		b.edit(chatID, messageID, "❌ Something went wrong. Please try again.", nil)
		return
	}
	if session == nil {
		b.edit(chatID, messageID, "⌛ This choice has expired. Please start again.", nil)
		return
	}
	data, err := session.GetContextData()
	if err != nil {
		logger.Error("Failed to decode session", err, logger.Fields{"user_id": userID, "session_id": sessionID})
		return
	}
	if err := b.sessions.Delete(ctx, session.ID); err != nil {
		logger.Warn("Failed to delete session", logger.Fields{"session_id": session.ID, "error": err.Error()})
	}

	switch action {
	case callbackRedo, callbackNext:
		weekStart, err := parseWeek(data.WeekStart)
		if err != nil {
			return
		}
		if action == callbackNext {
			weekStart = planner.NextWeek(weekStart)
		}
		b.edit(chatID, messageID, "🧑‍🍳 *Thinking...*", nil)
		b.generateAndSendPlan(ctx, userID, chatID, messageID, data.OriginalRequest, weekStart)
	case callbackSwap:
		b.applySwap(ctx, userID, chatID, messageID, data, choice)
	}
}

// reportError tells the user what went wrong in words they can act on.
func (b *Bot) reportError(chatID int64, messageID int, op string, err error) {
	var limitErr *ratelimit.LimitError
	var text string

	switch {
	case errors.As(err, &limitErr):
		text = "⏳ " + limitErr.Error()
	case errors.Is(err, guard.ErrExhausted):
		text = "❌ *Generation failed, please retry.*"
		b.sendAdminAlert(fmt.Sprintf("⚠️ *Generation exhausted*\nOperation: %s\n%s", op, escape(err.Error())))
	case errors.Is(err, planner.ErrPlanNotFound):
		text = "🗓️ No plan for that week yet. Send /plan to create one."
	case errors.Is(err, planner.ErrMealNotFound):
		text = "🍽️ That slot is empty in your plan."
	case errors.Is(err, planner.ErrInvalidInput):
		text = "⚠️ " + escape(err.Error())
	default:
		logger.Error("Telegram request failed", err, logger.Fields{"operation": op})
		text = "❌ Something went wrong. Please try again."
	}

	if messageID == 0 {
		b.reply(chatID, text)
		return
	}
	b.edit(chatID, messageID, text, nil)
}

func (b *Bot) reply(chatID int64, text string) tgbotapi.Message {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	sent, err := b.api.Send(msg)
	if err != nil {
		logger.Warn("Failed to send Telegram message", logger.Fields{"chat_id": chatID, "error": err.Error()})
	}
	return sent
}

func (b *Bot) edit(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	edit.ReplyMarkup = keyboard
	if _, err := b.api.Send(edit); err != nil {
		logger.Warn("Failed to edit Telegram message", logger.Fields{"chat_id": chatID, "error": err.Error()})
	}
}

func (b *Bot) sendAdminAlert(text string) {
	if b.cfg.AdminTelegramID == 0 {
		return
	}
	b.reply(b.cfg.AdminTelegramID, text)
}

func userIDOf(u *tgbotapi.User) string {
	return strconv.FormatInt(u.ID, 10)
}

const (
	callbackRedo = "redo"
	callbackNext = "next"
	callbackSwap = "swap"
)

// callbackData encodes "action|session[|choice]". Telegram caps it at 64
// bytes, so the payload itself lives in the session.
func callbackData(action string, sessionID int64, choice int) string {
	if choice < 0 {
		return fmt.Sprintf("%s|%d", action, sessionID)
	}
	return fmt.Sprintf("%s|%d|%d", action, sessionID, choice)
}

func parseCallbackData(data string) (action string, sessionID int64, choice int, ok bool) {
	parts := strings.Split(data, "|")
	if len(parts) < 2 {
		return "", 0, 0, false
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, 0, false
	}
	choice = -1
	if len(parts) > 2 {
		if choice, err = strconv.Atoi(parts[2]); err != nil {
			return "", 0, 0, false
		}
	}
	return parts[0], id, choice, true
}
