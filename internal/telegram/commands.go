package telegram

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"guarded-meal-planner/internal/database"
	"guarded-meal-planner/internal/logger"
	"guarded-meal-planner/internal/metrics"
	"guarded-meal-planner/internal/planner"
	"guarded-meal-planner/internal/profile"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = `🧑‍🍳 *Meal Planner*

Send any message (or /plan) to get next week's plan. Add wishes like "quick lunches, more fish".

/week [this|next|last|YYYY-MM-DD] show a plan
/shopping [week] show its shopping list
/swap <day> <meal> [week] pick a replacement meal
/profile show your preferences
/profile diet <type>
/profile allergies <a, b> (or none)
/profile calories <n> (or none)`

func (b *Bot) handlePlanRequest(ctx context.Context, userID string, chatID int64, request string) {
	sent := b.reply(chatID, "🧑‍🍳 *Thinking...*\n(Generating your plan for next week)")
	nextMonday := planner.NextMonday(b.now())

	_, err := b.planner.GetMealPlan(ctx, userID, nextMonday)
	switch {
	case err == nil:
		b.askReplanChoice(ctx, userID, chatID, sent.MessageID, request, nextMonday)
		return
	case !errors.Is(err, planner.ErrPlanNotFound):
		b.reportError(chatID, sent.MessageID, planner.ActionGeneratePlan, err)
		return
	}

	b.generateAndSendPlan(ctx, userID, chatID, sent.MessageID, request, nextMonday)
}

// askReplanChoice offers to redo an existing week or plan the one after.
func (b *Bot) askReplanChoice(ctx context.Context, userID string, chatID int64, messageID int, request string, weekStart time.Time) {
	sessionID, err := b.sessions.Create(ctx, userID, SessionPlanConfirm, StateAwaitingChoice, SessionContextData{
		WeekStart:       database.FormatDate(weekStart),
		OriginalRequest: request,
	}, SessionTTL)
	if err != nil {
		b.reportError(chatID, messageID, planner.ActionGeneratePlan, err)
		return
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Redo Next Week", callbackData(callbackRedo, sessionID, -1)),
			tgbotapi.NewInlineKeyboardButtonData("⏭️ Plan Following Week", callbackData(callbackNext, sessionID, -1)),
		),
	)
	text := fmt.Sprintf("🗓️ A plan already exists for *%s*.\nWhat would you like to do?", planner.FormatWeekRange(weekStart))
	b.edit(chatID, messageID, text, &keyboard)
}

func (b *Bot) generateAndSendPlan(ctx context.Context, userID string, chatID int64, messageID int, request string, weekStart time.Time) {
	logger.Info("Generating plan from Telegram", logger.Fields{
		"user_id":    userID,
		"week_start": database.FormatDate(weekStart),
	})

	plan, err := b.planner.GenerateWeeklyPlan(ctx, userID, weekStart, planner.Request{Notes: request})
	if err != nil {
		b.reportError(chatID, messageID, planner.ActionGeneratePlan, err)
		return
	}

	b.edit(chatID, messageID, formatPlanMarkdown(plan), nil)
	b.sendShoppingList(ctx, userID, chatID, plan.WeekStart)
}

func (b *Bot) handleWeekCommand(ctx context.Context, userID string, chatID int64, args string) {
	weekStart, ok := b.parseWeekArg(args)
	if !ok {
		b.reply(chatID, "Usage: /week [this|next|last|YYYY-MM-DD]")
		return
	}

	plan, err := b.planner.GetMealPlan(ctx, userID, weekStart)
	if err != nil {
		b.reportError(chatID, 0, "get_meal_plan", err)
		return
	}
	b.reply(chatID, formatPlanMarkdown(plan))
}

func (b *Bot) handleShoppingCommand(ctx context.Context, userID string, chatID int64, args string) {
	weekStart, ok := b.parseWeekArg(args)
	if !ok {
		b.reply(chatID, "Usage: /shopping [this|next|last|YYYY-MM-DD]")
		return
	}
	b.sendShoppingList(ctx, userID, chatID, weekStart)
}

func (b *Bot) sendShoppingList(ctx context.Context, userID string, chatID int64, weekStart time.Time) {
	list, err := b.planner.ShoppingList(ctx, userID, weekStart)
	if err != nil {
		b.reportError(chatID, 0, "get_shopping_list", err)
		return
	}
	b.reply(chatID, formatShoppingList(list.Items, weekStart))
}

func (b *Bot) handleSwapCommand(ctx context.Context, userID string, chatID int64, args string) {
	const usage = "Usage: /swap <day> <breakfast|lunch|dinner> [this|next|YYYY-MM-DD]"

	fields := strings.Fields(args)
	if len(fields) < 2 {
		b.reply(chatID, usage)
		return
	}
	day, ok := planner.DayOfWeek(fields[0])
	if !ok {
		b.reply(chatID, usage)
		return
	}
	mealType, err := planner.ParseMealType(fields[1])
	if err != nil {
		b.reply(chatID, usage)
		return
	}
	weekStart, ok := b.parseWeekArg(strings.Join(fields[2:], " "))
	if !ok {
		b.reply(chatID, usage)
		return
	}

	plan, err := b.planner.GetMealPlan(ctx, userID, weekStart)
	if err != nil {
		b.reportError(chatID, 0, planner.ActionGenerateAlternatives, err)
		return
	}

	sent := b.reply(chatID, "🔄 *Finding alternatives...*")
	current, err := b.planner.CurrentMealFor(ctx, userID, plan.ID, day, mealType)
	if err != nil {
		b.reportError(chatID, sent.MessageID, planner.ActionGenerateAlternatives, err)
		return
	}
	alternatives, err := b.planner.GenerateAlternatives(ctx, userID, current)
	if err != nil {
		b.reportError(chatID, sent.MessageID, planner.ActionGenerateAlternatives, err)
		return
	}

	sessionID, err := b.sessions.Create(ctx, userID, SessionSwap, StateAwaitingChoice, SessionContextData{
		PlanID:       plan.ID,
		WeekStart:    database.FormatDate(plan.WeekStart),
		DayOfWeek:    day,
		MealType:     string(mealType),
		Alternatives: alternatives,
	}, SessionTTL)
	if err != nil {
		b.reportError(chatID, sent.MessageID, planner.ActionGenerateAlternatives, err)
		return
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(alternatives)+1)
	for i, alt := range alternatives {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(buttonLabel(i+1, alt.Title), callbackData(callbackSwap, sessionID, i)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("👍 Keep current", callbackData(callbackSwap, sessionID, -1)),
	))
	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)

	b.edit(chatID, sent.MessageID, formatAlternatives(current, planner.DayNames[day-1], alternatives), &keyboard)
}

func (b *Bot) applySwap(ctx context.Context, userID string, chatID int64, messageID int, data SessionContextData, choice int) {
	if choice < 0 || choice >= len(data.Alternatives) {
		b.edit(chatID, messageID, "👍 Keeping your current meal.", nil)
		return
	}
	mealType, err := planner.ParseMealType(data.MealType)
	if err != nil {
		b.reportError(chatID, messageID, "swap_meal", err)
		return
	}

	swapped, err := b.planner.SwapMeal(ctx, userID, data.PlanID, data.DayOfWeek, mealType, data.Alternatives[choice])
	if err != nil {
		b.reportError(chatID, messageID, "swap_meal", err)
		return
	}

	b.edit(chatID, messageID, fmt.Sprintf("✅ %s %s is now *%s*",
		planner.DayNames[data.DayOfWeek-1], mealType, escape(swapped.Summary())), nil)

	if weekStart, err := parseWeek(data.WeekStart); err == nil {
		b.sendShoppingList(ctx, userID, chatID, weekStart)
	}
}

func (b *Bot) handleProfileCommand(ctx context.Context, userID string, chatID int64, args string) {
	profiles := b.planner.Profiles()
	p, err := profiles.Get(ctx, userID)
	if err != nil {
		b.reportError(chatID, 0, "profile", err)
		return
	}
	if p == nil {
		p = &profile.Profile{UserID: userID}
	}

	field, value, _ := strings.Cut(strings.TrimSpace(args), " ")
	value = strings.TrimSpace(value)
	reset := strings.EqualFold(value, "none")

	switch strings.ToLower(field) {
	case "":
		b.reply(chatID, formatProfile(p))
		return
	case "diet":
		if reset {
			value = ""
		}
		p.DietType = value
	case "allergies":
		if reset {
			value = ""
		}
		p.Allergies = profile.ParseAllergies(value)
	case "calories":
		if reset {
			p.CalorieGoal = nil
			break
		}
		goal, err := strconv.Atoi(value)
		if err != nil {
			b.reply(chatID, "Usage: /profile calories <number>")
			return
		}
		p.CalorieGoal = &goal
	default:
		b.reply(chatID, "Usage: /profile [diet|allergies|calories] <value>")
		return
	}

	if err := profiles.Save(ctx, p); err != nil {
		if errors.Is(err, profile.ErrInvalidProfile) {
			b.reply(chatID, "⚠️ "+escape(err.Error()))
			return
		}
		b.reportError(chatID, 0, "profile", err)
		return
	}
	b.reply(chatID, "✅ Saved.\n\n"+formatProfile(p))
}

func (b *Bot) handleMetricsRequest(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From.ID != b.cfg.AdminTelegramID {
		b.reply(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
		return
	}

	usage, err := b.metricsStore.GetDailyUsage(ctx, 7)
	if err != nil {
		logger.Error("Failed to fetch metrics", err, nil)
		b.reply(msg.Chat.ID, "❌ Error fetching metrics.")
		return
	}
	outcomes, err := b.metricsStore.GetOutcomeCounts(ctx, 7)
	if err != nil {
		logger.Error("Failed to fetch outcomes", err, nil)
		b.reply(msg.Chat.ID, "❌ Error fetching metrics.")
		return
	}
	health := metrics.GetSysHealth(filepath.Dir(b.cfg.DatabasePath))

	b.reply(msg.Chat.ID, formatMetrics(usage, outcomes, health))
}

// parseWeekArg resolves "", "this", "next", "last" or a date to the
// Monday of that week.
func (b *Bot) parseWeekArg(arg string) (time.Time, bool) {
	now := b.now()
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "", "this":
		return planner.WeekStart(now), true
	case "next":
		return planner.NextMonday(now), true
	case "last", "prev", "previous":
		return planner.PreviousWeek(planner.WeekStart(now)), true
	}
	d, err := parseWeek(arg)
	if err != nil {
		return time.Time{}, false
	}
	return planner.WeekStart(d), true
}

func parseWeek(s string) (time.Time, error) {
	return database.ParseDate(strings.TrimSpace(s))
}
