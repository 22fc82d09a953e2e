package telegram

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"guarded-meal-planner/internal/config"
	"guarded-meal-planner/internal/database"
	"guarded-meal-planner/internal/guard"
	"guarded-meal-planner/internal/llm/llmtest"
	"guarded-meal-planner/internal/metrics"
	"guarded-meal-planner/internal/planner"
	"guarded-meal-planner/internal/recipe"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminID = int64(42)
	userID  = int64(43)
)

// Wednesday, so "this week" starts Nov 3 and next week Nov 10.
var fixedNow = time.Date(2025, 11, 5, 9, 0, 0, 0, time.UTC)

type fakeAPI struct {
	mu      sync.Mutex
	sent    []tgbotapi.Chattable
	answers int
	nextID  int
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeAPI) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers++
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// texts returns the text of every message sent or edited, in order.
func (f *fakeAPI) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeAPI) all() string {
	return strings.Join(f.texts(), "\n---\n")
}

func (f *fakeAPI) lastKeyboard(t *testing.T) *tgbotapi.InlineKeyboardMarkup {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if e, ok := f.sent[i].(tgbotapi.EditMessageTextConfig); ok && e.ReplyMarkup != nil {
			return e.ReplyMarkup
		}
	}
	t.Fatal("no inline keyboard was sent")
	return nil
}

func (f *fakeAPI) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
}

type botEnv struct {
	api     *fakeAPI
	bot     *Bot
	gen     *llmtest.Scripted
	planner *planner.Planner
}

func newBotEnv(t *testing.T, gen *llmtest.Scripted) *botEnv {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "bot.db")
	db, err := database.NewDB(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := metrics.NewStore(db.SQL)
	g := guard.New(gen, guard.WithBaseDelay(0), guard.WithObserver(store))
	p := planner.NewPlanner(db, g, noLimit{}, planner.WithNow(func() time.Time { return fixedNow }))

	sessions := NewSessionRepository(db.SQL)
	sessions.now = func() time.Time { return fixedNow }

	cfg := &config.Config{
		DatabasePath:           dbPath,
		TelegramAllowedUserIDs: []int64{adminID, userID},
		AdminTelegramID:        adminID,
	}
	api := &fakeAPI{}
	b := newBot(api, cfg, p, sessions, store)
	b.now = func() time.Time { return fixedNow }
	return &botEnv{api: api, bot: b, gen: gen, planner: p}
}

type noLimit struct{}

func (noLimit) CheckLimit(string, string) error { return nil }

func message(from int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: from},
		Chat:      &tgbotapi.Chat{ID: from},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		cmd, _, _ := strings.Cut(text, " ")
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return tgbotapi.Update{Message: msg}
}

func click(from int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: from},
		Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: from}},
		Data:    data,
	}}
}

func weekPlan() string {
	return llmtest.WeeklyPlan(map[string]llmtest.Day{
		"Monday": {
			"breakfast": llmtest.Meal("Overnight Oats", 420, "oats", "milk"),
			"dinner":    llmtest.Meal("Salmon Bowl", 650, "salmon", "rice"),
		},
	})
}

func TestFreeTextGeneratesNextWeek(t *testing.T) {
	env := newBotEnv(t, llmtest.New(llmtest.Text(llmtest.Fenced(weekPlan()))))

	env.bot.HandleUpdate(context.Background(), message(userID, "quick dinners please"))

	out := env.api.all()
	assert.Contains(t, out, "Thinking")
	assert.Contains(t, out, "Meal Plan: Nov 10 - Nov 16, 2025")
	assert.Contains(t, out, "Overnight Oats (420 kcal, 20g protein, 10 min)")
	assert.Contains(t, out, "*Monday* (1070 kcal)")
	assert.Contains(t, out, "• salmon")

	require.Len(t, env.gen.Prompts(), 1)
	assert.Contains(t, env.gen.Prompts()[0], "quick dinners please")
}

func TestPlanCommand_OffersChoiceWhenWeekExists(t *testing.T) {
	env := newBotEnv(t, llmtest.New(llmtest.Text(weekPlan())))
	ctx := context.Background()

	env.bot.HandleUpdate(ctx, message(userID, "/plan"))
	env.api.reset()

	env.bot.HandleUpdate(ctx, message(userID, "/plan more fish"))
	assert.Contains(t, env.api.all(), "A plan already exists for *Nov 10 - Nov 16, 2025*")
	assert.Equal(t, 1, env.gen.Calls())

	keyboard := env.api.lastKeyboard(t)
	require.Len(t, keyboard.InlineKeyboard, 1)
	require.Len(t, keyboard.InlineKeyboard[0], 2)
	next := *keyboard.InlineKeyboard[0][1].CallbackData
	assert.True(t, strings.HasPrefix(next, "next|"))

	env.bot.HandleUpdate(ctx, click(userID, next))
	assert.Equal(t, 2, env.gen.Calls())
	assert.Contains(t, env.gen.Prompts()[1], "more fish")
	assert.Contains(t, env.api.all(), "Meal Plan: Nov 17 - Nov 23, 2025")

	plans, err := env.planner.ListMealPlans(ctx, "43")
	require.NoError(t, err)
	assert.Len(t, plans, 2)

	// The session is spent once used.
	env.bot.HandleUpdate(ctx, click(userID, next))
	assert.Contains(t, env.api.texts()[len(env.api.texts())-1], "expired")
	assert.Equal(t, 2, env.gen.Calls())
}

func TestSwapFlow(t *testing.T) {
	alternatives := llmtest.JSON([]any{
		llmtest.Meal("Tofu Scramble", 400, "tofu", "spinach"),
		llmtest.Meal("Greek Yogurt Bowl", 350, "yogurt", "berries"),
	})
	env := newBotEnv(t, llmtest.New(llmtest.Text(weekPlan()), llmtest.Text(alternatives)))
	ctx := context.Background()

	plan, err := env.planner.GenerateWeeklyPlan(ctx, "43", fixedNow, planner.Request{})
	require.NoError(t, err)

	env.bot.HandleUpdate(ctx, message(userID, "/swap mon breakfast"))
	out := env.api.all()
	assert.Contains(t, out, "Alternatives for Monday breakfast")
	assert.Contains(t, out, "Currently: Overnight Oats")
	assert.Contains(t, out, "2. *Greek Yogurt Bowl* (350 kcal)")

	keyboard := env.api.lastKeyboard(t)
	require.Len(t, keyboard.InlineKeyboard, 3)
	assert.Equal(t, "👍 Keep current", keyboard.InlineKeyboard[2][0].Text)

	env.api.reset()
	env.bot.HandleUpdate(ctx, click(userID, *keyboard.InlineKeyboard[1][0].CallbackData))
	out = env.api.all()
	assert.Contains(t, out, "Monday breakfast is now *Greek Yogurt Bowl")
	assert.Contains(t, out, "• yogurt")

	stored, err := env.planner.GetMealPlan(ctx, "43", plan.WeekStart)
	require.NoError(t, err)
	assert.Equal(t, "Greek Yogurt Bowl", stored.Day(1).Breakfast.Recipe.Title)
}

func TestSwapCommand_Errors(t *testing.T) {
	env := newBotEnv(t, llmtest.New(llmtest.Text(weekPlan())))
	ctx := context.Background()

	env.bot.HandleUpdate(ctx, message(userID, "/swap monday lunch"))
	assert.Contains(t, env.api.all(), "No plan for that week yet")

	_, err := env.planner.GenerateWeeklyPlan(ctx, "43", fixedNow, planner.Request{})
	require.NoError(t, err)

	env.api.reset()
	env.bot.HandleUpdate(ctx, message(userID, "/swap monday lunch"))
	assert.Contains(t, env.api.all(), "That slot is empty")

	env.api.reset()
	env.bot.HandleUpdate(ctx, message(userID, "/swap someday lunch"))
	assert.Contains(t, env.api.all(), "Usage: /swap")
}

func TestGenerationExhausted_AlertsAdmin(t *testing.T) {
	env := newBotEnv(t, llmtest.New(llmtest.Text("Sorry, I can't do that.")))

	env.bot.HandleUpdate(context.Background(), message(userID, "/plan"))

	assert.Equal(t, planner.DefaultMaxAttempts, env.gen.Calls())
	assert.Contains(t, env.api.all(), "Generation failed, please retry.")

	var alerted bool
	for _, c := range env.api.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok && m.ChatID == adminID {
			alerted = strings.Contains(m.Text, "Generation exhausted")
		}
	}
	assert.True(t, alerted)
}

func TestUnauthorizedUserIsIgnored(t *testing.T) {
	env := newBotEnv(t, llmtest.New(llmtest.Text(weekPlan())))

	env.bot.HandleUpdate(context.Background(), message(99, "/plan"))
	env.bot.HandleUpdate(context.Background(), click(99, "swap|1|0"))

	assert.Empty(t, env.api.texts())
	assert.Zero(t, env.api.answers)
	assert.Zero(t, env.gen.Calls())
}

func TestProfileCommand(t *testing.T) {
	env := newBotEnv(t, llmtest.New(llmtest.Text("{}")))
	ctx := context.Background()

	env.bot.HandleUpdate(ctx, message(userID, "/profile"))
	assert.Contains(t, env.api.all(), "Calorie goal: not set")

	env.bot.HandleUpdate(ctx, message(userID, "/profile calories 50"))
	assert.Contains(t, env.api.all(), "⚠️")

	env.bot.HandleUpdate(ctx, message(userID, "/profile calories 2000"))
	env.bot.HandleUpdate(ctx, message(userID, "/profile allergies peanuts, shellfish"))
	env.bot.HandleUpdate(ctx, message(userID, "/profile diet vegetarian"))

	p, err := env.planner.Profiles().Get(ctx, "43")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "vegetarian", p.DietType)
	assert.Equal(t, []string{"peanuts", "shellfish"}, p.Allergies)
	require.NotNil(t, p.CalorieGoal)
	assert.Equal(t, 2000, *p.CalorieGoal)

	env.bot.HandleUpdate(ctx, message(userID, "/profile calories none"))
	p, err = env.planner.Profiles().Get(ctx, "43")
	require.NoError(t, err)
	assert.Nil(t, p.CalorieGoal)
}

func TestMetricsCommand(t *testing.T) {
	env := newBotEnv(t, llmtest.New(llmtest.Text("nope"), llmtest.Text(weekPlan())))
	ctx := context.Background()

	_, err := env.planner.GenerateWeeklyPlan(ctx, "43", fixedNow, planner.Request{})
	require.NoError(t, err)

	env.bot.HandleUpdate(ctx, message(userID, "/metrics"))
	assert.Contains(t, env.api.all(), "Access Denied")

	env.api.reset()
	env.bot.HandleUpdate(ctx, message(adminID, "/metrics"))
	out := env.api.all()
	assert.Contains(t, out, "Usage & Health Report")
	assert.Contains(t, out, "• extraction: 1")
	assert.Contains(t, out, "• success: 1")
	assert.Contains(t, out, "(2 attempts, 1 runs)")
}

func TestCallbackData(t *testing.T) {
	action, id, choice, ok := parseCallbackData(callbackData(callbackSwap, 12, 2))
	require.True(t, ok)
	assert.Equal(t, callbackSwap, action)
	assert.Equal(t, int64(12), id)
	assert.Equal(t, 2, choice)

	_, _, choice, ok = parseCallbackData(callbackData(callbackRedo, 3, -1))
	require.True(t, ok)
	assert.Equal(t, -1, choice)

	_, _, _, ok = parseCallbackData("garbage")
	assert.False(t, ok)
	_, _, _, ok = parseCallbackData("swap|x|1")
	assert.False(t, ok)
}

func TestFormatPlanMarkdown(t *testing.T) {
	weekStart := time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC)
	plan := &planner.WeekMealPlan{WeekStart: weekStart, Days: planner.WeekDays(weekStart)}
	plan.Days[1].SetSlot(&planner.Meal{Type: planner.Lunch, Recipe: recipe.Recipe{
		Title: "Tacos_al_pastor", PrepTimeMinutes: 15,
	}})

	out := formatPlanMarkdown(plan)
	assert.Contains(t, out, "📅 *Meal Plan: Nov 3 - Nov 9, 2025*")
	assert.Contains(t, out, "*Tuesday* (0 kcal)")
	assert.Contains(t, out, `🥗 Tacos\_al\_pastor (0 kcal, 15 min)`)
	assert.NotContains(t, out, "Monday")

	empty := formatPlanMarkdown(&planner.WeekMealPlan{WeekStart: weekStart, Days: planner.WeekDays(weekStart)})
	assert.Contains(t, empty, "No meals planned")
}

func TestFormatShoppingList(t *testing.T) {
	weekStart := time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC)
	out := formatShoppingList([]string{"Cheese", "Lettuce"}, weekStart)
	assert.Contains(t, out, "🛒 *Shopping List*")
	assert.Contains(t, out, "• Cheese")
	assert.Contains(t, formatShoppingList(nil, weekStart), "Nothing to buy")
}
