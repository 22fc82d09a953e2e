package telegram

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"guarded-meal-planner/internal/metrics"
	"guarded-meal-planner/internal/planner"
	"guarded-meal-planner/internal/profile"
	"guarded-meal-planner/internal/schema"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var mealEmoji = map[planner.MealType]string{
	planner.Breakfast: "🍳",
	planner.Lunch:     "🥗",
	planner.Dinner:    "🍲",
}

// escape makes model-written text safe inside legacy Markdown.
func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func formatPlanMarkdown(plan *planner.WeekMealPlan) string {
	var pb strings.Builder
	fmt.Fprintf(&pb, "📅 *Meal Plan: %s*\n", planner.FormatWeekRange(plan.WeekStart))

	empty := true
	for i := range plan.Days {
		day := &plan.Days[i]
		var lines []string
		for _, t := range planner.MealTypes {
			if m := day.Slot(t); m != nil {
				lines = append(lines, fmt.Sprintf("%s %s", mealEmoji[t], escape(m.Recipe.Summary())))
			}
		}
		if len(lines) == 0 {
			continue
		}
		empty = false
		fmt.Fprintf(&pb, "\n*%s* (%.0f kcal)\n", day.Day, day.TotalCalories())
		pb.WriteString(strings.Join(lines, "\n"))
		pb.WriteString("\n")
	}
	if empty {
		pb.WriteString("\n_No meals planned._\n")
	}
	return pb.String()
}

func formatShoppingList(items []string, weekStart time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🛒 *Shopping List* (%s)\n\n", planner.FormatWeekRange(weekStart))
	if len(items) == 0 {
		sb.WriteString("_Nothing to buy._\n")
	}
	for _, item := range items {
		fmt.Fprintf(&sb, "• %s\n", escape(item))
	}
	return sb.String()
}

func formatAlternatives(current planner.CurrentMeal, day string, alternatives []schema.Meal) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🔄 *Alternatives for %s %s*\nCurrently: %s\n\n", day, current.Type, escape(current.Title))
	for i, alt := range alternatives {
		fmt.Fprintf(&sb, "%d. *%s* (%.0f kcal)\n", i+1, escape(alt.Title), alt.Nutrition.Calories)
		if alt.Description != "" {
			fmt.Fprintf(&sb, "_%s_\n", escape(alt.Description))
		}
	}
	return sb.String()
}

// buttonLabel keeps inline button text short enough to read on a phone.
func buttonLabel(n int, title string) string {
	const maxRunes = 40
	if utf8.RuneCountInString(title) > maxRunes {
		title = string([]rune(title)[:maxRunes-1]) + "…"
	}
	return fmt.Sprintf("%d. %s", n, title)
}

func formatProfile(p *profile.Profile) string {
	var sb strings.Builder
	sb.WriteString("👤 *Your Profile*\n\n")

	diet := p.DietType
	if diet == "" {
		diet = "any"
	}
	fmt.Fprintf(&sb, "• Diet: %s\n", escape(diet))

	allergies := profile.JoinAllergies(p.Allergies)
	if allergies == "" {
		allergies = "none"
	}
	fmt.Fprintf(&sb, "• Allergies: %s\n", escape(allergies))

	if p.CalorieGoal != nil {
		fmt.Fprintf(&sb, "• Calorie goal: %d kcal/day\n", *p.CalorieGoal)
	} else {
		sb.WriteString("• Calorie goal: not set\n")
	}
	return sb.String()
}

func formatMetrics(usage []metrics.DailyUsage, outcomes map[string]int, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		fmt.Fprintf(&sb, "• *%s*: %d tokens (%d attempts, %d runs)\n",
			d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution, d.Runs)
	}

	if len(outcomes) > 0 {
		sb.WriteString("\n🎯 *Attempt Outcomes*\n")
		keys := make([]string, 0, len(outcomes))
		for k := range outcomes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, "• %s: %d\n", escape(k), outcomes[k])
		}
	}

	sb.WriteString("\n🧠 *System Health*\n")
	fmt.Fprintf(&sb, "• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB)
	fmt.Fprintf(&sb, "• Goroutines: %d\n", health.Goroutines)
	fmt.Fprintf(&sb, "• Disk Data: %s\n", health.DataDiskSize)
	return sb.String()
}
