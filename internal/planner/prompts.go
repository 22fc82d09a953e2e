package planner

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"guarded-meal-planner/internal/profile"
)

//go:embed prompts/*.md
var promptFS embed.FS

var prompts = template.Must(template.New("prompts").
	Funcs(template.FuncMap{"join": strings.Join}).
	ParseFS(promptFS, "prompts/*.md"))

// AlternativesCount is how many replacements one request asks for.
const AlternativesCount = 3

type weeklyPromptData struct {
	profile.Preferences
	WeekRange string
	Days      []string
	Request   string
}

type alternativesPromptData struct {
	profile.Preferences
	CurrentMeal
	Count int
}

func buildWeeklyPrompt(prefs profile.Preferences, weekStart time.Time, request string) (string, error) {
	return render("weekly_plan.md", weeklyPromptData{
		Preferences: prefs,
		WeekRange:   FormatWeekRange(weekStart),
		Days:        DayNames,
		Request:     strings.TrimSpace(request),
	})
}

func buildAlternativesPrompt(prefs profile.Preferences, current CurrentMeal) (string, error) {
	return render("alternatives.md", alternativesPromptData{
		Preferences: prefs,
		CurrentMeal: current,
		Count:       AlternativesCount,
	})
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}
