package recurrence

import (
	"regexp"
	"strings"
	"time"

	"finanzas/internal/logger"
	"finanzas/internal/models"
)

// Evaluate is the execution hook for user-authored date-shift logic.
// Arbitrary execution is deliberately disabled: without a real sandbox the
// snippet is never run, the candidate date is returned unchanged, and the
// request is logged. Series authored with custom logic therefore behave as
// if no adjustment were configured until a sandboxed evaluator exists.
func Evaluate(rawLogic string, candidate time.Time, skipWeekends, skipHolidays bool) time.Time {
	logger.Get().Warnw("custom logic requested but not executed, using original date",
		"skip_weekends", skipWeekends,
		"skip_holidays", skipHolidays,
		"logic_bytes", len(rawLogic),
	)
	return candidate
}

// AdjustmentStrategy selects how a series' candidate date is shifted:
// the default business-day adjustment, or the unsupported custom-logic
// passthrough.
type AdjustmentStrategy struct {
	custom bool
	raw    string
}

// StrategyFor resolves the adjustment strategy for a series.
func StrategyFor(s *models.RecurringSeries) AdjustmentStrategy {
	if s.UseCustomLogic && s.CustomLogic != "" {
		return AdjustmentStrategy{custom: true, raw: s.CustomLogic}
	}
	return AdjustmentStrategy{}
}

// Apply computes the effective transaction date for a candidate.
func (a AdjustmentStrategy) Apply(candidate time.Time, skipWeekends, skipHolidays bool, holidays HolidayCalendar) time.Time {
	if a.custom {
		return Evaluate(a.raw, candidate, skipWeekends, skipHolidays)
	}
	return AdjustForBusinessDay(candidate, skipWeekends, skipHolidays, holidays)
}

// dangerousPatterns flag snippets that reach for system access, dynamic
// code execution, or timers. Matching any of them fails validation.
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`require\s*\(`),
	regexp.MustCompile(`import\s+`),
	regexp.MustCompile(`process\.`),
	regexp.MustCompile(`global\.`),
	regexp.MustCompile(`console\.`),
	regexp.MustCompile(`eval\s*\(`),
	regexp.MustCompile(`Function\s*\(`),
	regexp.MustCompile(`setTimeout|setInterval`),
}

// ValidateCustomLogic performs the authoring-time, advisory check of a
// custom logic snippet. It is not consulted at generation time. An empty
// snippet is valid. Otherwise the snippet must avoid dangerous patterns
// and contain an explicit return of the computed date.
func ValidateCustomLogic(rawLogic string) (bool, string) {
	if strings.TrimSpace(rawLogic) == "" {
		return true, "no custom logic provided"
	}

	for _, pattern := range dangerousPatterns {
		if pattern.MatchString(rawLogic) {
			return false, "custom logic contains instructions that are not allowed"
		}
	}

	hasReturn := false
	for _, line := range strings.Split(rawLogic, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "return") {
			hasReturn = true
			break
		}
	}
	if !hasReturn {
		return false, "custom logic must include a return statement with the computed date"
	}

	return true, "custom logic is valid"
}
