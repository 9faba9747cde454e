package stats

import (
	"fmt"

	"github.com/vetsupport/companion/pkg/types"
)

// insightTexts holds the localized insight templates keyed by language.
// Ukrainian is the primary locale; English is the fallback.
var insightTexts = map[string]map[string]string{
	"uk": {
		"improving": "Ваш настрій покращується останнім часом. Так тримати!",
		"declining": "Ваш настрій знижується. Спробуйте приділити собі більше уваги.",
		"stable":    "Ваш настрій стабільний останнім часом.",
		"streak":    "Серія з %d днів поспіль! Регулярність допомагає.",
		"high_avg":  "Ваш середній настрій високий (%.1f). Чудовий результат!",
		"variable":  "Ваш настрій останнім часом коливається. Це нормально, але зверніть на це увагу.",
	},
	"en": {
		"improving": "Your mood has been improving lately. Keep it up!",
		"declining": "Your mood has been declining. Try to take some extra care of yourself.",
		"stable":    "Your mood has been stable lately.",
		"streak":    "%d-day check-in streak! Consistency helps.",
		"high_avg":  "Your average mood is high (%.1f). Great result!",
		"variable":  "Your mood has been fluctuating lately. That is normal, but worth noticing.",
	},
}

// buildInsights assembles the localized insight lines for a report.
func buildInsights(report *types.StatsReport, language string) []string {
	texts, ok := insightTexts[language]
	if !ok {
		texts = insightTexts["en"]
	}

	var insights []string

	switch report.Trend {
	case types.TrendImproving:
		insights = append(insights, texts["improving"])
	case types.TrendDeclining:
		insights = append(insights, texts["declining"])
	case types.TrendStable:
		insights = append(insights, texts["stable"])
	}

	if report.StreakDays >= 7 {
		insights = append(insights, fmt.Sprintf(texts["streak"], report.StreakDays))
	}

	if report.TotalCheckIns >= MinTrendPoints && report.AverageMood >= float64(types.HighMoodFloor) {
		insights = append(insights, fmt.Sprintf(texts["high_avg"], round1(report.AverageMood)))
	}

	if report.Stability == types.StabilityVariable {
		insights = append(insights, texts["variable"])
	}

	return insights
}
