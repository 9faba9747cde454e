package orchestrator

import "github.com/vetsupport/companion/pkg/types"

// Deterministic offline content, localized. This is the safety net behind
// the whole provider chain: the offline response always surfaces the crisis
// hotline numbers, and the canned analyses/recommendations are keyed by the
// low/mid/high mood buckets.

var offlineResponses = map[string]string{
	"uk": `Дякую за ваше повідомлення. На жаль, зараз у мене технічні проблеми з ШІ-моделлю, але я хочу, щоб ви знали - ваші почуття важливі.

Якщо вам потрібна негайна підтримка:
📞 Лінія довіри: 7333
📞 Психологічна підтримка: 116 123

Спробуйте написати пізніше, або скористайтесь іншими функціями застосунку.`,

	"en": `Thank you for your message. Unfortunately, I'm having technical issues with the AI model right now, but I want you to know - your feelings matter.

If you need immediate support:
📞 Crisis line: 7333
📞 Psychological support: 116 123

Please try again later, or use the other features of the app.`,
}

// offlineResponse returns the localized offline chat reply.
func offlineResponse(language string) string {
	if text, ok := offlineResponses[language]; ok {
		return text
	}
	return offlineResponses["uk"]
}

type cannedAnalysis struct {
	summary     string
	suggestions []string
}

var cannedAnalyses = map[string]map[types.MoodBucket]cannedAnalysis{
	"uk": {
		types.BucketLow: {
			summary: "Помічаю, що ваш настрій зараз знижений. Це може бути складний період, але пам'ятайте - ви не самі.",
			suggestions: []string{
				"Спробуйте глибоко подихати кілька разів",
				"Зверніться до друга або близької людини",
				"Розгляньте можливість звернення до спеціаліста",
			},
		},
		types.BucketMid: {
			summary: "Ваш настрій у середньому діапазоні. Є простір для покращення стану.",
			suggestions: []string{
				"Прогулянка на свіжому повітрі може допомогти",
				"Послухайте улюблену музику",
				"Зробіть щось приємне для себе",
			},
		},
		types.BucketHigh: {
			summary: "Радий, що ваш настрій гарний! Важливо підтримувати такий стан.",
			suggestions: []string{
				"Поділіться позитивом з іншими",
				"Запишіть, що принесло вам радість сьогодні",
				"Плануйте щось приємне на майбутнє",
			},
		},
	},
	"en": {
		types.BucketLow: {
			summary: "I notice your mood is currently low. This might be a difficult period, but remember - you're not alone.",
			suggestions: []string{
				"Try taking a few deep breaths",
				"Reach out to a friend or loved one",
				"Consider seeking professional support",
			},
		},
		types.BucketMid: {
			summary: "Your mood is in the middle range. There's room for improvement.",
			suggestions: []string{
				"A walk outside might help",
				"Listen to your favorite music",
				"Do something nice for yourself",
			},
		},
		types.BucketHigh: {
			summary: "Great to see your mood is good! It's important to maintain this state.",
			suggestions: []string{
				"Share positivity with others",
				"Write down what brought you joy today",
				"Plan something pleasant for the future",
			},
		},
	},
}

// fallbackAnalysis returns the deterministic canned analysis for a mood level.
func fallbackAnalysis(level int, language string) *types.MoodAnalysis {
	table, ok := cannedAnalyses[language]
	if !ok {
		table = cannedAnalyses["uk"]
	}
	canned := table[types.BucketFor(level)]

	return &types.MoodAnalysis{
		Summary:     canned.summary,
		Emotions:    []string{},
		Triggers:    []string{},
		Suggestions: append([]string(nil), canned.suggestions...),
	}
}

var cannedRecommendations = map[string]map[types.MoodBucket][]string{
	"uk": {
		types.BucketLow: {
			"Спробуйте дихальну вправу 4-7-8",
			"Зверніться до близької людини за підтримкою",
			"Прогуляйтесь на свіжому повітрі 10-15 хвилин",
			"Випийте теплий чай або воду",
			"Послухайте заспокійливу музику",
		},
		types.BucketMid: {
			"Зробіть невелику фізичну розминку",
			"Послухайте улюблену музику",
			"Зателефонуйте другу або родині",
			"Приготуйте щось смачне",
			"Подивіться мотивуючий фільм або відео",
		},
		types.BucketHigh: {
			"Поділіться своїм гарним настроєм з іншими",
			"Запишіть 3 речі, за які вдячні сьогодні",
			"Зробіть щось креативне",
			"Сплануйте приємну активність на майбутнє",
			"Допоможіть комусь іншому",
		},
	},
	"en": {
		types.BucketLow: {
			"Try the 4-7-8 breathing exercise",
			"Reach out to someone close for support",
			"Take a 10-15 minute walk outside",
			"Drink warm tea or water",
			"Listen to calming music",
		},
		types.BucketMid: {
			"Do some light physical exercise",
			"Listen to your favorite music",
			"Call a friend or family member",
			"Cook something delicious",
			"Watch a motivating movie or video",
		},
		types.BucketHigh: {
			"Share your good mood with others",
			"Write down 3 things you're grateful for today",
			"Do something creative",
			"Plan a pleasant activity for the future",
			"Help someone else",
		},
	},
}

// fallbackRecommendations returns the deterministic, pre-structured list for
// a mood level.
func fallbackRecommendations(level int, language string) []string {
	table, ok := cannedRecommendations[language]
	if !ok {
		table = cannedRecommendations["uk"]
	}
	return append([]string(nil), table[types.BucketFor(level)]...)
}
