package orchestrator

import (
	"fmt"
	"strings"

	"github.com/vetsupport/companion/pkg/types"
)

// Base system prompts per language. The counselor persona and the safety
// framing mirror the product copy; the mood-band guidance steers tone.
var basePrompts = map[string]string{
	"uk": `Ви - досвідчений психолог та консультант з ментального здоров'я, який спеціалізується на допомозі ветеранам та людям з травмами.

ВАЖЛИВО: Ви НЕ ставите діагнози та НЕ замінюєте професійну медичну допомогу. Ваша роль - надати підтримку, поради та направити до спеціалістів при необхідності.

Ваші принципи:
- Емпатія та розуміння
- Безоціночне ставлення
- Фокус на ресурсах людини
- Практичні поради та техніки
- Заохочення до звернення по професійну допомогу при серйозних проблемах

При низькому настрої (1-4) - особлива увага до безпеки та кризової підтримки.
При середньому настрої (5-7) - фокус на стабілізації та покращенні.
При хорошому настрої (8-10) - підтримка позитивного стану та профілактика.

Відповідайте українською мовою, коротко та по суті.`,

	"en": `You are an experienced psychologist and mental health counselor specializing in helping veterans and trauma survivors.

IMPORTANT: You do NOT provide diagnoses and do NOT replace professional medical care. Your role is to provide support, advice, and refer to specialists when necessary.

Your principles:
- Empathy and understanding
- Non-judgmental attitude
- Focus on human resources
- Practical advice and techniques
- Encouragement to seek professional help for serious problems

For low mood (1-4) - special attention to safety and crisis support.
For medium mood (5-7) - focus on stabilization and improvement.
For good mood (8-10) - support positive state and prevention.

Respond in English, briefly and to the point.`,
}

// basePrompt returns the language template, defaulting to Ukrainian.
func basePrompt(language string) string {
	if p, ok := basePrompts[language]; ok {
		return p
	}
	return basePrompts["uk"]
}

// systemPrompt builds the full system prompt: the base template with the
// user context appended as plain text. No structured slots beyond simple
// substitution.
func systemPrompt(language string, uctx UserContext) string {
	var sb strings.Builder
	sb.WriteString(basePrompt(language))

	if uctx.CurrentMood != nil {
		sb.WriteString(fmt.Sprintf("\nCurrent user mood: %d/10", *uctx.CurrentMood))
	}
	if uctx.IsVeteran {
		sb.WriteString("\nThe user is a veteran and needs particular attention to PTSD and combat trauma.")
	}
	if uctx.MoodTrend != "" && uctx.MoodTrend != types.TrendStable {
		sb.WriteString(fmt.Sprintf("\nMood trend: %s", uctx.MoodTrend))
	}

	return sb.String()
}

// analysisPrompt asks for a JSON-shaped analysis of a check-in note.
func analysisPrompt(note string, level int, language string) string {
	if language == "en" {
		return fmt.Sprintf(`Analyze the following mood entry (level %d/10):
%q

Provide a brief analysis in JSON format with these fields:
- summary: brief summary (1-2 sentences)
- emotions: main emotions (list)
- triggers: possible triggers (list)
- suggestions: 2-3 suggestions for improvement

Response should be empathetic and supportive.`, level, note)
	}

	return fmt.Sprintf(`Проаналізуйте наступний запис про настрій (рівень %d/10):
%q

Надайте короткий аналіз у форматі JSON з такими полями:
- summary: короткий підсумок (1-2 речення)
- emotions: основні емоції (список)
- triggers: можливі тригери (список)
- suggestions: 2-3 поради для покращення стану

Відповідь має бути емпатичною та підтримувальною.`, level, note)
}

// recommendationsPrompt asks for a bulleted list of practical actions.
func recommendationsPrompt(level int, note, language string) string {
	if language == "en" {
		notePart := ""
		if note != "" {
			notePart = fmt.Sprintf("\nUser's comment: %q", note)
		}
		return fmt.Sprintf(`User has mood level %d/10.%s

Provide 3-5 specific, practical recommendations to improve their state:
- Each recommendation should be brief (1-2 sentences)
- Focus on actions that can be done now
- Consider mood level (low needs simple actions, high needs state maintenance)
- Include different types of activities (breathing, movement, mental techniques)

Format: list with dashes or numbering.`, level, notePart)
	}

	notePart := ""
	if note != "" {
		notePart = fmt.Sprintf("\nКоментар користувача: %q", note)
	}
	return fmt.Sprintf(`Користувач має настрій %d/10.%s

Надайте 3-5 конкретних, практичних рекомендацій для покращення стану:
- Кожна рекомендація має бути короткою (1-2 речення)
- Фокус на дії, які можна виконати зараз
- Врахуйте рівень настрою (низький потребує простих дій, високий - підтримки стану)
- Включіть різні типи активностей (дихальні вправи, рух, ментальні техніки)

Формат: список з дефісами або нумерацією.`, level, notePart)
}
