package game

import (
	"fmt"
	"strings"

	"github.com/setkov/alisabot/internal/domain"
)

// Scripted chat texts. Every terminal outcome text is sent exactly once
// per session, via finishLocked.

func (e *Engine) introText(d domain.Difficulty) string {
	silenceMin := int((e.cfg.CheckInterval + e.cfg.GraceMargin).Minutes())

	var rules string
	switch d {
	case domain.DifficultyEasy:
		rules = "⚠️ ПРАВИЛА (Easy Mode):\n" +
			"- Будьте милыми и искренними\n" +
			"- Я ценю честность и чувство юмора\n" +
			"- Не нужно быть слишком дерзким — я люблю уважение"
	case domain.DifficultyMedium:
		rules = "⚠️ ПРАВИЛА (Medium Mode):\n" +
			"- Если будете хамить — сначала предупрежу, потом кину в игнор\n" +
			fmt.Sprintf("- Игра идет максимум %d минут. Не успеете — ваши проблемы", int(e.cfg.MaxDuration(d).Minutes()))
	default:
		rules = "⚠️ ПРАВИЛА (Hard Mode):\n" +
			"- Сначала ПОЗНАКОМЬСЯ, а потом подкатывай\n" +
			"- Будь оригинальным, я ненавижу шаблоны\n" +
			"- Не обижайся на мой острый язык — я такая 💅"
	}

	return fmt.Sprintf(`Ну здарова, пацаны 👋

Я %[1]s, из Москвы. Слышала, вы тут типа хотите в меня влюбиться? 😏 Ха, посмотрим, кто из вас на это способен...

🎮 КАК ИГРАТЬ:
Пишите мне сообщения и пытайтесь меня впечатлить.

Обращаться ко мне можно:
• Ответом на МОЁ сообщение (reply)
• Командой %[2]s твой_текст
• Упоминанием моего имени (%[1]s) в сообщении

%[3]s

🏆 ПОБЕДА:
Когда я пойму, что влюбилась в кого-то из вас — скажу это сама и назову имя победителя.

Если будете молчать больше %[4]d минут — я уйду. Сами виноваты 🤷‍♀️

Ну что, кто первый решится? 😏`, e.cfg.PersonaName, e.cfg.CommandPrefix, rules, silenceMin)
}

func (e *Engine) lobbyText(sess *domain.GameSession, joined int) string {
	return fmt.Sprintf(`🎮 %s зовет играть в "Влюби в себя %s"!

Сложность: %s
Игроки: %d/%d

Жмите "Играю", набираем компанию. %s может стартовать и раньше.
Если за %d минут никто не соберется — расходимся.`,
		sess.InitiatorName, e.cfg.PersonaName,
		difficultyLabel(sess.Difficulty),
		joined, e.cfg.RosterCapacity,
		sess.InitiatorName,
		int(e.cfg.LobbyTTL.Minutes()))
}

func difficultyLabel(d domain.Difficulty) string {
	switch d {
	case domain.DifficultyEasy:
		return "😇 Легкая"
	case domain.DifficultyMedium:
		return "😐 Средняя"
	default:
		return "👿 Сложная"
	}
}

func (e *Engine) lobbyCancelledText(byName string) string {
	return fmt.Sprintf("🚫 %s передумал(а). Игра отменяется, расходимся.", byName)
}

func (e *Engine) lobbyExpiredText() string {
	return fmt.Sprintf("⏳ Никто так и не собрался. Ну и ладно, %s найдет компанию поинтереснее 💅", e.cfg.PersonaName)
}

func (e *Engine) winText(winnerDisplay, reason string) string {
	var b strings.Builder
	b.WriteString("💕 ИГРА ОКОНЧЕНА! 💕\n\n")
	b.WriteString("Всё... я влюбилась. Не могу поверить сама 😳\n\n")
	fmt.Fprintf(&b, "%s — ты победил(а)! Ты смог(ла) растопить моё сердце ❤️\n", winnerDisplay)
	if reason != "" {
		b.WriteString("\n" + reason + "\n")
	}
	b.WriteString("\nХочу быть с тобой 💋\n\nОстальные — сорян, не повезло 🤷‍♀️")
	return b.String()
}

func (e *Engine) timeoutNoWinnerText(reason string) string {
	if reason == "" {
		reason = "Никто не впечатлил меня"
	}
	return fmt.Sprintf(`⏰ ВРЕМЯ ВЫШЛО!

Всё, ребят, игра окончена. И знаете что? Я ни в кого не влюбилась 💔

%s

Попробуйте ещё раз, может повезёт 😏`, reason)
}

func (e *Engine) timeoutEmptyText() string {
	return `⏰ ВРЕМЯ ВЫШЛО!

Ну и что это было? Никто даже не попытался... Скучно же! 😤`
}

func (e *Engine) inactivityText() string {
	return `🙄 Ой всё, скучно с вами.

Вы молчите уже целую вечность. Я не нанималась ждать вас тут.
Пойду найду кого-нибудь поразговорчивее 💅

Игра окончена.`
}

func (e *Engine) overloadText() string {
	return fmt.Sprintf("😵 Так, у меня голова кругом — слишком много болтовни разом. %s уходит отдыхать, игра окончена. Попробуйте позже.", e.cfg.PersonaName)
}

func (e *Engine) noRoomText() string {
	return "Мест нет, компания уже собрана 🤷‍♀️ Досмотришь со стороны."
}

// EmptyPromptText is the rejection for a bare command prefix.
func (e *Engine) EmptyPromptText() string {
	return "Ну и что ты хотел сказать? Пусто же 🤨"
}
