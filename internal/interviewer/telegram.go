package interviewer

import (
	"strconv"

	"qualifier-bot/internal/config"
	"qualifier-bot/internal/settings"
	"qualifier-bot/internal/storage"
)

// Ответы и кнопки, которые показываются кандидату в чате

// Welcome возвращает приветствие с ссылкой на видео и главным меню
func (m *Machine) Welcome(displayName string) Reply {
	return Reply{
		Text: config.Fill(m.script.Messages.Welcome,
			"name", displayName,
			"video_link", m.setting(settings.KeyVideoLink)),
		Actions: m.mainMenu(),
	}
}

// Help возвращает справку
func (m *Machine) Help() Reply {
	return Reply{Text: config.Fill(m.script.Messages.Help, "count", strconv.Itoa(m.script.GetTotalQuestions()))}
}

// Hint возвращает подсказку для кандидата, которому машина ничего не ответила
func (m *Machine) Hint(rec storage.CandidateRecord) Reply {
	if rec.State == storage.StatePassed {
		return Reply{Text: m.script.Messages.PassedHint}
	}
	return m.menuReply()
}

func (m *Machine) mainMenu() [][]Action {
	rows := [][]Action{
		{{Label: m.script.Messages.StartButton, Data: ActionStartExam}},
		{{Label: m.script.Messages.ResetButton, Data: ActionResetMe}},
	}
	if link := m.setting(settings.KeySupportLink); link != "" {
		rows = append(rows, []Action{{Label: m.script.Messages.SupportButton, URL: link}})
	}
	return rows
}

func (m *Machine) menuReply() Reply {
	return Reply{Text: m.script.Messages.MenuHint, Actions: m.mainMenu()}
}

func (m *Machine) readyReply() Reply {
	return Reply{
		Text:    config.Fill(m.script.Messages.ReadyPrompt, "count", strconv.Itoa(m.script.GetTotalQuestions())),
		Actions: [][]Action{{{Label: m.script.Messages.ReadyButton, Data: ActionConfirmReady}}},
	}
}

func (m *Machine) currentQuestionReply(q config.Question) Reply {
	return Reply{Text: config.Fill(m.script.Messages.CurrentQuestion, "question", q.Prompt)}
}

func (m *Machine) termsReply() Reply {
	return Reply{
		Text:    config.Fill(m.script.Messages.AllAnswered, "terms", m.script.TermsText),
		Actions: [][]Action{{{Label: m.script.Messages.AcceptTermsButton, Data: ActionAcceptTerms}}},
	}
}

func (m *Machine) phraseReply() Reply {
	return Reply{Text: config.Fill(m.script.Messages.PhraseInstruction, "phrase", m.script.FinalPhrase)}
}

// Menu возвращает подсказку с главным меню
func (m *Machine) Menu() Reply {
	return m.menuReply()
}
