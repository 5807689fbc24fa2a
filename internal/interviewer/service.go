package interviewer

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"qualifier-bot/internal/config"
	"qualifier-bot/internal/matcher"
	"qualifier-bot/internal/settings"
	"qualifier-bot/internal/storage"
)

// Settings — источник операторских настроек, settings.Cache удовлетворяет интерфейсу
type Settings interface {
	Get(key string) string
}

// Machine — машина состояний квалификации. Не обращается к хранилищу
// и транспорту: по записи и событию возвращает новую запись, ответы и эффекты.
type Machine struct {
	script   *config.Script
	settings Settings
	newID    func() string
	now      func() time.Time
}

// Option настраивает Machine
type Option func(*Machine)

// WithClock подменяет источник времени
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithIDGenerator подменяет генератор ID интервью
func WithIDGenerator(newID func() string) Option {
	return func(m *Machine) { m.newID = newID }
}

// New создает машину состояний
func New(script *config.Script, settings Settings, opts ...Option) *Machine {
	m := &Machine{
		script:   script,
		settings: settings,
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Script возвращает сценарий интервью
func (m *Machine) Script() *config.Script {
	return m.script
}

// Transition вычисляет следующий шаг кандидата.
// Неопределенная пара (состояние, событие) не меняет запись и повторяет
// подсказку текущего шага.
func (m *Machine) Transition(rec storage.CandidateRecord, ev Event) Result {
	rec = rec.Normalize(m.script.GetTotalQuestions())

	if ev.Kind == EventReset {
		return Result{
			Record:  storage.DefaultRecord(),
			Replies: []Reply{{Text: m.script.Messages.ResetDone, Actions: m.mainMenu()}},
			Delete:  true,
		}
	}

	switch rec.State {
	case storage.StateIdle:
		return m.onIdle(rec, ev)
	case storage.StateReadyCheck:
		return m.onReadyCheck(rec, ev)
	case storage.StateInterview:
		return m.onInterview(rec, ev)
	case storage.StateTerms:
		return m.onTerms(rec, ev)
	case storage.StateWaitingPhrase:
		return m.onWaitingPhrase(rec, ev)
	case storage.StatePassed:
		return m.onPassed(rec, ev)
	}

	return Result{Record: rec}
}

func (m *Machine) onIdle(rec storage.CandidateRecord, ev Event) Result {
	if ev.Kind != EventBegin {
		return Result{Record: rec, Replies: []Reply{m.menuReply()}}
	}

	rec.State = storage.StateReadyCheck
	rec.StartedAt = m.now()

	return Result{
		Record:  rec,
		Replies: []Reply{m.readyReply()},
		Effects: []Effect{{Kind: EffectInterviewStarted}},
		Save:    true,
	}
}

func (m *Machine) onReadyCheck(rec storage.CandidateRecord, ev Event) Result {
	if ev.Kind != EventConfirmReady {
		return Result{Record: rec, Replies: []Reply{m.readyReply()}}
	}

	rec.State = storage.StateInterview
	rec.QuestionIndex = 0
	rec.Answers = []storage.QA{}
	rec.InterviewID = m.newID()

	first := m.script.Question(0)
	return Result{
		Record:  rec,
		Replies: []Reply{{Text: config.Fill(m.script.Messages.FirstQuestion, "question", first.Prompt)}},
		Save:    true,
	}
}

func (m *Machine) onInterview(rec storage.CandidateRecord, ev Event) Result {
	current := m.script.Question(rec.QuestionIndex)

	if ev.Kind != EventText {
		return Result{Record: rec, Replies: []Reply{m.currentQuestionReply(current)}}
	}

	if !matcher.IsAccepted(ev.Text, current.Answers, current.Threshold) {
		return Result{Record: rec, Replies: []Reply{{Text: m.script.Messages.Wrong}}}
	}

	rec.Answers = append(rec.Answers, storage.QA{Question: current.Prompt, Answer: ev.Text})

	if rec.QuestionIndex+1 < m.script.GetTotalQuestions() {
		rec.QuestionIndex++
		next := m.script.Question(rec.QuestionIndex)
		return Result{
			Record:  rec,
			Replies: []Reply{{Text: config.Fill(m.script.Messages.Correct, "question", next.Prompt)}},
			Save:    true,
		}
	}

	rec.State = storage.StateTerms
	return Result{
		Record:  rec,
		Replies: []Reply{m.termsReply()},
		Save:    true,
	}
}

func (m *Machine) onTerms(rec storage.CandidateRecord, ev Event) Result {
	if ev.Kind != EventAcceptTerms {
		return Result{Record: rec, Replies: []Reply{m.termsReply()}}
	}

	rec.State = storage.StateWaitingPhrase
	return Result{
		Record:  rec,
		Replies: []Reply{m.phraseReply()},
		Save:    true,
	}
}

func (m *Machine) onWaitingPhrase(rec storage.CandidateRecord, ev Event) Result {
	if ev.Kind != EventText {
		return Result{Record: rec, Replies: []Reply{m.phraseReply()}}
	}

	// Порог строгий: score должен быть больше PassThreshold
	if matcher.Score(ev.Text, m.script.FinalPhrase) <= m.script.PassThreshold {
		return Result{
			Record:  rec,
			Replies: []Reply{{Text: config.Fill(m.script.Messages.PhraseRetry, "phrase", m.script.FinalPhrase)}},
		}
	}

	rec.State = storage.StatePassed
	rec.Passed = true
	rec.PassedAt = m.now()

	return Result{
		Record:  rec,
		Replies: []Reply{{Text: config.Fill(m.script.Messages.PassedNotice, "form_link", m.setting(settings.KeyFormLink))}},
		Effects: []Effect{{Kind: EffectPassed}},
		Save:    true,
	}
}

func (m *Machine) onPassed(rec storage.CandidateRecord, ev Event) Result {
	switch ev.Kind {
	case EventSlip:
		return Result{Record: rec, Effects: []Effect{{Kind: EffectSlip}}}
	case EventText:
		if m.IsSlipRequest(ev.Text) {
			return Result{Record: rec, Effects: []Effect{{Kind: EffectSlip}}}
		}
		// Прочий текст после прохождения не относится к квалификации
		return Result{Record: rec}
	default:
		return Result{Record: rec, Replies: []Reply{{Text: m.script.Messages.AlreadyPassed}}}
	}
}

// IsSlipRequest сообщает, просит ли текст выдать слип
func (m *Machine) IsSlipRequest(text string) bool {
	text = strings.TrimSpace(text)
	keyword := m.script.SlipKeyword
	return strings.EqualFold(text, keyword) || strings.EqualFold(text, "/"+keyword)
}

func (m *Machine) setting(key string) string {
	if m.settings == nil {
		return ""
	}
	return m.settings.Get(key)
}
