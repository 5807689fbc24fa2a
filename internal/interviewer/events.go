package interviewer

import "qualifier-bot/internal/storage"

// EventKind — тип входящего события
type EventKind int

const (
	EventBegin EventKind = iota + 1
	EventConfirmReady
	EventAcceptTerms
	EventText
	EventReset
	EventSlip
)

func (k EventKind) String() string {
	switch k {
	case EventBegin:
		return "begin"
	case EventConfirmReady:
		return "confirm_ready"
	case EventAcceptTerms:
		return "accept_terms"
	case EventText:
		return "text"
	case EventReset:
		return "reset"
	case EventSlip:
		return "slip"
	}
	return "unknown"
}

// Event — входящее событие кандидата
type Event struct {
	Kind EventKind
	Text string
}

// Данные кнопок
const (
	ActionStartExam     = "start_exam"
	ActionConfirmReady  = "confirm_ready"
	ActionAcceptTerms   = "accept_terms"
	ActionResetMe       = "reset_me"
	ActionAdminStats    = "admin_stats"
	ActionAdminSettings = "admin_settings"
)

// Action — кнопка под сообщением. Data и URL взаимоисключающие.
type Action struct {
	Label string
	Data  string
	URL   string
}

// Reply — исходящее сообщение кандидату, Actions содержит ряды кнопок
type Reply struct {
	Text    string
	Actions [][]Action
}

// EffectKind — побочный эффект перехода
type EffectKind int

const (
	EffectInterviewStarted EffectKind = iota + 1
	EffectPassed
	EffectSlip
)

type Effect struct {
	Kind EffectKind
}

// Result — итог перехода. Save означает, что запись изменилась и ее надо
// сохранить, Delete означает, что запись надо удалить.
type Result struct {
	Record  storage.CandidateRecord
	Replies []Reply
	Effects []Effect
	Save    bool
	Delete  bool
}

// Has сообщает, содержит ли результат эффект данного типа
func (r Result) Has(kind EffectKind) bool {
	for _, e := range r.Effects {
		if e.Kind == kind {
			return true
		}
	}
	return false
}
