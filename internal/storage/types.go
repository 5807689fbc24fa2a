package storage

import "time"

// State представляет шаг кандидата в квалификации
type State string

const (
	StateIdle          State = "IDLE"
	StateReadyCheck    State = "READY_CHECK"
	StateInterview     State = "INTERVIEW"
	StateTerms         State = "TERMS"
	StateWaitingPhrase State = "WAITING_PHRASE"
	StatePassed        State = "PASSED"
)

// Valid сообщает, известно ли состояние
func (s State) Valid() bool {
	switch s {
	case StateIdle, StateReadyCheck, StateInterview, StateTerms, StateWaitingPhrase, StatePassed:
		return true
	}
	return false
}

// CandidateRecord представляет сохраненное состояние кандидата
type CandidateRecord struct {
	State         State     `json:"state"`
	QuestionIndex int       `json:"q_index"`
	Answers       []QA      `json:"answers"`
	Passed        bool      `json:"passed"`
	InterviewID   string    `json:"interview_id,omitempty"`
	StartedAt     time.Time `json:"started_at,omitempty"`
	PassedAt      time.Time `json:"passed_at,omitempty"`
}

// QA представляет один вопрос и ответ
type QA struct {
	Question string `json:"q"`
	Answer   string `json:"a"`
}

// DefaultRecord возвращает запись нового кандидата
func DefaultRecord() CandidateRecord {
	return CandidateRecord{
		State:   StateIdle,
		Answers: []QA{},
	}
}

// Clone возвращает копию записи с собственным срезом ответов
func (r CandidateRecord) Clone() CandidateRecord {
	answers := make([]QA, len(r.Answers))
	copy(answers, r.Answers)
	r.Answers = answers
	return r
}

// Normalize приводит загруженную запись к согласованному виду.
// bankSize: количество вопросов в текущем сценарии.
func (r CandidateRecord) Normalize(bankSize int) CandidateRecord {
	r = r.Clone()

	if !r.State.Valid() {
		r.State = StateIdle
	}
	r.Passed = r.State == StatePassed

	if r.State != StateInterview || bankSize <= 0 {
		if r.QuestionIndex < 0 {
			r.QuestionIndex = 0
		}
		return r
	}

	if r.QuestionIndex < 0 {
		r.QuestionIndex = 0
	}
	if r.QuestionIndex > bankSize-1 {
		r.QuestionIndex = bankSize - 1
	}

	// len(Answers) == QuestionIndex во время интервью
	if len(r.Answers) > r.QuestionIndex {
		r.Answers = r.Answers[:r.QuestionIndex]
	}
	if len(r.Answers) < r.QuestionIndex {
		r.QuestionIndex = len(r.Answers)
	}

	return r
}
