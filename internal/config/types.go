package config

import "strings"

// Script представляет сценарий интервью
type Script struct {
	PassThreshold int        `yaml:"pass_threshold" validate:"min=0,max=100"`
	FinalPhrase   string     `yaml:"final_phrase" validate:"required"`
	SlipKeyword   string     `yaml:"slip_keyword" validate:"required"`
	Questions     []Question `yaml:"questions" validate:"required,min=1,dive"`
	TermsText     string     `yaml:"terms_text" validate:"required"`
	Messages      Messages   `yaml:"messages"`
}

// Question представляет один вопрос интервью
type Question struct {
	ID        int      `yaml:"id" validate:"min=1"`
	Prompt    string   `yaml:"prompt" validate:"required"`
	Threshold int      `yaml:"threshold" validate:"min=0,max=100"`
	Answers   []string `yaml:"answers" validate:"required,min=1,dive,required"`
}

// Messages содержит тексты сообщений бота.
// Плейсхолдеры вида {name} подставляются через Fill.
type Messages struct {
	Welcome           string `yaml:"welcome" validate:"required"`
	MenuHint          string `yaml:"menu_hint" validate:"required"`
	StartButton       string `yaml:"start_button" validate:"required"`
	ResetButton       string `yaml:"reset_button" validate:"required"`
	SupportButton     string `yaml:"support_button" validate:"required"`
	ReadyPrompt       string `yaml:"ready_prompt" validate:"required"`
	ReadyButton       string `yaml:"ready_button" validate:"required"`
	FirstQuestion     string `yaml:"first_question" validate:"required"`
	Correct           string `yaml:"correct" validate:"required"`
	Wrong             string `yaml:"wrong" validate:"required"`
	CurrentQuestion   string `yaml:"current_question" validate:"required"`
	AllAnswered       string `yaml:"all_answered" validate:"required"`
	AcceptTermsButton string `yaml:"accept_terms_button" validate:"required"`
	PhraseInstruction string `yaml:"phrase_instruction" validate:"required"`
	PhraseRetry       string `yaml:"phrase_retry" validate:"required"`
	PassedNotice      string `yaml:"passed_notice" validate:"required"`
	AlreadyPassed     string `yaml:"already_passed" validate:"required"`
	PassedHint        string `yaml:"passed_hint" validate:"required"`
	ResetDone         string `yaml:"reset_done" validate:"required"`
	GroupRedirect     string `yaml:"group_redirect" validate:"required"`
	Fallback          string `yaml:"fallback" validate:"required"`
	RateLimited       string `yaml:"rate_limited" validate:"required"`
	Help              string `yaml:"help" validate:"required"`

	SlipTitle   string `yaml:"slip_title" validate:"required"`
	SlipFooter  string `yaml:"slip_footer" validate:"required"`
	AdminPrefix string `yaml:"admin_prefix" validate:"required"`

	AdminMenu           string `yaml:"admin_menu" validate:"required"`
	AdminStatsButton    string `yaml:"admin_stats_button" validate:"required"`
	AdminSettingsButton string `yaml:"admin_settings_button" validate:"required"`
	AdminStats          string `yaml:"admin_stats" validate:"required"`
	AdminSettings       string `yaml:"admin_settings" validate:"required"`
	AdminSetUsage       string `yaml:"admin_set_usage" validate:"required"`
	AdminSetDone        string `yaml:"admin_set_done" validate:"required"`
	AdminResetUsage     string `yaml:"admin_reset_usage" validate:"required"`
	AdminResetDone      string `yaml:"admin_reset_done" validate:"required"`
}

// Методы для удобного доступа к сценарию
func (s *Script) GetTotalQuestions() int {
	return len(s.Questions)
}

// Question возвращает вопрос по индексу, зажимая индекс в допустимый диапазон
func (s *Script) Question(index int) Question {
	return s.Questions[s.ClampIndex(index)]
}

// ClampIndex приводит индекс вопроса к диапазону [0, len(Questions))
func (s *Script) ClampIndex(index int) int {
	if index < 0 {
		return 0
	}
	if last := len(s.Questions) - 1; index > last {
		return last
	}
	return index
}

// Fill подставляет значения в плейсхолдеры вида {key}
func Fill(tpl string, kv ...string) string {
	if len(kv) == 0 {
		return tpl
	}
	pairs := make([]string, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		pairs = append(pairs, "{"+kv[i]+"}", kv[i+1])
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}
