package slip

import (
	"html"
	"strconv"
	"strings"
	"time"

	"qualifier-bot/internal/config"
	"qualifier-bot/internal/storage"
)

const separator = "━━━━━━━━━━━━━━━"

// Slip — данные для слипа прошедшего кандидата
type Slip struct {
	CandidateID int64
	DisplayName string
	InterviewID string
	AdminName   string
	Answers     []storage.QA
	IssuedAt    time.Time
}

// Templates — заголовок и подпись слипа. Footer может содержать {admin}.
type Templates struct {
	Title  string
	Footer string
}

// TemplatesFrom берет шаблоны из сценария
func TemplatesFrom(m config.Messages) Templates {
	return Templates{Title: m.SlipTitle, Footer: m.SlipFooter}
}

// Render строит HTML текст слипа. Ответы идут в порядке интервью.
func Render(s Slip, tpl Templates) string {
	var b strings.Builder

	b.WriteString(tpl.Title)
	b.WriteString("\n")
	b.WriteString(separator + "\n")
	b.WriteString("👤 User: " + html.EscapeString(s.DisplayName) + "\n")
	b.WriteString("ID: <code>" + strconv.FormatInt(s.CandidateID, 10) + "</code>\n")
	if s.InterviewID != "" {
		b.WriteString("🆔 Interview: <code>" + html.EscapeString(s.InterviewID) + "</code>\n")
	}
	b.WriteString("📅 Date: " + s.IssuedAt.Format("02/01/2006") + "\n")
	b.WriteString(separator + "\n")

	for _, qa := range s.Answers {
		b.WriteString("• " + html.EscapeString(qa.Answer) + "\n")
	}

	b.WriteString(separator + "\n")
	b.WriteString(config.Fill(tpl.Footer, "admin", html.EscapeString(s.AdminName)))

	return b.String()
}
