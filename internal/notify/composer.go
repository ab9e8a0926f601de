package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"expensetracker/internal/core"
	"expensetracker/web"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const displayDateLayout = "02 Jan 2006"

// Composer renders due summaries into notifications.
type Composer struct {
	baseURL  string
	currency string
	printer  *message.Printer
	html     *htmltemplate.Template
	text     *texttemplate.Template
	newID    func() string
}

// NewComposer parses the embedded email templates. baseURL is the public
// address of the application, used for the links in each email.
func NewComposer(baseURL, currencySymbol string) (*Composer, error) {
	html, err := htmltemplate.ParseFS(web.EmailFS, "templates/email/due.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse html template: %w", err)
	}
	text, err := texttemplate.ParseFS(web.EmailFS, "templates/email/due.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse text template: %w", err)
	}
	return &Composer{
		baseURL:  strings.TrimRight(baseURL, "/"),
		currency: currencySymbol,
		printer:  message.NewPrinter(language.English),
		html:     html,
		text:     text,
		newID:    uuid.NewString,
	}, nil
}

// DueSubject is the subject of the consolidated due notice.
func DueSubject(s core.DueSummary) string {
	if s.OverdueCount > 0 {
		return fmt.Sprintf("%d Overdue + %d Due Expenses", s.OverdueCount, s.DueTodayCount)
	}
	return fmt.Sprintf("%d Expense(s) Due Today!", s.DueTodayCount)
}

// OverdueSubject is the subject of the overdue reminder.
func OverdueSubject(s core.DueSummary) string {
	return fmt.Sprintf("%d Overdue Expense(s) - %d Days Past Due", len(s.Items), s.MaxDaysOverdue)
}

// Due builds the consolidated notice for every due item in s.
func (c *Composer) Due(s core.DueSummary) (Notification, error) {
	return c.compose(s, KindDue, DueSubject(s))
}

// Overdue builds the reminder for the overdue items in s.
func (c *Composer) Overdue(s core.DueSummary) (Notification, error) {
	return c.compose(s, KindOverdue, OverdueSubject(s))
}

func (c *Composer) compose(s core.DueSummary, kind Kind, subject string) (Notification, error) {
	if s.User.Email == "" {
		return Notification{}, fmt.Errorf("user %d has no email address", s.User.ID)
	}

	view := c.view(s)

	var html, text bytes.Buffer
	if err := c.html.Execute(&html, view); err != nil {
		return Notification{}, fmt.Errorf("render html body: %w", err)
	}
	if err := c.text.Execute(&text, view); err != nil {
		return Notification{}, fmt.Errorf("render text body: %w", err)
	}

	return Notification{
		ID:      c.newID(),
		To:      s.User.Email,
		Subject: subject,
		HTML:    html.String(),
		Text:    text.String(),
		UserID:  s.User.ID,
		Kind:    kind,
	}, nil
}

// FormatAmount renders m with the configured currency symbol and English
// digit grouping.
func (c *Composer) FormatAmount(m core.Money) string {
	return c.printer.Sprintf("%s%.2f", c.currency, m.Decimal().InexactFloat64())
}

type emailItem struct {
	Title       string
	Category    string
	Frequency   string
	Amount      string
	DueDate     string
	DaysText    string
	Description string
	Overdue     bool
}

type emailView struct {
	Name          string
	Count         int
	Total         string
	OverdueCount  int
	DueTodayCount int
	Items         []emailItem
	Frequencies   []core.FrequencyCount
	ProcessURL    string
	RecurringURL  string
}

func (c *Composer) view(s core.DueSummary) emailView {
	v := emailView{
		Name:          s.User.Username,
		Count:         len(s.Items),
		Total:         c.FormatAmount(s.Total),
		OverdueCount:  s.OverdueCount,
		DueTodayCount: s.DueTodayCount,
		Frequencies:   s.Frequencies,
		ProcessURL:    c.baseURL + "/process-due",
		RecurringURL:  c.baseURL + "/recurring-expenses",
	}
	for _, it := range s.Items {
		v.Items = append(v.Items, emailItem{
			Title:       it.Title,
			Category:    it.Category,
			Frequency:   it.Frequency,
			Amount:      c.FormatAmount(it.Amount),
			DueDate:     it.DueDate.Format(displayDateLayout),
			DaysText:    it.DaysText,
			Description: it.Description,
			Overdue:     it.State == core.DueOverdue,
		})
	}
	return v
}
