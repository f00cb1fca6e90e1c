// Package tui is the terminal front end of the campaign wizard.
package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/unclebandit/newsletter-backoffice/internal/model"
	"github.com/unclebandit/newsletter-backoffice/internal/service"
	"github.com/unclebandit/newsletter-backoffice/internal/wizard"
)

// ScheduleLayout is how schedule times are typed, in local time.
const ScheduleLayout = "2006-01-02 15:04"

// Resolver estimates audiences for the audience step.
type Resolver interface {
	Resolve(ctx context.Context, t model.AudienceType, ids []string) model.Audience
}

type actionDoneMsg struct {
	action wizard.Action
	err    error
}

type audienceMsg struct {
	audience model.Audience
}

// Model drives one wizard session from the keyboard.
type Model struct {
	ctx          context.Context
	wizard       *wizard.Controller
	specialities []model.Speciality
	debounce     *service.DebouncedAudience
	hasResolver  bool
	audienceCh   chan model.Audience
	now          func() time.Time

	title     textinput.Model
	subject   textinput.Model
	content   textarea.Model
	testEmail textinput.Model
	schedule  textinput.Model

	detailsFocus int
	cursor       int
	selected     map[string]bool
	busy         bool
	scheduleErr  string
	width        int
	quitting     bool
}

type Option func(*Model)

func WithClock(now func() time.Time) Option {
	return func(m *Model) { m.now = now }
}

// WithDebounce sets the audience estimate delay.
func WithDebounce(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.debounce.Delay = d
		}
	}
}

// New builds the model around an open wizard session.
func New(ctx context.Context, w *wizard.Controller, specialities []model.Speciality, resolver Resolver, opts ...Option) *Model {
	m := &Model{
		ctx:          ctx,
		wizard:       w,
		specialities: specialities,
		audienceCh:   make(chan model.Audience, 1),
		now:          time.Now,
		selected:     map[string]bool{},
	}
	m.debounce = &service.DebouncedAudience{
		Resolver: resolver,
		Delay:    service.DefaultAudienceDebounce,
		OnResult: m.pushAudience,
	}
	m.hasResolver = resolver != nil

	c := w.Campaign()
	m.title = newInput("Title", c.Title)
	m.subject = newInput("Subject", c.Subject)
	m.testEmail = newInput("qa@example.com", "")
	m.schedule = newInput(ScheduleLayout, "")
	m.content = textarea.New()
	m.content.Placeholder = "Write the newsletter body..."
	m.content.SetValue(c.Content)
	m.content.SetWidth(72)
	m.content.SetHeight(10)
	if c.Audience != nil {
		for _, id := range c.Audience.SpecialityIDs {
			m.selected[id] = true
		}
	}
	for _, opt := range opts {
		opt(m)
	}
	m.focusStep()
	return m
}

func newInput(placeholder, value string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "│ "
	ti.CharLimit = 256
	ti.Width = 60
	ti.SetValue(value)
	return ti
}

// pushAudience keeps only the newest estimate in the channel.
func (m *Model) pushAudience(a model.Audience) {
	select {
	case <-m.audienceCh:
	default:
	}
	m.audienceCh <- a
}

func (m *Model) waitAudience() tea.Cmd {
	ch := m.audienceCh
	return func() tea.Msg {
		a, ok := <-ch
		if !ok {
			return nil
		}
		return audienceMsg{audience: a}
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitAudience())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.content.SetWidth(max(20, msg.Width-4))
		return m, nil

	case audienceMsg:
		m.wizard.Update(func(c model.Campaign) model.Campaign { return c.UpdateAudience(msg.audience) })
		return m, m.waitAudience()

	case actionDoneMsg:
		m.busy = false
		c := m.wizard.Campaign()
		m.title.SetValue(c.Title)
		m.subject.SetValue(c.Subject)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	step := m.wizard.Step()
	switch msg.String() {
	case "ctrl+c":
		m.quit()
		return m, tea.Quit
	case "shift+tab":
		m.sync()
		m.wizard.Previous()
		m.focusStep()
		return m, nil
	case "ctrl+s":
		return m.run(wizard.ActionSaving, m.wizard.SaveDraft)
	case "ctrl+t":
		return m.run(wizard.ActionSendingTest, m.wizard.SendTest)
	case "ctrl+n":
		return m.run(wizard.ActionSending, m.wizard.SendNow)
	case "tab":
		return m.advance()
	case "enter":
		switch step {
		case wizard.StepContent:
			// newline in the body
		case wizard.StepPreview:
			if email := strings.TrimSpace(m.testEmail.Value()); email != "" {
				m.wizard.Update(func(c model.Campaign) model.Campaign { return c.AddTestEmail(email) })
				m.testEmail.Reset()
				return m, nil
			}
			return m.advance()
		case wizard.StepSchedule:
			return m.submitSchedule()
		default:
			return m.advance()
		}
	}

	switch step {
	case wizard.StepDetails:
		switch msg.String() {
		case "up", "down":
			m.detailsFocus = 1 - m.detailsFocus
			m.focusStep()
			return m, nil
		}
		var cmd tea.Cmd
		if m.detailsFocus == 0 {
			m.title, cmd = m.title.Update(msg)
		} else {
			m.subject, cmd = m.subject.Update(msg)
		}
		return m, cmd
	case wizard.StepContent:
		var cmd tea.Cmd
		m.content, cmd = m.content.Update(msg)
		return m, cmd
	case wizard.StepAudience:
		return m.handleAudienceKey(msg)
	case wizard.StepPreview:
		var cmd tea.Cmd
		m.testEmail, cmd = m.testEmail.Update(msg)
		return m, cmd
	case wizard.StepSchedule:
		var cmd tea.Cmd
		m.schedule, cmd = m.schedule.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleAudienceKey moves over "All subscribers" followed by the
// specialities. Space picks a row.
func (m *Model) handleAudienceKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.specialities) {
			m.cursor++
		}
	case " ", "space":
		if m.cursor == 0 {
			m.selected = map[string]bool{}
			m.requestAudience(model.AudienceAll, nil)
			return m, nil
		}
		id := m.specialities[m.cursor-1].ID
		m.selected[id] = !m.selected[id]
		m.requestAudience(model.AudienceSpecialities, m.selectedIDs())
	}
	return m, nil
}

// requestAudience records the selection now and lets the debouncer fill in
// the estimate.
func (m *Model) requestAudience(t model.AudienceType, ids []string) {
	m.wizard.Update(func(c model.Campaign) model.Campaign {
		return c.UpdateAudience(model.NewAudience(t, ids, 0))
	})
	if m.hasResolver {
		m.debounce.Request(t, ids)
	}
}

func (m *Model) selectedIDs() []string {
	ids := []string{}
	for id, on := range m.selected {
		if on {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (m *Model) advance() (tea.Model, tea.Cmd) {
	m.sync()
	if err := m.wizard.Next(); err == nil {
		m.focusStep()
	}
	return m, nil
}

func (m *Model) submitSchedule() (tea.Model, tea.Cmd) {
	raw := strings.TrimSpace(m.schedule.Value())
	if raw == "" {
		raw = service.MinScheduleTime(m.now()).Local().Format(ScheduleLayout)
	}
	at, err := time.ParseInLocation(ScheduleLayout, raw, time.Local)
	if err != nil {
		m.scheduleErr = "Use the format " + ScheduleLayout
		return m, nil
	}
	m.scheduleErr = ""
	return m.run(wizard.ActionScheduling, func(ctx context.Context) error {
		return m.wizard.Schedule(ctx, at)
	})
}

// run performs a dispatch action off the UI loop.
func (m *Model) run(action wizard.Action, fn func(context.Context) error) (tea.Model, tea.Cmd) {
	m.sync()
	m.busy = true
	ctx := m.ctx
	return m, func() tea.Msg {
		return actionDoneMsg{action: action, err: fn(ctx)}
	}
}

// sync copies the text inputs into the campaign.
func (m *Model) sync() {
	title, subject, content := m.title.Value(), m.subject.Value(), m.content.Value()
	m.wizard.Update(func(c model.Campaign) model.Campaign {
		return c.UpdateTitle(title).UpdateSubject(subject).UpdateContent(content)
	})
}

func (m *Model) focusStep() {
	m.title.Blur()
	m.subject.Blur()
	m.content.Blur()
	m.testEmail.Blur()
	m.schedule.Blur()
	switch m.wizard.Step() {
	case wizard.StepDetails:
		if m.detailsFocus == 0 {
			m.title.Focus()
		} else {
			m.subject.Focus()
		}
	case wizard.StepContent:
		m.content.Focus()
	case wizard.StepPreview:
		m.testEmail.Focus()
	case wizard.StepSchedule:
		m.schedule.Focus()
	}
}

func (m *Model) quit() {
	if m.quitting {
		return
	}
	m.quitting = true
	m.debounce.Close()
	close(m.audienceCh)
	m.wizard.Close()
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	state := m.wizard.Snapshot()

	var b strings.Builder
	b.WriteString(headerStyle.Render("Newsletter campaign"))
	b.WriteString("\n")
	b.WriteString(renderSteps(state.Step))
	b.WriteString("\n\n")
	b.WriteString(m.renderBody(state))
	b.WriteString("\n")

	for _, field := range sortedKeys(state.Errors) {
		b.WriteString(errorStyle.Render(fmt.Sprintf("%s: %s", field, state.Errors[field])))
		b.WriteString("\n")
	}
	if m.scheduleErr != "" {
		b.WriteString(errorStyle.Render(m.scheduleErr) + "\n")
	}
	if state.Alert != "" {
		b.WriteString(alertStyle.Render(state.Alert) + "\n")
	}
	if state.Notice != "" {
		b.WriteString(noticeStyle.Render(state.Notice) + "\n")
	}
	if m.busy {
		b.WriteString("Working...\n")
	}
	b.WriteString(hintStyle.Render("enter/tab next · shift+tab back · ctrl+s save · ctrl+t test · ctrl+n send now · ctrl+c quit"))
	return b.String()
}

func renderSteps(current wizard.Step) string {
	parts := make([]string, 0, len(wizard.Steps()))
	for _, s := range wizard.Steps() {
		label := fmt.Sprintf("%d. %s", s.Index()+1, s)
		if s == current {
			parts = append(parts, activeStepStyle.Render(label))
		} else {
			parts = append(parts, stepStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderBody(state wizard.State) string {
	c := state.Campaign
	switch state.Step {
	case wizard.StepDetails:
		return labelStyle.Render("Title") + "\n" + m.title.View() + "\n" +
			labelStyle.Render("Subject") + "\n" + m.subject.View() + "\n" +
			fmt.Sprintf("Template: %s", c.TemplateID.OrDefault())
	case wizard.StepContent:
		return labelStyle.Render("Content") + "\n" + m.content.View()
	case wizard.StepAudience:
		return m.renderAudience(c)
	case wizard.StepPreview:
		emails := "none"
		if len(c.TestEmails) > 0 {
			emails = strings.Join(c.TestEmails, ", ")
		}
		return previewBox.Render(service.RenderPreview(c)) + "\n" +
			labelStyle.Render("Test emails: ") + emails + "\n" + m.testEmail.View()
	case wizard.StepSchedule:
		earliest := service.MinScheduleTime(m.now())
		out := labelStyle.Render("Send at") + "\n" + m.schedule.View() + "\n" +
			fmt.Sprintf("Earliest: %s", earliest.Local().Format(ScheduleLayout))
		if c.ScheduledAt != nil {
			out += fmt.Sprintf("\nScheduled %s", humanize.RelTime(*c.ScheduledAt, m.now(), "ago", "from now"))
		}
		if c.Status != "" {
			out += fmt.Sprintf("\nStatus: %s", c.Status)
		}
		return out
	}
	return ""
}

func (m *Model) renderAudience(c model.Campaign) string {
	var b strings.Builder
	b.WriteString(labelStyle.Render("Audience") + "\n")
	rows := []string{"All subscribers"}
	for _, s := range m.specialities {
		mark := "[ ]"
		if m.selected[s.ID] {
			mark = "[x]"
		}
		rows = append(rows, fmt.Sprintf("%s %s (%s)", mark, s.Libelle, humanize.Comma(int64(s.SubscriberCount))))
	}
	if c.Audience != nil && c.Audience.Type == model.AudienceAll {
		rows[0] = "(•) " + rows[0]
	} else {
		rows[0] = "( ) " + rows[0]
	}
	for i, row := range rows {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		b.WriteString(cursor + row + "\n")
	}
	if c.Audience != nil {
		b.WriteString(fmt.Sprintf("\nEstimated recipients: %s", humanize.Comma(int64(c.Audience.SubscriberCount))))
	}
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
