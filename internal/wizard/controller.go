package wizard

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	appErrors "github.com/unclebandit/newsletter-backoffice/internal/errors"
	"github.com/unclebandit/newsletter-backoffice/internal/i18n"
	"github.com/unclebandit/newsletter-backoffice/internal/model"
)

// DefaultNoticeTTL is how long a success banner stays visible.
const DefaultNoticeTTL = 3 * time.Second

// AudienceResolver builds an audience with its subscriber estimate. Known
// returns the speciality index the audience step checks ids against, or nil
// when it is not loaded.
type AudienceResolver interface {
	Resolve(ctx context.Context, t model.AudienceType, ids []string) model.Audience
	Known() map[string]model.Speciality
}

// Dispatcher persists drafts and triggers outbound mail. The key identifies
// the editing session so a draft is created at most once.
type Dispatcher interface {
	SaveDraft(ctx context.Context, key string, c model.Campaign) (model.Campaign, error)
	SendTest(ctx context.Context, key string, c model.Campaign) (model.DispatchOutcome, error)
	SendNow(ctx context.Context, key string, c model.Campaign) (model.DispatchOutcome, error)
	Schedule(ctx context.Context, key string, c model.Campaign, at time.Time) (model.DispatchOutcome, error)
	Reconcile(ctx context.Context, c model.Campaign) model.Campaign
	Forget(key string)
}

// Action names an operation that may be in flight.
type Action string

const (
	ActionSaving      Action = "saving"
	ActionSendingTest Action = "sending_test"
	ActionSending     Action = "sending"
	ActionScheduling  Action = "scheduling"
)

// State is a point-in-time copy of a session.
type State struct {
	ID       string                     `json:"id"`
	Step     Step                       `json:"step"`
	Campaign model.Campaign             `json:"campaign"`
	Errors   appErrors.ValidationErrors `json:"errors"`
	Notice   string                     `json:"notice,omitempty"`
	Alert    string                     `json:"alert,omitempty"`
	InFlight []Action                   `json:"inFlight"`
}

// Controller owns one editing session. The campaign snapshot is only ever
// replaced as a whole.
type Controller struct {
	id         string
	audience   AudienceResolver
	dispatcher Dispatcher
	now        func() time.Time
	locale     string
	noticeTTL  time.Duration

	mu       sync.Mutex
	step     Step
	campaign model.Campaign
	errors   appErrors.ValidationErrors
	notice   string
	noticeAt time.Time
	alert    string
	inFlight map[Action]bool
	closed   bool
	touched  time.Time
}

type Option func(*Controller)

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithLocale(locale string) Option {
	return func(c *Controller) { c.locale = locale }
}

func WithNoticeTTL(ttl time.Duration) Option {
	return func(c *Controller) {
		if ttl > 0 {
			c.noticeTTL = ttl
		}
	}
}

func WithID(id string) Option {
	return func(c *Controller) {
		if id != "" {
			c.id = id
		}
	}
}

// New starts a session at the details step. A nil initial campaign starts
// from an empty draft.
func New(audience AudienceResolver, dispatcher Dispatcher, initial *model.Campaign, opts ...Option) *Controller {
	w := &Controller{
		id:         uuid.NewString(),
		audience:   audience,
		dispatcher: dispatcher,
		now:        time.Now,
		locale:     "en",
		noticeTTL:  DefaultNoticeTTL,
		step:       StepDetails,
		campaign:   model.NewCampaign(),
		errors:     appErrors.ValidationErrors{},
		inFlight:   map[Action]bool{},
	}
	if initial != nil {
		w.campaign = *initial
	}
	for _, opt := range opts {
		opt(w)
	}
	w.touched = w.now()
	return w
}

func (w *Controller) ID() string { return w.id }

func (w *Controller) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

func (w *Controller) Campaign() model.Campaign {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.campaign
}

func (w *Controller) Errors() appErrors.ValidationErrors {
	w.mu.Lock()
	defer w.mu.Unlock()
	return copyErrors(w.errors)
}

// Notice returns the success banner until it expires.
func (w *Controller) Notice() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.noticeLocked()
}

func (w *Controller) Alert() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.alert
}

func (w *Controller) InFlight(a Action) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.inFlight[a]
}

func (w *Controller) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	actions := []Action{}
	for a, busy := range w.inFlight {
		if busy {
			actions = append(actions, a)
		}
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return State{
		ID:       w.id,
		Step:     w.step,
		Campaign: w.campaign,
		Errors:   copyErrors(w.errors),
		Notice:   w.noticeLocked(),
		Alert:    w.alert,
		InFlight: actions,
	}
}

// LastActivity is when the session was last used.
func (w *Controller) LastActivity() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.touched
}

// Next validates the current step and advances on success. On failure the
// step is kept and the field errors are returned and remembered.
func (w *Controller) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return appErrors.ErrWizardNotFound
	}
	w.touched = w.now()

	if errs := w.validate(w.step, w.campaign); len(errs) > 0 {
		w.errors = errs
		return copyErrors(errs)
	}
	w.errors = appErrors.ValidationErrors{}
	w.step = w.step.Next()
	return nil
}

// Previous goes back one step. It only fails on a closed session.
func (w *Controller) Previous() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return appErrors.ErrWizardNotFound
	}
	w.touched = w.now()
	w.step = w.step.Previous()
	w.errors = appErrors.ValidationErrors{}
	return nil
}

// Close ends the session. Unsaved edits are discarded.
func (w *Controller) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()
	if w.dispatcher != nil {
		w.dispatcher.Forget(w.id)
	}
}

// Update replaces the campaign with fn's result.
func (w *Controller) Update(fn func(model.Campaign) model.Campaign) (model.Campaign, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return w.campaign, appErrors.ErrWizardNotFound
	}
	w.touched = w.now()
	w.campaign = fn(w.campaign)
	return w.campaign, nil
}

// SetAudience resolves the selection and stores it on the campaign.
func (w *Controller) SetAudience(ctx context.Context, t model.AudienceType, ids []string) (model.Audience, error) {
	audience := model.NewAudience(t, ids, 0)
	if w.audience != nil {
		audience = w.audience.Resolve(ctx, t, ids)
	}
	_, err := w.Update(func(c model.Campaign) model.Campaign {
		return c.UpdateAudience(audience)
	})
	return audience, err
}

// SaveDraft writes the campaign to the server.
func (w *Controller) SaveDraft(ctx context.Context) error {
	c, err := w.begin(ActionSaving)
	if err != nil {
		return err
	}
	defer w.end(ActionSaving)

	saved, err := w.dispatcher.SaveDraft(ctx, w.id, c)
	if err != nil {
		w.fail(err, "", i18n.T(w.locale, i18n.AlertSaveFailed))
		return err
	}
	w.mu.Lock()
	w.campaign = saved
	w.setNoticeLocked(i18n.T(w.locale, i18n.NoticeDraftSaved))
	w.mu.Unlock()
	return nil
}

// SendTest mails the campaign to its test addresses. The server's own error
// text is shown when it sent one.
func (w *Controller) SendTest(ctx context.Context) error {
	c, err := w.begin(ActionSendingTest)
	if err != nil {
		return err
	}
	defer w.end(ActionSendingTest)

	out, err := w.dispatcher.SendTest(ctx, w.id, c)
	w.adoptID(out.Campaign)
	if err != nil {
		w.fail(err, appErrors.ServerMessage(err), i18n.T(w.locale, i18n.AlertTestFailed))
		return err
	}
	w.mu.Lock()
	w.setNoticeLocked(i18n.T(w.locale, i18n.NoticeTestSent, len(c.TestEmails)))
	w.mu.Unlock()
	return nil
}

// SendNow asks the server to send the campaign immediately.
func (w *Controller) SendNow(ctx context.Context) error {
	c, err := w.begin(ActionSending)
	if err != nil {
		return err
	}
	defer w.end(ActionSending)

	out, err := w.dispatcher.SendNow(ctx, w.id, c)
	w.adoptID(out.Campaign)
	if err != nil {
		w.fail(err, "", i18n.T(w.locale, i18n.AlertSendFailed))
		return err
	}
	w.replace(w.dispatcher.Reconcile(ctx, out.Campaign))
	w.mu.Lock()
	w.setNoticeLocked(i18n.T(w.locale, i18n.NoticeSent))
	w.mu.Unlock()
	return nil
}

// Schedule asks the server to send the campaign at at.
func (w *Controller) Schedule(ctx context.Context, at time.Time) error {
	c, err := w.begin(ActionScheduling)
	if err != nil {
		return err
	}
	defer w.end(ActionScheduling)

	out, err := w.dispatcher.Schedule(ctx, w.id, c, at)
	w.adoptID(out.Campaign)
	if err != nil {
		w.fail(err, "", i18n.T(w.locale, i18n.AlertScheduleFailed))
		return err
	}
	w.replace(w.dispatcher.Reconcile(ctx, out.Campaign))
	w.mu.Lock()
	w.setNoticeLocked(i18n.T(w.locale, i18n.NoticeScheduled, at.Format("02 Jan 2006 15:04 MST")))
	w.mu.Unlock()
	return nil
}

// begin marks a as in flight and returns the snapshot to act on.
func (w *Controller) begin(a Action) (model.Campaign, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return model.Campaign{}, appErrors.ErrWizardNotFound
	}
	if w.inFlight[a] {
		return model.Campaign{}, appErrors.ErrActionInFlight
	}
	w.inFlight[a] = true
	w.alert = ""
	w.touched = w.now()
	return w.campaign, nil
}

func (w *Controller) end(a Action) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.inFlight, a)
}

// fail turns err into what the user sees. Local rule violations become
// messages of their own; anything else shows serverMsg when present and
// generic otherwise.
func (w *Controller) fail(err error, serverMsg, generic string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var persistErr *appErrors.PersistError
	switch {
	case errors.Is(err, appErrors.ErrScheduleInPast):
		w.errors = appErrors.ValidationErrors{"scheduledAt": i18n.T(w.locale, i18n.ScheduleInPast)}
		return
	case errors.Is(err, appErrors.ErrNoTestEmails):
		w.errors = appErrors.ValidationErrors{"testEmails": i18n.T(w.locale, i18n.TestEmailsRequired)}
		return
	case errors.As(err, &persistErr):
		w.alert = i18n.T(w.locale, i18n.AlertSaveFailed)
	case serverMsg != "":
		w.alert = serverMsg
	default:
		w.alert = generic
	}
	logrus.WithFields(logrus.Fields{
		"wizard_id":   w.id,
		"campaign_id": w.campaign.ID,
	}).Warnf("Wizard: action failed: %v", err)
}

// adoptID records the id the server assigned without touching local edits.
func (w *Controller) adoptID(c model.Campaign) {
	if c.ID == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.campaign.ID == "" {
		w.campaign.ID = c.ID
		w.campaign.CreatedAt = c.CreatedAt
	}
}

func (w *Controller) replace(c model.Campaign) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.campaign = c
	w.errors = appErrors.ValidationErrors{}
}

func (w *Controller) setNoticeLocked(msg string) {
	w.notice = msg
	w.noticeAt = w.now()
}

func (w *Controller) noticeLocked() string {
	if w.notice == "" {
		return ""
	}
	if w.now().Sub(w.noticeAt) >= w.noticeTTL {
		w.notice = ""
	}
	return w.notice
}

// validate applies the rules of step to c.
func (w *Controller) validate(step Step, c model.Campaign) appErrors.ValidationErrors {
	required := validation.Required.Error(i18n.T(w.locale, i18n.FieldRequired))

	var errs error
	switch step {
	case StepDetails:
		errs = validation.Errors{
			"title":   validation.Validate(strings.TrimSpace(c.Title), required),
			"subject": validation.Validate(strings.TrimSpace(c.Subject), required),
		}.Filter()
	case StepContent:
		errs = validation.Errors{
			"content": validation.Validate(strings.TrimSpace(c.Content), required),
		}.Filter()
	case StepAudience:
		msg := i18n.T(w.locale, i18n.FieldAudienceRequired)
		audienceType := ""
		if c.Audience != nil {
			audienceType = string(c.Audience.Type)
		}
		errs = validation.Errors{
			"audience": validation.Validate(audienceType,
				validation.Required.Error(msg),
				validation.In(
					string(model.AudienceAll),
					string(model.AudienceSpecialities),
					string(model.AudienceCustom),
				).Error(msg),
			),
		}.Filter()
		if errs == nil && w.audience != nil {
			if err := c.Audience.Validate(w.audience.Known()); err != nil {
				errs = validation.Errors{"audience": errors.New(i18n.T(w.locale, i18n.FieldAudienceUnknown))}
			}
		}
	}

	out := appErrors.ValidationErrors{}
	var fieldErrs validation.Errors
	if errors.As(errs, &fieldErrs) {
		for field, err := range fieldErrs {
			out[field] = err.Error()
		}
	}
	return out
}

func copyErrors(in appErrors.ValidationErrors) appErrors.ValidationErrors {
	out := make(appErrors.ValidationErrors, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
