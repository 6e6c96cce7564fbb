// Package wizard implements the Step Controller: it tracks the active step
// of a multi-step form and gates forward transitions on the state of the
// Field Store. Going back is always allowed. The submission on the terminal
// step is only issued on an explicit Submit call.
package wizard

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/metrics"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/notify"
	"github.com/goliatone/go-formflow/pkg/submit"
)

const (
	directionNext = "next"
	directionBack = "back"
)

// Submitter is the part of the Submission Gateway the controller drives.
type Submitter interface {
	Submit(ctx context.Context, req submit.Request) (submit.Response, error)
}

// RequiredFunc reports whether a field is required for the given values.
type RequiredFunc func(name string, values model.Values) bool

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records transition metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithNotifier receives a warning whenever a transition is blocked.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithRecordID puts the controller in edit mode for the given record.
func WithRecordID(id string) Option {
	return func(c *Controller) {
		c.recordID = id
	}
}

// Controller is the Step Controller for one form session.
type Controller struct {
	mu         sync.Mutex
	def        model.Definition
	store      *form.Store
	submitter  Submitter
	recordID   string
	logger     *zap.Logger
	metrics    *metrics.Metrics
	notifier   notify.Notifier
	step       int
	submitting bool
	submitted  bool
}

// New creates a controller positioned on the first step.
func New(store *form.Store, submitter Submitter, options ...Option) (*Controller, error) {
	if store == nil {
		return nil, errors.New("wizard: store is required")
	}
	def := store.Definition()
	if len(def.Steps) == 0 {
		return nil, ErrNoSteps
	}
	c := &Controller{
		def:       def,
		store:     store,
		submitter: submitter,
		logger:    zap.NewNop(),
		notifier:  notify.Discard,
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// CanAdvance reports whether every field required at step is filled in and
// no field at step carries an error. It is a pure function of its inputs.
func CanAdvance(def model.Definition, step int, values model.Values, errs model.Errors, required RequiredFunc) bool {
	return len(Blockers(def, step, values, errs, required)) == 0
}

// Blockers lists, in step order, the fields preventing step from passing.
func Blockers(def model.Definition, step int, values model.Values, errs model.Errors, required RequiredFunc) []string {
	if step < 0 || step >= len(def.Steps) {
		return nil
	}
	var out []string
	for _, name := range def.Steps[step].Fields {
		if errs[name] != "" {
			out = append(out, name)
			continue
		}
		if required != nil && required(name, values) && model.IsEmpty(values[name]) {
			out = append(out, name)
		}
	}
	return out
}

// Definition returns the definition being walked.
func (c *Controller) Definition() model.Definition {
	return c.def
}

// Store returns the Field Store gated by the controller.
func (c *Controller) Store() *form.Store {
	return c.store
}

// RecordID returns the record being edited, or "" when creating.
func (c *Controller) RecordID() string {
	return c.recordID
}

// Step returns the active step index.
func (c *Controller) Step() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// Current returns the active step definition.
func (c *Controller) Current() model.Step {
	return c.def.Steps[c.Step()]
}

// Len returns the number of steps.
func (c *Controller) Len() int {
	return len(c.def.Steps)
}

// IsTerminal reports whether the active step is the last one.
func (c *Controller) IsTerminal() bool {
	return c.Step() == len(c.def.Steps)-1
}

// CanAdvance evaluates the gate of step against the store.
func (c *Controller) CanAdvance(step int) bool {
	return len(c.Blockers(step)) == 0
}

// Blockers returns the fields holding step back.
func (c *Controller) Blockers(step int) []string {
	values, errs := c.store.Snapshot()
	return Blockers(c.def, step, values, errs, c.required)
}

// Ready reports whether every step passes its gate.
func (c *Controller) Ready() bool {
	values, errs := c.store.Snapshot()
	for i := range c.def.Steps {
		if !CanAdvance(c.def, i, values, errs, c.required) {
			return false
		}
	}
	return true
}

// Submitted reports whether a submission has succeeded in this session.
func (c *Controller) Submitted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitted
}

// Advance moves to the next step when the active step passes its gate.
// A blocked transition leaves the index unchanged and returns a
// *BlockedError wrapping ErrStepBlocked. Advancing from the terminal step is
// a no-op.
func (c *Controller) Advance(ctx context.Context) error {
	c.mu.Lock()
	step := c.step
	c.mu.Unlock()

	if step >= len(c.def.Steps)-1 {
		return nil
	}
	if blockers := c.Blockers(step); len(blockers) > 0 {
		err := &BlockedError{Step: step, StepID: c.def.Steps[step].ID, Fields: blockers, Err: ErrStepBlocked}
		c.metrics.ObserveTransition(c.def.ID, directionNext, metrics.OutcomeBlocked)
		c.logger.Debug("step transition blocked",
			zap.String("form", c.def.ID),
			zap.String("step", err.StepID),
			zap.Strings("fields", blockers),
		)
		c.warnBlocked(ctx, err)
		return err
	}

	c.mu.Lock()
	c.step = step + 1
	c.mu.Unlock()
	c.metrics.ObserveTransition(c.def.ID, directionNext, metrics.OutcomeSuccess)
	c.logger.Debug("step advanced", zap.String("form", c.def.ID), zap.Int("step", step+1))
	return nil
}

// Retreat moves to the previous step. It never blocks and stays on the first
// step when already there.
func (c *Controller) Retreat() {
	c.mu.Lock()
	if c.step > 0 {
		c.step--
	}
	step := c.step
	c.mu.Unlock()
	c.metrics.ObserveTransition(c.def.ID, directionBack, metrics.OutcomeSuccess)
	c.logger.Debug("step retreated", zap.String("form", c.def.ID), zap.Int("step", step))
}

// Submit sends the form through the Submitter. It is only allowed on the
// terminal step and only when every step passes its gate. One call issues at
// most one request; a failed submission leaves the store untouched.
func (c *Controller) Submit(ctx context.Context) (submit.Response, error) {
	if c.submitter == nil {
		return submit.Response{}, errors.New("wizard: no submitter configured")
	}
	if !c.IsTerminal() {
		return submit.Response{}, ErrNotTerminal
	}

	values, errs := c.store.Snapshot()
	for i, step := range c.def.Steps {
		if blockers := Blockers(c.def, i, values, errs, c.required); len(blockers) > 0 {
			err := &BlockedError{Step: i, StepID: step.ID, Fields: blockers, Err: ErrIncomplete}
			c.warnBlocked(ctx, err)
			return submit.Response{}, err
		}
	}

	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return submit.Response{}, ErrSubmitInFlight
	}
	c.submitting = true
	c.mu.Unlock()

	resp, err := c.submitter.Submit(ctx, submit.Request{
		Definition: c.def,
		Values:     values,
		RecordID:   c.recordID,
		Required:   submit.RequiredFunc(c.required),
	})

	c.mu.Lock()
	c.submitting = false
	if err == nil {
		c.submitted = true
	}
	c.mu.Unlock()
	return resp, err
}

func (c *Controller) required(name string, values model.Values) bool {
	return c.store.Validator().IsRequired(name, values)
}

func (c *Controller) warnBlocked(ctx context.Context, err *BlockedError) {
	labels := make([]string, 0, len(err.Fields))
	details := make(map[string][]string, len(err.Fields))
	values, errs := c.store.Snapshot()
	for _, name := range err.Fields {
		label := name
		if field, ok := c.def.Field(name); ok {
			label = field.DisplayLabel()
		}
		labels = append(labels, label)
		msg := errs[name]
		if msg == "" {
			msg = label + " is required"
		}
		details[name] = []string{msg}
	}

	message := notify.RenderOr(c.def.Messages.Blocked, "Complete the highlighted fields before continuing.", map[string]any{
		"form":   c.def.ID,
		"title":  c.def.Title,
		"step":   err.StepID,
		"fields": labels,
		"values": values,
	})
	title := c.def.Steps[err.Step].Title
	if title == "" {
		title = c.def.Title
	}
	_ = c.notifier.Notify(ctx, notify.Notification{
		Level:   notify.LevelWarning,
		Title:   title,
		Message: message,
		Details: details,
	})
}
