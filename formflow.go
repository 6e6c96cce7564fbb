// Package formflow wires the pieces of a multi-step form session together:
// the Field Store, the Step Controller, the Submission Gateway and the
// debounced autosave for fields that persist drafts while the user types.
package formflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/autosave"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/metrics"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/notify"
	"github.com/goliatone/go-formflow/pkg/submit"
	"github.com/goliatone/go-formflow/pkg/validation"
	"github.com/goliatone/go-formflow/pkg/wizard"
)

// DefaultAutosaveDelay is the idle period before a draft is written.
const DefaultAutosaveDelay = 800 * time.Millisecond

// ErrSessionClosed is returned by mutating calls after Close.
var ErrSessionClosed = errors.New("formflow: session closed")

// DraftSaver persists partial values for autosaved fields.
type DraftSaver interface {
	SaveDraft(ctx context.Context, def model.Definition, recordID string, values model.Values) (submit.Response, error)
}

// Option customises a Session.
type Option func(*Session)

// WithSubmitter sets the Submission Gateway used on the terminal step.
func WithSubmitter(s wizard.Submitter) Option {
	return func(sess *Session) {
		sess.submitter = s
	}
}

// WithDraftSaver enables autosave for fields flagged autosave.
func WithDraftSaver(d DraftSaver) Option {
	return func(sess *Session) {
		sess.drafts = d
	}
}

// WithGateway uses g both for submissions and for drafts.
func WithGateway(g *submit.Gateway) Option {
	return func(sess *Session) {
		if g == nil {
			return
		}
		sess.submitter = g
		sess.drafts = g
	}
}

// WithLogger sets the logger. The session adds its id and form id.
func WithLogger(logger *zap.Logger) Option {
	return func(sess *Session) {
		if logger != nil {
			sess.logger = logger
		}
	}
}

// WithNotifier receives blocked-step warnings and autosave failures.
func WithNotifier(n notify.Notifier) Option {
	return func(sess *Session) {
		if n != nil {
			sess.notifier = n
		}
	}
}

// WithMetrics records transition and autosave metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(sess *Session) {
		sess.metrics = m
	}
}

// WithRecordID opens the session in edit mode.
func WithRecordID(id string) Option {
	return func(sess *Session) {
		sess.recordID = id
	}
}

// WithPrefill seeds the store, typically from the record being edited.
func WithPrefill(values model.Values) Option {
	return func(sess *Session) {
		sess.prefill = values
	}
}

// WithAutosaveDelay overrides DefaultAutosaveDelay.
func WithAutosaveDelay(d time.Duration) Option {
	return func(sess *Session) {
		if d > 0 {
			sess.autosaveDelay = d
		}
	}
}

// WithFlushOnClose selects whether Close writes or drops a pending draft.
// Defaults to true.
func WithFlushOnClose(flush bool) Option {
	return func(sess *Session) {
		sess.flushOnClose = flush
	}
}

// WithValidationOptions forwards options to the validator.
func WithValidationOptions(opts ...validation.Option) Option {
	return func(sess *Session) {
		sess.validationOpts = append(sess.validationOpts, opts...)
	}
}

// Session is one open form. It is meant to be driven by a single UI loop;
// the autosave timer is the only other goroutine touching it.
type Session struct {
	id             string
	def            model.Definition
	recordID       string
	prefill        model.Values
	submitter      wizard.Submitter
	drafts         DraftSaver
	logger         *zap.Logger
	notifier       notify.Notifier
	metrics        *metrics.Metrics
	autosaveDelay  time.Duration
	flushOnClose   bool
	validationOpts []validation.Option

	store       *form.Store
	controller  *wizard.Controller
	autosaver   *autosave.Autosaver
	unsubscribe func()

	closeOnce sync.Once
	closeErr  error
	closed    bool
	mu        sync.Mutex
}

// New opens a session for def.
func New(def model.Definition, options ...Option) (*Session, error) {
	s := &Session{
		id:            uuid.NewString(),
		def:           def,
		logger:        zap.NewNop(),
		notifier:      notify.Discard,
		autosaveDelay: DefaultAutosaveDelay,
		flushOnClose:  true,
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	s.logger = s.logger.With(zap.String("session", s.id), zap.String("form", def.ID))

	v, err := validation.New(def, s.validationOpts...)
	if err != nil {
		return nil, fmt.Errorf("formflow: %w", err)
	}
	store, err := form.NewStore(def, v, s.prefill)
	if err != nil {
		return nil, fmt.Errorf("formflow: %w", err)
	}
	s.store = store

	controller, err := wizard.New(store, s.submitter,
		wizard.WithLogger(s.logger),
		wizard.WithMetrics(s.metrics),
		wizard.WithNotifier(s.notifier),
		wizard.WithRecordID(s.recordID),
	)
	if err != nil {
		return nil, fmt.Errorf("formflow: %w", err)
	}
	s.controller = controller

	if err := s.setupAutosave(); err != nil {
		return nil, err
	}
	s.logger.Debug("session opened", zap.String("record", s.recordID), zap.Bool("autosave", s.autosaver != nil))
	return s, nil
}

func (s *Session) setupAutosave() error {
	var names []string
	for _, field := range s.def.Fields {
		if field.Autosave {
			names = append(names, field.Name)
		}
	}
	if len(names) == 0 || s.drafts == nil {
		return nil
	}
	if s.recordID == "" {
		// drafts patch an existing record; nothing to patch while creating
		s.logger.Debug("autosave disabled until the record exists")
		return nil
	}

	autosaved := make(map[string]struct{}, len(names))
	for _, name := range names {
		autosaved[name] = struct{}{}
	}

	saver, err := autosave.New(s.autosaveDelay, s.saveDraft,
		autosave.WithLogger(s.logger),
		autosave.WithResultHandler(s.draftResult),
	)
	if err != nil {
		return fmt.Errorf("formflow: %w", err)
	}
	s.autosaver = saver
	s.unsubscribe = s.store.OnChange(func(field string, values model.Values) {
		if _, ok := autosaved[field]; !ok {
			return
		}
		if err := saver.Schedule(submit.Subset(values, names...)); err != nil {
			s.logger.Debug("autosave schedule skipped", zap.Error(err))
		}
	})
	return nil
}

func (s *Session) saveDraft(ctx context.Context, values model.Values) error {
	_, err := s.drafts.SaveDraft(ctx, s.def, s.recordID, values)
	outcome := metrics.OutcomeSuccess
	switch {
	case errors.Is(err, context.Canceled):
		outcome = metrics.OutcomeCanceled
	case err != nil:
		outcome = metrics.OutcomeFailure
	}
	s.metrics.ObserveAutosave(s.def.ID, outcome)
	return err
}

func (s *Session) draftResult(err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	_ = s.notifier.Notify(context.Background(), notify.Notification{
		Level:   notify.LevelWarning,
		Title:   s.def.Title,
		Message: "Draft could not be saved: " + err.Error(),
	})
}

// ID returns the session id used for log correlation.
func (s *Session) ID() string { return s.id }

// Definition returns the form definition.
func (s *Session) Definition() model.Definition { return s.def }

// RecordID returns the record being edited, or "" when creating.
func (s *Session) RecordID() string { return s.recordID }

// Store exposes the Field Store.
func (s *Session) Store() *form.Store { return s.store }

// Controller exposes the Step Controller.
func (s *Session) Controller() *wizard.Controller { return s.controller }

// Autosaving reports whether draft autosave is active.
func (s *Session) Autosaving() bool { return s.autosaver != nil }

// Set assigns a field value.
func (s *Session) Set(name string, value any) error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	return s.store.Set(name, value)
}

// Values returns a copy of the collected values.
func (s *Session) Values() model.Values { return s.store.Values() }

// Errors returns a copy of the current validation errors.
func (s *Session) Errors() model.Errors { return s.store.Errors() }

// Step returns the active step index.
func (s *Session) Step() int { return s.controller.Step() }

// Advance moves to the next step when the current one is satisfied.
func (s *Session) Advance(ctx context.Context) error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	return s.controller.Advance(ctx)
}

// Retreat moves to the previous step.
func (s *Session) Retreat() {
	s.controller.Retreat()
}

// Submit sends the form from the terminal step. A pending draft is dropped
// on success since the submission carries every field.
func (s *Session) Submit(ctx context.Context) (submit.Response, error) {
	if s.isClosed() {
		return submit.Response{}, ErrSessionClosed
	}
	resp, err := s.controller.Submit(ctx)
	if err != nil {
		s.logger.Info("submission failed", zap.Error(err))
		return resp, err
	}
	if s.autosaver != nil {
		s.autosaver.Cancel()
	}
	s.logger.Info("submission succeeded", zap.Int("status", resp.Status), zap.String("method", resp.Method))
	return resp, nil
}

// FlushDraft writes a pending draft immediately.
func (s *Session) FlushDraft(ctx context.Context) error {
	if s.autosaver == nil {
		return nil
	}
	return s.autosaver.Flush(ctx)
}

// Close ends the session. A pending draft is flushed or dropped according to
// WithFlushOnClose; no draft write starts after Close returns.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		if s.autosaver != nil {
			s.closeErr = s.autosaver.Close(ctx, s.flushOnClose)
		}
		s.logger.Debug("session closed", zap.Bool("submitted", s.controller.Submitted()))
	})
	return s.closeErr
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
