// Package tui walks a form session in the terminal: it prompts the fields of
// the active step, then lets the user move forward, go back, review or
// submit. Blocked transitions and failed submissions are reported and the
// user stays where they were.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/condition"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/submit"
	"github.com/goliatone/go-formflow/pkg/wizard"
)

// Session is the part of formflow.Session the runner drives.
type Session interface {
	Definition() model.Definition
	Store() *form.Store
	Controller() *wizard.Controller
	Submit(ctx context.Context) (submit.Response, error)
}

type action int

const (
	actionNext action = iota
	actionBack
	actionReview
	actionSubmit
	actionQuit
)

var actionLabels = map[action]string{
	actionNext:   "Next",
	actionBack:   "Back",
	actionReview: "Review answers",
	actionSubmit: "Submit",
	actionQuit:   "Quit",
}

// Runner drives one session through its steps.
type Runner struct {
	driver    PromptDriver
	logger    *zap.Logger
	skipLabel string
}

// New creates a runner. Without WithPromptDriver it talks to the process
// terminal through survey.
func New(options ...Option) (*Runner, error) {
	r := &Runner{
		logger:    zap.NewNop(),
		skipLabel: "(none)",
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver(Stdio{})
	}
	return r, nil
}

// Run prompts until the session is submitted or the user quits. A failed
// submission keeps the answers so the user can fix them and retry.
func (r *Runner) Run(ctx context.Context, sess Session) (submit.Response, error) {
	if sess == nil {
		return submit.Response{}, errors.New("tui: session is required")
	}
	ctrl := sess.Controller()
	def := sess.Definition()
	promptStep := true

	for {
		if err := ctx.Err(); err != nil {
			return submit.Response{}, err
		}
		step := ctrl.Step()
		current := def.Steps[step]

		if promptStep {
			title := current.Title
			if title == "" {
				title = model.DefaultLabeler(current.ID)
			}
			_ = r.driver.Info(ctx, fmt.Sprintf("\n%s (step %d of %d)", title, step+1, ctrl.Len()))
			if current.Description != "" {
				_ = r.driver.Info(ctx, current.Description)
			}
			if err := r.promptFields(ctx, sess.Store(), def.StepFields(step)); err != nil {
				return submit.Response{}, err
			}
		}
		promptStep = true

		choice, err := r.chooseAction(ctx, ctrl)
		if err != nil {
			return submit.Response{}, err
		}
		r.logger.Debug("step action", zap.String("step", current.ID), zap.String("action", actionLabels[choice]))

		switch choice {
		case actionNext:
			if err := ctrl.Advance(ctx); err != nil {
				r.warnBlocked(ctx, def, err)
			}
		case actionBack:
			ctrl.Retreat()
		case actionReview:
			r.review(ctx, def, sess.Store().Values())
			promptStep = false
		case actionSubmit:
			resp, err := sess.Submit(ctx)
			if err == nil {
				return resp, nil
			}
			if errors.Is(err, context.Canceled) {
				return submit.Response{}, err
			}
			r.warnSubmit(ctx, def, err)
			promptStep = false
		case actionQuit:
			return submit.Response{}, ErrAborted
		}
	}
}

func (r *Runner) chooseAction(ctx context.Context, ctrl *wizard.Controller) (action, error) {
	var actions []action
	if ctrl.IsTerminal() {
		actions = append(actions, actionSubmit)
	} else {
		actions = append(actions, actionNext)
	}
	if ctrl.Step() > 0 {
		actions = append(actions, actionBack)
	}
	actions = append(actions, actionReview, actionQuit)

	labels := make([]string, len(actions))
	for i, a := range actions {
		labels[i] = actionLabels[a]
	}
	idx, err := r.driver.Select(ctx, SelectConfig{Message: "What next?", Options: labels, DefaultIndex: 0})
	if err != nil {
		return actionQuit, err
	}
	if idx < 0 || idx >= len(actions) {
		return actionQuit, fmt.Errorf("tui: invalid action %d", idx)
	}
	return actions[idx], nil
}

// promptFields asks for every visible field of a step. Fields guarded by
// requiredWhen are only shown while their condition holds. Each answer is
// validated inline and re-asked until the store accepts it.
func (r *Runner) promptFields(ctx context.Context, store *form.Store, fields []model.Field) error {
	for _, field := range fields {
		if guard := strings.TrimSpace(field.RequiredWhen); guard != "" {
			visible, err := condition.Eval(guard, store.Values())
			if err == nil && !visible {
				continue
			}
		}
		for {
			value, err := r.promptField(ctx, store, field)
			if err != nil {
				return err
			}
			if err := store.Set(field.Name, value); err != nil {
				_ = r.driver.Warn(ctx, err.Error())
				continue
			}
			if msg := store.ErrorFor(field.Name); msg != "" {
				_ = r.driver.Warn(ctx, msg)
				continue
			}
			break
		}
	}
	return nil
}

func (r *Runner) promptField(ctx context.Context, store *form.Store, field model.Field) (any, error) {
	current, _ := store.Get(field.Name)
	label := field.DisplayLabel()
	if store.IsRequired(field.Name) {
		label += " *"
	}
	help := field.Description
	if help == "" {
		help = field.Placeholder
	}

	switch {
	case field.Type == model.FieldTypeBoolean:
		def, _ := current.(bool)
		return r.driver.Confirm(ctx, ConfirmConfig{Message: label, Default: def, Help: help})

	case field.Type == model.FieldTypeArray && len(field.Options) > 0:
		values := field.OptionValues()
		selected, _ := current.([]string)
		indices, err := r.driver.MultiSelect(ctx, SelectConfig{
			Message:  label,
			Options:  optionLabels(field.Options),
			Defaults: indicesOf(values, selected),
			Help:     help,
		})
		if err != nil {
			return nil, err
		}
		return pick(values, indices), nil

	case field.Type == model.FieldTypeArray:
		selected, _ := current.([]string)
		return r.driver.Input(ctx, InputConfig{
			Message: label + " (comma separated)",
			Default: strings.Join(selected, ", "),
			Help:    help,
		})

	case len(field.Options) > 0:
		values := field.OptionValues()
		labels := optionLabels(field.Options)
		optional := !store.IsRequired(field.Name)
		if optional {
			values = append([]string{""}, values...)
			labels = append([]string{r.skipLabel}, labels...)
		}
		text, _ := current.(string)
		defaultIdx := indexOf(values, text)
		if defaultIdx < 0 {
			defaultIdx = 0
		}
		idx, err := r.driver.Select(ctx, SelectConfig{Message: label, Options: labels, DefaultIndex: defaultIdx, Help: help})
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= len(values) {
			return nil, fmt.Errorf("tui: invalid choice %d for %s", idx, field.Name)
		}
		if values[idx] == "" {
			return nil, nil
		}
		return values[idx], nil

	case field.Type == model.FieldTypeText:
		text, _ := current.(string)
		return r.driver.TextArea(ctx, TextAreaConfig{Message: label, Default: text, Help: help})

	default:
		text, _ := current.(string)
		return r.driver.Input(ctx, InputConfig{Message: label, Default: text, Help: help})
	}
}

func (r *Runner) review(ctx context.Context, def model.Definition, values model.Values) {
	for i, step := range def.Steps {
		title := step.Title
		if title == "" {
			title = model.DefaultLabeler(step.ID)
		}
		_ = r.driver.Info(ctx, fmt.Sprintf("%d. %s", i+1, title))
		for _, field := range def.StepFields(i) {
			_ = r.driver.Info(ctx, fmt.Sprintf("   %s: %s", field.DisplayLabel(), displayValue(field, values[field.Name])))
		}
	}
}

func (r *Runner) warnBlocked(ctx context.Context, def model.Definition, err error) {
	var blocked *wizard.BlockedError
	if !errors.As(err, &blocked) {
		_ = r.driver.Warn(ctx, err.Error())
		return
	}
	labels := make([]string, 0, len(blocked.Fields))
	for _, name := range blocked.Fields {
		if field, ok := def.Field(name); ok {
			labels = append(labels, field.DisplayLabel())
			continue
		}
		labels = append(labels, name)
	}
	_ = r.driver.Warn(ctx, "Please complete: "+strings.Join(labels, ", "))
}

func (r *Runner) warnSubmit(ctx context.Context, def model.Definition, err error) {
	var subErr *submit.Error
	switch {
	case errors.As(err, new(*wizard.BlockedError)):
		r.warnBlocked(ctx, def, err)
	case errors.As(err, &subErr):
		_ = r.driver.Warn(ctx, "Submission failed: "+subErr.Summary())
		for _, name := range sortedNames(subErr.Fields) {
			label := name
			if field, ok := def.Field(name); ok {
				label = field.DisplayLabel()
			}
			_ = r.driver.Warn(ctx, fmt.Sprintf("  %s: %s", label, strings.Join(subErr.Fields[name], "; ")))
		}
	default:
		_ = r.driver.Warn(ctx, "Submission failed: "+err.Error())
	}
}
