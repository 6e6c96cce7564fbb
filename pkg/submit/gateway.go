// Package submit implements the Submission Gateway: it serialises form
// values, issues exactly one HTTP request per call and reports the outcome as
// a notification. It never retries; a failed submission leaves the caller's
// state untouched so the user can try again.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/endpoint"
	"github.com/goliatone/go-formflow/pkg/metrics"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/notify"
)

const (
	maxErrorBody    = 64 << 10
	maxErrorSnippet = 200
)

// Request describes one submission.
type Request struct {
	Definition model.Definition
	Values     model.Values
	// RecordID switches the submission to edit mode (PUT).
	RecordID string
	// Required resolves conditional requirements when building the payload.
	Required RequiredFunc
}

// Response is the outcome of a successful submission.
type Response struct {
	Status int
	Method string
	URL    string
	Body   []byte
	// Record is the decoded JSON object returned by the server, if any.
	Record map[string]any
}

// Gateway sends submissions to the remote API.
type Gateway struct {
	base     *url.URL
	client   *http.Client
	headers  http.Header
	logger   *zap.Logger
	notifier notify.Notifier
	resolver *endpoint.Resolver
	metrics  *metrics.Metrics
}

// New creates a gateway rooted at baseURL.
func New(baseURL string, options ...Option) (*Gateway, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("submit: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("submit: base url %q must be absolute", baseURL)
	}

	g := &Gateway{
		base:     base,
		client:   &http.Client{Timeout: 30 * time.Second},
		headers:  make(http.Header),
		logger:   zap.NewNop(),
		notifier: notify.Discard,
	}
	for _, opt := range options {
		if opt != nil {
			opt(g)
		}
	}
	return g, nil
}

// Submit builds the payload, performs the request and notifies the outcome.
// Create requests POST to the definition endpoint; edit requests (RecordID
// set) PUT to the endpoint of that record. Any 2xx status is a success.
func (g *Gateway) Submit(ctx context.Context, req Request) (Response, error) {
	def := req.Definition
	editing := strings.TrimSpace(req.RecordID) != ""

	op, err := g.operation(def, editing)
	if err != nil {
		g.notifyFailure(ctx, req, err)
		return Response{}, err
	}

	body := BuildPayload(def, req.Values, req.Required)
	resp, err := g.do(ctx, def, op, req.RecordID, body)
	if err != nil {
		g.notifyFailure(ctx, req, err)
		return Response{}, err
	}

	g.notifySuccess(ctx, req, resp, editing)
	return resp, nil
}

// SaveDraft sends a partial update (PATCH) of the given values to the
// definition's autosave path. It does not notify; callers decide how loud an
// autosave failure should be.
func (g *Gateway) SaveDraft(ctx context.Context, def model.Definition, recordID string, values model.Values) (Response, error) {
	path := def.Endpoint.AutosavePath
	if path == "" {
		if def.Endpoint.Path == "" {
			return Response{}, ErrNoEndpoint
		}
		path = endpoint.Update(def.Endpoint.Path).Path
	}
	op := endpoint.Operation{Method: http.MethodPatch, Path: path}

	body := make(map[string]any, len(values))
	for name, value := range values {
		if field, ok := def.Field(name); ok && field.Sanitize {
			if s, isText := value.(string); isText {
				value = SanitizeText(s)
			}
		}
		body[name] = value
	}
	return g.do(ctx, def, op, recordID, body)
}

func (g *Gateway) operation(def model.Definition, editing bool) (endpoint.Operation, error) {
	opID := def.Endpoint.CreateOperation
	if editing {
		opID = def.Endpoint.UpdateOperation
	}
	if opID != "" && g.resolver != nil {
		return g.resolver.Resolve(opID)
	}
	if def.Endpoint.Path == "" {
		return endpoint.Operation{}, fmt.Errorf("%w for form %q", ErrNoEndpoint, def.ID)
	}
	if editing {
		return endpoint.Update(def.Endpoint.Path), nil
	}
	return endpoint.Create(def.Endpoint.Path), nil
}

func (g *Gateway) do(ctx context.Context, def model.Definition, op endpoint.Operation, recordID string, body map[string]any) (Response, error) {
	path, err := op.Expand(recordID)
	if err != nil {
		return Response{}, err
	}
	target := g.base.JoinPath(path)
	method := op.Method
	formID := def.ID

	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("submit: encode payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("submit: build request: %w", err)
	}
	for name, values := range g.headers {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	logger := g.logger.With(
		zap.String("form", formID),
		zap.String("method", method),
		zap.String("url", target.Redacted()),
	)

	started := time.Now()
	httpResp, err := g.client.Do(httpReq)
	elapsed := time.Since(started)
	if err != nil {
		outcome := metrics.OutcomeFailure
		if errors.Is(err, context.Canceled) {
			outcome = metrics.OutcomeCanceled
		}
		g.metrics.ObserveSubmission(formID, method, outcome, elapsed)
		logger.Warn("submission request failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		return Response{}, &Error{
			Method: method,
			URL:    target.Redacted(),
			Err:    fmt.Errorf("%w: %v", ErrRequestFailed, err),
		}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
		g.metrics.ObserveSubmission(formID, method, metrics.OutcomeFailure, elapsed)
		logger.Warn("submission rejected",
			zap.Int("status", httpResp.StatusCode),
			zap.Duration("elapsed", elapsed),
		)
		subErr := &Error{
			Status: httpResp.StatusCode,
			Method: method,
			URL:    target.Redacted(),
			Err:    fmt.Errorf("%w %d", ErrUnexpectedStatus, httpResp.StatusCode),
		}
		subErr.Fields, subErr.Form = decodeErrorBody(raw, fieldNames(def))
		return Response{}, subErr
	}
	raw, readErr := io.ReadAll(httpResp.Body)
	if readErr != nil {
		logger.Debug("could not read response body", zap.Error(readErr))
	}

	g.metrics.ObserveSubmission(formID, method, metrics.OutcomeSuccess, elapsed)
	logger.Info("submission accepted", zap.Int("status", httpResp.StatusCode), zap.Duration("elapsed", elapsed))

	resp := Response{
		Status: httpResp.StatusCode,
		Method: method,
		URL:    target.Redacted(),
		Body:   raw,
	}
	if len(bytes.TrimSpace(raw)) > 0 {
		var record map[string]any
		if err := json.Unmarshal(raw, &record); err == nil {
			resp.Record = record
		}
	}
	return resp, nil
}

func truncateRunes(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n])
}

func fieldNames(def model.Definition) []string {
	names := make([]string, 0, len(def.Fields))
	for _, field := range def.Fields {
		names = append(names, field.Name)
	}
	return names
}

// decodeErrorBody understands the common error envelopes:
//
//	{"errors": {"name": ["taken"]}}
//	{"errors": [{"field": "name", "message": "taken"}]}
//	{"message": "..."} / {"error": "..."}
func decodeErrorBody(raw []byte, fields []string) (map[string][]string, []string) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}

	var envelope struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
		Errors  json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, normalizeMessages([]string{truncateRunes(strings.TrimSpace(string(raw)), maxErrorSnippet)})
	}

	payload := make(map[string][]string)
	if envelope.Message != "" {
		payload[""] = append(payload[""], envelope.Message)
	}
	if len(envelope.Error) > 0 {
		var text string
		if err := json.Unmarshal(envelope.Error, &text); err == nil {
			payload[""] = append(payload[""], text)
		}
	}
	if len(envelope.Errors) > 0 {
		var byField map[string]json.RawMessage
		if err := json.Unmarshal(envelope.Errors, &byField); err == nil {
			for key, msgs := range byField {
				payload[key] = append(payload[key], decodeMessages(msgs)...)
			}
		} else {
			var list []struct {
				Field   string `json:"field"`
				Path    string `json:"path"`
				Message string `json:"message"`
			}
			if err := json.Unmarshal(envelope.Errors, &list); err == nil {
				for _, item := range list {
					key := item.Field
					if key == "" {
						key = item.Path
					}
					payload[key] = append(payload[key], item.Message)
				}
			}
		}
	}

	mapping := MapErrorPayload(fields, payload)
	return mapping.Fields, mapping.Form
}

func decodeMessages(raw json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}
	}
	return nil
}

func (g *Gateway) notifySuccess(ctx context.Context, req Request, resp Response, editing bool) {
	tpl := req.Definition.Messages.Created
	fallback := fmt.Sprintf("%s created", titleOf(req.Definition))
	if editing {
		tpl = req.Definition.Messages.Updated
		fallback = fmt.Sprintf("%s updated", titleOf(req.Definition))
	}
	message := notify.RenderOr(tpl, fallback, templateData(req, resp.Status, ""))
	if err := g.notifier.Notify(ctx, notify.Notification{
		Level:   notify.LevelSuccess,
		Title:   titleOf(req.Definition),
		Message: message,
	}); err != nil {
		g.logger.Debug("notification failed", zap.Error(err))
	}
}

func (g *Gateway) notifyFailure(ctx context.Context, req Request, err error) {
	n := notify.Notification{
		Level: notify.LevelError,
		Title: titleOf(req.Definition),
	}
	summary := err.Error()
	status := 0
	var subErr *Error
	if errors.As(err, &subErr) {
		summary = subErr.Summary()
		status = subErr.Status
		n.Details = subErr.Fields
	}
	n.Message = notify.RenderOr(req.Definition.Messages.Failed, summary, templateData(req, status, summary))
	if nerr := g.notifier.Notify(ctx, n); nerr != nil {
		g.logger.Debug("notification failed", zap.Error(nerr))
	}
}

func templateData(req Request, status int, errText string) map[string]any {
	return map[string]any{
		"form":   req.Definition.ID,
		"title":  titleOf(req.Definition),
		"values": map[string]any(req.Values),
		"id":     req.RecordID,
		"status": status,
		"error":  errText,
	}
}

func titleOf(def model.Definition) string {
	if def.Title != "" {
		return def.Title
	}
	return model.DefaultLabeler(def.ID)
}
