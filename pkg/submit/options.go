package submit

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/endpoint"
	"github.com/goliatone/go-formflow/pkg/metrics"
	"github.com/goliatone/go-formflow/pkg/notify"
)

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient overrides the client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Gateway) {
		if client != nil {
			g.client = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithNotifier sets where success/failure notifications go.
func WithNotifier(n notify.Notifier) Option {
	return func(g *Gateway) {
		if n != nil {
			g.notifier = n
		}
	}
}

// WithResolver enables OpenAPI operation lookups for definitions that name
// create/update operation ids.
func WithResolver(r *endpoint.Resolver) Option {
	return func(g *Gateway) {
		g.resolver = r
	}
}

// WithMetrics records submission metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// WithBearerToken sends an Authorization header with every request.
func WithBearerToken(token string) Option {
	return func(g *Gateway) {
		if token = strings.TrimSpace(token); token != "" {
			g.headers.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithHeader adds a static request header.
func WithHeader(name, value string) Option {
	return func(g *Gateway) {
		if name = strings.TrimSpace(name); name != "" {
			g.headers.Set(name, value)
		}
	}
}
