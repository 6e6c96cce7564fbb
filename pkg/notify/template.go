package notify

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
)

var (
	templateSet     *pongo2.TemplateSet
	templateSetOnce sync.Once
	templateCache   sync.Map
)

func messageTemplates() *pongo2.TemplateSet {
	templateSetOnce.Do(func() {
		templateSet = pongo2.NewSet("formflow-messages", pongo2.MustNewLocalFileSystemLoader(""))
		if !pongo2.FilterExists("trim") {
			_ = pongo2.RegisterFilter("trim", filterTrim)
		}
	})
	return templateSet
}

// Render expands a pongo2 message template such as
// "Application {{ values.name }} saved". Strings without template markup
// are returned unchanged.
func Render(tpl string, data map[string]any) (string, error) {
	if !strings.Contains(tpl, "{{") && !strings.Contains(tpl, "{%") {
		return tpl, nil
	}

	var compiled *pongo2.Template
	if cached, ok := templateCache.Load(tpl); ok {
		compiled = cached.(*pongo2.Template)
	} else {
		// messages are plain text for terminals and logs
		parsed, err := messageTemplates().FromString("{% autoescape off %}" + tpl + "{% endautoescape %}")
		if err != nil {
			return "", fmt.Errorf("notify: parse template: %w", err)
		}
		templateCache.Store(tpl, parsed)
		compiled = parsed
	}

	ctx, err := toContext(data)
	if err != nil {
		return "", err
	}
	out, err := compiled.Execute(ctx)
	if err != nil {
		return "", fmt.Errorf("notify: execute template: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// RenderOr renders tpl and falls back to fallback when tpl is blank or fails.
func RenderOr(tpl, fallback string, data map[string]any) string {
	if strings.TrimSpace(tpl) == "" {
		return fallback
	}
	out, err := Render(tpl, data)
	if err != nil || out == "" {
		return fallback
	}
	return out
}

func toContext(data map[string]any) (pongo2.Context, error) {
	if data == nil {
		return pongo2.Context{}, nil
	}
	// round-trip through JSON so typed maps (model.Values) become plain
	// map[string]any that pongo2 can index
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("notify: convert data: %w", err)
	}
	out := pongo2.Context{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("notify: convert data: %w", err)
	}
	return out, nil
}

func filterTrim(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in.Len() <= 0 {
		return pongo2.AsValue(""), nil
	}
	return pongo2.AsValue(strings.TrimSpace(in.String())), nil
}

func sortedKeys(m map[string][]string) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
