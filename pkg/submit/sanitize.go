package submit

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// maxSanitizePasses bounds the sanitise/unescape loop for nested entities.
const maxSanitizePasses = 8

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// SanitizeText strips every HTML element from free text. Entities are
// decoded so plain ampersands and quotes survive, and the policy is applied
// again until decoding no longer reveals markup.
func SanitizeText(raw string) string {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	current := raw
	for i := 0; i < maxSanitizePasses; i++ {
		cleaned := textPolicy.Sanitize(current)
		decoded := html.UnescapeString(cleaned)
		if decoded == current {
			return strings.TrimSpace(decoded)
		}
		current = decoded
	}
	// still unstable: keep the escaped form
	return strings.TrimSpace(textPolicy.Sanitize(current))
}
