package model

import (
	"regexp"
	"strings"
)

var labelSeparators = regexp.MustCompile(`[_\-\s.]+`)

// DefaultLabeler turns a field name such as "owner_email" or "riskLevel"
// into a label ("Owner Email", "Risk Level").
func DefaultLabeler(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	var words []string
	for _, chunk := range labelSeparators.Split(name, -1) {
		for _, word := range splitCamelWords(chunk) {
			words = append(words, capitalize(word))
		}
	}
	return strings.Join(words, " ")
}

func splitCamelWords(input string) []string {
	if input == "" {
		return nil
	}
	var (
		words []string
		start int
	)
	runes := []rune(input)
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		if (isLower(prev) && isUpper(cur)) || (isLetter(prev) && isDigit(cur)) || (isDigit(prev) && isLetter(cur)) {
			words = append(words, string(runes[start:i]))
			start = i
		}
	}
	return append(words, string(runes[start:]))
}

func isUpper(r rune) bool  { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool  { return r >= 'a' && r <= 'z' }
func isDigit(r rune) bool  { return r >= '0' && r <= '9' }
func isLetter(r rune) bool { return isUpper(r) || isLower(r) }

func capitalize(word string) string {
	if word == "" {
		return ""
	}
	lower := strings.ToLower(word)
	if strings.ToUpper(word) == word && len(word) <= 3 {
		// keep acronyms such as "AI" or "URL"
		return word
	}
	return strings.ToUpper(lower[:1]) + lower[1:]
}
