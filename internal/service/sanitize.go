package service

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var angleBrackets = strings.NewReplacer("<", "", ">", "")

// cleanText strips markup from free-text profile input. The result is plain
// text, so entities are decoded and stray angle brackets dropped.
func cleanText(policy *bluemonday.Policy, value string) string {
	cleaned := html.UnescapeString(policy.Sanitize(strings.TrimSpace(value)))
	return strings.TrimSpace(angleBrackets.Replace(cleaned))
}
