package textutil

import "strings"

// CollapseWhitespace normalizes runs of whitespace (including newlines) to a
// single space and trims the result. Source documents arrive with arbitrary
// wrapping; segmentation operates on the collapsed form.
func CollapseWhitespace(text string) string {
	if text == "" {
		return ""
	}
	return strings.Join(strings.Fields(text), " ")
}
