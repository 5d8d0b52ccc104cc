package chat

import "strings"

const (
	maxTitleLen  = 80
	defaultTitle = "New chat"
)

// DeriveTitle builds a session title from its first message: trimmed,
// truncated to 80 characters, never empty.
func DeriveTitle(firstMessage string) string {
	title := strings.TrimSpace(firstMessage)
	if title == "" {
		return defaultTitle
	}
	runes := []rune(title)
	if len(runes) > maxTitleLen {
		title = string(runes[:maxTitleLen])
	}
	return title
}
