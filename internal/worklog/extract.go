package worklog

import (
	"strings"

	"github.com/baalimago/worklog/internal/models"
)

// Extract the finished work-log from a completed assistant reply. Everything after
// the first Sentinel is returned, trimmed. The bool is false if the reply holds no
// work-log yet.
func Extract(reply string) (string, bool) {
	_, after, found := strings.Cut(reply, Sentinel)
	if !found {
		return "", false
	}
	return strings.TrimSpace(after), true
}

// FromMessages extracts the work-log from the most recent assistant message, if any.
func FromMessages(msgs []models.Message) (string, bool) {
	chat := models.Chat{Messages: msgs}
	latest, _, err := chat.LastOfRole(models.RoleAssistant)
	if err != nil {
		return "", false
	}
	return Extract(latest.Content)
}
