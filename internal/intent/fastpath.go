package intent

import (
	"strings"

	"github.com/databot/databot-backend/internal/session"
)

// The user base is bilingual, so both Russian and English tokens count.
var confirmations = map[string]bool{
	"да": true, "yes": true, "ага": true, "давай": true, "ок": true,
	"ok": true, "okay": true, "конечно": true, "согласен": true,
	"+": true, "👍": true, "sure": true, "yep": true,
}

var rejections = map[string]bool{
	"нет": true, "no": true, "не": true, "не надо": true,
	"не нужно": true, "отмена": true, "cancel": true, "-": true,
	"👎": true, "nope": true,
}

// Markers an assistant reply carries when it offered to export the
// current result set; keep in sync with the summarizer's closing line.
var tableOfferMarkers = []string{
	"generate a table",
	"export this as a spreadsheet",
	"сгенерировал для вас таблицу",
	"сгенерировать таблицу",
}

func normalize(message string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(message)), ".,!?")
}

// IsConfirmation reports whether the message is a bare affirmative.
func IsConfirmation(message string) bool {
	return confirmations[normalize(message)]
}

// IsRejection reports whether the message is a bare negative.
func IsRejection(message string) bool {
	return rejections[normalize(message)]
}

// OfferedTable reports whether the assistant text ends a turn with an
// export offer.
func OfferedTable(assistantText string) bool {
	lower := strings.ToLower(assistantText)
	for _, marker := range tableOfferMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// FastPath resolves the single most common exchange without a model
// call: a bare "yes" right after the assistant offered a table maps to
// TableRequest. Anything it does not recognize falls through to the
// full classifier, which can reach every intent on its own.
func FastPath(message string, history []session.Turn) (Intent, bool) {
	if !IsConfirmation(message) {
		return NewDataQuery, false
	}
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != session.RoleAssistant {
			continue
		}
		if OfferedTable(history[i].Text) {
			return TableRequest, true
		}
		return NewDataQuery, false
	}
	return NewDataQuery, false
}
