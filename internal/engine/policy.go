package engine

import (
	"fmt"
	"math"
	"time"

	"boardbot/internal/transport"
	"boardbot/pkg/tgui"
)

// cooldownFor returns the minimum spacing between two reminders to the same
// recipient for the same posting: tighter once the deadline is a day away.
func cooldownFor(hoursLeft float64) time.Duration {
	if hoursLeft <= 24 {
		return 6 * time.Hour
	}
	return 24 * time.Hour
}

// urgencyLabel renders the remaining time for the reminder headline.
func urgencyLabel(hoursLeft float64) string {
	switch {
	case hoursLeft <= 6:
		return "URGENT"
	case hoursLeft <= 24:
		return "<24 hours left"
	default:
		days := int(math.Floor(hoursLeft / 24))
		if days == 1 {
			return "1 day left"
		}
		return fmt.Sprintf("%d days left", days)
	}
}

const callbackScope = "resp"

// choiceOptions builds the standard interactive choice set for a posting.
func choiceOptions(postingID string) *transport.SendOptions {
	return &transport.SendOptions{
		ParseMode:      "HTML",
		DisablePreview: true,
		Choices: []transport.Choice{
			{Label: "✅ Applied", Data: tgui.Data(callbackScope, "applied", postingID)},
			{Label: "🙅 Not Interested", Data: tgui.Data(callbackScope, "not_interested", postingID)},
			{Label: "⏰ Remind Me Later", Data: tgui.Data(callbackScope, "remind", postingID)},
		},
	}
}

func chatTarget(chatID int64) transport.ChatTarget {
	return transport.ChatTarget{ChatID: chatID}
}
