package notifications

import (
	"fmt"

	"github.com/minds-hub/backend/internal/models"
)

// Recipient is one phone a notification goes to.
type Recipient struct {
	Channel   models.Channel
	To        string
	Caregiver bool
}

// Recipients lists where a notification of kind for u should go. Participants get SMS;
// their caregiver gets WhatsApp for registration changes and reminders.
func Recipients(u *models.User, kind models.NotificationKind) []Recipient {
	var out []Recipient
	if u.Phone != "" {
		out = append(out, Recipient{Channel: models.ChannelSMS, To: u.Phone})
	}
	if u.Role != models.RoleParticipant || u.CaregiverPhone == "" {
		return out
	}
	switch kind {
	case models.NotificationRegistrationConfirmed, models.NotificationRegistrationCancelled, models.NotificationReminder:
		out = append(out, Recipient{Channel: models.ChannelWhatsApp, To: u.CaregiverPhone, Caregiver: true})
	}
	return out
}

// Compose renders the message body for kind. Activity titles follow the user's preferred
// language when a translation exists.
func Compose(kind models.NotificationKind, u *models.User, a *models.Activity, caregiver bool) string {
	name := u.FullName
	title := a.LocalizedTitle(u.PreferredLanguage)
	when := fmt.Sprintf("%s, %s", a.Date.Format("Mon 2 Jan"), a.TimeRange())
	where := ""
	if a.Location != "" {
		where = " at " + a.Location
	}

	switch kind {
	case models.NotificationRegistrationConfirmed:
		if caregiver {
			return fmt.Sprintf("%s is registered for %s on %s%s.", name, title, when, where)
		}
		return fmt.Sprintf("Hi %s, you are registered for %s on %s%s. See you there!", name, title, when, where)
	case models.NotificationRegistrationCancelled:
		if caregiver {
			return fmt.Sprintf("%s's registration for %s on %s has been cancelled.", name, title, when)
		}
		return fmt.Sprintf("Hi %s, your registration for %s on %s has been cancelled.", name, title, when)
	case models.NotificationMatchConfirmed:
		return fmt.Sprintf("Hi %s, thank you for volunteering at %s on %s%s.", name, title, when, where)
	case models.NotificationMatchCancelled:
		return fmt.Sprintf("Hi %s, your volunteer slot for %s on %s has been cancelled.", name, title, when)
	case models.NotificationReminder:
		if caregiver {
			return fmt.Sprintf("Reminder: %s has %s on %s%s.", name, title, when, where)
		}
		return fmt.Sprintf("Reminder: %s is on %s%s.", title, when, where)
	}
	return fmt.Sprintf("Update about %s on %s.", title, when)
}
