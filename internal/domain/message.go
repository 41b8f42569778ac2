package domain

import "fmt"

// ReminderMessage carries everything a notifier needs to render a
// reminder on any channel.
type ReminderMessage struct {
	Username           string
	ContributionsToday int
	CurrentStreak      int
	Text               string
}

// ComposeReminder builds the message for one user's daily check.
// Users who contributed today get encouragement; everyone else gets a
// warning that their streak is at risk.
func ComposeReminder(username string, contributionsToday, currentStreak int) ReminderMessage {
	msg := ReminderMessage{
		Username:           username,
		ContributionsToday: contributionsToday,
		CurrentStreak:      currentStreak,
	}

	if contributionsToday > 0 {
		plural := ""
		if contributionsToday > 1 {
			plural = "s"
		}
		msg.Text = fmt.Sprintf(
			"🎉 Great job! You made %d contribution%s today! Your %d-day streak is safe. Keep it up!",
			contributionsToday, plural, currentStreak,
		)
		return msg
	}

	msg.Text = fmt.Sprintf(
		"⚠️ You have not made any contributions today! Your %d-day streak is at risk. Make a commit to keep it alive!",
		currentStreak,
	)
	return msg
}
