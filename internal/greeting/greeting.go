package greeting

import "time"

type Period string

const (
	Morning   Period = "morning"
	Afternoon Period = "afternoon"
	Evening   Period = "evening"
)

// TimeOfDay buckets the wall-clock hour of t.
func TimeOfDay(t time.Time) Period {
	switch h := t.Hour(); {
	case h >= 5 && h < 12:
		return Morning
	case h >= 12 && h < 17:
		return Afternoon
	default:
		return Evening
	}
}

var greetings = map[Period]string{
	Morning:   "Good Morning",
	Afternoon: "Good Afternoon",
	Evening:   "Good Evening",
}

// Greeting returns e.g. "Good Morning".
func Greeting(t time.Time) string {
	return greetings[TimeOfDay(t)]
}

// FormatTime renders t as "08:05 AM".
func FormatTime(t time.Time) string {
	return t.Format("03:04 PM")
}

// FormatDate renders t as "Jan 2, 2006".
func FormatDate(t time.Time) string {
	return t.Format("Jan 2, 2006")
}
