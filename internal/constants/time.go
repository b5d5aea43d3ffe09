package constants

const (
	// DateFormat is the canonical calendar-day key used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// MonthFormat is used for month selection on the command line (YYYY-MM)
	MonthFormat = "2006-01"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// DefaultTimezone uses the system local timezone
	DefaultTimezone = "Local"
)
