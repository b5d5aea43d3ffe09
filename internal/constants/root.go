package constants

import "time"

// SessionState represents the current state of the TUI application
type SessionState int

const (
	AppName            = "restreak"
	DefaultKeyringUser = "database-connection"
	MentorKeyringUser  = "gemini-api-key"
	DefaultConfigDir   = "~/.config/restreak"
	DefaultConfigFile  = "config.yaml"
	DefaultDBFile      = "restreak.db"
	Version            = "v0.3.0"

	// Storage backends
	BackendSQLite    = "sqlite"
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
	BackendMemory    = "memory"

	// Toggle lock backends
	LockLocal = "local"
	LockRedis = "redis"

	// View bounds
	RecentBadgeCount     = 2
	TopAchievementCount  = 3
	RecentActivityLimit  = 5
	MaxHabitTitleLength  = 80
	DefaultSettleTimeout = 3 * time.Second
	ClockTickInterval    = time.Minute
	ToggleLockTTL        = 10 * time.Second

	// LockTTLMargin is how much longer a toggle lock lives than the settle wait.
	LockTTLMargin    = 5 * time.Second
	EventSinkTimeout = 5 * time.Second

	// Notify constants
	NotifyMaxRetries       = 3
	NotifyRetryDelay       = 100 * time.Millisecond
	NotifierLockfileName   = "restreak-notifier.lock"
	NotificationDurationMs = 3000
	TrayAppIdentifier      = "com.julianstephens.restreak"
	TrayAppExecutable      = "restreak-tray"

	// Completion toast shown after a habit is marked done
	CompletionToast = "Great job! Keep it up!"

	// Mentor fallbacks
	MentorEmptyFallback = "Consistency is the code to success!"
	MentorErrorFallback = "Consistency is key! You are doing great."
	DefaultMentorModel  = "gemini-2.5-flash-preview-09-2025"
	DefaultMentorURL    = "https://generativelanguage.googleapis.com/v1beta/models"

	// sqlite backups kept in <config dir>/backups
	MaxBackups = 14

	// Postgres LISTEN/NOTIFY channel used to fan out committed writes
	ChangeChannel = "restreak_changes"

	// AMQP
	EventsExchange = "restreak.events"
)

// Session States
const (
	StateDashboard SessionState = iota
	StateCalendar
	StateRewards
	StateProfile
	StateAddHabit
	StateConfirmDelete
	StateMentor
)
