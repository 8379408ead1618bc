package constants

import "time"

// SessionState represents the current state of the TUI application
type SessionState int

const (
	AppName            = "tripkit"
	DefaultKeyringUser = "api-config"
	DefaultConfigDir   = "~/.config/tripkit"
	DefaultStorePath   = "~/.config/tripkit/tripkit.db"
	ConfigFileName     = "config.json"
	Version            = "v0.3.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// Local store keys
	KeyTravelPlans   = "travel-plans"
	KeyCurrentPlanID = "travel-current-plan-id"
	KeyPendingDraft  = "pending-plan-draft"
	KeyUsers         = "auth-users"
	KeySession       = "auth-session"
	KeySessionSecret = "auth-session-secret"

	// Redis key namespace
	RedisKeyPrefix = "tripkit:"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "tripkit-"
	BackupFileSuffix = ".db"

	// Mirror queue defaults
	MirrorQueueCapacity = 64
	MirrorTaskTimeout   = 15 * time.Second

	// Remote defaults
	RemoteRequestTimeout = 20 * time.Second

	// Auth
	SessionTTL   = 7 * 24 * time.Hour
	DemoEmail    = "demo@example.com"
	DemoPassword = "demo123"
	DemoName     = "Demo User"
	MinPassword  = 6

	// Language model defaults
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "gpt-3.5-turbo"
)

// Session States
const (
	StatePlans SessionState = iota
	StateDetail
	StateExpenses
	StateStats
	StateConfirmDelete
)
