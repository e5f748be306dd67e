package config

// Config holds the application configuration.
type Config struct {
	Library  Library  `yaml:"library"`
	Auth     Auth     `yaml:"auth"`
	Scanner  Scanner  `yaml:"scanner"`
	Database Database `yaml:"database" validate:"required"`
	Logger   Logger   `yaml:"logger"`
	Server   Server   `yaml:"server"`
	Telegram Telegram `yaml:"telegram"`
	Metrics  Metrics  `yaml:"metrics"`
}

// Library holds query-engine settings.
type Library struct {
	// ReleaseMatch selects how release-name filters compare:
	// "exact" or "prefix".
	ReleaseMatch string `yaml:"release_match" validate:"omitempty,oneof=exact prefix"`
	// PageSize is the default page size for track listings.
	PageSize int `yaml:"page_size" validate:"omitempty,min=1"`
}

// Auth holds credential and session settings.
type Auth struct {
	BcryptCost           int      `yaml:"bcrypt_cost" validate:"omitempty,min=4,max=31"`
	MaxAttempts          int      `yaml:"max_attempts"`
	LockoutWindowSeconds int      `yaml:"lockout_window_seconds"`
	TokenValidityDays    int      `yaml:"token_validity_days"`
	SessionValidityHours int      `yaml:"session_validity_hours"`
	Strength             Strength `yaml:"strength"`
}

// Strength is the minimum password length per number of character
// classes (lowercase, uppercase, digit, symbol) the password uses.
type Strength struct {
	OneClass   int `yaml:"one_class"`
	TwoClass   int `yaml:"two_class"`
	ThreeClass int `yaml:"three_class"`
	FourClass  int `yaml:"four_class"`
}

// Scanner holds update-coordinator settings.
type Scanner struct {
	// PollIntervalSeconds is how often the coordinator checks for a
	// requested manual scan.
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
	// WatchFilesystem requests a rescan when watched directories change.
	WatchFilesystem bool `yaml:"watch_filesystem"`
	// DebounceSeconds coalesces bursts of filesystem events.
	DebounceSeconds int `yaml:"debounce_seconds"`
	// BatchSize is the number of writes grouped per transaction.
	BatchSize int `yaml:"batch_size" validate:"omitempty,min=1"`
}

// Database holds the configuration for the database.
type Database struct {
	Path string `yaml:"path" validate:"required"`
}

// Server holds the configuration for the Fiber server.
type Server struct {
	PrintRoutes bool   `yaml:"show_routes"`
	Port        uint32 `yaml:"port"`
}

// Logger holds the configuration for the app logging.
type Logger struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
}

type Telegram struct {
	Enabled      bool     `yaml:"enabled"`
	Token        string   `yaml:"token"`
	AllowedUsers []string `yaml:"allowedUsers"`
	BotHandle    string   `yaml:"bot_handle"`
}

// Metrics toggles the Prometheus endpoint.
type Metrics struct {
	Enabled bool `yaml:"enabled"`
}
