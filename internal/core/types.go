package core

type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Notify    NotifyConfig    `json:"notify"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Radio     RadioConfig     `json:"radio"`
	Cache     CacheConfig     `json:"cache"`
}

type TelegramConfig struct {
	Token        string  `json:"token"`
	OwnerUserIDs []int64 `json:"owner_user_ids"`
	GroupLog     string  `json:"group_log"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}
type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}
type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ThreadID   int    `json:"thread_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

type NotifyConfig struct {
	RatePerSec int `json:"rate_per_sec"`
	QueueSize  int `json:"queue_size"`
	RetryMax   int `json:"retry_max,omitempty"`
}

type SchedulerConfig struct {
	Timezone string `json:"timezone,omitempty"` // IANA TZ, e.g. "Europe/Berlin"
}

// RadioConfig drives the broadcast engine. Durations are Go duration
// strings; VoteAt is a wall-clock "HH:MM".
type RadioConfig struct {
	ChatID   int64 `json:"chat_id"`
	ThreadID int   `json:"thread_id,omitempty"`

	Genre            string `json:"genre"` // initial genre
	DispatchInterval string `json:"dispatch_interval"`
	VoteAt           string `json:"vote_at"`
	VoteDuration     string `json:"vote_duration"`
	VoteCooldown     string `json:"vote_cooldown,omitempty"`

	VoteCandidates []string `json:"vote_candidates"`
	CatalogPath    string   `json:"catalog_path"`

	// MinDurationSec/MaxDurationSec bound acceptable track lengths
	// (0 disables the respective bound).
	MinDurationSec int `json:"min_duration_sec,omitempty"`
	MaxDurationSec int `json:"max_duration_sec,omitempty"`

	Sources SourcesConfig `json:"sources"`
	// SearchTimeout bounds each adapter call (default "10s").
	SearchTimeout string `json:"search_timeout,omitempty"`
}

type SourcesConfig struct {
	// Order is the adapter priority order, e.g. ["youtube","deezer","spotify"].
	Order   []string      `json:"order"`
	YouTube YouTubeConfig `json:"youtube"`
	Spotify SpotifyConfig `json:"spotify"`
}

type YouTubeConfig struct {
	APIKey string `json:"api_key"`
}

type SpotifyConfig struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type CacheConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
	// TTL is a Go duration string; rows older than this are evicted (default "168h").
	TTL string `json:"ttl,omitempty"`
}
