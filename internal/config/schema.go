package config

// Config is the root configuration structure.
type Config struct {
	API      APIConfig      `toml:"api"`
	Playback PlaybackConfig `toml:"playback"`
	Storage  StorageConfig  `toml:"storage"`
	History  HistoryConfig  `toml:"history"`
	TUI      TUIConfig      `toml:"tui"`
	Log      LogConfig      `toml:"log"`
}

// APIConfig holds Cadence REST API settings.
type APIConfig struct {
	BaseURL      string `toml:"base_url"`
	MediaBaseURL string `toml:"media_base_url"`
	Timeout      int    `toml:"timeout"` // seconds
	Retries      int    `toml:"retries"`
	CallbackAddr string `toml:"callback_addr"`
	OAuthPath    string `toml:"oauth_path"`
}

// PlaybackConfig holds controller policy settings.
type PlaybackConfig struct {
	Volume           float64 `toml:"volume"`
	Shuffle          bool    `toml:"shuffle"`
	Repeat           string  `toml:"repeat"`
	LoadTimeout      int     `toml:"load_timeout"`      // seconds
	SkipSeconds      int     `toml:"skip_seconds"`      // seconds
	RestartThreshold int     `toml:"restart_threshold"` // seconds
	TickInterval     int     `toml:"tick_interval"`     // milliseconds
}

// StorageConfig selects where session and history state is persisted.
type StorageConfig struct {
	Backend    string `toml:"backend"`
	Dir        string `toml:"dir"`
	SQLitePath string `toml:"sqlite_path"`
	RedisAddr  string `toml:"redis_addr"`
	RedisDB    int    `toml:"redis_db"`
}

// HistoryConfig holds listening history settings.
type HistoryConfig struct {
	Limit int `toml:"limit"`
}

// TUIConfig holds terminal UI settings.
type TUIConfig struct {
	Theme           string `toml:"theme"`
	RefreshInterval int    `toml:"refresh_interval"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSize    int    `toml:"max_size"` // megabytes
	MaxBackups int    `toml:"max_backups"`
	MaxAge     int    `toml:"max_age"` // days
	Compress   bool   `toml:"compress"`
}
