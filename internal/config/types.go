package config

// Config represents the complete livegate configuration.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	State   StateConfig   `yaml:"state"`
	WebSub  WebSubConfig  `yaml:"websub"`
	YouTube YouTubeConfig `yaml:"youtube"`
	Notify  NotifyConfig  `yaml:"notify"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name        string `yaml:"name"`
	Listen      string `yaml:"listen"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	MaxBodySize string `yaml:"max_body_size,omitempty"`
}

// StateConfig defines durable storage settings.
type StateConfig struct {
	Path string `yaml:"path"`
}

// WebSubConfig defines hub subscription settings.
type WebSubConfig struct {
	// HubURL is the publish/subscribe hub's subscription endpoint.
	HubURL string `yaml:"hub_url"`

	// CallbackURL is the publicly reachable URL of the /notify endpoint.
	CallbackURL string `yaml:"callback_url"`

	// LeaseSeconds is the subscription lease requested from the hub.
	LeaseSeconds int `yaml:"lease_seconds"`

	// SecretLength is the HMAC secret length in bytes before hex encoding.
	SecretLength int `yaml:"secret_length"`

	// RenewSchedule is a cron expression controlling subscription renewal.
	RenewSchedule string `yaml:"renew_schedule"`
}

// YouTubeConfig defines the monitored channel and Data API access.
type YouTubeConfig struct {
	ChannelID string `yaml:"channel_id"`
	APIKey    string `yaml:"api_key"`
}

// NotifyConfig defines the downstream notification channel.
type NotifyConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	Token      string `yaml:"token,omitempty"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:        "livegate",
			Listen:      "127.0.0.1:8080",
			LogLevel:    "info",
			LogFormat:   "json",
			MaxBodySize: "1MB",
		},
		State: StateConfig{
			Path: "./data/livegate.db",
		},
		WebSub: WebSubConfig{
			HubURL:        "https://pubsubhubbub.appspot.com/subscribe",
			LeaseSeconds:  828000,
			SecretLength:  32,
			RenewSchedule: "0 3 * * *",
		},
	}
}
