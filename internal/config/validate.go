package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// DefaultMaxBodySize caps inbound webhook bodies when unconfigured.
const DefaultMaxBodySize = 1048576 // 1 MB

func validate(cfg *Config) error {
	if cfg.Service.Listen == "" {
		return fmt.Errorf("service.listen is required")
	}
	if _, err := ParseMaxBodySize(cfg.Service.MaxBodySize); err != nil {
		return fmt.Errorf("service.max_body_size: %w", err)
	}

	if cfg.State.Path == "" {
		return fmt.Errorf("state.path is required")
	}

	if err := validateURL("websub.hub_url", cfg.WebSub.HubURL); err != nil {
		return err
	}
	if err := validateURL("websub.callback_url", cfg.WebSub.CallbackURL); err != nil {
		return err
	}
	if cfg.WebSub.LeaseSeconds <= 0 {
		return fmt.Errorf("websub.lease_seconds must be positive")
	}
	if cfg.WebSub.SecretLength < 16 {
		return fmt.Errorf("websub.secret_length must be at least 16 bytes")
	}
	if cfg.WebSub.RenewSchedule == "" {
		return fmt.Errorf("websub.renew_schedule is required")
	}

	if cfg.YouTube.ChannelID == "" {
		return fmt.Errorf("youtube.channel_id is required")
	}
	if cfg.YouTube.APIKey == "" {
		return fmt.Errorf("youtube.api_key is required (check environment expansion)")
	}

	if err := validateURL("notify.webhook_url", cfg.Notify.WebhookURL); err != nil {
		return err
	}

	return nil
}

func validateURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s is not a valid URL: %q", field, raw)
	}
	return nil
}

// ParseMaxBodySize parses size strings like "1MB", "512KB", "2048576" to bytes.
// Returns DefaultMaxBodySize if empty.
func ParseMaxBodySize(size string) (int64, error) {
	if size == "" {
		return DefaultMaxBodySize, nil
	}

	upper := strings.ToUpper(size)
	multiplier := int64(1)

	if strings.HasSuffix(upper, "KB") {
		multiplier = 1024
		size = strings.TrimSuffix(upper, "KB")
	} else if strings.HasSuffix(upper, "MB") {
		multiplier = 1024 * 1024
		size = strings.TrimSuffix(upper, "MB")
	} else if strings.HasSuffix(upper, "GB") {
		multiplier = 1024 * 1024 * 1024
		size = strings.TrimSuffix(upper, "GB")
	}

	value, err := strconv.ParseInt(strings.TrimSpace(size), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value: %w", err)
	}

	if value <= 0 {
		return 0, fmt.Errorf("size must be positive")
	}

	result := value * multiplier
	if result < 0 { // Check for overflow
		return 0, fmt.Errorf("size too large")
	}

	return result, nil
}
