package sendjobalert

import "time"

type Config struct {
	Timeout    time.Duration
	MaxJobs    int
	SMSEnabled bool
	// SiteURL prefixes job links that have no external URL.
	SiteURL string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:    30 * time.Second,
		MaxJobs:    10,
		SMSEnabled: false,
		SiteURL:    "https://iopps.ca",
	}
}
