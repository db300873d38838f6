package searchjobs

import "time"

const maxSearchSize = 100

type Config struct {
	Timeout    time.Duration
	Index      string
	MaxResults int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:    30 * time.Second,
		Index:      "jobs",
		MaxResults: 50,
	}
}
