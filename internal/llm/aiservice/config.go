package aiservice

import (
	"errors"
	"net/url"
	"os"
	"strings"
)

// holds settings for the Python AI microservice
type Config struct {
	BaseURL string
}

func NewConfig() (*Config, error) {
	base := strings.TrimRight(os.Getenv("AI_SERVICE_URL"), "/")
	if base == "" {
		base = "http://localhost:8000" // default local service
	}

	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.New("AI_SERVICE_URL must be an absolute http(s) URL")
	}

	return &Config{BaseURL: base}, nil
}
