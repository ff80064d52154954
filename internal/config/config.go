package config

import "os"

// Config is built once at process start and passed explicitly to the
// components that need it.
type Config struct {
	Port            string
	AIServiceURL    string
	JobsDatabaseURL string
	ChromePath      string
	PagePolicy      string
}

func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "3000"),
		AIServiceURL:    getEnv("AI_SERVICE_URL", "http://ai-service:8000"),
		JobsDatabaseURL: getEnv("JOBS_DATABASE_URL", ""),
		ChromePath:      getEnv("CHROME_PATH", ""),
		PagePolicy:      getEnv("PAGE_POLICY", "truncate"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
