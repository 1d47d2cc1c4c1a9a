package config

import "os"

type Config struct {
	Port       string
	Env        string
	MongoURI   string
	MongoDB    string
	PolicyPath string
	Locale     string
	NotifySink string // "dbus" or "log"
	IdleSource string // "dbus" or "none"
}

func Load() *Config {
	return &Config{
		Port:       getEnv("PORT", "3000"),
		Env:        getEnv("ENV", "development"),
		MongoURI:   getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDB:    getEnv("MONGODB_DATABASE", "timeflow"),
		PolicyPath: getEnv("POLICY_FILE", ""),
		Locale:     getEnv("LOCALE", "en"),
		NotifySink: getEnv("NOTIFY_SINK", "log"),
		IdleSource: getEnv("IDLE_SOURCE", "none"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
