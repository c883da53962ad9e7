package env

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var Env map[string]string

func GetEnv(key, def string) string {
	// First check our loaded Env map
	if val, ok := Env[key]; ok {
		return val
	}
	// Fallback to OS environment variables (for Docker/tests)
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// GetEnvBool parses a boolean env value ("true", "1", ...), falling back to def.
func GetEnvBool(key string, def bool) bool {
	v, err := strconv.ParseBool(GetEnv(key, ""))
	if err != nil {
		return def
	}
	return v
}

// GetEnvInt parses an integer env value, falling back to def.
func GetEnvInt(key string, def int) int {
	v, err := strconv.Atoi(GetEnv(key, ""))
	if err != nil {
		return def
	}
	return v
}

// GetEnvDuration parses a duration env value ("15s", "2m"), falling back to def.
func GetEnvDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(GetEnv(key, ""))
	if err != nil {
		return def
	}
	return v
}

func SetupEnvFile() {
	// Look for .env file in project root
	envFiles := []string{
		".env",          // Current directory
		"../../.env",    // From cmd/payfox to project root
		"../../../.env", // Fallback for deeper nesting
	}

	var err error
	for _, envFile := range envFiles {
		Env, err = godotenv.Read(envFile)
		if err == nil {
			return
		}
	}

	// Containers usually inject plain environment variables instead of a file.
	Env = map[string]string{}
	log.Printf("No .env file found, using process environment only")
}

func IsDev() bool {
	return GetEnv("APP_ENV", "prod") == "dev"
}
