package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// GetString is a helper to get string values from Viper.
// It checks both OS environment variables and Viper configuration.
func GetString(key string) string {
	osValue := os.Getenv(key)
	viperValue := viper.GetString(key)

	if viperValue == "" && osValue != "" {
		return osValue
	}
	return viperValue
}

// LLMAPIKey returns the key for the given model. An explicit key wins;
// otherwise the vendor variable matching the model family is consulted.
func LLMAPIKey(explicit, model string) string {
	if explicit != "" {
		return explicit
	}
	if strings.HasPrefix(strings.ToLower(model), "gemini") {
		if key := GetString("GEMINI_API_KEY"); key != "" {
			return key
		}
		return GetString("GOOGLE_API_KEY")
	}
	return GetString("OPENAI_API_KEY")
}
