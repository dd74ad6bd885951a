package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoaderConfig holds optional file overrides for LoadConfig.
type LoaderConfig struct {
	ConfigFile string
	EnvFile    string
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// LoadConfig loads configuration for a service into the provided cfg struct.
// It searches for config.yml and .env files in standard locations, binds
// environment variables, and unmarshals the result into cfg.
func LoadConfig(serviceName string, cfg interface{}, opts ...LoaderOption) error {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}

	configFile := lc.ConfigFile
	if configFile == "" {
		configFile = findConfigFile(serviceName)
	}
	envFile := lc.EnvFile
	if envFile == "" {
		envFile = findEnvFile()
	}

	v := viper.New()

	// 1. Load YAML config first (base configuration)
	if configFile != "" && fileExists(configFile) {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			fmt.Printf("[config] warning: failed to load config file %s: %v\n", configFile, err)
		}
	}

	// 2. Enable automatic environment variable reading
	v.AutomaticEnv()
	autoBindEnvVars(v)

	// 3. Load .env file
	if envFile != "" && fileExists(envFile) {
		if err := godotenv.Load(envFile); err != nil {
			fmt.Printf("[config] warning: failed to load .env file %s: %v\n", envFile, err)
		} else {
			// Re-bind env vars after loading .env to pick up new variables
			autoBindEnvVars(v)
		}
	}

	// 4. Unmarshal into config struct
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config for service %s: %w", serviceName, err)
	}

	return nil
}

// findConfigFile searches for config.yml in standard locations.
func findConfigFile(serviceName string) string {
	searchPaths := []string{
		fmt.Sprintf("./cmd/%s/config.yml", serviceName),
		fmt.Sprintf("./cmd/%s/config.yaml", serviceName),
		"./config/config.yml",
		"./config.yml",
		"./config.yaml",
	}
	for _, path := range searchPaths {
		if fileExists(path) {
			return path
		}
	}
	return ""
}

// findEnvFile searches for a .env file in standard locations.
func findEnvFile() string {
	for _, path := range []string{"./.env", "../.env"} {
		if fileExists(path) {
			return path
		}
	}
	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// autoBindEnvVars automatically binds environment variables to Viper by
// converting UPPER_CASE_WITH_UNDERSCORES to possible nested key formats.
func autoBindEnvVars(v *viper.Viper) {
	for _, env := range os.Environ() {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 {
			continue
		}
		for _, variant := range generateEnvKeyVariants(pair[0]) {
			v.Set(variant, pair[1])
		}
	}
}

// generateEnvKeyVariants creates key variants for environment variable binding.
// Examples:
//
//	WHISPER_MODEL -> [whisper_model, whisper.model]
//	DIARIZATION_HUGGINGFACE_TOKEN -> [diarization_huggingface_token,
//	    diarization.huggingface.token, diarization.huggingface_token]
func generateEnvKeyVariants(envKey string) []string {
	lowerKey := strings.ToLower(envKey)
	parts := strings.Split(lowerKey, "_")
	if len(parts) == 1 {
		return []string{lowerKey}
	}

	variants := []string{lowerKey, strings.Join(parts, ".")}
	// section.rest_joined: first part is a section, remainder a flat key.
	if len(parts) > 2 {
		variants = append(variants, parts[0]+"."+strings.Join(parts[1:], "_"))
	}
	return variants
}
