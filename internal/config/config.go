// Package config loads medconsult settings from the environment and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultRecorderCommand captures the default PulseAudio source as Opus/WebM on stdout.
const DefaultRecorderCommand = "ffmpeg -hide_banner -loglevel error -f pulse -i default -c:a libopus -f webm pipe:1"

// Config holds all configuration values.
type Config struct {
	// Remote consultation service
	APIURL  string
	Timeout time.Duration

	// Session defaults
	DoctorLanguage  string
	PatientLanguage string
	DefaultRole     string

	// Audio capture
	RecorderCommand string

	// Summary generation
	SummaryRetries int

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// fileConfig mirrors Config for the YAML file. Empty values fall through to defaults.
type fileConfig struct {
	APIURL          string `yaml:"api_url"`
	Timeout         string `yaml:"timeout"`
	DoctorLanguage  string `yaml:"doctor_language"`
	PatientLanguage string `yaml:"patient_language"`
	DefaultRole     string `yaml:"default_role"`
	RecorderCommand string `yaml:"recorder_command"`
	SummaryRetries  *int   `yaml:"summary_retries"`
	LogFile         string `yaml:"log_file"`
	LogLevel        string `yaml:"log_level"`
}

// Load reads configuration with precedence env > config file > defaults.
// The config file is MEDCONSULT_CONFIG or ~/.config/medconsult/config.yaml;
// a missing file is not an error.
func Load() (Config, error) {
	path := os.Getenv("MEDCONSULT_CONFIG")
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".config", "medconsult", "config.yaml")
		}
	}

	var fc fileConfig
	if path != "" {
		loaded, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		fc = loaded
	}
	return fromSources(fc)
}

func readFile(path string) (fileConfig, error) {
	var fc fileConfig
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fc, nil
	}
	if err != nil {
		return fc, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc, nil
}

func fromSources(fc fileConfig) (Config, error) {
	timeout, err := time.ParseDuration(getEnv("MEDCONSULT_TIMEOUT", or(fc.Timeout, "60s")))
	if err != nil {
		return Config{}, fmt.Errorf("invalid timeout: %w", err)
	}

	retries := 3
	if fc.SummaryRetries != nil {
		retries = *fc.SummaryRetries
	}
	if v := os.Getenv("MEDCONSULT_SUMMARY_RETRIES"); v != "" {
		retries, err = strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MEDCONSULT_SUMMARY_RETRIES: %w", err)
		}
	}

	return Config{
		APIURL:  strings.TrimRight(getEnv("MEDCONSULT_API_URL", or(fc.APIURL, "http://localhost:8000")), "/"),
		Timeout: timeout,

		DoctorLanguage:  getEnv("MEDCONSULT_DOCTOR_LANGUAGE", or(fc.DoctorLanguage, "English")),
		PatientLanguage: getEnv("MEDCONSULT_PATIENT_LANGUAGE", or(fc.PatientLanguage, "Spanish")),
		DefaultRole:     getEnv("MEDCONSULT_ROLE", or(fc.DefaultRole, "doctor")),

		RecorderCommand: getEnv("MEDCONSULT_RECORDER", or(fc.RecorderCommand, DefaultRecorderCommand)),

		SummaryRetries: retries,

		LogFile:  getEnv("MEDCONSULT_LOG_FILE", or(fc.LogFile, "/tmp/medconsult.log")),
		LogLevel: parseLogLevel(getEnv("MEDCONSULT_LOG_LEVEL", or(fc.LogLevel, "INFO"))),
	}, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func or(val, fallback string) string {
	if val != "" {
		return val
	}
	return fallback
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
