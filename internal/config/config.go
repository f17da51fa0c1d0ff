// Package config loads vault and user configuration via viper, following
// the same precedence order as a typical vault-local-tool config: a
// project-local config file wins over the user's config directory, and
// environment variables win over both.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// VaultFile is the sidecar config file written into every vault's
// .flint-note directory.
const VaultFile = "config.json"

// VaultConfig is the on-disk shape of .flint-note/config.json.
type VaultConfig struct {
	VaultPath string `json:"vault_path"`
	VaultName string `json:"vault_name"`
}

// ReadVaultConfig reads .flint-note/config.json from the vault root.
func ReadVaultConfig(vaultRoot string) (*VaultConfig, error) {
	data, err := os.ReadFile(filepath.Join(vaultRoot, ".flint-note", VaultFile))
	if err != nil {
		return nil, err
	}
	var vc VaultConfig
	if err := json.Unmarshal(data, &vc); err != nil {
		return nil, err
	}
	return &vc, nil
}

// WriteVaultConfig writes .flint-note/config.json, creating the
// .flint-note directory if needed.
func WriteVaultConfig(vaultRoot string, vc *VaultConfig) error {
	dir := filepath.Join(vaultRoot, ".flint-note")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(vc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, VaultFile), data, 0o644)
}

// SchedulerConfig mirrors the §6 scheduler config options.
type SchedulerConfig struct {
	SessionSize         int `mapstructure:"sessionSize"`
	SessionsPerWeek     int `mapstructure:"sessionsPerWeek"`
	MaxIntervalSessions int `mapstructure:"maxIntervalSessions"`
	MinIntervalDays     int `mapstructure:"minIntervalDays"`
}

// SuggestionConfig mirrors the §6 suggestion config options.
type SuggestionConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	PromptGuidance   string   `mapstructure:"prompt_guidance"`
	SuggestionTypes  []string `mapstructure:"suggestion_types"`
	MaxSuggestions   int      `mapstructure:"max_suggestions"`
}

// QueueConfig controls the write-coalescing timing from §4.4.
type QueueConfig struct {
	WriteDelay    time.Duration `mapstructure:"writeDelay"`
	ExpectedTTL   time.Duration `mapstructure:"expectedHashTTL"`
	RetryBackoffs []time.Duration
}

// Settings is the full set of tunables loaded by Load.
type Settings struct {
	Scheduler   SchedulerConfig
	Suggestion  SuggestionConfig
	Queue       QueueConfig
	DebugLogging bool
}

// Load builds a viper-backed settings object. Precedence, highest first:
// environment variables prefixed FLINT_, the vault-local
// .flint-note/config.yaml, the user config directory
// (~/.config/flint/config.yaml), then built-in defaults.
func Load(vaultRoot string) (*Settings, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	configFileSet := false
	if vaultRoot != "" {
		p := filepath.Join(vaultRoot, ".flint-note", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			v.SetConfigFile(p)
			configFileSet = true
		}
	}
	if !configFileSet {
		if dir, err := os.UserConfigDir(); err == nil {
			p := filepath.Join(dir, "flint", "config.yaml")
			if _, err := os.Stat(p); err == nil {
				v.SetConfigFile(p)
				configFileSet = true
			}
		}
	}

	v.SetEnvPrefix("FLINT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("scheduler.sessionSize", 5)
	v.SetDefault("scheduler.sessionsPerWeek", 7)
	v.SetDefault("scheduler.maxIntervalSessions", 15)
	v.SetDefault("scheduler.minIntervalDays", 1)

	v.SetDefault("suggestion.enabled", false)
	v.SetDefault("suggestion.prompt_guidance", "")
	v.SetDefault("suggestion.max_suggestions", 5)

	v.SetDefault("queue.writeDelay", "1s")
	v.SetDefault("queue.expectedHashTTL", "1s")

	v.SetDefault("debug", false)

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	s := &Settings{
		Scheduler: SchedulerConfig{
			SessionSize:         v.GetInt("scheduler.sessionSize"),
			SessionsPerWeek:     v.GetInt("scheduler.sessionsPerWeek"),
			MaxIntervalSessions: v.GetInt("scheduler.maxIntervalSessions"),
			MinIntervalDays:     v.GetInt("scheduler.minIntervalDays"),
		},
		Suggestion: SuggestionConfig{
			Enabled:         v.GetBool("suggestion.enabled"),
			PromptGuidance:  v.GetString("suggestion.prompt_guidance"),
			SuggestionTypes: v.GetStringSlice("suggestion.suggestion_types"),
			MaxSuggestions:  v.GetInt("suggestion.max_suggestions"),
		},
		Queue: QueueConfig{
			WriteDelay:    v.GetDuration("queue.writeDelay"),
			ExpectedTTL:   v.GetDuration("queue.expectedHashTTL"),
			RetryBackoffs: []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, 1000 * time.Millisecond},
		},
		DebugLogging: v.GetBool("debug"),
	}
	return s, nil
}
