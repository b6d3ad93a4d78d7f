// Package config loads skillgate settings from flags, SKILLGATE_* environment
// variables and an optional skillgate.yaml.
package config

import (
	"os"
	"strings"

	"github.com/jingkaihe/skillgate/pkg/cache"
	"github.com/jingkaihe/skillgate/pkg/classifier"
	"github.com/jingkaihe/skillgate/pkg/ignore"
	"github.com/jingkaihe/skillgate/pkg/skills"
	"github.com/jingkaihe/skillgate/pkg/telemetry"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment override, e.g. SKILLGATE_CLASSIFIER_BACKEND.
	EnvPrefix = "SKILLGATE"
	// FileName is the config file name searched for without extension.
	FileName = "skillgate"
)

// Config is the complete runtime configuration.
type Config struct {
	SkillsDir       string `mapstructure:"skills_dir"`
	Pattern         string `mapstructure:"pattern"`
	IgnoreFile      string `mapstructure:"ignore_file"`
	SuppressIgnored bool   `mapstructure:"suppress_ignored"`
	ReportFile      string `mapstructure:"report_file"`
	LogLevel        string `mapstructure:"log_level"`
	LogFormat       string `mapstructure:"log_format"`

	Cache      cache.Config      `mapstructure:"cache"`
	Classifier classifier.Config `mapstructure:"classifier"`
	Tracing    telemetry.Config  `mapstructure:"tracing"`

	// Profile names an entry of Profiles applied on top of the base settings.
	Profile  string                    `mapstructure:"profile"`
	Profiles map[string]map[string]any `mapstructure:"profiles"`
}

// apiKeyEnv lists the conventional provider variables consulted when no
// key is configured.
var apiKeyEnv = map[string][]string{
	classifier.BackendOpenAI:    {"OPENAI_API_KEY"},
	classifier.BackendAnthropic: {"ANTHROPIC_API_KEY"},
	classifier.BackendGoogle:    {"GOOGLE_API_KEY", "GEMINI_API_KEY"},
}

// Init prepares v: environment binding, defaults and config file lookup.
// A missing config file is not an error.
func Init(v *viper.Viper, configFile string) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.skillgate")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errors.Wrap(err, "failed to read config file")
	}

	return nil
}

// SetDefaults registers every key so environment overrides apply to it.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("skills_dir", skills.DefaultDir)
	v.SetDefault("pattern", skills.DefaultPattern)
	v.SetDefault("ignore_file", ignore.DefaultPath)
	v.SetDefault("suppress_ignored", false)
	v.SetDefault("report_file", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "fmt")

	v.SetDefault("cache.backend", cache.BackendJSON)
	v.SetDefault("cache.path", "")

	v.SetDefault("classifier.backend", classifier.BackendOpenAI)
	v.SetDefault("classifier.model", "")
	v.SetDefault("classifier.api_key", "")
	v.SetDefault("classifier.base_url", "")
	v.SetDefault("classifier.max_tokens", 0)
	v.SetDefault("classifier.command", "")
	v.SetDefault("classifier.timeout", classifier.DefaultTimeout)
	v.SetDefault("classifier.retry.attempts", classifier.DefaultRetryConfig.Attempts)
	v.SetDefault("classifier.retry.initial_delay", classifier.DefaultRetryConfig.InitialDelay)
	v.SetDefault("classifier.retry.max_delay", classifier.DefaultRetryConfig.MaxDelay)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.sampler", "ratio")
	v.SetDefault("tracing.ratio", 1.0)

	v.SetDefault("profile", "")
}

// FromViper decodes v into a Config, applies the active profile and fills
// the classifier API key from the provider environment when unset.
func FromViper(v *viper.Viper) (Config, error) {
	return fromViper(v, os.Getenv)
}

func fromViper(v *viper.Viper, getenv func(string) string) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, errors.Wrap(err, "failed to unmarshal configuration")
	}

	if cfg.Profile != "" {
		profile, ok := cfg.Profiles[cfg.Profile]
		if !ok {
			return cfg, errors.Errorf("profile %q is not defined", cfg.Profile)
		}
		if err := applyProfile(&cfg, profile); err != nil {
			return cfg, err
		}
	}

	if cfg.Classifier.APIKey == "" {
		for _, name := range apiKeyEnv[backendOrDefault(cfg.Classifier.Backend)] {
			if key := getenv(name); key != "" {
				cfg.Classifier.APIKey = key
				break
			}
		}
	}

	return cfg, cfg.Validate()
}

func applyProfile(cfg *Config, profile map[string]any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ZeroFields:       false,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return errors.Wrap(err, "failed to create profile decoder")
	}

	if err := decoder.Decode(profile); err != nil {
		return errors.Wrapf(err, "failed to apply profile %q", cfg.Profile)
	}

	return nil
}

// Validate rejects settings that cannot produce a working scan.
func (c Config) Validate() error {
	if c.SkillsDir == "" {
		return errors.New("skills_dir must not be empty")
	}
	if c.Pattern == "" {
		return errors.New("pattern must not be empty")
	}

	switch c.Cache.Backend {
	case "", cache.BackendJSON, cache.BackendSQLite:
	default:
		return errors.Errorf("unknown cache backend %q (want %s or %s)", c.Cache.Backend, cache.BackendJSON, cache.BackendSQLite)
	}

	switch backendOrDefault(c.Classifier.Backend) {
	case classifier.BackendOpenAI, classifier.BackendAnthropic, classifier.BackendGoogle, classifier.BackendProcess:
	default:
		return errors.Errorf("unknown classifier backend %q", c.Classifier.Backend)
	}

	if c.Classifier.Timeout < 0 {
		return errors.Errorf("classifier.timeout must not be negative, got %s", c.Classifier.Timeout)
	}
	if c.Classifier.Retry.Attempts < 0 {
		return errors.Errorf("classifier.retry.attempts must not be negative, got %d", c.Classifier.Retry.Attempts)
	}
	if c.Tracing.Ratio < 0 || c.Tracing.Ratio > 1 {
		return errors.Errorf("tracing.ratio must be within [0, 1], got %v", c.Tracing.Ratio)
	}

	return nil
}

func backendOrDefault(backend string) string {
	if backend == "" {
		return classifier.BackendOpenAI
	}
	return backend
}
