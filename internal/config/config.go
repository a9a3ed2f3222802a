// Package config loads the voice agent settings from defaults, an optional YAML
// file, a .env file and the environment. Command-line flags are applied on top by
// the caller.
package config

import (
	"net/url"
	"os"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBackendURL  = "http://localhost:8000"
	DefaultRoom        = "voice-room"
	DefaultIdentity    = "web-user"
	DefaultLogLevel    = "info"
	DefaultLogFile     = "voiceagent.log"
	DefaultAudioOutput = "speaker"
)

// Environment variables read by Load
const (
	EnvBackendURL       = "VOICE_AGENT_BACKEND_URL"
	EnvBackendURLLegacy = "BACKEND_URL"
	EnvRoom             = "VOICE_AGENT_ROOM"
	EnvIdentity         = "VOICE_AGENT_IDENTITY"
	EnvSystemPrompt     = "VOICE_AGENT_SYSTEM_PROMPT"
)

var ErrInvalidBackendURL = errors.New("backend_url must be an absolute http or https URL")

type Config struct {
	BackendURL   string `yaml:"backend_url"`
	Room         string `yaml:"room"`
	Identity     string `yaml:"identity"`
	SystemPrompt string `yaml:"system_prompt"`
	LogLevel     string `yaml:"log_level"`
	LogFile      string `yaml:"log_file"`
	// AudioOutput is "speaker", "discard" or a file path for raw PCM
	AudioOutput string `yaml:"audio_output"`
	// MetricsAddr enables the metrics exporter when set
	MetricsAddr string `yaml:"metrics_addr"`
}

func Default() Config {
	return Config{
		BackendURL:  DefaultBackendURL,
		Room:        DefaultRoom,
		Identity:    DefaultIdentity,
		LogLevel:    DefaultLogLevel,
		LogFile:     DefaultLogFile,
		AudioOutput: DefaultAudioOutput,
	}
}

// Load builds a Config. path names an optional YAML file; envFiles default to
// ".env". Missing env files are ignored, a missing YAML file is an error.
// Variables already set in the environment win over env files.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parse config %s", path)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return cfg, errors.Wrapf(err, "load %s", f)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvBackendURL); v != "" {
		c.BackendURL = v
	} else if v := os.Getenv(EnvBackendURLLegacy); v != "" {
		c.BackendURL = v
	}
	if v := os.Getenv(EnvRoom); v != "" {
		c.Room = v
	}
	if v := os.Getenv(EnvIdentity); v != "" {
		c.Identity = v
	}
	if v := os.Getenv(EnvSystemPrompt); v != "" {
		c.SystemPrompt = v
	}
}

func (c Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil {
		return errors.Wrap(ErrInvalidBackendURL, err.Error())
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Wrapf(ErrInvalidBackendURL, "got %q", c.BackendURL)
	}
	return nil
}
