package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type Config struct {
	DBPath string `json:"db_path"`
	Addr   string `json:"addr"`

	// Model endpoint settings. The API key is read from the environment
	// only and never written back to the config file.
	OpenAIBaseURL string `json:"openai_base_url"`
	Model         string `json:"model"`
	OpenAIAPIKey  string `json:"-"`
}

func Default() Config {
	return Config{
		Addr:          ":8080",
		OpenAIBaseURL: "https://api.openai.com/v1/chat/completions",
		Model:         "gpt-3.5-turbo",
	}
}

func DefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "taskmind", "config.json"), nil
}

func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

func Load(path string) (Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return applyEnv(config), nil
		}
		return Config{}, err
	}

	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return applyEnv(config), nil
}

func Save(path string, cfg Config) error {
	if err := EnsureDir(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

func applyEnv(cfg Config) Config {
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	if v := os.Getenv("TASKMIND_OPENAI_BASE_URL"); v != "" {
		cfg.OpenAIBaseURL = v
	}
	if v := os.Getenv("TASKMIND_MODEL"); v != "" {
		cfg.Model = v
	}
	return cfg
}
