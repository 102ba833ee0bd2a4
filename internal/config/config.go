// Package config loads the YAML configuration of the administration tool.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Storage struct {
		// Backend selects the record store: "csv" (one comma-delimited
		// file per collection) or "sqlite".
		Backend string `yaml:"backend"`
		DataDir string `yaml:"data_dir"`
		DBPath  string `yaml:"db_path"`
	} `yaml:"storage"`

	Scheduling struct {
		// RejectPastDates refuses booking dates before today. Off by
		// default: the record files historically accept past dates.
		RejectPastDates bool    `yaml:"reject_past_dates"`
		ConsultationFee float64 `yaml:"consultation_fee"`
	} `yaml:"scheduling"`

	Login struct {
		// AttemptsPerMinute caps login attempts across the session.
		AttemptsPerMinute int `yaml:"attempts_per_minute"`
	} `yaml:"login"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Report struct {
		Dir string `yaml:"dir"`
	} `yaml:"report"`
}

// Load reads the config at path, falling back to defaults when the file is
// absent. ${ENV_VAR} placeholders are expanded.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	var cfg Config
	data, err := os.ReadFile(path)
	if err == nil {
		// Support ${ENV_VAR} placeholders in YAML config.
		data = []byte(os.ExpandEnv(string(data)))
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "csv"
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = filepath.Join(cfg.Storage.DataDir, "hospadmin.db")
	}
	if cfg.Scheduling.ConsultationFee <= 0 {
		cfg.Scheduling.ConsultationFee = 50
	}
	if cfg.Login.AttemptsPerMinute <= 0 {
		cfg.Login.AttemptsPerMinute = 10
	}
	if cfg.Backup.IntervalHours <= 0 {
		cfg.Backup.IntervalHours = 24
	}
	if cfg.Backup.Path == "" {
		cfg.Backup.Path = "backups"
	}
	if cfg.Backup.RetentionDays <= 0 {
		cfg.Backup.RetentionDays = 14
	}
	if cfg.Monitoring.PrometheusPort == 0 {
		cfg.Monitoring.PrometheusPort = 9090
	}
	if cfg.Report.Dir == "" {
		cfg.Report.Dir = "reports"
	}

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}
