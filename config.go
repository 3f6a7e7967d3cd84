package pageuser

import (
	"bytes"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"

	"github.com/BouoniManar/Exportation-Template/export"
)

// Config holds all configuration for a pageuser backend.
type Config struct {
	Addr         string `yaml:"addr"`          // listen address (default ":8000")
	DatabasePath string `yaml:"database_path"` // SQLite path (default "data/pageuser.db")

	SessionSecret string `yaml:"session_secret"` // required: session encryption secret
	CookieSecure  bool   `yaml:"cookie_secure"`  // set true behind HTTPS

	ProjectRoot string `yaml:"project_root"` // root under which user_uploads/ lives
	UploadDir   string `yaml:"upload_dir"`   // upload subdir under ProjectRoot (default "user_uploads")

	Export export.Config `yaml:"export"`
	SMTP   SMTPConfig    `yaml:"smtp"`
}

// SMTPConfig configures outgoing mail for password-reset codes. Leaving
// Host empty disables mail delivery.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = ":8000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/pageuser.db"
	}
	if c.ProjectRoot == "" {
		c.ProjectRoot = "."
	}
	if c.UploadDir == "" {
		c.UploadDir = "user_uploads"
	}
	if c.Export.TemplateRoot == "" {
		c.Export.TemplateRoot = "templates"
	}
	if c.Export.CSSPath == "" {
		c.Export.CSSPath = "templates/style.css"
	}
	if c.Export.OutputDir == "" {
		c.Export.OutputDir = "data/generated_zips"
	}
	if c.Export.ProjectRoot == "" {
		c.Export.ProjectRoot = c.ProjectRoot
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
}

// LoadConfig reads the YAML configuration at path. If the file does not
// exist, a default config is written there (atomically, so a crash cannot
// leave a half-written file) and returned.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	cfg.setDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("pageuser: read config: %w", err)
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return Config{}, fmt.Errorf("pageuser: marshal default config: %w", err)
		}
		if err := atomic.WriteFile(path, bytes.NewReader(out)); err != nil {
			// The server can still run on defaults.
			fmt.Fprintf(os.Stderr, "warning: failed to write default config file: %v\n", err)
		}
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("pageuser: parse config %s: %w", path, err)
	}
	cfg.setDefaults()
	return cfg, nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance
// before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}
