package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Project settings
	ProjectPath string `yaml:"project_path"`
	TestPath    string `yaml:"test_path"`

	// Discovery settings
	Prefix string `yaml:"prefix"`

	// Execution settings
	ReturnOnError bool `yaml:"return_on_error"`

	// Output settings
	OutputJSONFile string `yaml:"output_json_file"`
	OutputJSONDir  string `yaml:"output_json_dir"`
	Store          string `yaml:"store"`
	MetricsFile    string `yaml:"metrics_file"`

	// Database settings for the mysql store
	Database Database `yaml:"database"`

	// Paths to ignore when walking namespaces
	PathsToIgnore []string `yaml:"paths_to_ignore"`

	// Command flags
	Flags Flags `yaml:"-"`
}

// Database holds connection settings for the SQL result store
type Database struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// Flags holds command-line flags
type Flags struct {
	TestPath      string
	NameFilter    string
	Prefix        string
	ReturnOnError bool
	OnlyFailed    bool
	Progress      bool
	OpenFaills    bool
	MetricsFile   string
	Store         string
	Verbose       bool
	Warnings      bool
}

// New creates a new Config with defaults
func New() *Config {
	cfg := &Config{
		ProjectPath:    DefaultProjectPath,
		TestPath:       DefaultTestPath,
		Prefix:         DefaultPrefix,
		OutputJSONFile: DefaultOutputJSONFile,
		OutputJSONDir:  DefaultOutputJSONDir,
		Store:          DefaultStore,
		Database: Database{
			Host: "127.0.0.1",
			Port: "3306",
			User: "root",
			Name: "ctr",
		},
	}
	// Copy default paths to ignore
	cfg.PathsToIgnore = make([]string, len(DefaultPathsToIgnore))
	copy(cfg.PathsToIgnore, DefaultPathsToIgnore)
	return cfg
}

// LoadEnv reads the project's .env file (if any) and applies CTR_* and DB_*
// variables on top of the current values.
func (c *Config) LoadEnv() {
	envPath := filepath.Join(c.ProjectPath, ".env")
	if err := godotenv.Load(envPath); err != nil {
		// .env file might not exist, that's okay - use environment variables
		_ = err
	}

	if v := os.Getenv("CTR_PREFIX"); v != "" {
		c.Prefix = v
	}
	if v := os.Getenv("CTR_STORE"); v != "" {
		c.Store = strings.ToLower(v)
	}
	if v := os.Getenv("CTR_RETURN_ON_ERROR"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.ReturnOnError = b
		}
	}
	if v := os.Getenv("CTR_METRICS_FILE"); v != "" {
		c.MetricsFile = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		c.Database.Port = v
	}
	if v := os.Getenv("DB_USERNAME"); v != "" {
		c.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("DB_DATABASE"); v != "" {
		c.Database.Name = v
	}
}

// ApplyFlags copies flag overrides into the config
func (c *Config) ApplyFlags(flags Flags) {
	c.Flags = flags
	if flags.Prefix != "" {
		c.Prefix = flags.Prefix
	}
	if flags.ReturnOnError {
		c.ReturnOnError = true
	}
	if flags.Store != "" {
		c.Store = strings.ToLower(flags.Store)
	}
	if flags.MetricsFile != "" {
		c.MetricsFile = flags.MetricsFile
	}
}

// Validate checks settings that would otherwise fail deep inside a run
func (c *Config) Validate() error {
	if c.Prefix == "" {
		return fmt.Errorf("test prefix must not be empty")
	}
	switch c.Store {
	case StoreJSON, StoreMySQL:
	default:
		return fmt.Errorf("unknown store %q (expected %s or %s)", c.Store, StoreJSON, StoreMySQL)
	}
	return nil
}

// GetTestPath returns the test path, using flag if provided
func (c *Config) GetTestPath() string {
	if c.Flags.TestPath != "" {
		// If TestPath is provided, make it relative to ProjectPath if it's not absolute
		if filepath.IsAbs(c.Flags.TestPath) {
			return c.Flags.TestPath
		}
		return filepath.Join(c.ProjectPath, c.Flags.TestPath)
	}

	// Default: combine project path and test path
	return filepath.Join(c.ProjectPath, c.TestPath)
}

// GetOutputPath returns the full path to the output JSON file.
// Resolves to an absolute path so run and faills always read/write the same file regardless of cwd.
func (c *Config) GetOutputPath() string {
	p := filepath.Join(c.ProjectPath, c.OutputJSONDir, c.OutputJSONFile)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// GetDSN returns the MySQL data source name for the result store
func (c *Config) GetDSN() string {
	db := c.Database
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", db.User, db.Password, db.Host, db.Port, db.Name)
}

// GetServerDSN returns the MySQL data source name without a database, used
// to create the result database on first use.
func (c *Config) GetServerDSN() string {
	db := c.Database
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/", db.User, db.Password, db.Host, db.Port)
}
