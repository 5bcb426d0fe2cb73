package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ErrInvalid marks configuration that loaded but cannot be used.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all configuration for apexcat
type Config struct {
	Source SourceConfig `mapstructure:"source"`
	Target TargetConfig `mapstructure:"target"`
	Filter FilterConfig `mapstructure:"filter"`
	Output OutputConfig `mapstructure:"output"`
	Copy   CopyConfig   `mapstructure:"copy"`
	Report ReportConfig `mapstructure:"report"`
}

// SourceConfig locates the metadata tree to read from. When Repo is set the
// tree is cloned into the cache and Dir is ignored.
type SourceConfig struct {
	Dir  string `mapstructure:"dir"`
	Repo string `mapstructure:"repo"`
	Ref  string `mapstructure:"ref"`
}

// TargetConfig locates the published tree.
type TargetConfig struct {
	Dir string `mapstructure:"dir"`
}

// FilterConfig selects the keep predicate.
type FilterConfig struct {
	LicenseSentinel string `mapstructure:"license_sentinel"`
	Policy          string `mapstructure:"policy"` // .rego or .yaml file
}

// OutputConfig controls how documents are written
type OutputConfig struct {
	Title  string `mapstructure:"title"`
	Indent string `mapstructure:"indent"`
}

// CopyConfig holds theme subtree copy options
type CopyConfig struct {
	Skip []string `mapstructure:"skip"`
}

// ReportConfig enables the markdown run report.
type ReportConfig struct {
	Path string `mapstructure:"path"`
}

var defaultConfig = Config{
	Source: SourceConfig{
		Dir: "open-science-catalog-metadata",
		Ref: "main",
	},
	Target: TargetConfig{
		Dir: "catalog",
	},
	Filter: FilterConfig{
		LicenseSentinel: "proprietary",
	},
	Output: OutputConfig{
		Title:  "APEx Documentation Repository",
		Indent: "  ",
	},
	Copy: CopyConfig{
		Skip: []string{},
	},
}

// Default returns a copy of the built-in configuration.
func Default() Config {
	c := defaultConfig
	c.Copy.Skip = append([]string{}, defaultConfig.Copy.Skip...)
	return c
}

// LoadOptions controls where LoadConfig looks besides the defaults.
type LoadOptions struct {
	// ConfigFile, when set, is read instead of searching for apexcat.yaml.
	ConfigFile string
	// Flags are bound on top of file and environment values.
	Flags *pflag.FlagSet
	// FlagKeys maps config keys to flag names in Flags.
	FlagKeys map[string]string
}

// LoadConfig loads configuration from defaults, the config file, APEXCAT_*
// environment variables and bound flags, in increasing precedence.
func LoadConfig(opts LoadOptions) (*Config, error) {
	v := viper.New()

	v.SetDefault("source.dir", defaultConfig.Source.Dir)
	v.SetDefault("source.repo", defaultConfig.Source.Repo)
	v.SetDefault("source.ref", defaultConfig.Source.Ref)
	v.SetDefault("target.dir", defaultConfig.Target.Dir)
	v.SetDefault("filter.license_sentinel", defaultConfig.Filter.LicenseSentinel)
	v.SetDefault("filter.policy", defaultConfig.Filter.Policy)
	v.SetDefault("output.title", defaultConfig.Output.Title)
	v.SetDefault("output.indent", defaultConfig.Output.Indent)
	v.SetDefault("copy.skip", defaultConfig.Copy.Skip)
	v.SetDefault("report.path", defaultConfig.Report.Path)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("apexcat")
		v.AddConfigPath(".")     // Current directory
		v.AddConfigPath("$HOME") // Home directory
		if configDir, err := GetConfigDir(); err == nil {
			v.AddConfigPath(configDir)
		}
	}

	v.SetEnvPrefix("APEXCAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// An explicit file must exist; the search is optional.
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}

	if opts.Flags != nil {
		for key, name := range opts.FlagKeys {
			flag := opts.Flags.Lookup(name)
			if flag == nil {
				return nil, fmt.Errorf("%w: unknown flag %q for key %s", ErrInvalid, name, key)
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("%w: error unmarshaling config: %w", ErrInvalid, err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate reports settings the build cannot run with.
func (c *Config) Validate() error {
	if c.Source.Dir == "" && c.Source.Repo == "" {
		return fmt.Errorf("%w: source.dir or source.repo is required", ErrInvalid)
	}
	if c.Target.Dir == "" {
		return fmt.Errorf("%w: target.dir is required", ErrInvalid)
	}
	if strings.Trim(c.Output.Indent, " \t") != "" {
		return fmt.Errorf("%w: output.indent must contain only spaces and tabs", ErrInvalid)
	}
	for _, p := range c.Copy.Skip {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("%w: invalid copy.skip pattern %q", ErrInvalid, p)
		}
	}
	if c.Filter.Policy != "" {
		switch strings.ToLower(filepath.Ext(c.Filter.Policy)) {
		case ".rego", ".yaml", ".yml":
		default:
			return fmt.Errorf("%w: filter.policy must be a .rego, .yaml or .yml file", ErrInvalid)
		}
	}
	return nil
}

// GetHome returns the apexcat home directory
func GetHome() (string, error) {
	// Check environment variable first
	if home := os.Getenv("APEXCAT_HOME"); home != "" {
		return home, nil
	}

	// Use standard dev tool convention: ~/.apexcat
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".apexcat"), nil
}

// EnsureHome creates the apexcat home directory if it doesn't exist
func EnsureHome() (string, error) {
	homeDir, err := GetHome()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(homeDir, 0750); err != nil {
		return "", fmt.Errorf("failed to create apexcat home directory: %w", err)
	}

	return homeDir, nil
}

// GetCacheDir returns the cache directory
func GetCacheDir() (string, error) {
	return homeSubdir("cache")
}

// GetConfigDir returns the config directory
func GetConfigDir() (string, error) {
	return homeSubdir("config")
}

func homeSubdir(name string) (string, error) {
	homeDir, err := EnsureHome()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(homeDir, name)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", name, err)
	}
	return dir, nil
}
