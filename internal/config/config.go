package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ErrMissingField is returned by Validate when a required value is empty
var ErrMissingField = errors.New("missing required configuration")

// AppConfig holds the complete application configuration
type AppConfig struct {
	GitHub     GitHubConfig     `yaml:"github" mapstructure:"github"`
	Browser    BrowserConfig    `yaml:"browser" mapstructure:"browser"`
	Scheduler  SchedulerConfig  `yaml:"scheduler" mapstructure:"scheduler"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	Proxy      ProxyConfig      `yaml:"proxy" mapstructure:"proxy"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// GitHubConfig holds the search API configuration
type GitHubConfig struct {
	Token   string `yaml:"token" mapstructure:"token"`
	Owner   string `yaml:"owner" mapstructure:"owner"`
	Repo    string `yaml:"repo" mapstructure:"repo"`
	Author  string `yaml:"author" mapstructure:"author"`
	APIURL  string `yaml:"api_url" mapstructure:"api_url"`
	PerPage int    `yaml:"per_page" mapstructure:"per_page"`
}

// BrowserConfig holds the remote browser and page interaction settings
type BrowserConfig struct {
	Endpoint             string        `yaml:"endpoint" mapstructure:"endpoint"`
	NavigationTimeout    time.Duration `yaml:"navigation_timeout" mapstructure:"navigation_timeout"`
	ViewportWidth        int           `yaml:"viewport_width" mapstructure:"viewport_width"`
	ViewportHeight       int           `yaml:"viewport_height" mapstructure:"viewport_height"`
	LoadMoreSelector     string        `yaml:"load_more_selector" mapstructure:"load_more_selector"`
	ShowResolvedSelector string        `yaml:"show_resolved_selector" mapstructure:"show_resolved_selector"`
	MaxExpandIterations  int           `yaml:"max_expand_iterations" mapstructure:"max_expand_iterations"`
	LoadMoreDelay        time.Duration `yaml:"load_more_delay" mapstructure:"load_more_delay"`
	ShowResolvedDelay    time.Duration `yaml:"show_resolved_delay" mapstructure:"show_resolved_delay"`
	ScreenshotRetryDelay time.Duration `yaml:"screenshot_retry_delay" mapstructure:"screenshot_retry_delay"`
}

// SchedulerConfig holds the batch and retry settings
type SchedulerConfig struct {
	BatchSize  int           `yaml:"batch_size" mapstructure:"batch_size"`
	RetryDelay time.Duration `yaml:"retry_delay" mapstructure:"retry_delay"`
}

// OutputConfig holds the output configuration
type OutputConfig struct {
	Dir            string `yaml:"dir" mapstructure:"dir"`
	ManifestFile   string `yaml:"manifest_file" mapstructure:"manifest_file"`
	ManifestFormat string `yaml:"manifest_format" mapstructure:"manifest_format"`
}

// ExtractionConfig holds CSS selectors evaluated against the rendered conversation page
type ExtractionConfig struct {
	Selectors map[string]string `yaml:"selectors" mapstructure:"selectors"`
}

// ProxyConfig holds the proxy used for search API requests
type ProxyConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	URL      string `yaml:"url" mapstructure:"url"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
}

// LogConfig holds the logging configuration
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	File  string `yaml:"file" mapstructure:"file"`
}

// envBindings maps configuration keys to the environment variables that set them
var envBindings = map[string]string{
	"github.token":         "GITHUB_TOKEN",
	"github.owner":         "REPO_OWNER",
	"github.repo":          "REPO_NAME",
	"github.author":        "GITHUB_AUTHOR",
	"github.api_url":       "GITHUB_API_URL",
	"browser.endpoint":     "BROWSER_URL",
	"output.dir":           "OUTPUT_DIR",
	"scheduler.batch_size": "BATCH_SIZE",
	"log.level":            "LOG_LEVEL",
	"log.file":             "LOG_FILE",
}

// Load loads the configuration from the environment and an optional YAML file
func Load(filename string) (*AppConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if filename != "" {
		v.SetConfigFile(filename)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config AppConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// Validate checks that every required value is present
func (c *AppConfig) Validate() error {
	var errs []error
	required := map[string]string{
		"github.token":  c.GitHub.Token,
		"github.owner":  c.GitHub.Owner,
		"github.repo":   c.GitHub.Repo,
		"github.author": c.GitHub.Author,
	}
	for _, key := range []string{"github.token", "github.owner", "github.repo", "github.author"} {
		if strings.TrimSpace(required[key]) == "" {
			errs = append(errs, fmt.Errorf("%w: %s (env %s)", ErrMissingField, key, envBindings[key]))
		}
	}
	if c.Scheduler.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("scheduler.batch_size must be positive, got %d", c.Scheduler.BatchSize))
	}
	if c.GitHub.PerPage < 1 || c.GitHub.PerPage > 100 {
		errs = append(errs, fmt.Errorf("github.per_page must be between 1 and 100, got %d", c.GitHub.PerPage))
	}
	switch c.Output.ManifestFormat {
	case "json", "yaml":
	default:
		errs = append(errs, fmt.Errorf("unsupported output.manifest_format: %s", c.Output.ManifestFormat))
	}
	return errors.Join(errs...)
}

// Save writes the configuration to a YAML file
func (c *AppConfig) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0600)
}

// CreateDefault creates a configuration holding only default values
func CreateDefault() *AppConfig {
	return &AppConfig{
		GitHub: GitHubConfig{
			PerPage: DefaultPerPage,
		},
		Browser: BrowserConfig{
			Endpoint:             DefaultBrowserEndpoint,
			NavigationTimeout:    DefaultNavigationTimeout,
			ViewportWidth:        DefaultViewportWidth,
			ViewportHeight:       DefaultViewportHeight,
			LoadMoreSelector:     DefaultLoadMoreSelector,
			ShowResolvedSelector: DefaultShowResolvedSelector,
			MaxExpandIterations:  DefaultMaxExpandIterations,
			LoadMoreDelay:        DefaultLoadMoreDelay,
			ShowResolvedDelay:    DefaultShowResolvedDelay,
			ScreenshotRetryDelay: DefaultScreenshotRetryDelay,
		},
		Scheduler: SchedulerConfig{
			BatchSize:  DefaultBatchSize,
			RetryDelay: DefaultRetryDelay,
		},
		Output: OutputConfig{
			Dir:            DefaultOutputDir,
			ManifestFormat: "json",
		},
		Extraction: ExtractionConfig{
			Selectors: map[string]string{},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := CreateDefault()
	v.SetDefault("github.per_page", d.GitHub.PerPage)
	v.SetDefault("browser.endpoint", d.Browser.Endpoint)
	v.SetDefault("browser.navigation_timeout", d.Browser.NavigationTimeout)
	v.SetDefault("browser.viewport_width", d.Browser.ViewportWidth)
	v.SetDefault("browser.viewport_height", d.Browser.ViewportHeight)
	v.SetDefault("browser.load_more_selector", d.Browser.LoadMoreSelector)
	v.SetDefault("browser.show_resolved_selector", d.Browser.ShowResolvedSelector)
	v.SetDefault("browser.max_expand_iterations", d.Browser.MaxExpandIterations)
	v.SetDefault("browser.load_more_delay", d.Browser.LoadMoreDelay)
	v.SetDefault("browser.show_resolved_delay", d.Browser.ShowResolvedDelay)
	v.SetDefault("browser.screenshot_retry_delay", d.Browser.ScreenshotRetryDelay)
	v.SetDefault("scheduler.batch_size", d.Scheduler.BatchSize)
	v.SetDefault("scheduler.retry_delay", d.Scheduler.RetryDelay)
	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.manifest_format", d.Output.ManifestFormat)
	v.SetDefault("log.level", d.Log.Level)
}
