package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"comet/internal/archive"
	"comet/internal/pages"
)

// Window size constants
const (
	defaultWidth  = 800
	defaultHeight = 600
	minWidth      = 400
	minHeight     = 300
)

// Cache and font limits
const (
	minCacheSize        = 4
	maxCacheSize        = 64
	minHelpFontSize     = 12.0
	defaultHelpFontSize = 24.0
)

// ConfigLoadResult contains the result of loading configuration
type ConfigLoadResult struct {
	Config   Config
	HasError bool
	Warnings []string
	Status   string // "OK", "Default", "Warning", "Error"
}

type Config struct {
	WindowWidth   int                 `mapstructure:"window_width"`
	WindowHeight  int                 `mapstructure:"window_height"`
	Fullscreen    bool                `mapstructure:"fullscreen"`
	RightToLeft   bool                `mapstructure:"right_to_left"`
	TwoPage       bool                `mapstructure:"two_page"`
	SmartCover    bool                `mapstructure:"smart_cover"`
	SmartSplit    bool                `mapstructure:"smart_split"`
	PrefetchDepth int                 `mapstructure:"prefetch_depth"`
	CacheSize     int                 `mapstructure:"cache_size"`
	SortMethod    string              `mapstructure:"sort_method"`
	FitMode       string              `mapstructure:"fit_mode"`
	HelpFontSize  float64             `mapstructure:"help_font_size"`
	Mouse         MouseSettings       `mapstructure:"mouse"`
	Keybindings   map[string][]string `mapstructure:"keybindings"`
}

func defaultConfig() Config {
	return Config{
		WindowWidth:   defaultWidth,
		WindowHeight:  defaultHeight,
		RightToLeft:   false, // Western reading order
		TwoPage:       false,
		SmartCover:    true, // Cover alone, then 2-3, 4-5
		SmartSplit:    false,
		PrefetchDepth: pages.DefaultPrefetchDepth,
		CacheSize:     pages.DefaultCacheLimit,
		SortMethod:    "natural",
		FitMode:       FitBest.String(),
		HelpFontSize:  defaultHelpFontSize,
		Mouse:         GetDefaultMouseSettings(),
		Keybindings:   GetDefaultKeybindings(),
	}
}

// Mode returns the reading mode described by the config
func (c Config) Mode() pages.Mode {
	return pages.Mode{TwoPage: c.TwoPage, Manga: c.RightToLeft, SmartCover: c.SmartCover}
}

// Sort returns the configured sort method; validate has already replaced
// unknown names.
func (c Config) Sort() archive.SortMethod {
	m, _ := archive.ParseSortMethod(c.SortMethod)
	return m
}

// Fit returns the configured fit mode.
func (c Config) Fit() FitMode {
	m, _ := ParseFitMode(c.FitMode)
	return m
}

func getConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "comet.json"
	}
	return filepath.Join(homeDir, ".comet.json")
}

func setDefaults(v *viper.Viper) {
	d := defaultConfig()
	v.SetDefault("window_width", d.WindowWidth)
	v.SetDefault("window_height", d.WindowHeight)
	v.SetDefault("fullscreen", d.Fullscreen)
	v.SetDefault("right_to_left", d.RightToLeft)
	v.SetDefault("two_page", d.TwoPage)
	v.SetDefault("smart_cover", d.SmartCover)
	v.SetDefault("smart_split", d.SmartSplit)
	v.SetDefault("prefetch_depth", d.PrefetchDepth)
	v.SetDefault("cache_size", d.CacheSize)
	v.SetDefault("sort_method", d.SortMethod)
	v.SetDefault("fit_mode", d.FitMode)
	v.SetDefault("help_font_size", d.HelpFontSize)
	v.SetDefault("mouse.enable_mouse", d.Mouse.EnableMouse)
	v.SetDefault("mouse.wheel_sensitivity", d.Mouse.WheelSensitivity)
	v.SetDefault("mouse.wheel_inverted", d.Mouse.WheelInverted)
	v.SetDefault("mouse.drag_threshold", d.Mouse.DragThreshold)
	// Keybindings are merged per action in validate.
}

func newViper(configPath string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")
	setDefaults(v)
	return v
}

func loadConfigFromPath(configPath string) ConfigLoadResult {
	return readConfig(newViper(configPath))
}

// readConfig reads the file behind v. A missing file is not an error.
func readConfig(v *viper.Viper) ConfigLoadResult {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return ConfigLoadResult{Config: defaultConfig(), Warnings: []string{}, Status: "Default"}
		}
		return failedConfig(v.ConfigFileUsed(), err)
	}
	return decodeConfig(v)
}

// decodeConfig unmarshals the settings already read into v and validates them.
func decodeConfig(v *viper.Viper) ConfigLoadResult {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return failedConfig(v.ConfigFileUsed(), err)
	}
	warnings := config.validate()
	result := ConfigLoadResult{
		Config:   config,
		Warnings: warnings,
		Status:   "OK",
	}
	if len(warnings) > 0 {
		result.Status = "Warning"
	}
	return result
}

func failedConfig(path string, err error) ConfigLoadResult {
	slog.Warn("invalid config file, using defaults", "path", path, "error", err)
	return ConfigLoadResult{
		Config:   defaultConfig(),
		HasError: true,
		Warnings: []string{fmt.Sprintf("Invalid config file: %v", err)},
		Status:   "Error",
	}
}

// validate clamps out-of-range values in place and returns a warning for each
// value it had to replace.
func (c *Config) validate() []string {
	warnings := []string{}
	d := defaultConfig()

	if c.WindowWidth < minWidth {
		c.WindowWidth = d.WindowWidth
	}
	if c.WindowHeight < minHeight {
		c.WindowHeight = d.WindowHeight
	}

	if c.HelpFontSize <= minHelpFontSize {
		c.HelpFontSize = d.HelpFontSize
	}

	if _, err := archive.ParseSortMethod(c.SortMethod); err != nil {
		warnings = append(warnings, err.Error())
		c.SortMethod = d.SortMethod
	}
	if _, err := ParseFitMode(c.FitMode); err != nil {
		warnings = append(warnings, err.Error())
		c.FitMode = d.FitMode
	}

	switch {
	case c.CacheSize < minCacheSize:
		c.CacheSize = minCacheSize
	case c.CacheSize > maxCacheSize:
		c.CacheSize = maxCacheSize
	}
	c.PrefetchDepth = pages.ClampPrefetchDepth(c.PrefetchDepth)

	if c.Mouse.WheelSensitivity <= 0 {
		c.Mouse.WheelSensitivity = d.Mouse.WheelSensitivity
	}
	if c.Mouse.DragThreshold < 0 {
		c.Mouse.DragThreshold = d.Mouse.DragThreshold
	}

	// Fill in missing keybindings with defaults
	if c.Keybindings == nil {
		c.Keybindings = d.Keybindings
	} else {
		for action, keys := range d.Keybindings {
			if _, ok := c.Keybindings[action]; !ok {
				c.Keybindings[action] = keys
			}
		}
		if err := validateKeybindings(c.Keybindings); err != nil {
			slog.Warn("invalid keybindings, using defaults", "error", err)
			c.Keybindings = d.Keybindings
			warnings = append(warnings, fmt.Sprintf("Keybinding errors: %v", err))
		}
	}
	return warnings
}

// ConfigManager loads the config file and reloads it when it changes on disk.
type ConfigManager struct {
	v    *viper.Viper
	path string

	mu        sync.RWMutex
	result    ConfigLoadResult
	callbacks []func(ConfigLoadResult)
}

// NewConfigManager loads configPath, or ~/.comet.json when it is empty.
func NewConfigManager(configPath string) *ConfigManager {
	if configPath == "" {
		configPath = getConfigPath()
	}
	cm := &ConfigManager{v: newViper(configPath), path: configPath}
	cm.result = readConfig(cm.v)
	return cm
}

// Get returns the current configuration (thread-safe).
func (cm *ConfigManager) Get() ConfigLoadResult {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.result
}

// Path returns the config file location.
func (cm *ConfigManager) Path() string { return cm.path }

// OnChange registers a callback for config changes.
func (cm *ConfigManager) OnChange(fn func(ConfigLoadResult)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration. A file that did not
// exist at startup is not watched.
func (cm *ConfigManager) WatchConfig() {
	if cm.Get().Status == "Default" {
		return
	}
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		result := decodeConfig(cm.v)
		slog.Debug("config reloaded", "path", e.Name, "status", result.Status)

		cm.mu.Lock()
		cm.result = result
		callbacks := make([]func(ConfigLoadResult), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(result)
		}
	})
	cm.v.WatchConfig()
}

// Save writes config to the managed path.
func (cm *ConfigManager) Save(config Config) error {
	return saveConfigToPath(config, cm.path)
}

func saveConfigToPath(config Config, configPath string) error {
	// Don't save if size is too small
	if config.WindowWidth < minWidth || config.WindowHeight < minHeight {
		return fmt.Errorf("not saving config with invalid window size %dx%d", config.WindowWidth, config.WindowHeight)
	}

	v := viper.New()
	v.SetConfigType("json")
	v.Set("window_width", config.WindowWidth)
	v.Set("window_height", config.WindowHeight)
	v.Set("fullscreen", config.Fullscreen)
	v.Set("right_to_left", config.RightToLeft)
	v.Set("two_page", config.TwoPage)
	v.Set("smart_cover", config.SmartCover)
	v.Set("smart_split", config.SmartSplit)
	v.Set("prefetch_depth", config.PrefetchDepth)
	v.Set("cache_size", config.CacheSize)
	v.Set("sort_method", config.SortMethod)
	v.Set("fit_mode", config.FitMode)
	v.Set("help_font_size", config.HelpFontSize)
	v.Set("mouse", map[string]any{
		"enable_mouse":      config.Mouse.EnableMouse,
		"wheel_sensitivity": config.Mouse.WheelSensitivity,
		"wheel_inverted":    config.Mouse.WheelInverted,
		"drag_threshold":    config.Mouse.DragThreshold,
	})
	v.Set("keybindings", config.Keybindings)

	if err := v.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("save config to %s: %w", configPath, err)
	}
	return nil
}

// sortMethodName returns the config name of a sort method
func sortMethodName(m archive.SortMethod) string {
	switch m {
	case archive.SortSimple:
		return "simple"
	case archive.SortEntryOrder:
		return "entry"
	default:
		return "natural"
	}
}
