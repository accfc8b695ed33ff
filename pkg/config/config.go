/*
Package config manages TOML config for the glide engine.
*/
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/glidekb/glide/internal/utils"
	"github.com/glidekb/glide/pkg/gesture"
	"github.com/glidekb/glide/pkg/scoring"
	"github.com/glidekb/glide/pkg/store"
)

// Config holds the entire config structure
type Config struct {
	Gesture GestureConfig `toml:"gesture"`
	Scoring ScoringConfig `toml:"scoring"`
	Store   StoreConfig   `toml:"store"`
	Dict    DictConfig    `toml:"dict"`
}

// GestureConfig holds the gesture classification thresholds in dp.
type GestureConfig struct {
	SwipeActivateDp float64 `toml:"swipe_activate_dp"`
	DwellMs         int64   `toml:"dwell_ms"`
	DwellEpsilonDp  float64 `toml:"dwell_epsilon_dp"`
	PeckJumpDp      float64 `toml:"peck_jump_dp"`
	MinSwipePathDp  float64 `toml:"min_swipe_path_dp"`
	MinSwipeKeys    int     `toml:"min_swipe_keys"`
}

// ScoringConfig holds candidate ranking options.
type ScoringConfig struct {
	TopK            int     `toml:"top_k"`
	FrequencyWeight float64 `toml:"frequency_weight"`
	DirectionWeight float64 `toml:"direction_weight"`
	ZipfTolerance   float64 `toml:"zipf_tolerance"`
	ZipfPenalty     float64 `toml:"zipf_penalty"`
	AdaptiveWeight  float64 `toml:"adaptive_weight"`
}

// StoreConfig holds the adaptive store's flush and prune policy.
type StoreConfig struct {
	DebounceMs     int64 `toml:"debounce_ms"`
	FlushCeilingMs int64 `toml:"flush_ceiling_ms"`
	PruneEvery     int64 `toml:"prune_every"`
	StaleAfterDays int64 `toml:"stale_after_days"`
	MaxRows        int   `toml:"max_rows"`
	CacheSize      int   `toml:"cache_size"`
	PreloadLimit   int   `toml:"preload_limit"`
}

// DictConfig holds dictionary options.
type DictConfig struct {
	SamplePoints     int     `toml:"sample_points"`
	NeighborRadiusDp float64 `toml:"neighbor_radius_dp"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	gt := gesture.DefaultThresholds()
	sc := scoring.DefaultOptions()
	st := store.DefaultConfig()
	return &Config{
		Gesture: GestureConfig{
			SwipeActivateDp: gt.SwipeActivateDp,
			DwellMs:         gt.DwellMs,
			DwellEpsilonDp:  gt.DwellEpsilonDp,
			PeckJumpDp:      gt.PeckJumpDp,
			MinSwipePathDp:  gt.MinSwipePathDp,
			MinSwipeKeys:    gt.MinSwipeKeys,
		},
		Scoring: ScoringConfig{
			TopK:            sc.TopK,
			FrequencyWeight: sc.FrequencyWeight,
			DirectionWeight: sc.DirectionWeight,
			ZipfTolerance:   sc.ZipfTolerance,
			ZipfPenalty:     sc.ZipfPenalty,
			AdaptiveWeight:  sc.AdaptiveWeight,
		},
		Store: StoreConfig{
			DebounceMs:     st.DebounceInterval.Milliseconds(),
			FlushCeilingMs: st.FlushCeiling.Milliseconds(),
			PruneEvery:     int64(st.PruneEvery),
			StaleAfterDays: int64(st.StaleAfter / (24 * time.Hour)),
			MaxRows:        st.MaxRows,
			CacheSize:      st.CacheSize,
			PreloadLimit:   st.PreloadLimit,
		},
		Dict: DictConfig{
			SamplePoints:     gesture.DefaultSamplePoints,
			NeighborRadiusDp: 48,
		},
	}
}

// Thresholds converts the gesture section to engine thresholds.
func (c *Config) Thresholds() gesture.Thresholds {
	return gesture.Thresholds{
		SwipeActivateDp: c.Gesture.SwipeActivateDp,
		DwellMs:         c.Gesture.DwellMs,
		DwellEpsilonDp:  c.Gesture.DwellEpsilonDp,
		PeckJumpDp:      c.Gesture.PeckJumpDp,
		MinSwipePathDp:  c.Gesture.MinSwipePathDp,
		MinSwipeKeys:    c.Gesture.MinSwipeKeys,
	}
}

// ScoringOptions converts the scoring section to scorer options.
func (c *Config) ScoringOptions() scoring.Options {
	return scoring.Options{
		TopK:            c.Scoring.TopK,
		FrequencyWeight: c.Scoring.FrequencyWeight,
		DirectionWeight: c.Scoring.DirectionWeight,
		ZipfTolerance:   c.Scoring.ZipfTolerance,
		ZipfPenalty:     c.Scoring.ZipfPenalty,
		AdaptiveWeight:  c.Scoring.AdaptiveWeight,
	}
}

// StoreOptions converts the store section to a store config.
func (c *Config) StoreOptions() store.Config {
	return store.Config{
		DebounceInterval: time.Duration(c.Store.DebounceMs) * time.Millisecond,
		FlushCeiling:     time.Duration(c.Store.FlushCeilingMs) * time.Millisecond,
		PruneEvery:       uint64(c.Store.PruneEvery),
		StaleAfter:       time.Duration(c.Store.StaleAfterDays) * 24 * time.Hour,
		MaxRows:          c.Store.MaxRows,
		CacheSize:        c.Store.CacheSize,
		PreloadLimit:     c.Store.PreloadLimit,
	}
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/glide
// 2. ~/Library/Application Support/glide (macOS)
// 3. Current executable dir
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		execDir, execErr := utils.GetExecutableDir()
		if execErr != nil {
			return "", execErr
		}
		return execDir, nil
	}
	primaryPath := filepath.Join(homeDir, ".config", "glide")
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	// Not conventional, fallback from ~/.config if not writable
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", "glide")
	if result := utils.CheckDirStatus(macOSPath); result.Writable {
		return macOSPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/glide/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", utils.GetAbsolutePath(customConfigPath))
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", utils.GetAbsolutePath(defaultPath))
	return config, defaultPath, nil
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file. Unset keys keep their defaults.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()
	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}
