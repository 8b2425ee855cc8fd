package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"comet/internal/archive"
	"comet/internal/pages"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".comet.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestLoadConfigMissingFile(t *testing.T) {
	result := loadConfigFromPath(filepath.Join(t.TempDir(), "absent.json"))

	if result.Status != "Default" || result.HasError {
		t.Fatalf("status = %q, HasError = %v; want Default without error", result.Status, result.HasError)
	}
	if diff := cmp.Diff(defaultConfig(), result.Config); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigInvalidJSON(t *testing.T) {
	result := loadConfigFromPath(writeConfig(t, `{"window_width": 1000,`))

	if result.Status != "Error" || !result.HasError {
		t.Fatalf("status = %q, HasError = %v; want Error", result.Status, result.HasError)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("warnings = %v, want one", result.Warnings)
	}
	if diff := cmp.Diff(defaultConfig(), result.Config); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name       string
		configJSON string
		wantStatus string
		check      func(t *testing.T, c Config)
	}{
		{
			name: "Valid config",
			configJSON: `{
				"window_width": 1000,
				"window_height": 800,
				"right_to_left": true,
				"two_page": true,
				"fit_mode": "width"
			}`,
			wantStatus: "OK",
			check: func(t *testing.T, c Config) {
				if c.WindowWidth != 1000 || c.WindowHeight != 800 {
					t.Errorf("size = %dx%d, want 1000x800", c.WindowWidth, c.WindowHeight)
				}
				want := pages.Mode{TwoPage: true, Manga: true, SmartCover: true}
				if c.Mode() != want {
					t.Errorf("Mode() = %+v, want %+v", c.Mode(), want)
				}
				if c.Fit() != FitWidth {
					t.Errorf("Fit() = %v, want width", c.Fit())
				}
			},
		},
		{
			name:       "Window too small",
			configJSON: `{"window_width": 200, "window_height": 100}`,
			wantStatus: "OK",
			check: func(t *testing.T, c Config) {
				if c.WindowWidth != defaultWidth || c.WindowHeight != defaultHeight {
					t.Errorf("size = %dx%d, want defaults", c.WindowWidth, c.WindowHeight)
				}
			},
		},
		{
			name:       "Cache and prefetch clamped",
			configJSON: `{"cache_size": 1000, "prefetch_depth": -3}`,
			wantStatus: "OK",
			check: func(t *testing.T, c Config) {
				if c.CacheSize != maxCacheSize {
					t.Errorf("CacheSize = %d, want %d", c.CacheSize, maxCacheSize)
				}
				if c.PrefetchDepth != pages.ClampPrefetchDepth(-3) {
					t.Errorf("PrefetchDepth = %d, want %d", c.PrefetchDepth, pages.ClampPrefetchDepth(-3))
				}
			},
		},
		{
			name:       "Small cache raised",
			configJSON: `{"cache_size": 1}`,
			wantStatus: "OK",
			check: func(t *testing.T, c Config) {
				if c.CacheSize != minCacheSize {
					t.Errorf("CacheSize = %d, want %d", c.CacheSize, minCacheSize)
				}
			},
		},
		{
			name:       "Unknown sort and fit",
			configJSON: `{"sort_method": "random", "fit_mode": "stretch"}`,
			wantStatus: "Warning",
			check: func(t *testing.T, c Config) {
				if c.Sort() != archive.SortNatural {
					t.Errorf("Sort() = %v, want natural", c.Sort())
				}
				if c.Fit() != FitBest {
					t.Errorf("Fit() = %v, want best", c.Fit())
				}
			},
		},
		{
			name:       "Partial keybindings filled",
			configJSON: `{"keybindings": {"next": ["KeyX"]}}`,
			wantStatus: "OK",
			check: func(t *testing.T, c Config) {
				if diff := cmp.Diff([]string{"KeyX"}, c.Keybindings["next"]); diff != "" {
					t.Errorf("next keys mismatch (-want +got):\n%s", diff)
				}
				if diff := cmp.Diff(GetDefaultKeybindings()["exit"], c.Keybindings["exit"]); diff != "" {
					t.Errorf("exit keys mismatch (-want +got):\n%s", diff)
				}
			},
		},
		{
			name:       "Conflicting keybindings replaced",
			configJSON: `{"keybindings": {"next": ["KeyB"]}}`,
			wantStatus: "Warning",
			check: func(t *testing.T, c Config) {
				if diff := cmp.Diff(GetDefaultKeybindings(), c.Keybindings); diff != "" {
					t.Errorf("keybindings mismatch (-want +got):\n%s", diff)
				}
			},
		},
		{
			name:       "Mouse settings",
			configJSON: `{"mouse": {"enable_mouse": false, "wheel_sensitivity": 0, "drag_threshold": 12}}`,
			wantStatus: "OK",
			check: func(t *testing.T, c Config) {
				want := MouseSettings{EnableMouse: false, WheelSensitivity: 1.0, DragThreshold: 12}
				if diff := cmp.Diff(want, c.Mouse); diff != "" {
					t.Errorf("mouse mismatch (-want +got):\n%s", diff)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := loadConfigFromPath(writeConfig(t, tt.configJSON))
			if result.Status != tt.wantStatus {
				t.Fatalf("status = %q, want %q (warnings %v)", result.Status, tt.wantStatus, result.Warnings)
			}
			tt.check(t, result.Config)
		})
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".comet.json")

	cfg := defaultConfig()
	cfg.WindowWidth, cfg.WindowHeight = 1280, 900
	cfg.TwoPage = true
	cfg.RightToLeft = true
	cfg.SmartSplit = true
	cfg.PrefetchDepth = 4
	cfg.CacheSize = 32
	cfg.SortMethod = sortMethodName(archive.SortEntryOrder)
	cfg.FitMode = FitHeight.String()
	cfg.Keybindings["next"] = []string{"KeyX"}

	if err := saveConfigToPath(cfg, path); err != nil {
		t.Fatalf("saveConfigToPath: %v", err)
	}
	result := loadConfigFromPath(path)
	if result.Status != "OK" {
		t.Fatalf("status = %q, warnings %v", result.Status, result.Warnings)
	}
	if diff := cmp.Diff(cfg, result.Config); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveConfigRejectsSmallWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".comet.json")
	cfg := defaultConfig()
	cfg.WindowWidth = 10

	if err := saveConfigToPath(cfg, path); err == nil {
		t.Fatal("expected error for tiny window")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("config file was written: %v", err)
	}
}

func TestSortMethodName(t *testing.T) {
	for _, s := range archive.GetAllSortStrategies() {
		m, err := archive.ParseSortMethod(sortMethodName(s.ID()))
		if err != nil || m != s.ID() {
			t.Errorf("%s: round trip gave %v, %v", s.Name(), m, err)
		}
	}
}

func TestConfigManagerReload(t *testing.T) {
	path := writeConfig(t, `{"two_page": false}`)
	cm := NewConfigManager(path)
	if cm.Get().Config.TwoPage {
		t.Fatal("initial two_page = true")
	}

	changed := make(chan ConfigLoadResult, 8)
	cm.OnChange(func(r ConfigLoadResult) {
		select {
		case changed <- r:
		default:
		}
	})
	cm.WatchConfig()

	if err := os.WriteFile(path, []byte(`{"two_page": true}`), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case r := <-changed:
			if r.Config.TwoPage {
				if !cm.Get().Config.TwoPage {
					t.Error("Get() not updated after reload")
				}
				return
			}
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}
