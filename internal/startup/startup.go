package startup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"media-index/internal/logging"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

const (
	defaultIndexPath      = "/database/index.db"
	defaultCacheDir       = "/cache"
	defaultConfigFile     = "/config/media-index.yaml"
	defaultMediaDir       = "/media"
	defaultUpdateInterval = 30 * time.Minute
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	IndexPath       string
	CacheDir        string
	ConfigFile      string
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	LogDir          string
	LogHealthChecks bool
	IndexWorkers    int
	FFprobePath     string

	// UpdateInterval and UpdateAt are the defaults for repositories that
	// set no schedule of their own.
	UpdateInterval time.Duration
	UpdateAt       string

	// Repositories and Playlists come from ConfigFile. Without a config
	// file a single local repository "media" is served from MEDIA_DIR.
	Repositories []RepositoryConfig
	Playlists    map[string]map[string]any

	CacheEnabled bool
}

// LoadConfig loads a .env file when present, reads the environment and
// the repository file, and checks that the index location is writable.
func LoadConfig() (*Config, error) {
	loadDotEnv(".env")

	printBanner()
	logSystemInfo()

	section(false, "CONFIGURATION")

	cfg, err := configFromEnv()
	if err != nil {
		return nil, err
	}

	logging.Info("  INDEX_PATH:             %s", cfg.IndexPath)
	logging.Info("  CACHE_DIR:              %s", cfg.CacheDir)
	logging.Info("  CONFIG_FILE:            %s", cfg.ConfigFile)
	logging.Info("  PORT:                   %s", cfg.Port)
	logging.Info("  METRICS_PORT:           %s", cfg.MetricsPort)
	logging.Info("  METRICS_ENABLED:        %v", cfg.MetricsEnabled)
	logging.Info("  LOG_LEVEL:              %s", logging.GetLevel())
	logging.Info("  LOG_DIR:                %s", valueOrNone(cfg.LogDir))
	logging.Info("  INDEX_WORKERS:          %s", workersString(cfg.IndexWorkers))
	logging.Info("  FFPROBE_PATH:           %s", cfg.FFprobePath)
	logging.Info("  INDEX_UPDATE_INTERVAL:  %v", cfg.UpdateInterval)
	logging.Info("  INDEX_UPDATE_AT:        %s", valueOrNone(cfg.UpdateAt))

	section(true, "DIRECTORY SETUP")

	indexDir := filepath.Dir(cfg.IndexPath)
	if err := ensureDirectory(indexDir, "index"); err != nil {
		return nil, fmt.Errorf("index directory error: %w", err)
	}
	logging.Debug("  Testing index directory write access...")
	if err := testWriteAccess(indexDir); err != nil {
		return nil, fmt.Errorf("index directory is not writable (required for the index): %w", err)
	}
	logging.Info("  [OK] Index directory is writable")

	cfg.CacheEnabled = setupOptionalDir(cfg.CacheDir, "download cache")

	section(true, "REPOSITORIES")

	if err := cfg.loadRepositories(); err != nil {
		return nil, err
	}
	for _, r := range cfg.Repositories {
		state := "enabled"
		if !r.IsEnabled() {
			state = "disabled"
		}
		logging.Info("  %-20s %-7s %-8s %s", r.ID, r.Type, state, r.Location())
	}
	logging.Info("  Playlists: %d", len(cfg.Playlists))

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Index:          ENABLED (required)")
	logging.Info("    Download cache: %s", enabledString(cfg.CacheEnabled))
	logging.Info("    Metrics:        %s", enabledString(cfg.MetricsEnabled))

	return cfg, nil
}

// LoadToolConfig reads the same settings as LoadConfig for command line
// tools. It skips the banner and the directory checks.
func LoadToolConfig() (*Config, error) {
	loadDotEnv(".env")

	cfg, err := configFromEnv()
	if err != nil {
		return nil, err
	}
	if err := cfg.loadRepositories(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configFromEnv reads the environment without touching the filesystem.
func configFromEnv() (*Config, error) {
	cfg := &Config{
		IndexPath:       getEnv("INDEX_PATH", defaultIndexPath),
		CacheDir:        getEnv("CACHE_DIR", defaultCacheDir),
		ConfigFile:      getEnv("CONFIG_FILE", defaultConfigFile),
		Port:            getEnv("PORT", "8080"),
		MetricsPort:     getEnv("METRICS_PORT", "9090"),
		MetricsEnabled:  getEnvBool("METRICS_ENABLED", true),
		LogDir:          getEnv("LOG_DIR", ""),
		LogHealthChecks: getEnvBool("LOG_HEALTH_CHECKS", false),
		IndexWorkers:    getEnvInt("INDEX_WORKERS", 0),
		FFprobePath:     getEnv("FFPROBE_PATH", "ffprobe"),
		UpdateInterval:  getEnvDuration("INDEX_UPDATE_INTERVAL", defaultUpdateInterval),
		UpdateAt:        getEnv("INDEX_UPDATE_AT", ""),
	}

	var err error
	if cfg.IndexPath, err = filepath.Abs(cfg.IndexPath); err != nil {
		return nil, fmt.Errorf("failed to resolve index path: %w", err)
	}
	if cfg.CacheDir, err = filepath.Abs(cfg.CacheDir); err != nil {
		return nil, fmt.Errorf("failed to resolve cache directory path: %w", err)
	}
	if cfg.IndexWorkers < 0 {
		logging.Warn("  Invalid INDEX_WORKERS %d, using the default", cfg.IndexWorkers)
		cfg.IndexWorkers = 0
	}
	if err := cfg.DefaultSchedule().Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv sets variables from path that are not already set.
func loadDotEnv(path string) {
	err := godotenv.Load(path)
	switch {
	case err == nil:
		logging.Info("Loaded environment from %s", path)
	case errors.Is(err, fs.ErrNotExist):
	default:
		logging.Warn("Failed to load %s: %v", path, err)
	}
}

func setupOptionalDir(path, name string) bool {
	logging.Debug("  Setting up %s directory: %s", name, path)

	if err := os.MkdirAll(path, 0o755); err != nil {
		logging.Warn("    Failed to create %s directory: %v", name, err)
		logging.Warn("    Remote repositories will not be available")
		return false
	}

	if err := testWriteAccess(path); err != nil {
		logging.Warn("    %s directory is not writable: %v", name, err)
		logging.Warn("    Remote repositories will not be available")
		return false
	}

	logging.Debug("    [OK] %s directory ready", name)
	return true
}

const rule = "------------------------------------------------------------"

// section starts a block of the startup log, optionally after a blank line.
func section(spaced bool, title string, args ...any) {
	if spaced {
		logging.Info("")
	}
	logging.Info(rule)
	logging.Info(title, args...)
	logging.Info(rule)
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

func valueOrNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func workersString(n int) string {
	if n == 0 {
		return "auto"
	}
	return strconv.Itoa(n)
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration, records int) {
	section(true, "INDEX INITIALIZATION")
	logging.Info("  [OK] Index opened in %v (%d records)", duration, records)
}

// LogIndexerInit logs the schedule of every queued repository.
func LogIndexerInit(workers int, schedules map[string]string) {
	section(true, "INDEXER INITIALIZATION")
	logging.Info("  Extraction workers: %d", workers)

	ids := make([]string, 0, len(schedules))
	for id := range schedules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		logging.Info("  %-20s %s", id, schedules[id])
	}
	logging.Info("  Starting indexer...")
}

// LogIndexerStarted logs successful indexer start
func LogIndexerStarted() {
	logging.Info("  [OK] Indexer started")
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	section(true, "HTTP SERVER SETUP")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}
			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	first := parts[0]

	// Special handling for API routes
	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	section(true, "SERVER STARTED")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Admin API:     http://0.0.0.0:%s/api", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info(rule)
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	section(true, "SHUTDOWN INITIATED (received %s)", signal)
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...any) {
	logging.Fatal(format, args...)
}

func printBanner() {
	banner := `
------------------------------------------------------------
    __  ___         ___         ____          __
   /  |/  /__  ____/ (_)___ _  /  _/___  ____/ /__  _  __
  / /|_/ / _ \/ __  / / __ '/  / // __ \/ __  / _ \| |/_/
 / /  / /  __/ /_/ / / /_/ / _/ // / / / /_/ /  __/>  <
/_/  /_/\___/\__,_/_/\__,_/ /___/_/ /_/\__,_/\___/_/|_|

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	section(false, "SYSTEM INFORMATION")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}
