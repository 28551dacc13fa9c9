package startup

import (
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/mattn/go-sqlite3"

	"media-directory/internal/logging"
	"media-directory/internal/storage/backends"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
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

// RouteInfo describes one method of a registered route. Group is the first
// path segment, or two segments below /api.
type RouteInfo struct {
	Method string
	Path   string
	Group  string
}

const rule = "------------------------------------------------------------"

func section(title string) {
	logging.Info("")
	logging.Info(rule)
	logging.Info("%s", title)
	logging.Info(rule)
}

// LogStartup prints the banner, the host and the SQLite library in use.
func LogStartup() {
	printBanner()
	section("SYSTEM INFORMATION")
	logging.Info("  Go %s on %s/%s, %d CPUs (GOMAXPROCS %d)",
		runtime.Version(), runtime.GOOS, runtime.GOARCH, runtime.NumCPU(), runtime.GOMAXPROCS(0))
	lib, _, source := sqlite3.Version()
	logging.Info("  SQLite library:  %s", lib)
	logging.Debug("  SQLite source:   %s", source)
	if host, err := os.Hostname(); err == nil {
		logging.Debug("  Hostname:        %s", host)
	}
}

// LogStorageInit logs the catalog backend initialization
func LogStorageInit(driver string, duration time.Duration) {
	section("STORAGE INITIALIZATION")
	logging.Info("  Backend: %s", driver)
	logging.Info("  [OK] Catalog opened in %v", duration)
}

// LogUpdatesInit logs the container update manager settings
func LogUpdatesInit(interval time.Duration, threshold int) {
	logging.Info("  Container update flush: every %v or %d changes", interval, threshold)
}

// GetRoutes lists every route method of router, sorted by path then method.
// Routes without a method restriction are reported as "*".
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo
	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, err := route.GetPathTemplate()
		if err != nil {
			return err
		}
		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}
		for _, m := range methods {
			routes = append(routes, RouteInfo{Method: m, Path: path, Group: routeGroup(path)})
		}
		return nil
	})
	sort.SliceStable(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})
	return routes, err
}

// LogHTTPRoutes logs how many routes each group serves, and every route at
// debug level.
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	section("HTTP SERVER SETUP")

	routes, err := GetRoutes(router)
	if err != nil {
		logging.Warn("error walking routes: %v", err)
	}
	perGroup := make(map[string]int)
	var groups []string
	for _, r := range routes {
		if perGroup[r.Group] == 0 {
			groups = append(groups, r.Group)
		}
		perGroup[r.Group]++
	}
	sort.Strings(groups)

	logging.Info("  %d routes in %d groups", len(routes), len(groups))
	if logging.IsDebugEnabled() {
		for _, g := range groups {
			logging.Debug("  [%s] %d", g, perGroup[g])
			for _, r := range routes {
				if r.Group == g {
					logging.Debug("    %-6s %s", r.Method, r.Path)
				}
			}
		}
	}

	if logHealthChecks {
		logging.Info("  Probe requests are logged")
	} else {
		logging.Info("  Probe requests are not logged (log_health_checks)")
	}
}

// routeGroup names the part of the API a path belongs to.
func routeGroup(path string) string {
	parts := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 3)
	if parts[0] == "api" && len(parts) > 1 {
		return "api/" + parts[1]
	}
	return parts[0]
}

// ServerInfo is what LogServerStarted reports.
type ServerInfo struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	Driver          string
	Database        string
	Backups         string
	StartupDuration time.Duration
}

// ServerInfo summarizes c for the startup log. Connection strings are masked.
func (c *Config) ServerInfo(startupDuration time.Duration) ServerInfo {
	info := ServerInfo{
		Port:            c.Port,
		MetricsPort:     c.MetricsPort,
		MetricsEnabled:  c.MetricsEnabled,
		Driver:          c.driver(),
		Backups:         "n/a",
		StartupDuration: startupDuration,
	}
	s := c.Storage
	switch info.Driver {
	case backends.DriverSQLite:
		info.Database = s.SQLite.File
		info.Backups = "off"
		if s.SQLite.Backup {
			info.Backups = fmt.Sprintf("every %v when changed", s.SQLite.BackupInterval)
		}
	case backends.DriverPostgres:
		info.Database = maskSecret(s.Postgres.DSN)
	case backends.DriverMySQL:
		if s.MySQL.DSN != "" {
			info.Database = maskSecret(s.MySQL.DSN)
		} else {
			info.Database = fmt.Sprintf("%s@%s:%d/%s", s.MySQL.User, s.MySQL.Host, s.MySQL.Port, s.MySQL.Database)
		}
	}
	return info
}

// LogServerStarted logs the catalog and the listening endpoints.
func LogServerStarted(info ServerInfo) {
	section("CONTENT DIRECTORY READY")
	logging.Info("  Catalog:   %s (%s)", info.Database, info.Driver)
	logging.Info("  Backups:   %s", info.Backups)
	logging.Info("  API:       http://0.0.0.0:%s/api", info.Port)
	if info.MetricsEnabled {
		logging.Info("  Metrics:   http://0.0.0.0:%s/metrics", info.MetricsPort)
	} else {
		logging.Info("  Metrics:   disabled")
	}
	logging.Info("  Started in %v", info.StartupDuration)
	logging.Info(rule)
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(reason string) {
	section(fmt.Sprintf("SHUTDOWN (%s)", reason))
}

// ShutdownStep runs one shutdown step and logs its outcome. A failing step is
// logged and does not stop the ones after it.
func ShutdownStep(name string, fn func() error) {
	start := time.Now()
	if err := fn(); err != nil {
		logging.Warn("  [FAIL] %s: %v", name, err)
		return
	}
	logging.Info("  [OK] %s (%v)", name, time.Since(start).Round(time.Millisecond))
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

func printBanner() {
	banner := `
------------------------------------------------------------
   ____ ____  ____
  / ___|  _ \/ ___|   content directory service
 | |   | | | \___ \
 | |___| |_| |___) |
  \____|____/|____/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s (%s, built %s)", Version, Commit, BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
}

// checkDatabaseDir creates dir if needed and proves it accepts new files,
// which SQLite needs for its journal and the backup file.
func checkDatabaseDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, ".cds-write-*")
	if err != nil {
		return fmt.Errorf("%s is not writable: %w", dir, err)
	}
	name := f.Name()
	f.Close()
	if err := os.Remove(name); err != nil {
		logging.Warn("failed to remove %s: %v", name, err)
	}
	return nil
}
