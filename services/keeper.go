package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"frida-keeper/internal/config"
	"frida-keeper/internal/env"
	"frida-keeper/internal/logger"
	"frida-keeper/internal/models"
	"frida-keeper/internal/pipeline"
	"frida-keeper/internal/privilege"
	"frida-keeper/internal/release"
	"frida-keeper/internal/utils"
)

/**
 * Wires every component of the keeper together
 * @description
 * - One instance per process, shared by the CLI commands and the daemon controllers
 */
type Keeper struct {
	cfg       config.AppConfig
	prefs     *config.Preferences
	exec      privilege.Executor
	releases  *release.Resolver
	installer *InstallManager
	server    *ProcessController
	session   *Session
	detector  Detector
	adb       *AdbManager
	startTime time.Time
}

var (
	keeperOnce     sync.Once
	keeperInstance *Keeper
	keeperErr      error
)

/**
 * Get the process wide keeper, built from the loaded configuration on first use
 */
func GetKeeper() (*Keeper, error) {
	keeperOnce.Do(func() {
		cfg := config.App()
		prefs, err := config.OpenPreferences(config.PreferencesPath())
		if err != nil {
			keeperErr = err
			return
		}
		keeperInstance = NewKeeper(&cfg, prefs, privilege.NewSuExecutor(&cfg.Privilege))
	})
	return keeperInstance, keeperErr
}

/**
 * Create a keeper
 * @param {config.AppConfig} cfg - Application configuration
 * @param {config.Preferences} prefs - User preferences store
 * @param {privilege.Executor} exec - Elevation broker used by every privileged step
 */
func NewKeeper(cfg *config.AppConfig, prefs *config.Preferences, exec privilege.Executor) *Keeper {
	finder := &privilege.PgrepFinder{Exec: exec, Fallback: utils.SystemProcessFinder{}}
	resolver := release.NewResolverFromConfig(&cfg.Release)
	pl := pipeline.NewFromConfig(&cfg.Install)
	server := NewProcessController(&cfg.Process, cfg.Install.BinaryPath(), exec, finder)
	installer := NewInstallManager(&cfg.Install, cfg.Release.Limit, exec, resolver, pl, server)
	return &Keeper{
		cfg:       *cfg,
		prefs:     prefs,
		exec:      exec,
		releases:  resolver,
		installer: installer,
		server:    server,
		session:   NewSession(installer, server, prefs.ServerPort()),
		detector:  NewExecDetector(&cfg.Detect),
		adb:       NewAdbManager(exec),
		startTime: time.Now(),
	}
}

func (k *Keeper) Session() *Session {
	return k.session
}

func (k *Keeper) Installer() *InstallManager {
	return k.installer
}

func (k *Keeper) Server() *ProcessController {
	return k.server
}

func (k *Keeper) Prefs() *config.Preferences {
	return k.prefs
}

func (k *Keeper) Detector() Detector {
	return k.detector
}

func (k *Keeper) Adb() *AdbManager {
	return k.adb
}

/**
 * List releases that carry a server build for the platform
 */
func (k *Keeper) ListReleases(ctx context.Context) ([]models.Release, error) {
	return k.releases.FetchAll(ctx, k.cfg.Release.Limit)
}

func (k *Keeper) FindRelease(ctx context.Context, tag string) (*models.Release, error) {
	return k.releases.FindRelease(ctx, tag, k.cfg.Release.Limit)
}

/**
 * Remember a version for quick switching
 * @returns {error} ErrReleaseNotFound when the index does not list the tag
 */
func (k *Keeper) SaveVersion(ctx context.Context, tag string) error {
	if _, err := k.FindRelease(ctx, tag); err != nil {
		return err
	}
	return k.prefs.AddSavedVersion(tag)
}

/**
 * Start the server on the saved port if auto start is enabled
 * @returns {string, bool, error} Flow id, and whether a start was attempted
 * @description
 * - Root is checked before the install state, same order as the start flow
 */
func (k *Keeper) Boot(opts StartOptions) (string, bool, error) {
	if !k.prefs.AutoStartEnabled() {
		logger.Info("Auto start disabled, nothing to do at boot")
		return "", false, nil
	}
	if !k.exec.CheckRoot(context.Background()) {
		return "", false, fmt.Errorf("auto start skipped: %w", models.ErrRootUnavailable)
	}
	if !k.installer.IsInstalled() {
		return "", false, fmt.Errorf("auto start skipped: %w", models.ErrNotInstalled)
	}
	port := k.prefs.ServerPort()
	logger.Infof("Auto starting frida server on port %d", port)
	id, err := k.session.StartServer(port, opts)
	return id, true, err
}

/**
 * Health check response for the daemon
 */
func (k *Keeper) GetHealthz() models.HealthResponse {
	st := k.session.State()
	return models.HealthResponse{
		Version:   env.Version,
		StartTime: k.startTime.Format(time.RFC3339),
		Status:    "UP",
		Uptime:    time.Since(k.startTime).Round(time.Second).String(),
		Metrics: models.Metrics{
			TotalRequests: GetTotalRequestCount(),
			ErrorRequests: GetTotalErrorCount(),
			Installed:     st.Installed,
			ServerRunning: k.server.IsRunning(),
			SessionStatus: st.Status,
		},
	}
}
