package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"frida-keeper/internal/config"
	"frida-keeper/internal/logger"
	"frida-keeper/internal/models"
	"frida-keeper/internal/pipeline"
	"frida-keeper/internal/privilege"
	"frida-keeper/internal/utils"
)

/**
 * Release index operations used by installs
 */
type ReleaseSource interface {
	FetchLatest(ctx context.Context) (*models.Release, error)
	FetchAll(ctx context.Context, limit int) ([]models.Release, error)
	FindRelease(ctx context.Context, tag string, limit int) (*models.Release, error)
	ResolveAsset(rel *models.Release, arch string) (models.Asset, bool)
}

// ServerTerminator 安装前需要停掉正在运行的服务
type ServerTerminator interface {
	Terminate(ctx context.Context)
}

/**
 * Installs, replaces and removes the server binary
 * @description
 * - The binary path and its record file are owned by whichever flow is running;
 *   callers must not run two install flows at once
 */
type InstallManager struct {
	cfg      config.InstallConfig
	limit    int
	exec     privilege.Executor
	releases ReleaseSource
	pipeline *pipeline.Pipeline
	server   ServerTerminator
}

func NewInstallManager(cfg *config.InstallConfig, limit int, exec privilege.Executor,
	releases ReleaseSource, pl *pipeline.Pipeline, server ServerTerminator) *InstallManager {
	return &InstallManager{
		cfg:      *cfg,
		limit:    limit,
		exec:     exec,
		releases: releases,
		pipeline: pl,
		server:   server,
	}
}

func (m *InstallManager) BinaryPath() string {
	return m.cfg.BinaryPath()
}

// installPlan 描述一次安装要装哪个发布版本，以及已安装记录何时视为已是目标版本
type installPlan struct {
	release   func(ctx context.Context) (*models.Release, error)
	isCurrent func(rec *models.InstallRecord) bool
}

/**
 * Install the newest release
 * @param {bool} force - Re-download even when a server is already installed
 * @returns {*Flow} Success carries the installed version
 * @description
 * - Without force, any existing install short-circuits to success with no network access
 */
func (m *InstallManager) InstallLatest(force bool) *Flow {
	return runFlow("install", func(ctx context.Context, r *reporter) (Event, error) {
		return m.install(ctx, r, force, installPlan{
			release: func(ctx context.Context) (*models.Release, error) {
				r.Progress("Fetching latest release...")
				return m.releases.FetchLatest(ctx)
			},
			isCurrent: func(rec *models.InstallRecord) bool { return true },
		})
	})
}

/**
 * Install a release chosen by the caller
 * @description
 * - Without force, only an install of the same tag short-circuits
 */
func (m *InstallManager) InstallFromRelease(rel *models.Release, force bool) *Flow {
	return runFlow("install", func(ctx context.Context, r *reporter) (Event, error) {
		return m.install(ctx, r, force, installPlan{
			release: func(context.Context) (*models.Release, error) { return rel, nil },
			isCurrent: func(rec *models.InstallRecord) bool {
				return rec.Version == rel.TagName
			},
		})
	})
}

/**
 * Install a release by tag, as used for switching to a saved version
 * @returns {*Flow} ErrReleaseNotFound when the index does not list the tag
 */
func (m *InstallManager) InstallVersion(tag string, force bool) *Flow {
	return runFlow("install", func(ctx context.Context, r *reporter) (Event, error) {
		return m.install(ctx, r, force, installPlan{
			release: func(ctx context.Context) (*models.Release, error) {
				r.Progressf("Looking up release %s...", tag)
				return m.releases.FindRelease(ctx, tag, m.limit)
			},
			isCurrent: func(rec *models.InstallRecord) bool { return rec.Version == tag },
		})
	})
}

func (m *InstallManager) install(ctx context.Context, r *reporter, force bool, plan installPlan) (Event, error) {
	if err := m.prepare(ctx, r); err != nil {
		return Event{}, err
	}
	arch := m.DetectArch(ctx)
	r.Progressf("Device architecture: %s", arch)

	if rec := m.InstalledRecord(); rec != nil && !force && plan.isCurrent(rec) {
		return Event{
			Message: fmt.Sprintf("Frida server already installed: %s", rec.String()),
			Version: rec.Version,
		}, nil
	}

	rel, err := plan.release(ctx)
	if err != nil {
		return Event{}, err
	}
	asset, ok := m.releases.ResolveAsset(rel, arch)
	if !ok {
		return Event{}, fmt.Errorf("%w: release %s has no build for %s", models.ErrAssetNotFound, rel.TagName, arch)
	}
	r.Progressf("Found %s", asset.Name)

	if m.IsInstalled() || fileExists(m.cfg.RecordPath()) {
		r.Progress("Removing previous installation...")
		if err := m.removeFiles(ctx); err != nil {
			return Event{}, err
		}
	}

	r.Progressf("Downloading %s...", asset.Name)
	lastPercent := -1
	archive, err := m.pipeline.Download(ctx, asset.DownloadURL, func(p models.DownloadProgress) {
		if p.Indeterminate || p.Percent != lastPercent {
			lastPercent = p.Percent
			r.Download(p)
		}
	})
	if err != nil {
		return Event{}, err
	}
	defer os.Remove(archive)
	if fi, err := os.Stat(archive); err == nil {
		AddDownloadedBytes(fi.Size())
	}

	r.Progress("Extracting...")
	if err := m.pipeline.Extract(archive); err != nil {
		return Event{}, err
	}
	if err := m.makeExecutable(ctx, r); err != nil {
		return Event{}, err
	}

	rec := models.InstallRecord{Version: rel.TagName, Arch: arch}
	if err := m.writeRecord(rec); err != nil {
		return Event{}, err
	}
	return Event{
		Message: fmt.Sprintf("Frida server %s installed successfully", rec.String()),
		Version: rel.TagName,
	}, nil
}

/**
 * Install a binary picked by the user
 * @param {string} path - Plain binary or ".xz" archive
 * @returns {*Flow} The record is labelled as a manual installation with unknown arch
 */
func (m *InstallManager) InstallFromManualFile(path string) *Flow {
	return runFlow("install", func(ctx context.Context, r *reporter) (Event, error) {
		if err := m.prepare(ctx, r); err != nil {
			return Event{}, err
		}
		if fi, err := os.Stat(path); err != nil || fi.IsDir() {
			return Event{}, fmt.Errorf("%w: %s", models.ErrManualFileInvalid, path)
		}
		if err := m.pipeline.PrepareManual(path, func(msg string) { r.Progress(msg) }); err != nil {
			return Event{}, err
		}
		if err := m.makeExecutable(ctx, r); err != nil {
			return Event{}, err
		}
		rec := models.ManualInstallRecord(filepath.Base(path))
		if err := m.writeRecord(rec); err != nil {
			return Event{}, err
		}
		return Event{
			Message: fmt.Sprintf("Frida server installed from %s", filepath.Base(path)),
			Version: rec.Version,
		}, nil
	})
}

/**
 * Stop the server and delete the binary with its record
 */
func (m *InstallManager) Uninstall() *Flow {
	return runFlow("uninstall", func(ctx context.Context, r *reporter) (Event, error) {
		if err := m.prepare(ctx, r); err != nil {
			return Event{}, err
		}
		if !fileExists(m.BinaryPath()) && !fileExists(m.cfg.RecordPath()) {
			return Event{Message: "Frida server is not installed"}, nil
		}
		r.Progress("Removing installation...")
		if err := m.removeFiles(ctx); err != nil {
			return Event{}, err
		}
		return Event{Message: "Frida server uninstalled"}, nil
	})
}

// prepare 所有安装流程的公共前两步: 停服务，校验root
func (m *InstallManager) prepare(ctx context.Context, r *reporter) error {
	r.Progress("Stopping running server...")
	if m.server != nil {
		m.server.Terminate(ctx)
	}
	r.Progress("Checking root access...")
	if !m.exec.CheckRoot(ctx) {
		return models.ErrRootUnavailable
	}
	return nil
}

/**
 * Installed iff the binary exists, is executable and the record file exists
 */
func (m *InstallManager) IsInstalled() bool {
	fi, err := os.Stat(m.BinaryPath())
	if err != nil || fi.IsDir() || fi.Mode().Perm()&0o111 == 0 {
		return false
	}
	return fileExists(m.cfg.RecordPath())
}

/**
 * Read the install record
 * @returns {*models.InstallRecord} nil when nothing is installed
 */
func (m *InstallManager) InstalledRecord() *models.InstallRecord {
	if !m.IsInstalled() {
		return nil
	}
	path := m.cfg.RecordPath()
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	line := ""
	scanner := bufio.NewScanner(f)
	if scanner.Scan() {
		line = scanner.Text()
	}
	if strings.TrimSpace(line) == "" {
		return nil
	}
	rec := models.ParseInstallRecord(line)
	if fi, err := f.Stat(); err == nil {
		rec.InstalledAt = fi.ModTime()
	}
	return &rec
}

/**
 * Architecture of the device
 * @description
 * - install.arch in the config wins
 * - Then the Android ABI property, then the architecture of this binary
 */
func (m *InstallManager) DetectArch(ctx context.Context) string {
	if m.cfg.Arch != "" {
		return m.cfg.Arch
	}
	res := m.exec.Run(ctx, "getprop ro.product.cpu.abi")
	if res.Succeeded {
		if arch, ok := utils.ArchFromABI(res.FirstLine()); ok {
			return arch
		}
	}
	return utils.HostArch()
}

func (m *InstallManager) makeExecutable(ctx context.Context, r *reporter) error {
	r.Progress("Setting executable permissions...")
	bin := m.BinaryPath()
	res := m.exec.Run(ctx, "chmod 755 "+privilege.Quote(bin))
	fi, err := os.Stat(bin)
	if !res.Succeeded || err != nil || fi.Mode().Perm()&0o111 == 0 {
		logger.Errorf("chmod %s failed: exit=%d stderr=%s", bin, res.ExitCode, res.Stderr)
		return models.ErrPermission
	}
	return nil
}

func (m *InstallManager) writeRecord(rec models.InstallRecord) error {
	if err := os.WriteFile(m.cfg.RecordPath(), []byte(rec.String()+"\n"), 0o644); err != nil {
		return fmt.Errorf("write install record: %w", err)
	}
	return nil
}

// removeFiles 普通删除失败时(如文件属于root)再走特权rm
func (m *InstallManager) removeFiles(ctx context.Context) error {
	for _, path := range []string{m.BinaryPath(), m.cfg.RecordPath()} {
		err := os.Remove(path)
		if err == nil || errors.Is(err, os.ErrNotExist) {
			continue
		}
		if res := m.exec.Run(ctx, "rm -f "+privilege.Quote(path)); !res.Succeeded {
			return fmt.Errorf("remove %s: %w", path, err)
		}
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
