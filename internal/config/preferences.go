package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"frida-keeper/internal/env"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/viper"
)

const (
	DEFAULT_PORT = 27042

	keyServerPort    = "server_port"
	keyAutoStart     = "auto_start"
	keyDarkTheme     = "dark_theme"
	keySavedVersions = "saved_versions"
)

// 偏好设置文件路径
func PreferencesPath() string {
	return filepath.Join(env.KeeperDir, "preferences.yaml")
}

/**
 * Persisted user preferences
 * @description
 * - Backed by a YAML file, read once when opened and rewritten by every setter
 * - Saved versions form a set; duplicates are dropped on add
 */
type Preferences struct {
	path  string
	store *viper.Viper
	mutex sync.Mutex
}

/**
 * Open preferences file, creating an empty store if it does not exist yet
 * @param {string} path - Path of the YAML file
 * @returns {*Preferences, error} Returns error if the file exists but cannot be parsed
 */
func OpenPreferences(path string) (*Preferences, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault(keyServerPort, DEFAULT_PORT)
	v.SetDefault(keyAutoStart, false)
	v.SetDefault(keyDarkTheme, true)
	v.SetDefault(keySavedVersions, []string{})

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read preferences '%s': %w", path, err)
		}
	}
	return &Preferences{path: path, store: v}, nil
}

func (p *Preferences) ServerPort() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	port := p.store.GetInt(keyServerPort)
	if port <= 0 || port > 65535 {
		return DEFAULT_PORT
	}
	return port
}

func (p *Preferences) SetServerPort(port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port: %d", port)
	}
	return p.set(keyServerPort, port)
}

func (p *Preferences) AutoStartEnabled() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.store.GetBool(keyAutoStart)
}

func (p *Preferences) SetAutoStartEnabled(enabled bool) error {
	return p.set(keyAutoStart, enabled)
}

func (p *Preferences) DarkTheme() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.store.GetBool(keyDarkTheme)
}

func (p *Preferences) SetDarkTheme(enabled bool) error {
	return p.set(keyDarkTheme, enabled)
}

/**
 * Saved version tags, newest first
 * @description
 * - Tags that parse as semantic versions are ordered by version
 * - Anything else is placed after them in lexical order
 */
func (p *Preferences) SavedVersions() []string {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return sortVersions(p.store.GetStringSlice(keySavedVersions))
}

func (p *Preferences) AddSavedVersion(tag string) error {
	if tag == "" {
		return fmt.Errorf("empty version tag")
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	current := p.store.GetStringSlice(keySavedVersions)
	for _, v := range current {
		if v == tag {
			return nil
		}
	}
	return p.save(keySavedVersions, sortVersions(append(current, tag)))
}

func (p *Preferences) RemoveSavedVersion(tag string) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	current := p.store.GetStringSlice(keySavedVersions)
	kept := make([]string, 0, len(current))
	for _, v := range current {
		if v != tag {
			kept = append(kept, v)
		}
	}
	if len(kept) == len(current) {
		return nil
	}
	return p.save(keySavedVersions, kept)
}

func (p *Preferences) set(key string, value interface{}) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.save(key, value)
}

func (p *Preferences) save(key string, value interface{}) error {
	p.store.Set(key, value)
	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return fmt.Errorf("create preferences dir: %w", err)
	}
	if err := p.store.WriteConfigAs(p.path); err != nil {
		return fmt.Errorf("write preferences '%s': %w", p.path, err)
	}
	return nil
}

func sortVersions(tags []string) []string {
	out := append([]string(nil), tags...)
	sort.SliceStable(out, func(i, j int) bool {
		vi, erri := semver.NewVersion(out[i])
		vj, errj := semver.NewVersion(out[j])
		switch {
		case erri == nil && errj == nil:
			return vi.GreaterThan(vj)
		case erri == nil:
			return true
		case errj == nil:
			return false
		default:
			return out[i] < out[j]
		}
	})
	return out
}
