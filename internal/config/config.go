package config

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"frida-keeper/internal/env"

	"github.com/spf13/viper"
)

/**
 * Daemon HTTP server configuration
 * @property {string} address - Listening address of the control API (e.g. "127.0.0.1:27080")
 * @property {string} socket - Unix socket path, empty disables the socket listener
 * @property {string} mode - Gin mode (debug/release/test)
 */
type ServerConfig struct {
	Address string `mapstructure:"address"`
	Socket  string `mapstructure:"socket"`
	Mode    string `mapstructure:"mode"`
}

/**
 * Logging configuration
 * @property {string} level - Log level (debug/info/warn/error)
 * @property {string} path - Log file path, "console" writes to stdout
 */
type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

/**
 * Release index configuration
 * @property {string} base_url - Repository API base, "/releases/latest" and "/releases" are appended
 * @property {string} product - Product marker, assets are named "<product>-server-..."
 * @property {string} platform - Platform marker inside asset names
 * @property {int} limit - Number of releases requested by list operations
 * @property {duration} timeout - HTTP timeout for index requests
 */
type ReleaseConfig struct {
	BaseUrl  string        `mapstructure:"base_url"`
	Product  string        `mapstructure:"product"`
	Platform string        `mapstructure:"platform"`
	Limit    int           `mapstructure:"limit"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

/**
 * Install layout
 * @property {string} dir - Directory holding the binary and its record file
 * @property {string} download_dir - Where archives are downloaded to
 * @property {string} binary_name - File name of the installed binary
 * @property {string} record_name - File name of the install record
 * @property {string} arch - Forces the architecture instead of detecting it
 */
type InstallConfig struct {
	Dir         string `mapstructure:"dir"`
	DownloadDir string `mapstructure:"download_dir"`
	BinaryName  string `mapstructure:"binary_name"`
	RecordName  string `mapstructure:"record_name"`
	Arch        string `mapstructure:"arch"`
}

/**
 * Elevation settings
 * @property {string} shell - Elevation broker spawned per privileged call
 * @property {string} root_check - "uid" (id -u == 0) or "legacy" (output of id contains uid=0)
 * @property {duration} timeout - Upper bound of one privileged call
 */
type PrivilegeConfig struct {
	Shell     string        `mapstructure:"shell"`
	RootCheck string        `mapstructure:"root_check"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

/**
 * Process control settings
 * @property {string} work_dir - Working directory the server is started in
 * @property {string} listen_host - Host part of the "-l" argument
 * @property {duration} start_timeout - How long to poll for the PID after spawning
 * @property {duration} poll_interval - Interval between PID polls
 * @property {duration} grace_period - Wait between graceful and forced termination
 * @property {string} log_file - Output file of detached servers
 */
type ProcessConfig struct {
	WorkDir      string        `mapstructure:"work_dir"`
	ListenHost   string        `mapstructure:"listen_host"`
	StartTimeout time.Duration `mapstructure:"start_timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	GracePeriod  time.Duration `mapstructure:"grace_period"`
	LogFile      string        `mapstructure:"log_file"`
}

/**
 * Detection collaborator
 * @property {string} command - Scanner executable printing a JSON report, empty disables detection
 * @property {[]string} args - Scanner arguments
 * @property {duration} timeout - Scan timeout
 */
type DetectConfig struct {
	Command string        `mapstructure:"command"`
	Args    []string      `mapstructure:"args"`
	Timeout time.Duration `mapstructure:"timeout"`
}

/**
 * Metrics configuration
 * @property {bool} enabled - Expose /metrics on the daemon
 */
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type AppConfig struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Release   ReleaseConfig   `mapstructure:"release"`
	Install   InstallConfig   `mapstructure:"install"`
	Privilege PrivilegeConfig `mapstructure:"privilege"`
	Process   ProcessConfig   `mapstructure:"process"`
	Detect    DetectConfig    `mapstructure:"detect"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

const DEFAULT_RELEASE_URL = "https://api.github.com/repos/frida/frida"

/**
 * Load application configuration from YAML file
 */
func LoadConfig() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(env.KeeperDir)
	v.SetEnvPrefix("FRIDA_KEEPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return collectConfig(&cfg), nil
}

// 环境变量只对注册过默认值的键生效，所以每个键都要有默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "127.0.0.1:27080")
	v.SetDefault("server.socket", "")
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", "")
	v.SetDefault("release.base_url", DEFAULT_RELEASE_URL)
	v.SetDefault("release.product", "frida")
	v.SetDefault("release.platform", "android")
	v.SetDefault("release.limit", 50)
	v.SetDefault("release.timeout", 60*time.Second)
	v.SetDefault("install.dir", "")
	v.SetDefault("install.download_dir", "")
	v.SetDefault("install.binary_name", "frida-server")
	v.SetDefault("install.record_name", "server-info.txt")
	v.SetDefault("install.arch", "")
	v.SetDefault("privilege.shell", "su")
	v.SetDefault("privilege.root_check", "uid")
	v.SetDefault("privilege.timeout", 30*time.Second)
	v.SetDefault("process.work_dir", "/data/local/tmp")
	v.SetDefault("process.listen_host", "0.0.0.0")
	v.SetDefault("process.start_timeout", 5*time.Second)
	v.SetDefault("process.poll_interval", 200*time.Millisecond)
	v.SetDefault("process.grace_period", 500*time.Millisecond)
	v.SetDefault("process.log_file", "")
	v.SetDefault("detect.command", "")
	v.SetDefault("detect.args", []string{})
	v.SetDefault("detect.timeout", 30*time.Second)
	v.SetDefault("metrics.enabled", true)
}

/**
 * Build configuration from defaults only, ignoring files and environment
 */
func Defaults() *AppConfig {
	v := viper.New()
	setDefaults(v)
	var cfg AppConfig
	_ = v.Unmarshal(&cfg)
	return collectConfig(&cfg)
}

/**
 * Fill derived values that depend on the keeper directory
 */
func collectConfig(cfg *AppConfig) *AppConfig {
	if cfg.Install.Dir == "" {
		cfg.Install.Dir = filepath.Join(env.KeeperDir, "bin")
	}
	if cfg.Install.DownloadDir == "" {
		cfg.Install.DownloadDir = filepath.Join(env.KeeperDir, "downloads")
	}
	if cfg.Install.BinaryName == "" {
		cfg.Install.BinaryName = "frida-server"
	}
	if cfg.Install.RecordName == "" {
		cfg.Install.RecordName = "server-info.txt"
	}
	if cfg.Release.BaseUrl == "" {
		cfg.Release.BaseUrl = DEFAULT_RELEASE_URL
	}
	if cfg.Release.Limit <= 0 {
		cfg.Release.Limit = 50
	}
	if cfg.Process.LogFile == "" {
		cfg.Process.LogFile = filepath.Join(env.KeeperDir, "logs", "frida-server.log")
	}
	if cfg.Server.Socket == "" {
		cfg.Server.Socket = filepath.Join(env.KeeperDir, "run", "keeper.sock")
	}
	return cfg
}

/**
 * Absolute path of the installed binary
 */
func (c *InstallConfig) BinaryPath() string {
	return filepath.Join(c.Dir, c.BinaryName)
}

/**
 * Absolute path of the install record
 */
func (c *InstallConfig) RecordPath() string {
	return filepath.Join(c.Dir, c.RecordName)
}

var (
	Config     AppConfig
	configLock sync.RWMutex
)

/**
 * Get a copy of the loaded configuration
 */
func App() AppConfig {
	configLock.RLock()
	defer configLock.RUnlock()
	return Config
}

/**
 * Reload configuration from disk and environment
 * @returns {error} Returns error if the config file exists but cannot be parsed
 */
func ReloadConfig() error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	configLock.Lock()
	Config = *cfg
	configLock.Unlock()
	return nil
}

func init() {
	cfg, err := LoadConfig()
	if err != nil {
		cfg = Defaults()
	}
	Config = *cfg
}
