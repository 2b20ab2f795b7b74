package env

import (
	"os"
	"path/filepath"
)

var Daemon bool = false

// (default: /data/adb/frida-keeper when running as root on Android, $HOME/.frida-keeper otherwise)
var KeeperDir string = GetKeeperDir()

/**
 * Get keeper data directory path
 * @returns {string} Returns keeper directory path
 * @description
 * - FRIDA_KEEPER_HOME overrides everything
 * - Rooted Android devices keep data under /data/adb, which survives app reinstalls
 * - Falls back to the user's home directory
 */
func GetKeeperDir() string {
	if dir := os.Getenv("FRIDA_KEEPER_HOME"); dir != "" {
		return dir
	}
	if fi, err := os.Stat("/data/adb"); err == nil && fi.IsDir() && os.Geteuid() == 0 {
		return "/data/adb/frida-keeper"
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".frida-keeper")
}

// 构建时通过 -ldflags "-X frida-keeper/internal/env.Version=..." 注入
var Version string = "dev"
