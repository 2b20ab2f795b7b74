//go:build !unix

package utils

import (
	"os"
	"os/exec"
	"time"
)

// SetNewPG 默认实现，用于不支持的构建目标
func SetNewPG(cmd *exec.Cmd) {
}

// KillProcessGracefully 非unix平台没有SIGTERM，直接强制结束
func KillProcessGracefully(pid int, grace time.Duration) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}
