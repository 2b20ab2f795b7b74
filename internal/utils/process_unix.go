//go:build unix

package utils

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// SetNewPG 设置进程属性，使子进程在父进程退出后继续运行
func SetNewPG(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

/**
 * Terminate a process gracefully with SIGTERM first, then SIGKILL
 * @param {int} pid - Process ID to kill
 * @param {time.Duration} grace - How long to wait for the process to exit after SIGTERM
 * @returns {error} Returns error if the process could not be signalled at all
 */
func KillProcessGracefully(pid int, grace time.Duration) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process (PID: %d): %v", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err == nil {
		deadline := time.Now().Add(grace)
		for time.Now().Before(deadline) {
			// signal 0 检查进程是否还在
			if err := proc.Signal(syscall.Signal(0)); err != nil {
				return nil
			}
			time.Sleep(50 * time.Millisecond)
		}
	}
	if err := proc.Signal(syscall.SIGKILL); err != nil && err != os.ErrProcessDone {
		return fmt.Errorf("failed to kill process (PID: %d): %v", pid, err)
	}
	return nil
}
