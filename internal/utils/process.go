package utils

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// Path2ProcessName 从可执行文件路径得到进程名
func Path2ProcessName(path string) string {
	return filepath.Base(strings.TrimSpace(path))
}

/**
 * Find PIDs of processes with the given name
 * @param {string} processName - Executable name, compared case insensitively
 * @returns {[]int} Matching PIDs excluding the current process
 * @description
 * - Name() is truncated by the kernel to 15 bytes, so the executable path is
 *   also compared when the name alone does not match
 */
func FindProcesses(processName string) []int {
	var pids []int
	procs, err := process.Processes()
	if err != nil {
		return pids
	}
	selfPid := int32(os.Getpid())
	for _, p := range procs {
		if p.Pid == selfPid {
			continue
		}
		if matchProcessName(p, processName) {
			pids = append(pids, int(p.Pid))
		}
	}
	return pids
}

func matchProcessName(p *process.Process, processName string) bool {
	if name, err := p.Name(); err == nil && strings.EqualFold(name, processName) {
		return true
	}
	if exe, err := p.Exe(); err == nil && strings.EqualFold(Path2ProcessName(exe), processName) {
		return true
	}
	cmdline, err := p.CmdlineSlice()
	if err != nil || len(cmdline) == 0 {
		return false
	}
	return strings.EqualFold(Path2ProcessName(cmdline[0]), processName)
}

// IsProcessRunning 检查进程是否存在
func IsProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	exists, err := process.PidExists(int32(pid))
	return err == nil && exists
}

/**
 * Looks up processes by name
 */
type ProcessFinder interface {
	FindPids(name string) []int
}

type SystemProcessFinder struct{}

func (SystemProcessFinder) FindPids(name string) []int {
	return FindProcesses(name)
}
