package privilege

import (
	"context"
	"strconv"
	"strings"

	"frida-keeper/internal/utils"
)

/**
 * Process lookup through "pgrep -x" in an elevated session
 * @description
 * - Sees processes hidden from unprivileged callers (hidepid)
 * - Exit code 1 means no match; any other failure falls back to Fallback
 */
type PgrepFinder struct {
	Exec     Executor
	Fallback utils.ProcessFinder
}

func (f *PgrepFinder) FindPids(name string) []int {
	r := f.Exec.Run(context.Background(), "pgrep -x "+Quote(name))
	if r.Succeeded || (r.ExitCode == 1 && len(r.Lines) == 0) {
		return ParsePids(r.Lines)
	}
	if f.Fallback != nil {
		return f.Fallback.FindPids(name)
	}
	return nil
}

// ParsePids 解析pgrep/pidof输出，忽略无法解析的行
func ParsePids(lines []string) []int {
	var pids []int
	for _, line := range lines {
		for _, field := range strings.Fields(line) {
			if pid, err := strconv.Atoi(field); err == nil && pid > 0 {
				pids = append(pids, pid)
			}
		}
	}
	return pids
}
