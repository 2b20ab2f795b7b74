package privilege

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"frida-keeper/internal/config"
	"frida-keeper/internal/logger"
)

const (
	RootCheckUid    = "uid"
	RootCheckLegacy = "legacy"
)

/**
 * Outcome of one privileged call
 * @property {bool} Succeeded - Exit code was 0 and the shell could be spawned
 * @property {int} ExitCode - Exit code of the shell, -1 when it never ran
 * @property {[]string} Lines - Stdout split into lines
 * @property {string} Stderr - Raw stderr
 */
type Result struct {
	Succeeded bool
	ExitCode  int
	Lines     []string
	Stderr    string
}

func (r Result) FirstLine() string {
	if len(r.Lines) == 0 {
		return ""
	}
	return strings.TrimSpace(r.Lines[0])
}

func (r Result) Output() string {
	return strings.Join(r.Lines, "\n")
}

/**
 * Runs shell statements with elevated privilege
 */
type Executor interface {
	Run(ctx context.Context, command string) Result
	Command(ctx context.Context, command string) *exec.Cmd
	CheckRoot(ctx context.Context) bool
}

/**
 * Executor backed by a su-like broker
 * @description
 * - Every Run spawns a fresh broker, writes the statement and an exit directive to its stdin
 * - Nothing is shared between calls, so no quoting state leaks across statements
 */
type SuExecutor struct {
	Shell     string
	RootCheck string
	Timeout   time.Duration
}

func NewSuExecutor(cfg *config.PrivilegeConfig) *SuExecutor {
	e := &SuExecutor{
		Shell:     cfg.Shell,
		RootCheck: cfg.RootCheck,
		Timeout:   cfg.Timeout,
	}
	if e.Shell == "" {
		e.Shell = "su"
	}
	if e.RootCheck == "" {
		e.RootCheck = RootCheckUid
	}
	return e
}

/**
 * Run one statement in a new elevated session
 * @param {context.Context} ctx - Bounds the call together with the configured timeout
 * @param {string} command - Shell statement, passed verbatim
 * @returns {Result} Never fails with an error; spawn failures yield Succeeded=false
 */
func (e *SuExecutor) Run(ctx context.Context, command string) Result {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, e.Shell)
	cmd.Stdin = strings.NewReader(command + "\nexit\n")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{
		Lines:  splitLines(stdout.Bytes()),
		Stderr: stderr.String(),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
		logger.Debugf("privileged call '%s' failed: %v", command, err)
		return result
	}
	result.ExitCode = 0
	result.Succeeded = true
	return result
}

/**
 * Build, without starting, an elevated command for a long running child
 * @description
 * - The statement is passed with "-c" so the broker execs into the child
 */
func (e *SuExecutor) Command(ctx context.Context, command string) *exec.Cmd {
	return exec.CommandContext(ctx, e.Shell, "-c", command)
}

/**
 * Decide whether elevation is available
 * @description
 * - uid: "id -u" must succeed and print 0
 * - legacy: output of "id" must contain "uid=0"
 */
func (e *SuExecutor) CheckRoot(ctx context.Context) bool {
	if e.RootCheck == RootCheckLegacy {
		return IsRootOutput(RootCheckLegacy, e.Run(ctx, "id"))
	}
	return IsRootOutput(RootCheckUid, e.Run(ctx, "id -u"))
}

func IsRootOutput(strategy string, r Result) bool {
	switch strategy {
	case RootCheckLegacy:
		return strings.Contains(r.Output(), "uid=0")
	default:
		return r.Succeeded && r.FirstLine() == "0"
	}
}

func splitLines(data []byte) []string {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

// Quote 单引号包裹参数，供拼接到shell语句
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func (r Result) String() string {
	return fmt.Sprintf("exit=%d lines=%d", r.ExitCode, len(r.Lines))
}
