package services

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"frida-keeper/internal/config"
	"frida-keeper/internal/logger"
	"frida-keeper/internal/models"
	"frida-keeper/internal/privilege"
	"frida-keeper/internal/utils"
)

/**
 * Start options
 * @property {bool} Detach - Redirect server output to the log file instead of the flow, for callers that exit right after starting
 */
type StartOptions struct {
	Detach bool
}

/**
 * serverHandle 本进程启动的服务进程
 * @property {*exec.Cmd} cmd - 提权壳进程
 * @property {int} port - 侦听端口
 * @property {chan} exited - 进程退出后关闭
 */
type serverHandle struct {
	cmd       *exec.Cmd
	port      int
	startTime time.Time
	exited    chan struct{}
	exitErr   error
}

func (h *serverHandle) alive() bool {
	select {
	case <-h.exited:
		return false
	default:
		return true
	}
}

/**
 * Starts, stops and observes the server process
 * @description
 * - Owns at most one live handle; a replacement is only stored after the old one is terminated
 * - Start and Stop hold lifecycle for their whole run, so concurrent starts cannot each spawn a server
 * - Running state is looked up by process name, so servers started elsewhere are seen too
 */
type ProcessController struct {
	cfg         config.ProcessConfig
	binaryPath  string
	processName string
	exec        privilege.Executor
	finder      utils.ProcessFinder

	lifecycle sync.Mutex // 串行化Start/Stop
	mutex     sync.Mutex
	handle *serverHandle
	detail models.ProcessDetail
	output func(line string)
}

func NewProcessController(cfg *config.ProcessConfig, binaryPath string, exec privilege.Executor, finder utils.ProcessFinder) *ProcessController {
	name := filepath.Base(binaryPath)
	return &ProcessController{
		cfg:         *cfg,
		binaryPath:  binaryPath,
		processName: name,
		exec:        exec,
		finder:      finder,
		detail: models.ProcessDetail{
			ProcessName: name,
			Status:      models.StatusExited,
		},
	}
}

// SetOutputSink 流程结束后服务进程的输出行交给sink
func (pc *ProcessController) SetOutputSink(sink func(line string)) {
	pc.mutex.Lock()
	defer pc.mutex.Unlock()
	pc.output = sink
}

/**
 * Start the server on a port
 * @param {int} port - TCP port passed as "-l <host>:<port>"
 * @returns {*Flow} Success carries PID and port
 * @description
 * - Terminates any existing instance first, so exactly one server is left afterwards
 * - Output lines are forwarded as progress events while the flow is open
 * - Readiness is a bounded PID poll; the flow fails early if the child exits
 */
func (pc *ProcessController) Start(port int, opts StartOptions) *Flow {
	return runFlow("start", func(ctx context.Context, r *reporter) (Event, error) {
		if port <= 0 || port > 65535 {
			return Event{}, fmt.Errorf("%w: invalid port %d", models.ErrProcessStart, port)
		}
		r.Progress("Checking root access...")
		if !pc.exec.CheckRoot(ctx) {
			return Event{}, models.ErrRootUnavailable
		}
		if _, err := os.Stat(pc.binaryPath); err != nil {
			return Event{}, fmt.Errorf("%w: %s", models.ErrNotInstalled, pc.binaryPath)
		}

		pc.lifecycle.Lock()
		defer pc.lifecycle.Unlock()
		r.Progress("Stopping any existing server...")
		pc.Terminate(ctx)
		if !utils.CheckPortAvailable(port) {
			return Event{}, fmt.Errorf("%w: port %d is already in use", models.ErrProcessStart, port)
		}

		listen := fmt.Sprintf("%s:%d", pc.cfg.ListenHost, port)
		r.Progressf("Starting %s on %s...", pc.processName, listen)
		h, err := pc.spawn(r, listen, port, opts)
		if err != nil {
			return Event{}, err
		}

		pid, err := pc.waitForPid(h)
		if err != nil {
			pc.Terminate(ctx)
			pc.setExit(models.StatusError, err.Error())
			return Event{}, err
		}
		pc.mutex.Lock()
		pc.detail.Pid = pid
		pc.mutex.Unlock()
		return Event{
			Message: fmt.Sprintf("Frida server started on port %d (PID: %d)", port, pid),
			Pid:     pid,
			Port:    port,
		}, nil
	})
}

func (pc *ProcessController) spawn(r *reporter, listen string, port int, opts StartOptions) (*serverHandle, error) {
	command := fmt.Sprintf("cd %s && exec %s -l %s",
		privilege.Quote(pc.cfg.WorkDir), privilege.Quote(pc.binaryPath), listen)
	cmd := pc.exec.Command(context.Background(), command)
	utils.SetNewPG(cmd)

	var readers sync.WaitGroup
	var logFile *os.File
	if opts.Detach {
		if err := os.MkdirAll(filepath.Dir(pc.cfg.LogFile), 0o755); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrProcessStart, err)
		}
		f, err := os.OpenFile(pc.cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("%w: open log file: %v", models.ErrProcessStart, err)
		}
		logFile = f
		cmd.Stdout = f
		cmd.Stderr = f
		r.Progressf("Server output goes to %s", pc.cfg.LogFile)
	} else {
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrProcessStart, err)
		}
		stderr, err := cmd.StderrPipe()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrProcessStart, err)
		}
		readers.Add(2)
		go pc.forward(&readers, r, stdout, "[STDOUT]")
		go pc.forward(&readers, r, stderr, "[STDERR]")
	}

	logger.Infof("Executing command: %s", command)
	if err := cmd.Start(); err != nil {
		if logFile != nil {
			logFile.Close()
		}
		return nil, fmt.Errorf("%w: %v", models.ErrProcessStart, err)
	}

	h := &serverHandle{
		cmd:       cmd,
		port:      port,
		startTime: time.Now(),
		exited:    make(chan struct{}),
	}
	go func() {
		// 管道读完后才能Wait
		readers.Wait()
		h.exitErr = cmd.Wait()
		if logFile != nil {
			logFile.Close()
		}
		close(h.exited)
		pc.onExit(h)
	}()

	pc.mutex.Lock()
	if old := pc.handle; old != nil && old.alive() {
		logger.Warnf("Replacing a live server handle (PID: %d)", old.cmd.Process.Pid)
		go utils.KillProcessGracefully(old.cmd.Process.Pid, pc.cfg.GracePeriod)
	}
	pc.handle = h
	pc.detail.Command = command
	pc.detail.Port = port
	pc.detail.Owned = true
	pc.detail.Status = models.StatusRunning
	pc.detail.StartTime = h.startTime
	pc.mutex.Unlock()
	return h, nil
}

// forward 逐行转发输出，流关闭是正常结束
func (pc *ProcessController) forward(wg *sync.WaitGroup, r *reporter, rd io.Reader, tag string) {
	defer wg.Done()
	scanner := bufio.NewScanner(rd)
	for scanner.Scan() {
		line := fmt.Sprintf("%s %s", tag, scanner.Text())
		if r.Progress(line) {
			continue
		}
		pc.mutex.Lock()
		sink := pc.output
		pc.mutex.Unlock()
		if sink != nil {
			sink(line)
		}
	}
}

func (pc *ProcessController) waitForPid(h *serverHandle) (int, error) {
	interval := pc.cfg.PollInterval
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	timeout := time.NewTimer(pc.cfg.StartTimeout)
	defer timeout.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.exited:
			if h.exitErr != nil {
				return 0, fmt.Errorf("%w: server exited: %v", models.ErrProcessStart, h.exitErr)
			}
			return 0, fmt.Errorf("%w: server exited right after start", models.ErrProcessStart)
		case <-timeout.C:
			return 0, fmt.Errorf("%w: no process found after %v", models.ErrProcessStart, pc.cfg.StartTimeout)
		case <-ticker.C:
			if pids := pc.finder.FindPids(pc.processName); len(pids) > 0 {
				return pids[0], nil
			}
		}
	}
}

func (pc *ProcessController) onExit(h *serverHandle) {
	pc.mutex.Lock()
	defer pc.mutex.Unlock()
	if pc.handle != h {
		return
	}
	pc.handle = nil
	pc.detail.Owned = false
	pc.detail.LastExitTime = time.Now()
	if pc.detail.Status == models.StatusStopped {
		return
	}
	if h.exitErr != nil {
		pc.detail.Status = models.StatusError
		pc.detail.LastExitReason = fmt.Sprintf("exited with error: %v", h.exitErr)
	} else {
		pc.detail.Status = models.StatusExited
		pc.detail.LastExitReason = "exited normally"
	}
	logger.Infof("Server process exited: %s", pc.detail.LastExitReason)
}

func (pc *ProcessController) setExit(status models.RunStatus, reason string) {
	pc.mutex.Lock()
	defer pc.mutex.Unlock()
	pc.detail.Status = status
	pc.detail.LastExitTime = time.Now()
	pc.detail.LastExitReason = reason
}

/**
 * Stop the server
 * @returns {*Flow} Always succeeds; stopping with nothing running is a no-op
 */
func (pc *ProcessController) Stop() *Flow {
	return runFlow("stop", func(ctx context.Context, r *reporter) (Event, error) {
		pc.lifecycle.Lock()
		defer pc.lifecycle.Unlock()
		wasRunning := pc.IsRunning()
		r.Progress("Stopping frida server...")
		pc.Terminate(ctx)
		if !wasRunning {
			return Event{Message: "Frida server is not running"}, nil
		}
		if pc.IsRunning() {
			r.Progress("Server process is still visible after termination")
		}
		return Event{Message: "Frida server stopped"}, nil
	})
}

/**
 * Terminate synchronously: owned handle first, then a sweep by name
 * @description
 * - Owned handle: SIGTERM, then SIGKILL once the grace period elapses
 * - Sweep: "pkill -TERM", wait up to the grace period, then "pkill -KILL";
 *   each is its own privileged call
 */
func (pc *ProcessController) Terminate(ctx context.Context) {
	pc.mutex.Lock()
	h := pc.handle
	pc.handle = nil
	if h != nil || pc.detail.Status == models.StatusRunning {
		pc.detail.Status = models.StatusStopped
		pc.detail.LastExitTime = time.Now()
		pc.detail.LastExitReason = "stopped by user"
		pc.detail.Owned = false
		pc.detail.Pid = 0
	}
	pc.mutex.Unlock()

	grace := pc.cfg.GracePeriod
	if h != nil && h.alive() {
		if err := utils.KillProcessGracefully(h.cmd.Process.Pid, grace); err != nil {
			logger.Warnf("Failed to terminate server handle (PID: %d): %v", h.cmd.Process.Pid, err)
		}
		select {
		case <-h.exited:
		case <-time.After(grace):
		}
	}

	if len(pc.finder.FindPids(pc.processName)) == 0 {
		return
	}
	name := privilege.Quote(pc.processName)
	pc.exec.Run(ctx, "pkill -TERM -x "+name)
	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if len(pc.finder.FindPids(pc.processName)) == 0 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	logger.Warnf("%s still alive after %v, killing", pc.processName, grace)
	pc.exec.Run(ctx, "pkill -KILL -x "+name)
}

func (pc *ProcessController) IsRunning() bool {
	return pc.CurrentPid() > 0
}

// CurrentPid 按进程名查找，0表示未运行
func (pc *ProcessController) CurrentPid() int {
	pids := pc.finder.FindPids(pc.processName)
	if len(pids) == 0 {
		return 0
	}
	return pids[0]
}

// Instances 所有同名的服务进程，包括不是本进程启动的
func (pc *ProcessController) Instances() []int {
	return pc.finder.FindPids(pc.processName)
}

func (pc *ProcessController) Detail() models.ProcessDetail {
	pid := pc.CurrentPid()
	pc.mutex.Lock()
	defer pc.mutex.Unlock()
	d := pc.detail
	d.Pid = pid
	if pid > 0 {
		d.Status = models.StatusRunning
	} else if d.Status == models.StatusRunning {
		d.Status = models.StatusExited
	}
	return d
}
