package services

import (
	"sync"
	"time"

	"frida-keeper/internal/logger"
	"frida-keeper/internal/models"
)

// 状态迁移表，Error只能通过Reset回到Idle
var transitions = map[models.InstallStatus][]models.InstallStatus{
	models.StatusIdle:           {models.StatusInstalling, models.StatusServerStarting},
	models.StatusInstalling:     {models.StatusSuccess, models.StatusFailed},
	models.StatusSuccess:        {models.StatusServerStarting, models.StatusInstalling},
	models.StatusServerStarting: {models.StatusServerRunning, models.StatusFailed},
	models.StatusServerRunning:  {models.StatusServerStopped, models.StatusServerStarting, models.StatusInstalling},
	models.StatusServerStopped:  {models.StatusServerStarting, models.StatusInstalling},
	models.StatusFailed:         {},
}

func CanTransition(from, to models.InstallStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

/**
 * Event subscription of a session
 */
type Subscription struct {
	events  chan Event
	session *Session

	mutex  sync.Mutex
	closed bool
}

func (sub *Subscription) Events() <-chan Event {
	return sub.events
}

func (sub *Subscription) Close() {
	sub.session.unsubscribe(sub)
}

// deliver 终态事件最多等待1秒，其余事件满了就丢
func (sub *Subscription) deliver(ev Event) {
	sub.mutex.Lock()
	defer sub.mutex.Unlock()
	if sub.closed {
		return
	}
	if ev.Terminal() {
		select {
		case sub.events <- ev:
		case <-time.After(time.Second):
			logger.Warnf("Subscriber too slow, terminal event of flow %s dropped", ev.FlowID)
		}
		return
	}
	select {
	case sub.events <- ev:
	default:
	}
}

/**
 * Orchestration session: folds flow events into one state
 * @description
 * - All state changes go through apply, under one mutex
 * - A new flow is refused while another one is running or while the session is in error
 * - The message log is cleared when a flow begins and on Reset, otherwise only appended to
 */
type Session struct {
	installer *InstallManager
	server    *ProcessController

	mutex       sync.Mutex
	state       models.SessionState
	subscribers map[*Subscription]struct{}
}

func NewSession(installer *InstallManager, server *ProcessController, defaultPort int) *Session {
	s := &Session{
		installer:   installer,
		server:      server,
		subscribers: make(map[*Subscription]struct{}),
	}
	s.state.Status = models.StatusIdle
	s.state.Port = defaultPort
	s.refresh()
	server.SetOutputSink(s.appendOutput)
	return s
}

/**
 * Snapshot of the current state
 */
func (s *Session) State() models.SessionState {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	st := s.state
	st.Messages = append([]string(nil), s.state.Messages...)
	return st
}

func (s *Session) Subscribe() *Subscription {
	sub := &Subscription{events: make(chan Event, 256), session: s}
	s.mutex.Lock()
	s.subscribers[sub] = struct{}{}
	s.mutex.Unlock()
	return sub
}

func (s *Session) unsubscribe(sub *Subscription) {
	s.mutex.Lock()
	delete(s.subscribers, sub)
	s.mutex.Unlock()

	sub.mutex.Lock()
	defer sub.mutex.Unlock()
	if !sub.closed {
		sub.closed = true
		close(sub.events)
	}
}

func (s *Session) InstallLatest(force bool) (string, error) {
	return s.begin(models.StatusInstalling, func() *Flow { return s.installer.InstallLatest(force) }, models.StatusSuccess)
}

func (s *Session) InstallFromRelease(rel *models.Release, force bool) (string, error) {
	return s.begin(models.StatusInstalling, func() *Flow { return s.installer.InstallFromRelease(rel, force) }, models.StatusSuccess)
}

func (s *Session) InstallVersion(tag string, force bool) (string, error) {
	return s.begin(models.StatusInstalling, func() *Flow { return s.installer.InstallVersion(tag, force) }, models.StatusSuccess)
}

func (s *Session) InstallFromManualFile(path string) (string, error) {
	return s.begin(models.StatusInstalling, func() *Flow { return s.installer.InstallFromManualFile(path) }, models.StatusSuccess)
}

func (s *Session) Uninstall() (string, error) {
	return s.begin(models.StatusInstalling, func() *Flow { return s.installer.Uninstall() }, models.StatusSuccess)
}

func (s *Session) StartServer(port int, opts StartOptions) (string, error) {
	return s.begin(models.StatusServerStarting, func() *Flow { return s.server.Start(port, opts) }, models.StatusServerRunning)
}

/**
 * Stop the server
 * @description
 * - Only a running session moves to server_stopped
 * - In any other state the stop flow still runs but the state is left untouched
 */
func (s *Session) StopServer() (string, error) {
	s.mutex.Lock()
	if s.state.Status != models.StatusServerRunning {
		s.mutex.Unlock()
		f := s.server.Stop()
		go s.broadcastOnly(f)
		return f.ID, nil
	}
	f := s.server.Stop()
	s.state.FlowID = f.ID
	s.state.Messages = nil
	s.state.CurrentMessage = ""
	s.mutex.Unlock()
	go s.track(f, models.StatusServerStopped)
	return f.ID, nil
}

/**
 * Switch to another release: stop, install it, and start again if the server was running
 * @param {string} tag - Release tag, usually one of the saved versions
 * @param {StartOptions} opts - Used for the restart
 */
func (s *Session) SwitchVersion(tag string, opts StartOptions) (string, error) {
	wasRunning := s.server.IsRunning()
	s.mutex.Lock()
	port := s.state.Port
	s.mutex.Unlock()

	var install *Flow
	id, err := s.begin(models.StatusInstalling, func() *Flow {
		install = s.installer.InstallVersion(tag, true)
		return install
	}, "")
	if err != nil {
		return "", err
	}
	go func() {
		if !s.track(install, models.StatusSuccess) || !wasRunning || port <= 0 {
			return
		}
		if _, err := s.StartServer(port, opts); err != nil {
			logger.Warnf("Restart after switching to %s failed: %v", tag, err)
		}
	}()
	return id, nil
}

/**
 * Leave the error state: back to idle, log cleared, install state re-read from disk
 */
func (s *Session) Reset() error {
	s.mutex.Lock()
	if s.state.Status.Busy() {
		s.mutex.Unlock()
		return models.ErrSessionBusy
	}
	s.state = models.SessionState{Status: models.StatusIdle, Port: s.state.Port}
	s.mutex.Unlock()
	s.refresh()
	return nil
}

/**
 * Start a flow if the state machine allows it
 * @param {InstallStatus} busy - State entered while the flow runs
 * @param {func} start - Creates the flow, called with the transition already applied
 * @param {InstallStatus} done - State entered on success; empty means the caller tracks the flow
 */
func (s *Session) begin(busy models.InstallStatus, start func() *Flow, done models.InstallStatus) (string, error) {
	s.mutex.Lock()
	cur := s.state.Status
	if cur.Busy() {
		s.mutex.Unlock()
		return "", models.ErrSessionBusy
	}
	if !CanTransition(cur, busy) {
		s.mutex.Unlock()
		return "", models.ErrInvalidTransition
	}
	s.state.Status = busy
	s.state.Messages = nil
	s.state.CurrentMessage = ""
	s.state.Download = models.DownloadProgress{}
	f := start()
	s.state.FlowID = f.ID
	s.mutex.Unlock()

	if done != "" {
		go s.track(f, done)
	}
	return f.ID, nil
}

// track 消费流程事件直到终止事件，返回是否成功
func (s *Session) track(f *Flow, done models.InstallStatus) bool {
	ok := false
	for ev := range f.Events() {
		s.apply(ev, done)
		if ev.Kind == EventSuccess {
			ok = true
		}
	}
	return ok
}

func (s *Session) broadcastOnly(f *Flow) {
	for ev := range f.Events() {
		s.broadcast(ev)
	}
}

/**
 * The single reducer of session state
 */
func (s *Session) apply(ev Event, done models.InstallStatus) {
	refresh := false
	s.mutex.Lock()
	if ev.FlowID == s.state.FlowID {
		switch ev.Kind {
		case EventProgress:
			s.appendLocked(ev.Message)
		case EventDownload:
			d := *ev.Download
			// 进度单调不减
			if d.Indeterminate || d.Downloaded >= s.state.Download.Downloaded {
				s.state.Download = d
			}
		case EventError:
			s.transitionLocked(models.StatusFailed)
			s.appendLocked("Error: " + ev.Message)
		case EventSuccess:
			s.transitionLocked(done)
			s.appendLocked(ev.Message)
			switch done {
			case models.StatusServerRunning:
				s.state.Pid = ev.Pid
				s.state.Port = ev.Port
			case models.StatusServerStopped:
				s.state.Pid = 0
			}
			refresh = true
		}
	}
	s.mutex.Unlock()
	s.broadcast(ev)
	if refresh {
		s.refresh()
	}
}

func (s *Session) transitionLocked(to models.InstallStatus) {
	if !CanTransition(s.state.Status, to) {
		logger.Warnf("Ignored transition %s -> %s", s.state.Status, to)
		return
	}
	s.state.Status = to
}

func (s *Session) appendLocked(msg string) {
	s.state.Messages = append(s.state.Messages, msg)
	s.state.CurrentMessage = msg
}

func (s *Session) appendOutput(line string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.appendLocked(line)
}

// broadcast 在会话锁外发送，慢订阅者不会卡住状态读写
func (s *Session) broadcast(ev Event) {
	s.mutex.Lock()
	subs := make([]*Subscription, 0, len(s.subscribers))
	for sub := range s.subscribers {
		subs = append(subs, sub)
	}
	s.mutex.Unlock()
	for _, sub := range subs {
		sub.deliver(ev)
	}
}

// refresh 从磁盘重新读取安装状态
func (s *Session) refresh() {
	installed := s.installer.IsInstalled()
	info := ""
	if rec := s.installer.InstalledRecord(); rec != nil {
		info = rec.String()
	}
	pid := s.server.CurrentPid()

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.state.Installed = installed
	s.state.ServerInfo = info
	if !s.state.Status.Busy() {
		s.state.Pid = pid
	}
}
