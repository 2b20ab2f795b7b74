package models

type InstallStatus string

const (
	StatusIdle           InstallStatus = "idle"
	StatusInstalling     InstallStatus = "installing"
	StatusSuccess        InstallStatus = "success"
	StatusFailed         InstallStatus = "error"
	StatusServerStarting InstallStatus = "server_starting"
	StatusServerRunning  InstallStatus = "server_running"
	StatusServerStopped  InstallStatus = "server_stopped"
)

/**
 * Busy states have a flow in flight
 */
func (s InstallStatus) Busy() bool {
	return s == StatusInstalling || s == StatusServerStarting
}

/**
 * Snapshot of the orchestration session
 * @property {InstallStatus} status - Current state machine state
 * @property {[]string} messages - Append-only log of the current flow
 * @property {string} currentMessage - Last message appended
 * @property {DownloadProgress} download - Latest download progress of the current flow
 * @property {string} flowId - Id of the flow feeding the session
 * @property {int} pid - Last known server PID, 0 if unknown
 * @property {int} port - Last known server port
 * @property {bool} installed - Install state as read from disk
 * @property {string} serverInfo - Install record line, empty if not installed
 */
type SessionState struct {
	Status         InstallStatus    `json:"status"`
	Messages       []string         `json:"messages"`
	CurrentMessage string           `json:"currentMessage"`
	Download       DownloadProgress `json:"download"`
	FlowID         string           `json:"flowId"`
	Pid            int              `json:"pid"`
	Port           int              `json:"port"`
	Installed      bool             `json:"installed"`
	ServerInfo     string           `json:"serverInfo"`
}
