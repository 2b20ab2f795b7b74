package models

// ErrorResponse 控制接口返回的错误体
type ErrorResponse struct {
	Code    string `json:"code" example:"session.busy"`
	Message string `json:"message" example:"another operation is in progress"`
}

// FlowResponse 长操作被受理后返回流程ID，进度通过会话查询
type FlowResponse struct {
	FlowID  string `json:"flowId"`
	Message string `json:"message"`
}

type InstallRequest struct {
	Version string `json:"version"`
	Force   bool   `json:"force"`
	Save    bool   `json:"save"`
}

type InstallFileRequest struct {
	Path string `json:"path" binding:"required"`
}

/**
 * Install state as reported by the info endpoint
 */
type InstallInfo struct {
	Installed  bool           `json:"installed"`
	BinaryPath string         `json:"binaryPath"`
	Record     *InstallRecord `json:"record,omitempty"`
}

type StartRequest struct {
	Port int  `json:"port"`
	Save bool `json:"save"`
}

type VersionRequest struct {
	Version string `json:"version" binding:"required"`
}

/**
 * Preferences as exposed by the API, nil fields are left unchanged on update
 */
type PreferencesView struct {
	ServerPort    *int     `json:"serverPort,omitempty"`
	AutoStart     *bool    `json:"autoStart,omitempty"`
	DarkTheme     *bool    `json:"darkTheme,omitempty"`
	SavedVersions []string `json:"savedVersions,omitempty"`
}
