package models

import "time"

type RunStatus string

const (
	// 表示正在运行
	StatusRunning RunStatus = "running"
	// 表示未运行或进程自己退出
	StatusExited RunStatus = "exited"
	// 表示启动失败或异常退出
	StatusError RunStatus = "error"
	// 表示被用户手动停止
	StatusStopped RunStatus = "stopped"
)

type ProcessDetail struct {
	ProcessName    string    `json:"processName"`    //进程名，用于查找进程
	Command        string    `json:"command"`        //进程启动命令
	Port           int       `json:"port"`           //侦听端口
	Pid            int       `json:"pid"`            //进程PID(按进程名查到的)
	Owned          bool      `json:"owned"`          //是否由本进程启动并持有
	Status         RunStatus `json:"status"`         //状态
	StartTime      time.Time `json:"startTime"`      //启动时间
	LastExitTime   time.Time `json:"lastExitTime"`   //最后一次退出的时间
	LastExitReason string    `json:"lastExitReason"` //最后一次退出的原因
}
