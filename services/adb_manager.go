package services

import (
	"context"
	"fmt"
	"strconv"

	"frida-keeper/internal/models"
	"frida-keeper/internal/privilege"
	"frida-keeper/internal/utils"
)

const DEFAULT_ADB_PORT = 5555

/**
 * Toggles ADB over Wi-Fi through the service.adb.tcp.port property
 * @description
 * - Every step is one privileged call: setprop, stop adbd, start adbd
 */
type AdbManager struct {
	exec privilege.Executor
}

func NewAdbManager(exec privilege.Executor) *AdbManager {
	return &AdbManager{exec: exec}
}

/**
 * Current Wi-Fi ADB state
 * @description
 * - Enabled when the property holds a positive port
 */
func (a *AdbManager) Status(ctx context.Context) models.AdbStatus {
	st := models.AdbStatus{Address: utils.LocalIPv4()}
	res := a.exec.Run(ctx, "getprop service.adb.tcp.port")
	if !res.Succeeded {
		return st
	}
	if port, err := strconv.Atoi(res.FirstLine()); err == nil && port > 0 {
		st.Enabled = true
		st.Port = port
	}
	return st
}

func (a *AdbManager) Enable(ctx context.Context) (models.AdbStatus, error) {
	if err := a.apply(ctx, DEFAULT_ADB_PORT); err != nil {
		return models.AdbStatus{}, err
	}
	return models.AdbStatus{Enabled: true, Port: DEFAULT_ADB_PORT, Address: utils.LocalIPv4()}, nil
}

func (a *AdbManager) Disable(ctx context.Context) error {
	return a.apply(ctx, -1)
}

func (a *AdbManager) apply(ctx context.Context, port int) error {
	if !a.exec.CheckRoot(ctx) {
		return models.ErrRootUnavailable
	}
	steps := []string{
		fmt.Sprintf("setprop service.adb.tcp.port %d", port),
		"stop adbd",
		"start adbd",
	}
	for _, step := range steps {
		if res := a.exec.Run(ctx, step); !res.Succeeded {
			return fmt.Errorf("'%s' failed with exit code %d: %s", step, res.ExitCode, res.Stderr)
		}
	}
	return nil
}
