package main

import (
	"os"

	_ "frida-keeper/cmd"
	"frida-keeper/cmd/root"
	"frida-keeper/internal/config"
	"frida-keeper/internal/logger"
)

func main() {
	// 守护进程模式同时输出到控制台
	isDaemonMode := len(os.Args) > 1 && os.Args[1] == "daemon"

	cfg := config.App()
	logger.InitLoggerWithMode(&cfg.Log, isDaemonMode)

	if err := root.RootCmd.Execute(); err != nil {
		logger.Fatal(err)
	}
	os.Exit(0)
}
