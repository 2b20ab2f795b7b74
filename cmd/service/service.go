package service

import (
	"frida-keeper/cmd/root"

	"github.com/spf13/cobra"
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Frida server operations (start/stop/status)",
	Long:  `Start, stop and inspect the frida-server process`,
}

const serviceExample = `  # start on the saved port
  frida-keeper service start
  # start on another port and remember it
  frida-keeper service start --port 31337 --save`

func init() {
	root.RootCmd.AddCommand(serviceCmd)

	serviceCmd.Example = serviceExample
}
