package service

import (
	"fmt"

	"frida-keeper/cmd/output"
	"frida-keeper/controllers"
	"frida-keeper/internal/models"
	"frida-keeper/services"

	"github.com/spf13/cobra"
)

var (
	optPort int
	optSave bool
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start frida server",
	Long:  "Start frida server, replacing any instance that is already running. Without --port the saved port is used.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := startServer(); err != nil {
			fmt.Println(err)
		}
	},
}

/**
 * Start the server through the daemon, or detached from this process
 * @description
 * - A daemon owns the process and keeps its output in the session log
 * - Without daemon the server is detached and writes to the process log file
 */
func startServer() error {
	req := &models.StartRequest{Port: optPort, Save: optSave}
	return output.RunFlow(controllers.API_PREFIX+"/server/start", req,
		func(k *services.Keeper) (string, error) {
			port := optPort
			if port == 0 {
				port = k.Prefs().ServerPort()
			} else if optSave {
				if err := k.Prefs().SetServerPort(port); err != nil {
					return "", err
				}
			}
			return k.Session().StartServer(port, services.StartOptions{Detach: true})
		})
}

func init() {
	startCmd.Flags().IntVarP(&optPort, "port", "p", 0, "Listening port (default: saved port)")
	startCmd.Flags().BoolVarP(&optSave, "save", "s", false, "Remember the port")
	serviceCmd.AddCommand(startCmd)
}
