package misc

import (
	"fmt"

	"frida-keeper/cmd/root"
	"frida-keeper/controllers"
	"frida-keeper/internal/rpc"

	"github.com/spf13/cobra"
)

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Reload daemon configuration",
	Long:  `Ask the running keeper daemon to re-read its configuration file`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := reloadDaemonConfig(); err != nil {
			fmt.Println(err)
		}
	},
}

/**
 * Reload daemon configuration via the control API
 * @returns {error} Connection errors when the daemon is not running, API errors otherwise
 */
func reloadDaemonConfig() error {
	rpcClient := rpc.NewHTTPClient(nil)
	defer rpcClient.Close()

	resp, err := rpcClient.Post(controllers.API_PREFIX+"/reload", nil)
	if err != nil {
		return fmt.Errorf("keeper daemon is not reachable: %v", err)
	}
	if resp.Error != "" {
		return fmt.Errorf("keeper daemon returned error(%d): %s", resp.StatusCode, resp.Error)
	}
	fmt.Println("Daemon configuration reloaded")
	return nil
}

func init() {
	root.RootCmd.AddCommand(reloadCmd)
}
