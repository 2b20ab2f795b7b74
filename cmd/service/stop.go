package service

import (
	"fmt"
	"time"

	"frida-keeper/cmd/output"
	"frida-keeper/controllers"
	"frida-keeper/internal/models"
	"frida-keeper/internal/rpc"
	"frida-keeper/services"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop frida server",
	Long:  "Stop frida server and sweep every process with its name. Stopping a server that is not running is not an error.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := stopServer(); err != nil {
			fmt.Println(err)
		}
	},
}

func stopServer() error {
	if client := output.Daemon(); client != nil {
		defer client.Close()
		if _, err := output.Submit(client, controllers.API_PREFIX+"/server/stop", nil); err != nil {
			return err
		}
		return waitStopped(client, 10*time.Second)
	}
	keeper, err := services.GetKeeper()
	if err != nil {
		return err
	}
	sub := keeper.Session().Subscribe()
	defer sub.Close()
	id, err := keeper.Session().StopServer()
	if err != nil {
		return err
	}
	return output.FollowLocal(sub, id)
}

// waitStopped 停止时会话不进入忙碌状态，改为轮询进程状态
func waitStopped(client rpc.HTTPClient, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		resp, err := client.Get(controllers.API_PREFIX+"/server", nil)
		if err != nil {
			return err
		}
		var detail models.ProcessDetail
		if err := resp.Decode(&detail); err != nil {
			return err
		}
		if detail.Pid == 0 {
			fmt.Println("Frida server stopped")
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("frida server (pid %d) still running after %v", detail.Pid, timeout)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func init() {
	serviceCmd.AddCommand(stopCmd)
}
