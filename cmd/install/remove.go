package install

import (
	"fmt"

	"frida-keeper/cmd/output"
	"frida-keeper/controllers"
	"frida-keeper/internal/models"
	"frida-keeper/internal/rpc"
	"frida-keeper/services"

	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:     "remove",
	Aliases: []string{"uninstall"},
	Short:   "Stop and remove the installed server",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := uninstall(); err != nil {
			fmt.Println(err)
		}
	},
}

func uninstall() error {
	if client := output.Daemon(); client != nil {
		defer client.Close()
		return uninstallRemote(client)
	}
	keeper, err := services.GetKeeper()
	if err != nil {
		return err
	}
	sub := keeper.Session().Subscribe()
	defer sub.Close()
	id, err := keeper.Session().Uninstall()
	if err != nil {
		return err
	}
	return output.FollowLocal(sub, id)
}

// DELETE请求不带请求体，单独处理
func uninstallRemote(client rpc.HTTPClient) error {
	resp, err := client.Delete(controllers.API_PREFIX+"/install", nil)
	if err != nil {
		return err
	}
	var fr models.FlowResponse
	if err := resp.Decode(&fr); err != nil {
		return err
	}
	fmt.Println(fr.Message)
	return output.FollowRemote(client, fr.FlowID)
}

func init() {
	installCmd.AddCommand(removeCmd)
}
