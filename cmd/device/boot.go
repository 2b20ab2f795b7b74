package device

import (
	"fmt"

	"frida-keeper/cmd/output"
	"frida-keeper/cmd/root"
	"frida-keeper/controllers"
	"frida-keeper/internal/logger"
	"frida-keeper/internal/models"
	"frida-keeper/services"

	"github.com/spf13/cobra"
)

var bootCmd = &cobra.Command{
	Use:   "boot",
	Short: "Start frida server if auto start is enabled",
	Long: `Meant to be called once at boot, e.g. from a Magisk service.d script.
Starts frida server on the saved port when the auto_start preference is on.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := boot(); err != nil {
			logger.Error(err)
			fmt.Println(err)
		}
	},
}

func boot() error {
	if client := output.Daemon(); client != nil {
		defer client.Close()
		resp, err := client.Get(controllers.API_PREFIX+"/prefs", nil)
		if err != nil {
			return err
		}
		var v models.PreferencesView
		if err := resp.Decode(&v); err != nil {
			return err
		}
		if v.AutoStart == nil || !*v.AutoStart {
			fmt.Println("Auto start disabled")
			return nil
		}
		id, err := output.Submit(client, controllers.API_PREFIX+"/server/start", nil)
		if err != nil {
			return err
		}
		return output.FollowRemote(client, id)
	}

	keeper, err := services.GetKeeper()
	if err != nil {
		return err
	}
	sub := keeper.Session().Subscribe()
	defer sub.Close()
	id, started, err := keeper.Boot(services.StartOptions{Detach: true})
	if err != nil {
		return err
	}
	if !started {
		fmt.Println("Auto start disabled")
		return nil
	}
	return output.FollowLocal(sub, id)
}

func init() {
	root.RootCmd.AddCommand(bootCmd)
}
