package saved

import (
	"context"
	"fmt"
	"time"

	"frida-keeper/cmd/output"
	"frida-keeper/cmd/root"
	"frida-keeper/controllers"
	"frida-keeper/internal/models"
	"frida-keeper/services"

	"github.com/spf13/cobra"
)

var savedCmd = &cobra.Command{
	Use:   "saved",
	Short: "Saved versions for quick switching (list/add/remove/switch)",
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved versions",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := listSaved(); err != nil {
			fmt.Println(err)
		}
	},
}

var addCmd = &cobra.Command{
	Use:   "add <tag>",
	Short: "Save a version listed by the release index",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := addSaved(context.Background(), args[0]); err != nil {
			fmt.Println(err)
		}
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <tag>",
	Short: "Forget a saved version",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := removeSaved(args[0]); err != nil {
			fmt.Println(err)
		}
	},
}

var switchCmd = &cobra.Command{
	Use:   "switch <tag>",
	Short: "Install a saved version, restarting the server if it was running",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := switchVersion(args[0]); err != nil {
			fmt.Println(err)
		}
	},
}

func printVersions(versions []string) {
	if len(versions) == 0 {
		fmt.Println("No saved versions")
		return
	}
	for _, v := range versions {
		fmt.Println(v)
	}
}

// 偏好文件由守护进程持有时通过接口修改，避免互相覆盖
func listSaved() error {
	if client := output.Daemon(); client != nil {
		defer client.Close()
		resp, err := client.Get(controllers.API_PREFIX+"/versions", nil)
		if err != nil {
			return err
		}
		var versions []string
		if err := resp.Decode(&versions); err != nil {
			return err
		}
		printVersions(versions)
		return nil
	}
	keeper, err := services.GetKeeper()
	if err != nil {
		return err
	}
	printVersions(keeper.Prefs().SavedVersions())
	return nil
}

func addSaved(ctx context.Context, tag string) error {
	if client := output.Daemon(); client != nil {
		defer client.Close()
		resp, err := client.Post(controllers.API_PREFIX+"/versions", &models.VersionRequest{Version: tag})
		if err != nil {
			return err
		}
		var versions []string
		if err := resp.Decode(&versions); err != nil {
			return err
		}
		printVersions(versions)
		return nil
	}
	keeper, err := services.GetKeeper()
	if err != nil {
		return err
	}
	if err := keeper.SaveVersion(ctx, tag); err != nil {
		return err
	}
	printVersions(keeper.Prefs().SavedVersions())
	return nil
}

func removeSaved(tag string) error {
	if client := output.Daemon(); client != nil {
		defer client.Close()
		resp, err := client.Delete(controllers.API_PREFIX+"/versions/"+tag, nil)
		if err != nil {
			return err
		}
		var versions []string
		if err := resp.Decode(&versions); err != nil {
			return err
		}
		printVersions(versions)
		return nil
	}
	keeper, err := services.GetKeeper()
	if err != nil {
		return err
	}
	if err := keeper.Prefs().RemoveSavedVersion(tag); err != nil {
		return err
	}
	printVersions(keeper.Prefs().SavedVersions())
	return nil
}

/**
 * Switch to a saved version
 * @description
 * - Locally the server is restarted detached so it outlives this command,
 *   and the restart flow is followed after the install
 */
func switchVersion(tag string) error {
	if client := output.Daemon(); client != nil {
		defer client.Close()
		id, err := output.Submit(client, controllers.API_PREFIX+"/versions/"+tag+"/switch", nil)
		if err != nil {
			return err
		}
		return output.FollowRemote(client, id)
	}

	keeper, err := services.GetKeeper()
	if err != nil {
		return err
	}
	wasRunning := keeper.Server().IsRunning()
	sub := keeper.Session().Subscribe()
	defer sub.Close()
	id, err := keeper.Session().SwitchVersion(tag, services.StartOptions{Detach: true})
	if err != nil {
		return err
	}
	if err := output.FollowLocal(sub, id); err != nil {
		return err
	}
	if !wasRunning {
		return nil
	}
	return output.FollowNext(sub, id, 10*time.Second)
}

func init() {
	root.RootCmd.AddCommand(savedCmd)
	savedCmd.AddCommand(listCmd, addCmd, removeCmd, switchCmd)
}
