package install

import (
	"context"
	"fmt"

	"frida-keeper/cmd/output"
	"frida-keeper/controllers"
	"frida-keeper/internal/models"
	"frida-keeper/services"

	"github.com/spf13/cobra"
)

var (
	optVersionForce bool
	optSave         bool
)

var versionCmd = &cobra.Command{
	Use:   "version <tag>",
	Short: "Install a specific release",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := installVersion(context.Background(), args[0]); err != nil {
			fmt.Println(err)
		}
	},
}

/**
 * Install a release by tag
 * @param {string} tag - Release tag as listed by 'frida-keeper releases'
 * @description
 * - With --save the tag is validated against the index and stored in the saved versions
 * - Installing the version that is already installed is a no-op unless --force
 */
func installVersion(ctx context.Context, tag string) error {
	req := &models.InstallRequest{Version: tag, Force: optVersionForce, Save: optSave}
	return output.RunFlow(controllers.API_PREFIX+"/install/version", req,
		func(k *services.Keeper) (string, error) {
			if optSave {
				if err := k.SaveVersion(ctx, tag); err != nil {
					return "", err
				}
			}
			return k.Session().InstallVersion(tag, optVersionForce)
		})
}

func init() {
	versionCmd.Flags().BoolVarP(&optVersionForce, "force", "f", false, "Reinstall even if this version is installed")
	versionCmd.Flags().BoolVarP(&optSave, "save", "s", false, "Add the version to the saved versions")
	installCmd.AddCommand(versionCmd)
}
