package install

import (
	"fmt"

	"frida-keeper/cmd/output"
	"frida-keeper/controllers"
	"frida-keeper/internal/models"
	"frida-keeper/services"

	"github.com/spf13/cobra"
)

var optForce bool

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Install the newest release",
	Long:  "Install the newest release for this device. An existing install is kept unless --force is given.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := installLatest(optForce); err != nil {
			fmt.Println(err)
		}
	},
}

func installLatest(force bool) error {
	return output.RunFlow(controllers.API_PREFIX+"/install/latest", &models.InstallRequest{Force: force},
		func(k *services.Keeper) (string, error) {
			return k.Session().InstallLatest(force)
		})
}

func init() {
	latestCmd.Flags().BoolVarP(&optForce, "force", "f", false, "Reinstall even if a server is already installed")
	installCmd.AddCommand(latestCmd)
}
