package install

import (
	"fmt"
	"path/filepath"

	"frida-keeper/cmd/output"
	"frida-keeper/controllers"
	"frida-keeper/internal/models"
	"frida-keeper/services"

	"github.com/spf13/cobra"
)

var fileCmd = &cobra.Command{
	Use:   "file <path>",
	Short: "Install from a local archive or binary",
	Long:  "Install from a file already on the device. Files ending in .xz are decompressed, anything else is copied as is.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := installFile(args[0]); err != nil {
			fmt.Println(err)
		}
	},
}

func installFile(path string) error {
	// 守护进程可能运行在不同的工作目录
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	return output.RunFlow(controllers.API_PREFIX+"/install/file", &models.InstallFileRequest{Path: abs},
		func(k *services.Keeper) (string, error) {
			return k.Session().InstallFromManualFile(abs)
		})
}

func init() {
	installCmd.AddCommand(fileCmd)
}
