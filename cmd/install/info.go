package install

import (
	"fmt"

	"frida-keeper/cmd/output"
	"frida-keeper/controllers"
	"frida-keeper/internal/models"
	"frida-keeper/internal/utils"
	"frida-keeper/services"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var optJSON bool

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the installed server",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := showInfo(); err != nil {
			fmt.Println(err)
		}
	},
}

func loadInfo() (*models.InstallInfo, error) {
	if client := output.Daemon(); client != nil {
		defer client.Close()
		resp, err := client.Get(controllers.API_PREFIX+"/install", nil)
		if err != nil {
			return nil, err
		}
		var info models.InstallInfo
		if err := resp.Decode(&info); err != nil {
			return nil, err
		}
		return &info, nil
	}
	keeper, err := services.GetKeeper()
	if err != nil {
		return nil, err
	}
	installer := keeper.Installer()
	return &models.InstallInfo{
		Installed:  installer.IsInstalled(),
		BinaryPath: installer.BinaryPath(),
		Record:     installer.InstalledRecord(),
	}, nil
}

func showInfo() error {
	info, err := loadInfo()
	if err != nil {
		return err
	}
	if optJSON {
		return utils.PrintJSON(info)
	}
	if !info.Installed {
		fmt.Println("Frida server is not installed")
		return nil
	}
	fmt.Printf("Binary:    %s\n", info.BinaryPath)
	if info.Record == nil {
		fmt.Println("Version:   unknown (no install record)")
		return nil
	}
	fmt.Printf("Version:   %s\n", info.Record.Version)
	fmt.Printf("Arch:      %s\n", info.Record.Arch)
	if !info.Record.InstalledAt.IsZero() {
		fmt.Printf("Installed: %s\n", humanize.Time(info.Record.InstalledAt))
	}
	return nil
}

func init() {
	infoCmd.Flags().BoolVar(&optJSON, "json", false, "Print as JSON")
	installCmd.AddCommand(infoCmd)
}
