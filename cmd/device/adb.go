package device

import (
	"context"
	"fmt"

	"frida-keeper/cmd/root"
	"frida-keeper/internal/models"
	"frida-keeper/services"

	"github.com/spf13/cobra"
)

var adbCmd = &cobra.Command{
	Use:   "adb",
	Short: "ADB over Wi-Fi (status/enable/disable)",
}

var adbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether adbd listens on TCP",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := adbStatus(context.Background()); err != nil {
			fmt.Println(err)
		}
	},
}

var adbEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Let adbd listen on port 5555 and restart it",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := adbEnable(context.Background()); err != nil {
			fmt.Println(err)
		}
	},
}

var adbDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Switch adbd back to USB only and restart it",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := adbDisable(context.Background()); err != nil {
			fmt.Println(err)
		}
	},
}

func printAdb(st models.AdbStatus) {
	if !st.Enabled {
		fmt.Println("Wi-Fi ADB: disabled")
		return
	}
	fmt.Printf("Wi-Fi ADB: enabled on port %d\n", st.Port)
	if st.Address != "" {
		fmt.Printf("Connect with: adb connect %s:%d\n", st.Address, st.Port)
	}
}

func adbStatus(ctx context.Context) error {
	keeper, err := services.GetKeeper()
	if err != nil {
		return err
	}
	printAdb(keeper.Adb().Status(ctx))
	return nil
}

func adbEnable(ctx context.Context) error {
	keeper, err := services.GetKeeper()
	if err != nil {
		return err
	}
	st, err := keeper.Adb().Enable(ctx)
	if err != nil {
		return fmt.Errorf("enable Wi-Fi ADB: %w", err)
	}
	printAdb(st)
	return nil
}

func adbDisable(ctx context.Context) error {
	keeper, err := services.GetKeeper()
	if err != nil {
		return err
	}
	if err := keeper.Adb().Disable(ctx); err != nil {
		return fmt.Errorf("disable Wi-Fi ADB: %w", err)
	}
	printAdb(keeper.Adb().Status(ctx))
	return nil
}

func init() {
	root.RootCmd.AddCommand(adbCmd)
	adbCmd.AddCommand(adbStatusCmd, adbEnableCmd, adbDisableCmd)
}
