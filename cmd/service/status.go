package service

import (
	"fmt"
	"strings"

	"frida-keeper/cmd/output"
	"frida-keeper/cmd/root"
	"frida-keeper/controllers"
	"frida-keeper/internal/models"
	"frida-keeper/internal/utils"
	"frida-keeper/services"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var optJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show frida server status",
	Long:  "Show whether frida server is installed and running. With a daemon the owned process and its last exit are shown too.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := showStatus(); err != nil {
			fmt.Println(err)
		}
	},
}

type statusView struct {
	Installed string                `json:"installed"`
	Daemon    bool                  `json:"daemon"`
	Pids      []int                 `json:"pids,omitempty"`
	Detail    *models.ProcessDetail `json:"detail,omitempty"`
}

func collectStatus() (*statusView, error) {
	view := &statusView{Installed: "no"}
	if client := output.Daemon(); client != nil {
		defer client.Close()
		view.Daemon = true
		resp, err := client.Get(controllers.API_PREFIX+"/server", nil)
		if err != nil {
			return nil, err
		}
		var detail models.ProcessDetail
		if err := resp.Decode(&detail); err != nil {
			return nil, err
		}
		view.Detail = &detail
		if detail.Pid > 0 {
			view.Pids = []int{detail.Pid}
		}
		resp, err = client.Get(controllers.API_PREFIX+"/install", nil)
		if err != nil {
			return nil, err
		}
		var info models.InstallInfo
		if err := resp.Decode(&info); err == nil && info.Installed {
			view.Installed = installedText(info.Record)
		}
		return view, nil
	}

	keeper, err := services.GetKeeper()
	if err != nil {
		return nil, err
	}
	if keeper.Installer().IsInstalled() {
		view.Installed = installedText(keeper.Installer().InstalledRecord())
	}
	view.Pids = keeper.Server().Instances()
	return view, nil
}

func installedText(rec *models.InstallRecord) string {
	if rec == nil {
		return "yes"
	}
	return rec.String()
}

func showStatus() error {
	view, err := collectStatus()
	if err != nil {
		return err
	}
	if optJSON {
		return utils.PrintJSON(view)
	}
	fmt.Printf("Installed: %s\n", view.Installed)
	if len(view.Pids) == 0 {
		fmt.Println("Running:   no")
	} else {
		pids := make([]string, len(view.Pids))
		for i, pid := range view.Pids {
			pids[i] = fmt.Sprint(pid)
		}
		fmt.Printf("Running:   yes (pid %s)\n", strings.Join(pids, ", "))
	}
	if d := view.Detail; d != nil {
		if d.Port > 0 {
			fmt.Printf("Port:      %d\n", d.Port)
		}
		if !d.StartTime.IsZero() && d.Pid > 0 {
			fmt.Printf("Started:   %s\n", humanize.Time(d.StartTime))
		}
		if !d.LastExitTime.IsZero() {
			fmt.Printf("Last exit: %s (%s)\n", humanize.Time(d.LastExitTime), d.LastExitReason)
		}
	} else {
		fmt.Println("Daemon:    not running")
	}
	return nil
}

func init() {
	statusCmd.Flags().BoolVar(&optJSON, "json", false, "Print as JSON")
	serviceCmd.AddCommand(statusCmd)
	// 顶层别名
	root.RootCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: statusCmd.Short,
		Args:  cobra.NoArgs,
		Run:   statusCmd.Run,
	})
}
