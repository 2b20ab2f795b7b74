package session

import (
	"errors"
	"fmt"

	"frida-keeper/cmd/output"
	"frida-keeper/cmd/root"
	"frida-keeper/controllers"
	"frida-keeper/internal/models"
	"frida-keeper/internal/utils"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var optJSON bool

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Daemon session state (show/reset)",
	Long:  `The session folds every install and server operation of the daemon into one state and message log`,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the session state and message log",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := showSession(); err != nil {
			fmt.Println(err)
		}
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Leave the error state",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := resetSession(); err != nil {
			fmt.Println(err)
		}
	},
}

var errNoDaemon = errors.New("keeper daemon is not running, start it with 'frida-keeper daemon'")

func printState(st *models.SessionState) error {
	if optJSON {
		return utils.PrintJSON(st)
	}
	fmt.Printf("Status:    %s\n", st.Status)
	if st.Installed {
		fmt.Printf("Installed: %s\n", st.ServerInfo)
	} else {
		fmt.Println("Installed: no")
	}
	if st.Pid > 0 {
		fmt.Printf("Server:    pid %d, port %d\n", st.Pid, st.Port)
	}
	if d := st.Download; st.Status == models.StatusInstalling && d.Downloaded > 0 {
		if d.Indeterminate {
			fmt.Printf("Download:  %s\n", humanize.Bytes(uint64(d.Downloaded)))
		} else {
			fmt.Printf("Download:  %d%% (%s / %s)\n", d.Percent, humanize.Bytes(uint64(d.Downloaded)), humanize.Bytes(uint64(d.Total)))
		}
	}
	if len(st.Messages) > 0 {
		fmt.Println("Log:")
		for _, m := range st.Messages {
			fmt.Printf("  %s\n", m)
		}
	}
	return nil
}

func showSession() error {
	client := output.Daemon()
	if client == nil {
		return errNoDaemon
	}
	defer client.Close()
	resp, err := client.Get(controllers.API_PREFIX+"/session", nil)
	if err != nil {
		return err
	}
	var st models.SessionState
	if err := resp.Decode(&st); err != nil {
		return err
	}
	return printState(&st)
}

func resetSession() error {
	client := output.Daemon()
	if client == nil {
		return errNoDaemon
	}
	defer client.Close()
	resp, err := client.Post(controllers.API_PREFIX+"/session/reset", nil)
	if err != nil {
		return err
	}
	var st models.SessionState
	if err := resp.Decode(&st); err != nil {
		return err
	}
	return printState(&st)
}

func init() {
	showCmd.Flags().BoolVar(&optJSON, "json", false, "Print as JSON")
	root.RootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(showCmd, resetCmd)
}
