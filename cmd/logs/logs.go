package logs

import (
	"bufio"
	"fmt"
	"os"

	"frida-keeper/cmd/root"
	"frida-keeper/internal/config"

	"github.com/spf13/cobra"
)

var optLines int

var Cmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the output of a detached frida server",
	Long:  "Servers started without the daemon write their output to process.log_file. This prints its last lines.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := showLogs(config.App().Process.LogFile, optLines); err != nil {
			fmt.Println(err)
		}
	},
}

/**
 * Print the last lines of a file
 * @param {string} path - Log file
 * @param {int} n - Number of lines, <= 0 prints everything
 */
func showLogs(path string, n int) error {
	lines, err := tail(path, n)
	if err != nil {
		return err
	}
	for _, line := range lines {
		fmt.Println(line)
	}
	return nil
}

func tail(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no server log at %s", path)
		}
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if n > 0 && len(lines) > n {
			lines = lines[1:]
		}
	}
	return lines, scanner.Err()
}

func init() {
	root.RootCmd.AddCommand(Cmd)
	Cmd.Flags().SortFlags = false
	Cmd.Flags().IntVarP(&optLines, "lines", "n", 50, "Number of lines to show, 0 for all")
}
