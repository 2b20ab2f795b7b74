package install

import (
	"frida-keeper/cmd/root"

	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install, remove and inspect frida-server",
	Long:  `Install frida-server from the release index or from a local file, remove it, or show what is installed`,
}

const installExample = `  # install the newest release
  frida-keeper install latest
  # install a specific release and remember it for switching
  frida-keeper install version 16.2.1 --save
  # install a file pushed with adb
  frida-keeper install file /data/local/tmp/frida-server-16.2.1-android-arm64.xz`

func init() {
	root.RootCmd.AddCommand(installCmd)

	installCmd.Example = installExample
}
