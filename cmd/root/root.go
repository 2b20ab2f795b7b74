package root

import (
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "frida-keeper",
	Short: "frida-server安装与进程管理工具",
	Long: `frida-keeper在已root的设备上下载、安装、启动和停止frida-server，
可以作为守护进程运行并通过HTTP接口被调用，也可以直接在命令行中使用`,
	SilenceUsage: true,
}
