package cmd

import (
	_ "frida-keeper/cmd/daemon"
	_ "frida-keeper/cmd/device"
	_ "frida-keeper/cmd/install"
	_ "frida-keeper/cmd/logs"
	_ "frida-keeper/cmd/misc"
	_ "frida-keeper/cmd/prefs"
	_ "frida-keeper/cmd/release"
	_ "frida-keeper/cmd/root"
	_ "frida-keeper/cmd/saved"
	_ "frida-keeper/cmd/service"
	_ "frida-keeper/cmd/session"
)
