package utils

import (
	"runtime"
	"strings"
)

var abiArch = map[string]string{
	"arm64-v8a":   "arm64",
	"armeabi-v7a": "arm",
	"armeabi":     "arm",
	"x86":         "x86",
	"x86_64":      "x86_64",
}

var goArch = map[string]string{
	"arm64": "arm64",
	"arm":   "arm",
	"386":   "x86",
	"amd64": "x86_64",
}

/**
 * Map an Android ABI (ro.product.cpu.abi) to the release architecture name
 * @returns {string, bool} false for unknown ABIs
 */
func ArchFromABI(abi string) (string, bool) {
	arch, ok := abiArch[strings.TrimSpace(abi)]
	return arch, ok
}

// HostArch 当前Go运行时的架构对应的发布架构名
func HostArch() string {
	if arch, ok := goArch[runtime.GOARCH]; ok {
		return arch
	}
	return runtime.GOARCH
}
