package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	UnknownArch       = "Unknown"
	manualLabelPrefix = "Manual Installation"
)

/**
 * Description of the currently installed binary
 * @property {string} version - Version tag, or "Manual Installation (<file>)"
 * @property {string} arch - Architecture, "Unknown" for manual installs
 * @property {time.Time} installedAt - Modification time of the record file
 */
type InstallRecord struct {
	Version     string    `json:"version"`
	Arch        string    `json:"arch"`
	InstalledAt time.Time `json:"installedAt"`
}

/**
 * Record written after a manual installation
 */
func ManualInstallRecord(fileName string) InstallRecord {
	return InstallRecord{
		Version: fmt.Sprintf("%s (%s)", manualLabelPrefix, fileName),
		Arch:    UnknownArch,
	}
}

// String 返回记录文件第一行的格式: "<version> (<arch>)"
func (r InstallRecord) String() string {
	return fmt.Sprintf("%s (%s)", r.Version, r.Arch)
}

func (r InstallRecord) IsManual() bool {
	return strings.HasPrefix(r.Version, manualLabelPrefix)
}

/**
 * Short version string: the text before the first space of the record line
 */
func (r InstallRecord) ShortVersion() string {
	line := r.String()
	if i := strings.Index(line, " "); i > 0 {
		return line[:i]
	}
	return line
}

/**
 * Parse the first line of a record file
 * @param {string} line - e.g. "16.2.1 (arm64)" or "Manual Installation (custom-build) (Unknown)"
 * @returns {InstallRecord} The arch is the last parenthesised group; lines without one keep the whole text as version
 */
func ParseInstallRecord(line string) InstallRecord {
	line = strings.TrimSpace(line)
	if strings.HasSuffix(line, ")") {
		if i := strings.LastIndex(line, " ("); i > 0 {
			return InstallRecord{
				Version: line[:i],
				Arch:    line[i+2 : len(line)-1],
			}
		}
	}
	return InstallRecord{Version: line, Arch: UnknownArch}
}
