package models

import "time"

/**
 * Downloadable file attached to a release
 * @property {string} name - Asset file name, e.g. "frida-server-16.2.1-android-arm64.xz"
 * @property {string} browser_download_url - Direct download URL
 */
type Asset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"browser_download_url"`
}

/**
 * Release entry of the release index
 * @property {string} tag_name - Version tag, unique and immutable
 * @property {string} name - Display name, falls back to tag_name when absent
 * @property {time.Time} published_at - Publish timestamp
 * @property {bool} prerelease - Whether the release is a pre-release
 * @property {[]Asset} assets - Attached files in index order
 */
type Release struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	PublishedAt time.Time `json:"published_at"`
	Prerelease  bool      `json:"prerelease"`
	Assets      []Asset   `json:"assets"`
}

func (r Release) DisplayName() string {
	if r.Prerelease {
		return r.TagName + " (Pre-release)"
	}
	return r.TagName
}

// DownloadProgress 下载进度，Total未知时Indeterminate为true且Percent无意义
type DownloadProgress struct {
	Percent       int   `json:"percent"`
	Downloaded    int64 `json:"downloaded"`
	Total         int64 `json:"total"`
	Indeterminate bool  `json:"indeterminate"`
}
