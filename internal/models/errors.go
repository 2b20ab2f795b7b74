package models

import "errors"

var (
	ErrRootUnavailable   = errors.New("root access is required but not available")
	ErrNetwork           = errors.New("network error")
	ErrAssetNotFound     = errors.New("no matching server binary found")
	ErrReleaseNotFound   = errors.New("release not found")
	ErrDownload          = errors.New("download failed")
	ErrExtraction        = errors.New("extraction failed")
	ErrPermission        = errors.New("failed to set executable permissions")
	ErrProcessStart      = errors.New("failed to start server")
	ErrManualFileInvalid = errors.New("selected file does not exist")
	ErrNotInstalled      = errors.New("server not installed")
	ErrSessionBusy       = errors.New("another operation is in progress")
	ErrInvalidTransition = errors.New("invalid state transition")
)
