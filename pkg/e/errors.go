package e

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrNotImplemented     = errors.New("not implemented")
	ErrInstallFailure     = errors.New("static asset install failed")
	ErrPartitionNotReady  = errors.New("static partition not ready")
	ErrPartitionExists    = errors.New("partition already exists")
	ErrNetwork            = errors.New("network request failed")
	ErrNotCacheable       = errors.New("request not cacheable")
	ErrUploadInFlight     = errors.New("upload already in flight")
	ErrUploadRejected     = errors.New("upload rejected by upstream")
	ErrInvalidUpload      = errors.New("invalid upload")
	ErrUnknownSyncTag     = errors.New("unknown sync tag")
	ErrClientNotFound     = errors.New("client not found")
	ErrNotificationsOff   = errors.New("notifications disabled")
	ErrInvalidReportRange = errors.New("invalid report date range")
	ErrUnknownCommand     = errors.New("unknown command")
	ErrNoTranscript       = errors.New("no voice transcript")
)
