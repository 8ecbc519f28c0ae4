package sync

import "errors"

var (
	// ErrSyncInProgress is reported when a full sync pass is requested while another is running
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrConnectionUnavailable is reported when the connectivity requirement is not met
	ErrConnectionUnavailable = errors.New("connection unavailable")
)
