// File: utils/constants.go
package utils

// CounselorCachePrefix is the prefix used for Redis counselor directory keys.
const CounselorCachePrefix = "counselors:"

// Asynq task types.
const (
	TaskSweepHolds   = "holds:sweep"
	TaskSendReminder = "reminder:send"
)
