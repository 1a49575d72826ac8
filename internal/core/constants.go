package core

// Logging config constants
const (
	MaxDebugFilePathLength = 260
	DefaultLogLevel        = "warn"
)

// File permission constants
const (
	FilePermissionReadWrite = 0644
)
