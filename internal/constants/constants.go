package constants

// Boolean string values
const (
	BoolTrue  = "true"
	BoolFalse = "false"
	BoolOne   = "1"
	BoolZero  = "0"
)

// Pagination defaults
const (
	DefaultPage      = 1
	DefaultPageLimit = 20
	MaxPageLimit     = 500
)

// Note defaults
const (
	DefaultNoteTitle = "無題のメモ"
	PreviewLength    = 100
)

// Server defaults
const (
	DefaultHost = "0.0.0.0"
	DefaultPort = 8000
)

// Compiled-query cache defaults
const (
	DefaultQueryCacheSize       = 256
	DefaultQueryCacheTTLSeconds = 300
)

// File permissions
const (
	ConfigFileMode = 0600 // Secure file permissions for config
	DirMode        = 0755
)
