package models

// File permissions
const (
	PermissionConfigFile = 0600
	PermissionDirectory  = 0750
	PermissionFile       = 0644
)

// Output naming
const (
	// OutputSuffix is appended to an input file's stem for its normalized CSV.
	OutputSuffix = ".firefly.csv"
)

// Upload modes
const (
	UploadNone    = ""
	UploadFirefly = "firefly"
	UploadFiDI    = "fidi"
)
