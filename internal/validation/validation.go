// Package validation holds small checks shared by the configuration layer
// and the upload orchestrator.
package validation

import (
	"fmt"
	"os"

	"fjacquet/firefly-preimporter/internal/models"
)

// CheckSecretFilePermissions returns an error when a file holding secrets is
// readable by anyone but its owner.
func CheckSecretFilePermissions(path string, mode os.FileMode) error {
	perm := mode.Perm()
	switch {
	case perm&0o004 != 0:
		return fmt.Errorf("configuration file %s is world-readable (%04o); run chmod 600 %s", path, perm, path)
	case perm&0o040 != 0:
		return fmt.Errorf("configuration file %s is group-readable (%04o); run chmod 600 %s", path, perm, path)
	}
	return nil
}

// IsNumericID reports whether value is a non-empty run of ASCII digits.
func IsNumericID(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IsValidUploadMode checks a configured default upload target.
func IsValidUploadMode(mode string) error {
	switch mode {
	case models.UploadNone, models.UploadFirefly, models.UploadFiDI:
		return nil
	default:
		return fmt.Errorf("unsupported upload mode: %s. Supported modes are '%s' and '%s'", mode, models.UploadFirefly, models.UploadFiDI)
	}
}
