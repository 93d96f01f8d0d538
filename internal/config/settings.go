package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"fjacquet/firefly-preimporter/internal/fileutils"
	"fjacquet/firefly-preimporter/internal/logging"
	"fjacquet/firefly-preimporter/internal/models"
	"fjacquet/firefly-preimporter/internal/parsererror"
	"fjacquet/firefly-preimporter/internal/validation"

	"github.com/spf13/viper"
)

// DefaultConfigFile is the settings location relative to the home directory.
const DefaultConfigFile = "~/.local/etc/firefly_import.toml"

// ConfigPathEnv overrides DefaultConfigFile.
const ConfigPathEnv = "FIREFLY_IMPORT_CONFIG"

// EnvPrefix is prepended to setting keys for environment overrides, e.g.
// FIREFLY_PERSONAL_ACCESS_TOKEN.
const EnvPrefix = "FIREFLY"

// Settings is the immutable configuration of one invocation.
type Settings struct {
	FidiImportSecret        string                 `yaml:"fidi_import_secret"`
	PersonalAccessToken     string                 `yaml:"personal_access_token"`
	FidiAutoUploadURL       string                 `yaml:"fidi_autoupload_url"`
	FireflyAPIBase          string                 `yaml:"firefly_api_base"`
	CACertPath              string                 `yaml:"ca_cert_path,omitempty"`
	RequestTimeoutSeconds   int                    `yaml:"request_timeout"`
	UniqueColumnRole        string                 `yaml:"unique_column_role"`
	DateColumnRole          string                 `yaml:"date_column_role"`
	KnownRoles              map[string]string      `yaml:"known_roles"`
	DefaultJSONConfig       map[string]interface{} `yaml:"default_json_config"`
	FireflyErrorOnDuplicate bool                   `yaml:"firefly_error_on_duplicate"`
	DefaultUpload           string                 `yaml:"default_upload,omitempty"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	// Path is the file the settings were read from.
	Path string `yaml:"-"`
}

// RequestTimeout is the per-request network timeout.
func (s *Settings) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// DefaultFidiJSONConfig returns a fresh copy of the baseline FiDI import
// configuration.
func DefaultFidiJSONConfig() map[string]interface{} {
	return map[string]interface{}{
		"date":                          "Y-m-d",
		"delimiter":                     "comma",
		"headers":                       true,
		"rules":                         true,
		"skip_form":                     true,
		"add_import_tag":                true,
		"duplicate_detection_method":    "cell",
		"ignore_duplicate_lines":        true,
		"ignore_duplicate_transactions": true,
		"unique_column_type":            "external-id",
		"unique_column_index":           0,
		"default_account":               0,
		"flow":                          "file",
		"conversion":                    false,
		"mapping":                       []interface{}{},
		"version":                       3,
	}
}

// DefaultKnownRoles maps statement fields to FiDI column roles.
func DefaultKnownRoles() map[string]string {
	return map[string]string{
		"dtposted": "date_transaction",
		"trnamt":   "amount",
		"name":     "description",
		"fitid":    "internal_reference",
		"acctid":   "account-number",
	}
}

// ResolvePath picks the settings file: explicit flag, then
// FIREFLY_IMPORT_CONFIG, then DefaultConfigFile.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return fileutils.ExpandHome(flagValue)
	}
	if env := strings.TrimSpace(os.Getenv(ConfigPathEnv)); env != "" {
		return fileutils.ExpandHome(env)
	}
	return fileutils.ExpandHome(DefaultConfigFile)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("fidi_import_secret", "")
	v.SetDefault("personal_access_token", "")
	v.SetDefault("fidi_autoupload_url", "https://example.com/fidi/autoupload")
	v.SetDefault("firefly_api_base", "https://example.com/firefly/api/v1")
	v.SetDefault("ca_cert_path", "")
	v.SetDefault("request_timeout", 30)
	v.SetDefault("unique_column_role", "internal_reference")
	v.SetDefault("date_column_role", "date_transaction")
	v.SetDefault("firefly_error_on_duplicate", true)
	v.SetDefault("default_upload", "")
	v.SetDefault("log.level", LogLevelFromEnv())
	v.SetDefault("log.format", LogFormatFromEnv())
}

// Load reads the TOML settings file at path. A missing file is a
// ConfigurationMissingError. Loose file permissions only produce a warning.
func Load(path string, logger logging.Logger) (*Settings, error) {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	path = fileutils.ExpandHome(path)

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, &parsererror.ConfigurationMissingError{Path: path}
	}
	if runtime.GOOS != "windows" {
		if permErr := validation.CheckSecretFilePermissions(path, info.Mode()); permErr != nil {
			logger.Warn(permErr.Error(), logging.F(logging.FieldFile, path))
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read configuration %s: %w", path, err)
	}

	settings := &Settings{
		FidiImportSecret:        v.GetString("fidi_import_secret"),
		PersonalAccessToken:     v.GetString("personal_access_token"),
		FidiAutoUploadURL:       v.GetString("fidi_autoupload_url"),
		FireflyAPIBase:          v.GetString("firefly_api_base"),
		RequestTimeoutSeconds:   v.GetInt("request_timeout"),
		UniqueColumnRole:        v.GetString("unique_column_role"),
		DateColumnRole:          v.GetString("date_column_role"),
		FireflyErrorOnDuplicate: v.GetBool("firefly_error_on_duplicate"),
		DefaultUpload:           strings.ToLower(strings.TrimSpace(v.GetString("default_upload"))),
		KnownRoles:              DefaultKnownRoles(),
		DefaultJSONConfig:       mergeMaps(DefaultFidiJSONConfig(), v.GetStringMap("default_json_config")),
		Path:                    path,
	}
	if ca := strings.TrimSpace(v.GetString("ca_cert_path")); ca != "" {
		settings.CACertPath = fileutils.ExpandHome(ca)
	}
	for role, value := range v.GetStringMapString("known_roles") {
		settings.KnownRoles[role] = value
	}
	settings.Log.Level = v.GetString("log.level")
	settings.Log.Format = v.GetString("log.format")

	if err := validateSettings(settings); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}

	logger.Debug("Loaded settings", logging.F(logging.FieldFile, path))
	return settings, nil
}

// LoadOptional is Load that returns nil settings, and no error, when the
// file does not exist.
func LoadOptional(path string, logger logging.Logger) (*Settings, error) {
	if !fileutils.FileExists(fileutils.ExpandHome(path)) {
		return nil, nil
	}
	return Load(path, logger)
}

func validateSettings(s *Settings) error {
	if s.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("request_timeout must be positive, got: %d", s.RequestTimeoutSeconds)
	}
	if err := validation.IsValidUploadMode(s.DefaultUpload); err != nil {
		return fmt.Errorf("default_upload: %w", err)
	}
	return nil
}

// ValidateForUpload checks that the keys needed by the given upload mode
// are present.
func (s *Settings) ValidateForUpload(mode string) error {
	var missing []string
	if strings.TrimSpace(s.PersonalAccessToken) == "" {
		missing = append(missing, "personal_access_token")
	}
	switch mode {
	case models.UploadFirefly:
		if strings.TrimSpace(s.FireflyAPIBase) == "" {
			missing = append(missing, "firefly_api_base")
		}
	case models.UploadFiDI:
		if strings.TrimSpace(s.FidiAutoUploadURL) == "" {
			missing = append(missing, "fidi_autoupload_url")
		}
		if strings.TrimSpace(s.FidiImportSecret) == "" {
			missing = append(missing, "fidi_import_secret")
		}
		// Account selection for FiDI still talks to the Firefly API.
		if strings.TrimSpace(s.FireflyAPIBase) == "" {
			missing = append(missing, "firefly_api_base")
		}
	}
	if len(missing) > 0 {
		return &parsererror.ConfigurationMissingError{Path: s.Path, Missing: missing}
	}
	return nil
}

// CACertFile returns the CA bundle path when it is configured and exists.
func (s *Settings) CACertFile(logger logging.Logger) string {
	if s.CACertPath == "" {
		return ""
	}
	if !fileutils.FileExists(s.CACertPath) {
		if logger != nil {
			logger.Warn("CA certificate path configured but file not found, using default certificate verification",
				logging.F(logging.FieldFile, s.CACertPath))
		}
		return ""
	}
	return s.CACertPath
}

// mergeMaps deep-merges overrides into base and returns base.
func mergeMaps(base, overrides map[string]interface{}) map[string]interface{} {
	for key, value := range overrides {
		if nested, ok := value.(map[string]interface{}); ok {
			if existing, ok := base[key].(map[string]interface{}); ok {
				base[key] = mergeMaps(existing, nested)
				continue
			}
		}
		base[key] = value
	}
	return base
}

// DisplayPath shortens path for messages by replacing the home directory
// with "~".
func DisplayPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if rel, err := filepath.Rel(home, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.Join("~", rel)
	}
	return path
}
