// Package root contains the root command for the application
package root

import (
	"errors"
	"fmt"
	"io"

	"fjacquet/firefly-preimporter/internal/config"
	"fjacquet/firefly-preimporter/internal/container"
	"fjacquet/firefly-preimporter/internal/importer"
	"fjacquet/firefly-preimporter/internal/logging"
	"fjacquet/firefly-preimporter/internal/models"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// Version is overridden at build time with -ldflags "-X ...root.Version=...".
var Version = "dev"

// ErrUploadFailed signals that the run finished but an upload failed. The
// details were already reported to the user.
var ErrUploadFailed = errors.New("upload failed")

// Flags holds the command line options of the import command.
type Flags struct {
	Config           string
	AccountID        string
	Output           string
	Upload           bool
	Fidi             bool
	DryRun           bool
	UploadDuplicates bool
	Stdout           bool
	Quiet            bool
	Verbose          bool
}

var (
	// Log is the shared logger instance for commands
	Log logging.Logger = logging.NewLogrusAdapter("info", "text")

	// Opts are the parsed flags of the root command
	Opts = Flags{}

	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "firefly-preimporter [targets...]",
		Short: "Normalize bank statements and import them into Firefly III.",
		Long: `firefly-preimporter normalizes CSV and OFX bank statements into a
canonical CSV layout and optionally uploads them to Firefly III, either through
the FiDI auto-import endpoint or directly through the Firefly III API.

Targets are files or directories; directories are scanned (non-recursively)
for .csv, .ofx and .qfx files.`,
		Version:       Version,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadEnv(nil)
			Log = config.NewLoggerFromEnv().WithField(logging.FieldRunID, uuid.NewString())
		},
		RunE: runImport,
	}
)

// Init initializes the root command and all flags
func Init() {
	Cmd.PersistentFlags().StringVar(&Opts.Config, "config", "",
		fmt.Sprintf("Path to configuration TOML (default: %s)", config.DefaultConfigFile))

	Cmd.Flags().StringVar(&Opts.AccountID, "account-id", "", "Default Firefly account id for uploads (prompts if omitted)")
	Cmd.Flags().StringVarP(&Opts.Output, "output", "o", "", "File path (single job) or directory (multi-job/per-file)")
	Cmd.Flags().BoolVarP(&Opts.Upload, "upload", "u", false, "Upload normalized data (Firefly by default)")
	Cmd.Flags().BoolVar(&Opts.Fidi, "fidi", false, "When used with -u/--upload, send the batch via FiDI auto-upload instead of Firefly")
	Cmd.Flags().BoolVarP(&Opts.DryRun, "dry-run", "n", false, "Dry-run uploads (skip the final POST)")
	Cmd.Flags().BoolVar(&Opts.UploadDuplicates, "upload-duplicates", false, "Allow duplicate detection to be bypassed (FiDI + Firefly)")
	Cmd.Flags().BoolVar(&Opts.Stdout, "stdout", false, "Print normalized CSV to stdout")
	Cmd.Flags().BoolVarP(&Opts.Quiet, "quiet", "q", false, "Suppress informational output")
	Cmd.Flags().BoolVarP(&Opts.Verbose, "verbose", "v", false, "Print verbose progress details")
	Cmd.Flags().BoolP("version", "V", false, "Print the version and exit")
	Cmd.MarkFlagsMutuallyExclusive("quiet", "verbose")
}

// loadSettings reads the settings file. It is mandatory when --config was
// given or an upload was requested and optional otherwise.
func loadSettings(flags Flags, logger logging.Logger) (*config.Settings, error) {
	path := config.ResolvePath(flags.Config)
	if flags.Config != "" || flags.Upload {
		return config.Load(path, logger)
	}
	return config.LoadOptional(path, logger)
}

// uploadMode picks the upload target from the flags, falling back to the
// settings default_upload.
func uploadMode(flags Flags, settings *config.Settings) (string, error) {
	if flags.Fidi && !flags.Upload {
		return "", errors.New("--fidi requires --upload/-u")
	}

	mode := models.UploadNone
	switch {
	case flags.Upload && flags.Fidi:
		mode = models.UploadFiDI
	case flags.Upload:
		mode = models.UploadFirefly
	case settings != nil:
		mode = settings.DefaultUpload
	}

	if flags.DryRun && mode == models.UploadNone {
		return "", errors.New("--dry-run requires --upload/ -u")
	}
	return mode, nil
}

func runImport(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(Opts, Log)
	if err != nil {
		return err
	}
	mode, err := uploadMode(Opts, settings)
	if err != nil {
		return err
	}
	if mode != models.UploadNone {
		if settings == nil {
			if settings, err = config.Load(config.ResolvePath(Opts.Config), Log); err != nil {
				return err
			}
		}
		if err := settings.ValidateForUpload(mode); err != nil {
			return err
		}
	}

	c, err := container.NewContainer(settings, Log)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() { _ = c.Close() }()

	code, err := importer.New(
		importer.Options{
			AccountID:        Opts.AccountID,
			Output:           Opts.Output,
			UploadMode:       mode,
			DryRun:           Opts.DryRun,
			UploadDuplicates: Opts.UploadDuplicates,
			Stdout:           Opts.Stdout,
			Verbose:          Opts.Verbose,
		},
		dependencies(c, cmd.OutOrStdout(), cmd.ErrOrStderr(), cmd.InOrStdin()),
	).Run(cmd.Context(), args)
	if err != nil {
		return err
	}
	if code != 0 {
		return ErrUploadFailed
	}
	return nil
}

// dependencies wires the container into the importer. With --stdout the
// progress messages move to stderr so the CSV stays clean.
func dependencies(c *container.Container, stdout, stderr io.Writer, stdin io.Reader) importer.Dependencies {
	progress := stdout
	if Opts.Stdout {
		progress = stderr
	}
	deps := importer.Dependencies{
		Settings:   c.GetSettings(),
		Jobs:       c.GetScanner(),
		Processors: c,
		Prompter:   importer.NewPrompter(stdin, progress, stderr, importer.TerminalWidth),
		Emitter:    logging.NewConsoleEmitter(progress, stderr, Opts.Quiet, Opts.Verbose, c.GetLogger()),
		Logger:     c.GetLogger(),
		Stdout:     stdout,
		Stderr:     stderr,
	}
	// Nil pointers must not end up in the interface fields.
	if client := c.GetFireflyClient(); client != nil {
		deps.Firefly = client
	}
	if uploader := c.GetFidiUploader(); uploader != nil {
		deps.Fidi = uploader
	}
	return deps
}

// IsReported tells whether err was already shown to the user.
func IsReported(err error) bool {
	return errors.Is(err, ErrUploadFailed)
}
