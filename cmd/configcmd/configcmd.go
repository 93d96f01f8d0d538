// Package configcmd inspects the importer settings file
package configcmd

import (
	"fmt"

	"fjacquet/firefly-preimporter/cmd/root"
	"fjacquet/firefly-preimporter/internal/config"

	"github.com/spf13/cobra"
)

// Cmd groups the settings subcommands
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the importer configuration",
}

// ShowCmd prints the effective settings
var ShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings with secrets redacted",
	Long: `Print the settings that an import would use, after defaults and
FIREFLY_* environment overrides are applied. Tokens and secrets are redacted.

Example:
  firefly-preimporter config show --config ~/.local/etc/firefly_import.toml`,
	Args: cobra.NoArgs,
	RunE: showFunc,
}

func init() {
	Cmd.AddCommand(ShowCmd)
}

func showFunc(cmd *cobra.Command, args []string) error {
	path := config.ResolvePath(root.Opts.Config)
	settings, err := config.Load(path, root.Log)
	if err != nil {
		return err
	}

	rendered, err := settings.ToYAML()
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), rendered)
	return err
}
