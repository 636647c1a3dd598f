package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/goliatone/go-formvalidator/internal/config"
)

// app carries state shared by every subcommand once the root has loaded the
// configuration.
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *slog.Logger
}

// Execute runs the formvalidate command tree.
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand assembles the command tree. Flags are bound to the
// configuration keys so flags, FORMVALIDATE_* variables and the config file
// share one namespace.
func NewRootCommand() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:   "formvalidate",
		Short: "Validate form submissions against form definitions",
		Long: `formvalidate checks submitted values against a form definition: required
fields, per-field rules and readable, translatable error messages.

Forms come from YAML/JSON definition files or from OpenAPI request bodies.

Commands:
  check   - validate a values file against a form
  prompt  - fill a form interactively, field by field
  serve   - expose validation over HTTP`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.v)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = config.NewLogger(cfg.Log, cmd.ErrOrStderr())
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (yaml, json or toml)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text or json")
	flags.String("locale", "", "locale used for labels and messages")
	flags.String("i18n", "", "message catalog file (yaml: locale -> key -> message)")

	bindFlag(a.v, "config", flags.Lookup("config"))
	bindFlag(a.v, "log.level", flags.Lookup("log-level"))
	bindFlag(a.v, "log.format", flags.Lookup("log-format"))
	bindFlag(a.v, "i18n.locale", flags.Lookup("locale"))
	bindFlag(a.v, "i18n.file", flags.Lookup("i18n"))

	root.AddCommand(newCheckCmd(a), newPromptCmd(a), newServeCmd(a))
	return root
}
