package cmd

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formvalidator/pkg/prompt"
	"github.com/goliatone/go-formvalidator/pkg/render"
)

func newPromptCmd(a *app) *cobra.Command {
	var form formFlags

	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Fill a form interactively",
		Long: `Ask for every field of a form in the terminal. Each answer is checked
against the field's declarations before the next question; the collected
values and the final error mapping are printed as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			f, err := form.load(ctx)
			if err != nil {
				return err
			}
			translator, err := loadTranslator(a.cfg.I18n.File)
			if err != nil {
				return err
			}

			p := prompt.New(
				prompt.WithDriver(prompt.NewSurveyDriver(cmd.ErrOrStderr())),
				prompt.WithTranslator(translator),
				prompt.WithLocale(a.cfg.I18n.Locale),
			)
			collected, errs, err := p.Fill(ctx, f)
			if err != nil {
				return err
			}

			res := newResult(render.FromCollection(errs, translator, a.cfg.I18n.Locale))
			res.Values = collected
			if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.Valid {
				return errInvalidSubmission
			}
			return nil
		},
	}

	form.register(cmd.Flags())
	return cmd
}
