package cmd

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formvalidator/pkg/render"
	"github.com/goliatone/go-formvalidator/pkg/rules"
	"github.com/goliatone/go-formvalidator/pkg/validation"
)

func newCheckCmd(a *app) *cobra.Command {
	var (
		form       formFlags
		valuesPath string
		errorsPath string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a values file against a form",
		Long: `Validate a JSON or YAML mapping of submitted values against a form and print
the error mapping as JSON. Exits non-zero when the submission is invalid.

Examples:
  formvalidate check --form signup.yaml --values submission.json
  formvalidate check --openapi api.yaml --operation createPet --values - < pet.json
  formvalidate check --form signup.yaml --values s.json --fields email,username
  formvalidate check --form signup.yaml --values s.json --errors upstream.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if valuesPath == "" {
				return errors.New("--values is required")
			}
			if valuesPath == "-" && errorsPath == "-" {
				return errors.New("--values and --errors cannot both read stdin")
			}
			ctx := cmd.Context()

			f, err := form.load(ctx)
			if err != nil {
				return err
			}
			input, err := readValues(valuesPath, cmd.InOrStdin())
			if err != nil {
				return err
			}
			translator, err := loadTranslator(a.cfg.I18n.File)
			if err != nil {
				return err
			}

			v, err := validation.New(f,
				validation.WithStrategy(rules.NewStrategy()),
				validation.WithTranslator(translator),
				validation.WithLocale(a.cfg.I18n.Locale),
				validation.WithLogger(a.logger),
			)
			if err != nil {
				return err
			}
			errs := validation.NewCollection()
			if errorsPath != "" {
				payload, err := readErrors(errorsPath, cmd.InOrStdin())
				if err != nil {
					return err
				}
				render.Seed(errs, render.MapErrorPayload(f, payload))
			}
			if _, err := v.Validate(input, errs); err != nil {
				return err
			}

			res := newResult(render.FromCollection(errs, translator, a.cfg.I18n.Locale))
			a.logger.Debug("submission checked",
				slog.String("form", f.Name),
				slog.Bool("valid", res.Valid),
				slog.Int("errors", errs.Len()),
			)
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
	cmd.Flags().StringVar(&valuesPath, "values", "", `values file (json or yaml), "-" for stdin`)
	cmd.Flags().StringVar(&errorsPath, "errors", "", `upstream error payload (json or yaml) recorded before validation, "-" for stdin`)
	return cmd
}
