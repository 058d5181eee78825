package cli

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"visa-checker/internal/config"
	"visa-checker/internal/tui"
)

// NewCheckCmd runs the questionnaire interactively in the terminal.
func NewCheckCmd(configPath *string) *cobra.Command {
	var (
		catalogID string
		noColor   bool
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Answer the questionnaire in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if catalogID == "" {
				catalogID = defaultCatalogID(cfg)
			}
			ctx := cmd.Context()
			service, closer, err := localService(ctx, cfg, advanceDelay(cfg))
			defer closer()
			if err != nil {
				return err
			}
			_, err = tui.Run(ctx, service, catalogID, os.Stdout, tui.Options{
				NoColor: noColor || !isatty.IsTerminal(os.Stdout.Fd()),
			})
			return err
		},
	}
	cmd.Flags().StringVar(&catalogID, "catalog", "", "catalog id (defaults to catalog.default)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	return cmd
}
