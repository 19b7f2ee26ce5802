package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tessro/cadence/internal/session"
)

var langCmd = &cobra.Command{
	Use:   "lang [code]",
	Short: "Show or set the interface language",
	Long: `Show the selected interface language, or select a new one.

Supported languages: vi (default), en.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: session.Languages,
	RunE:      runLang,
}

func init() {
	rootCmd.AddCommand(langCmd)
}

func runLang(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 1 {
		if err := a.session.SetLanguage(ctx, args[0]); err != nil {
			return fmt.Errorf("%w: %q (supported: %v)", err, args[0], session.Languages)
		}
	}

	if JSONOutput() {
		return printJSON(map[string]any{
			"language":  a.session.Language(),
			"supported": session.Languages,
		})
	}
	fmt.Println(a.session.Language())
	return nil
}
