package cli

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcoot/partycoord/internal/api/response"
)

func newPartiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parties",
		Short: "Browse the party directory",
	}

	cmd.AddCommand(newPartiesListCmd())
	cmd.AddCommand(newPartiesGetCmd())
	cmd.AddCommand(newPartiesQRCmd())

	return cmd
}

func newPartiesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List parties that are still forming",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.PartyList

			if err := client.Get(cmd.Context(), "/api/v1/parties", &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}
}

func newPartiesGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <code>",
		Short: "Show a party by its join code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Party

			if err := client.Get(cmd.Context(), partyPath(args[0]), &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}
}

func newPartiesQRCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "qr <code>",
		Short: "Download the QR join code of a party as PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			png, err := client.Fetch(cmd.Context(), partyPath(args[0])+"/qr.png")
			if err != nil {
				return err
			}

			if file == "" {
				file = strings.ToUpper(strings.TrimSpace(args[0])) + ".png"
			}
			if err := os.WriteFile(file, png, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", file, err)
			}

			newOutput(cmd).PrintMessage("QR code written to " + file)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Output file (default <CODE>.png)")

	return cmd
}

func partyPath(code string) string {
	return "/api/v1/parties/" + url.PathEscape(strings.TrimSpace(code))
}
