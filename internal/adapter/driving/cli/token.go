package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newTokenCmd(st *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the stored GitLab personal access token",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set [TOKEN]",
		Short: "Store a token for the configured instance (reads stdin without TOKEN)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := ""
			if len(args) == 1 {
				token = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no token given")
				}
				token = line
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return errors.New("no token given")
			}

			if err := st.app.Tokens.SetToken(cmd.Context(), token); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s token stored for %s\n", successStyle.Render("✓"), st.app.Config.InstanceURL)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove",
		Short: "Delete the stored token for the configured instance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := st.app.Tokens.RemoveToken(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s token removed for %s\n", successStyle.Render("✓"), st.app.Config.InstanceURL)
			return nil
		},
	})
	return cmd
}
