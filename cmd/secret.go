package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSecretCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage values referenced by *_ref config keys",
	}
	cmd.AddCommand(newSecretSetCmd(opts), newSecretRmCmd(opts))
	return cmd
}

func newSecretSetCmd(opts *rootOptions) *cobra.Command {
	var value string

	cmd := &cobra.Command{
		Use:   "set <ref>",
		Short: "Store a secret; reads the first stdin line when --value is omitted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadConfig(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			if value == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read secret from stdin: %w", err)
				}
				value = strings.TrimSpace(line)
			}
			if value == "" {
				return errors.New("secret value is empty")
			}

			if err := app.secrets.Put(cmd.Context(), args[0], value); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "stored %s\n", args[0])
			return err
		},
	}
	cmd.Flags().StringVar(&value, "value", "", "secret value (visible in shell history; prefer stdin)")

	return cmd
}

func newSecretRmCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <ref>",
		Short: "Delete a stored secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadConfig(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := app.secrets.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return err
		},
	}
}
