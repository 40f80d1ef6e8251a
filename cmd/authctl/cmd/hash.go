package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pilab-dev/shadow-auth/internal/crypto"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var errPasswordMismatch = errors.New("password does not match")

func newHashCmd() *cobra.Command {
	var pepper string

	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Hash a password the way the server stores it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			encoded, err := crypto.NewPBKDF2Hasher(resolvePepper(pepper)).Hash(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), encoded)
			return nil
		},
	}
	addPasswordFlags(cmd, &pepper)

	return cmd
}

func newVerifyCmd() *cobra.Command {
	var pepper string

	cmd := &cobra.Command{
		Use:   "verify <encoded-hash>",
		Short: "Check a password against a stored hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			if !crypto.NewPBKDF2Hasher(resolvePepper(pepper)).Matches(password, args[0]) {
				return errPasswordMismatch
			}
			fmt.Fprintln(cmd.OutOrStdout(), "password matches")
			return nil
		},
	}
	addPasswordFlags(cmd, &pepper)

	return cmd
}

func addPasswordFlags(cmd *cobra.Command, pepper *string) {
	cmd.Flags().StringVar(pepper, "pepper", "", "password pepper (defaults to $PASSWORD_PEPPER)")
	cmd.Flags().String("password", "", "password to use; prompted for when omitted")
}

func resolvePepper(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv("PASSWORD_PEPPER")
}

// readPassword takes the --password flag, prompts on a terminal, or reads one line from stdin.
func readPassword(cmd *cobra.Command) (string, error) {
	if password, _ := cmd.Flags().GetString("password"); password != "" {
		return password, nil
	}

	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Enter password: ")
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(raw), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.New("password is required via --password or stdin")
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password is required via --password or stdin")
	}

	return line, nil
}
