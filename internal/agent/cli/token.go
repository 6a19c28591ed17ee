package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/IvanChernomyrdin/go-jwks-server/internal/agent/config"
)

// NewTokenCmd создаёт CLI-команду получения токена.
//
// По умолчанию используются сохранённые после register логин и пароль.
// --anonymous запрашивает токен на субъекта по умолчанию, без логина.
// --prompt спрашивает пароль в терминале (или читает из stdin с --password-stdin).
//
// Пример использования:
//
//	jwksctl token
//	jwksctl token --expired
func NewTokenCmd(app *App) *cobra.Command {
	var expired, anonymous, prompt, fromStdin bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Получить токен (валидный или просроченный)",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, password := app.Creds.Username, app.Creds.Password
			if anonymous {
				username, password = "", ""
			}
			if !anonymous && (prompt || fromStdin) {
				if username == "" {
					return errors.New("no saved username; run register first")
				}
				pw, err := ReadPassword(cmd, fromStdin)
				if err != nil {
					return err
				}
				password = pw
			}

			c := NewAPIClient(app.ServerURL, app.Insecure)
			tok, err := c.Token(username, password, expired)
			if err != nil {
				return err
			}

			app.Creds.Token = tok
			if err := config.Save(app.CredsPath, app.Creds); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().BoolVar(&expired, "expired", false, "request an already expired token")
	cmd.Flags().BoolVar(&anonymous, "anonymous", false, "do not send saved credentials")
	cmd.Flags().BoolVar(&prompt, "prompt", false, "ask for password instead of using the saved one")
	cmd.Flags().BoolVar(&fromStdin, "password-stdin", false, "read password from stdin")

	return cmd
}

// readPassword читает пароль из stdin или из терминала без эха.
func readPassword(cmd *cobra.Command, fromStdin bool) (string, error) {
	if fromStdin {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read password from stdin: %w", err)
		}
		pw := bytes.TrimRight(b, "\r\n")
		if len(pw) == 0 {
			return "", errors.New("empty password on stdin")
		}
		return string(pw), nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("stdin is not a terminal; use --password-stdin")
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	pwBytes, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	pw := strings.TrimSpace(string(pwBytes))
	if pw == "" {
		return "", errors.New("empty password")
	}
	return pw, nil
}
