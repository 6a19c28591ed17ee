package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/IvanChernomyrdin/go-jwks-server/internal/agent/config"
)

// NewRegisterCmd создаёт CLI-команду для регистрации нового пользователя.
//
// Пароль генерирует сервер и возвращает один раз. Команда сохраняет его
// в локальный конфиг и печатает, если передан --show.
//
// Пример использования:
//
//	jwksctl register --username alice --email alice@example.com
func NewRegisterCmd(app *App) *cobra.Command {
	var username, email string
	var show bool

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Регистрация нового пользователя",
		Long: `Регистрация нового пользователя на сервере.

Пример:
  jwksctl register --username alice --email alice@example.com
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewAPIClient(app.ServerURL, app.Insecure)
			resp, err := c.Register(username, email)
			if err != nil {
				return err
			}

			app.Creds.Username = username
			app.Creds.Email = email
			app.Creds.Password = resp.Password
			app.Creds.Token = ""
			if err := config.Save(app.CredsPath, app.Creds); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "registration successful (credentials saved)")
			if show {
				fmt.Fprintf(cmd.OutOrStdout(), "password=%s\n", resp.Password)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "username for registration")
	cmd.Flags().StringVar(&email, "email", "", "email for registration")
	cmd.Flags().BoolVar(&show, "show", false, "print generated password")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("email")

	return cmd
}
