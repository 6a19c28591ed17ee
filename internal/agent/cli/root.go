// Package cli реализует командный интерфейс (CLI) клиента JWKS сервера.
//
// Пакет отвечает за:
//   - определение root-команды и набора подкоманд;
//   - разбор аргументов и флагов командной строки;
//   - загрузку локальных учётных данных из конфигурационного файла;
//   - выполнение команд и вывод результата пользователю.
//
// Точка входа пакета - функция Execute.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/IvanChernomyrdin/go-jwks-server/internal/agent/config"
)

// App содержит состояние CLI-приложения, разделяемое между командами.
//
// Экземпляр App создаётся при построении root-команды и передаётся в подкоманды.
type App struct {
	// ServerURL - базовый URL сервера (например, "http://127.0.0.1:8080").
	ServerURL string
	// Insecure - не проверять TLS сертификат сервера.
	Insecure bool

	// CredsPath - путь к файлу с сохранёнными учётными данными.
	CredsPath string
	// Creds - загруженные учётные данные из файла конфигурации.
	Creds *config.Credentials
}

// NewRootCmd создаёт root-команду CLI и регистрирует подкоманды.
//
// buildVersion и buildDate используются для вывода информации о сборке (команда version).
// В PersistentPreRunE определяется путь к файлу учётных данных и загружаются сохранённые данные.
func NewRootCmd(buildVersion, buildDate string) *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:   "jwksctl",
		Short: "jwksctl - клиент JWKS сервера",
		Long: `jwksctl.

Команды:
  register  Регистрация (пароль генерирует сервер)
  token     Получить токен (валидный или просроченный)
  jwks      Показать опубликованные ключи
  verify    Проверить токен по JWKS сервера
  version   Версия и дата сборки

Примеры:

Регистрация:
  jwksctl register --username alice --email alice@example.com
  (сохраняет выданный пароль в локальном конфиге)

Токен:
  jwksctl token
  jwksctl token --expired

Проверка:
  jwksctl verify
`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if app.CredsPath == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				app.CredsPath = p
			}

			creds, err := config.Load(app.CredsPath)
			if err != nil {
				return err
			}
			app.Creds = creds
			return nil
		},
	}

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().StringVar(&app.ServerURL, "server", "http://127.0.0.1:8080", "server base URL")
	cmd.PersistentFlags().BoolVar(&app.Insecure, "insecure", false, "skip TLS certificate verification")
	cmd.PersistentFlags().StringVar(&app.CredsPath, "creds", "", "credentials file (default ~/.jwksctl/credentials.json)")

	cmd.AddCommand(NewRegisterCmd(app))
	cmd.AddCommand(NewTokenCmd(app))
	cmd.AddCommand(NewJWKSCmd(app))
	cmd.AddCommand(NewVerifyCmd(app))
	cmd.AddCommand(NewVersionCmd(buildVersion, buildDate))

	return cmd
}

// Execute запускает обработку CLI-команд.
//
// При ошибке выполнения команды сообщение выводится в stderr, после чего процесс
// завершается с кодом 1 (os.Exit(1)).
func Execute(buildVersion, buildDate string) {
	if err := NewRootCmd(buildVersion, buildDate).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
