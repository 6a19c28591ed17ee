package tests

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/IvanChernomyrdin/go-jwks-server/internal/agent/cli"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/agent/config"
)

// newApp создаёт App с файлом учётных данных во временной директории.
func newApp(t *testing.T, serverURL string, creds *config.Credentials) *cli.App {
	t.Helper()
	if creds == nil {
		creds = &config.Credentials{}
	}
	return &cli.App{
		ServerURL: serverURL,
		Insecure:  true,
		CredsPath: filepath.Join(t.TempDir(), "credentials.json"),
		Creds:     creds,
	}
}

// run выполняет команду и возвращает вывод.
func run(cmd *cobra.Command, args ...string) (string, error) {
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
