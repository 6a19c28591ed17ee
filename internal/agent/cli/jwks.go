package cli

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/IvanChernomyrdin/go-jwks-server/internal/agent/api"
)

// NewJWKSCmd создаёт CLI-команду, печатающую опубликованный JWKS.
//
// Пример использования:
//
//	jwksctl jwks
//	jwksctl jwks --kids
func NewJWKSCmd(app *App) *cobra.Command {
	var kidsOnly bool

	cmd := &cobra.Command{
		Use:   "jwks",
		Short: "Показать опубликованные ключи",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewAPIClient(app.ServerURL, app.Insecure)

			if kidsOnly {
				set, err := c.JWKS()
				if err != nil {
					return err
				}
				for _, k := range set.Keys {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", k.Kid, k.Kty, k.Alg)
				}
				return nil
			}

			raw, err := c.GetRaw(api.JWKSPath)
			if err != nil {
				return err
			}
			var out bytes.Buffer
			if err := json.Indent(&out, raw, "", "  "); err != nil {
				return fmt.Errorf("server returned invalid json: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.String())
			return nil
		},
	}

	cmd.Flags().BoolVar(&kidsOnly, "kids", false, "print only kid, kty and alg of every key")

	return cmd
}
