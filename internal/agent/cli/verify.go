package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/IvanChernomyrdin/go-jwks-server/internal/agent/api"
)

// NewVerifyCmd создаёт CLI-команду проверки токена по JWKS сервера.
//
// Проверка локальная: JWKS загружается один раз, подпись и exp проверяются на клиенте.
// Просроченный токен или токен, подписанный неопубликованным ключом, дают ошибку.
// С --remote токен дополнительно проверяется сервером через GET /me.
//
// Пример использования:
//
//	jwksctl verify
//	jwksctl verify --token eyJ...
func NewVerifyCmd(app *App) *cobra.Command {
	var token string
	var remote bool

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Проверить токен по JWKS сервера",
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				token = app.Creds.Token
			}
			if token == "" {
				return errors.New("no token; run token first or pass --token")
			}

			c := NewAPIClient(app.ServerURL, app.Insecure)
			raw, err := c.GetRaw(api.JWKSPath)
			if err != nil {
				return err
			}
			kf, err := keyfunc.NewJWKSetJSON(raw)
			if err != nil {
				return fmt.Errorf("jwks init failed: %w", err)
			}

			claims := &jwt.RegisteredClaims{}
			parser := jwt.NewParser(
				jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
				jwt.WithExpirationRequired(),
			)
			parsed, err := parser.ParseWithClaims(token, claims, kf.Keyfunc)
			if err != nil {
				if errors.Is(err, jwt.ErrTokenExpired) {
					return errors.New("token expired")
				}
				return fmt.Errorf("token invalid: %w", err)
			}
			kid, _ := parsed.Header["kid"].(string)

			fmt.Fprintf(cmd.OutOrStdout(), "valid sub=%s kid=%s exp=%s\n",
				claims.Subject, kid, claims.ExpiresAt.Time.UTC().Format(time.RFC3339))

			if remote {
				me, err := c.Me(token)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "server ok sub=%s kid=%s\n", me.Subject, me.KID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "token to verify (default: saved token)")
	cmd.Flags().BoolVar(&remote, "remote", false, "also check the token with GET /me")

	return cmd
}
