// Package main содержит точку входа JWKS сервера.
//
// Пакет отвечает за инициализацию и жизненный цикл HTTP(S)-сервера, а именно:
//   - загрузку переменных окружения из файла .env (если он присутствует);
//   - загрузку конфигурации сервера из файла ./configs/server.yaml;
//   - подключение к базе данных и миграции;
//   - загрузку ключей подписи и создание недостающих до старта сервера;
//   - создание репозиториев, сервисов, middleware и HTTP-обработчиков;
//   - фоновую ротацию ключей и очистку окон лимитера;
//   - корректное (graceful) завершение работы по SIGINT, SIGTERM, SIGQUIT.
//
// Пакет не содержит бизнес-логики и не предназначен для unit-тестирования.
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/api"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/config"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/crypto"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/keystore"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/middleware"
	h "github.com/IvanChernomyrdin/go-jwks-server/internal/server/net/http"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/repository"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/service"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/shared/logger"
)

func main() {
	boot := logger.NewHTTPLogger().Sugar()

	if err := godotenv.Load(); err != nil {
		boot.Warnf("no .env file loaded, error: %v", err)
	}

	cfg, err := config.Load("./configs/server.yaml")
	if err != nil {
		boot.Fatal(err)
	}

	httpLogger := logger.New(logger.Options{
		Dir:    cfg.Log.Dir,
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	defer func() { _ = httpLogger.Sync() }()
	sugar := httpLogger.Sugar()

	// подключаем базу данных
	db, err := config.OpenDB(cfg.DB, cfg.Migrations, httpLogger)
	if err != nil {
		sugar.Fatal(err)
	}
	defer db.Close()

	// создаём репы
	repos := service.Repositories{
		Users:    repository.NewUsersRepository(db),
		AuthLogs: repository.NewAuthLogsRepository(db),
		Keys:     repository.NewKeysRepository(db),
	}

	sealer, err := crypto.NewKeySealer(cfg.Auth.Keys.EncryptionKey)
	if err != nil {
		sugar.Fatal(err)
	}
	store := keystore.New(keystore.WithBits(cfg.Auth.Keys.Bits))

	// создаём сервисы
	svc := service.NewServices(repos, store, sealer, cfg, httpLogger)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer stop()

	// ключи должны существовать до первого запроса
	if err := svc.Keys.Bootstrap(ctx); err != nil {
		sugar.Fatalf("keys bootstrap: %v", err)
	}

	verifier := middleware.NewJWTVerifier(svc.Issuer, cfg.Auth.Issuer)
	handler := api.NewHandler(svc, httpLogger, verifier, cfg.Server.TrustProxy)

	routerOpts := h.Options{MaxBodyBytes: cfg.Server.MaxBodyBytes}
	if cfg.Observability.Metrics.Enabled {
		routerOpts.MetricsPath = cfg.Observability.Metrics.Path
	}
	router := h.NewRouter(handler, routerOpts)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
	if cfg.TLS.Enabled {
		server.TLSConfig = &tls.Config{MinVersion: tlsVersion(cfg.TLS.MinVersion)}
	}

	g, ctx := errgroup.WithContext(ctx)

	// запускаем сервер
	g.Go(func() error {
		sugar.Infof("server started on %s (tls=%v)", addr, cfg.TLS.Enabled)

		var err error
		if cfg.TLS.Enabled {
			err = server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// ротация ключей
	g.Go(func() error {
		return svc.Keys.Run(ctx)
	})

	// чистка старых окон лимитера
	if svc.Limiter != nil {
		g.Go(func() error {
			return svc.Limiter.RunSweeper(ctx, cfg.Security.RateLimit.SweepEvery)
		})
	}

	// graceful shutdown с таймаутом из конфига
	g.Go(func() error {
		<-ctx.Done()

		sugar.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			cfg.Server.ShutdownTimeout,
		)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	// ожидание и единая обработка ошибок
	if err := g.Wait(); err != nil {
		sugar.Fatalf("server stopped with error: %v", err)
	}
	sugar.Info("server gracefully stopped")
}

func tlsVersion(v string) uint16 {
	if v == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}
