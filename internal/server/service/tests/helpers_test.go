package tests

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/config"
	crypt "github.com/IvanChernomyrdin/go-jwks-server/internal/server/crypto"
)

// testConfig - минимальный валидный конфиг с лёгкими параметрами argon2.
func testConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Password.Argon2 = config.Argon2Config{
		Time:      1,
		MemoryKiB: 8 * 1024,
		Threads:   1,
		KeyLen:    32,
		SaltLen:   16,
	}
	cfg.Security.RateLimit.Enabled = true
	cfg.Auth.Issuer = "jwks-server"
	return cfg
}

func testHasher() crypt.Argon2Hasher {
	a := testConfig().Password.Argon2
	return crypt.Argon2Hasher{Params: crypt.Argon2Params{
		Time:      a.Time,
		MemoryKiB: a.MemoryKiB,
		Threads:   a.Threads,
		KeyLen:    a.KeyLen,
		SaltLen:   a.SaltLen,
	}}
}

// counterValue достаёт значение счётчика из реестра. label пустой - метрика без меток.
func counterValue(t *testing.T, reg *prometheus.Registry, name, label string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if label == "" {
				return m.GetCounter().GetValue()
			}
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == label {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
