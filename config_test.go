package vaultcore

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := defaultConfig().Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "code digits too small",
			mutate: func(c *Config) { c.SecondFactor.CodeDigits = 3 },
			want:   "CodeDigits",
		},
		{
			name:   "code digits too large",
			mutate: func(c *Config) { c.SecondFactor.CodeDigits = 11 },
			want:   "CodeDigits",
		},
		{
			name: "lockout without attempts",
			mutate: func(c *Config) {
				c.SecondFactor.LockoutEnabled = true
				c.SecondFactor.MaxAttempts = 0
			},
			want: "MaxAttempts",
		},
		{
			name: "lockout without cooldown",
			mutate: func(c *Config) {
				c.SecondFactor.LockoutEnabled = true
				c.SecondFactor.Cooldown = 0
			},
			want: "Cooldown",
		},
		{
			name:   "generator default too short",
			mutate: func(c *Config) { c.Generator.DefaultLength = 4 },
			want:   "DefaultLength",
		},
		{
			name:   "generator default too long",
			mutate: func(c *Config) { c.Generator.DefaultLength = 64 },
			want:   "DefaultLength",
		},
		{
			name:   "recovery ttl zero",
			mutate: func(c *Config) { c.Recovery.TokenTTL = 0 },
			want:   "TokenTTL",
		},
		{
			name: "audit enabled with zero buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			want: "BufferSize",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLockoutDisabledSkipsThresholdChecks(t *testing.T) {
	cfg := defaultConfig()
	cfg.SecondFactor.LockoutEnabled = false
	cfg.SecondFactor.MaxAttempts = 0
	cfg.SecondFactor.Cooldown = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled lockout should not require thresholds: %v", err)
	}
}

func TestBuildRejectsMissingAccountStore(t *testing.T) {
	if _, err := New().Build(); err == nil {
		t.Fatal("Build without an account store should fail")
	}
}

func TestBuildRejectsLockoutWithoutRedis(t *testing.T) {
	cfg := defaultConfig()
	cfg.SecondFactor.LockoutEnabled = true

	_, err := New().
		WithConfig(cfg).
		WithAccountStore(newFakeAccountStore()).
		Build()
	if err == nil || !strings.Contains(err.Error(), "redis") {
		t.Fatalf("Build err = %v, want redis requirement", err)
	}
}

func TestBuilderSingleUse(t *testing.T) {
	builder := New().WithAccountStore(newFakeAccountStore())

	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })

	if _, err := builder.Build(); err == nil {
		t.Fatal("second Build on the same builder should fail")
	}
}

func TestEngineConfigIsCopy(t *testing.T) {
	engine, _ := newTestEngine(t, testEngineOptions{})

	cfg := engine.Config()
	cfg.Recovery.TokenTTL = time.Second
	if engine.Config().Recovery.TokenTTL == time.Second {
		t.Fatal("mutating the returned config changed engine state")
	}
}

func TestBuildWiresRedisRecoveryStore(t *testing.T) {
	engine, _ := newTestEngine(t, testEngineOptions{redis: newTestRedis(t)})

	if engine.recoveryStore == nil {
		t.Fatal("redis-backed recovery store not wired by default")
	}
	if _, ok := engine.recoveryStore.(*RedisRecoveryStore); !ok {
		t.Fatalf("recovery store type = %T, want *RedisRecoveryStore", engine.recoveryStore)
	}
}
