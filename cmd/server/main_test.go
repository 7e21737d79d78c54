package main

import (
	"testing"

	"github.com/rs/zerolog"

	"inventorypro/backend/internal/config"
)

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "short", AllowedOrigin: "http://127.0.0.1:3000"})
	if err == nil {
		t.Fatalf("expected weak security config to be rejected")
	}
}

func TestValidateSecurityConfigRejectsWildcardOrigin(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef", AllowedOrigin: "*"})
	if err == nil {
		t.Fatalf("expected wildcard origin to be rejected")
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef", AllowedOrigin: "http://127.0.0.1:3000"})
	if err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
}

func TestSetupLoggingFallsBackToInfo(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	setupLogging(config.Config{LogLevel: "verbose"})
	if got := zerolog.GlobalLevel(); got != zerolog.InfoLevel {
		t.Fatalf("expected info level, got %s", got)
	}
	setupLogging(config.Config{LogLevel: "debug"})
	if got := zerolog.GlobalLevel(); got != zerolog.DebugLevel {
		t.Fatalf("expected debug level, got %s", got)
	}
}
