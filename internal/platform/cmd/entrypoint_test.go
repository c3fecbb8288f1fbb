package cmd

import (
	"context"
	"errors"
	"flag"
	"testing"
)

type testConfig struct {
	Viewpoints string  `env:"CMD_TEST_VIEWPOINTS" envDefault:"views.json"`
	Weight     float64 `env:"CMD_TEST_KFACTOR" envDefault:"0.9"`
}

func TestParseConfigReadsEnvAndFlags(t *testing.T) {
	t.Setenv("VIEWSCORE_CMD_TEST_VIEWPOINTS", "env.json")
	t.Setenv("VIEWSCORE_CMD_TEST_KFACTOR", "0.5")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg := testConfig{}
	if err := ParseConfig(&cfg); err != nil {
		t.Fatalf("load config defaults: %v", err)
	}
	fs.StringVar(&cfg.Viewpoints, "viewpoints", cfg.Viewpoints, "viewpoints")
	fs.Float64Var(&cfg.Weight, "kfactor", cfg.Weight, "k")

	if err := ParseArgs(fs, []string{"-viewpoints", "flag.json"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if cfg.Viewpoints != "flag.json" {
		t.Fatalf("expected flag value for viewpoints, got %q", cfg.Viewpoints)
	}
	if cfg.Weight != 0.5 {
		t.Fatalf("expected env default weight, got %v", cfg.Weight)
	}
}

func TestParseConfigRejectsNilTarget(t *testing.T) {
	if err := ParseConfig[testConfig](nil); err == nil {
		t.Fatal("expected nil target error")
	}
}

func TestParseArgsRejectsNilParser(t *testing.T) {
	if err := ParseArgs(nil, []string{}); err == nil {
		t.Fatal("expected parse args to reject nil parser")
	}
}

func TestRunWithTelemetryRejectsMissingInputs(t *testing.T) {
	if err := RunWithTelemetry(context.Background(), "", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected missing service error")
	}
	if err := RunWithTelemetry(context.Background(), ServiceViewscore, nil); err == nil {
		t.Fatal("expected missing run function error")
	}
}

func TestRunWithTelemetryReturnsRunError(t *testing.T) {
	t.Setenv("VIEWSCORE_OTEL_ENDPOINT", "")
	want := errors.New("evaluation aborted")

	err := RunWithTelemetry(context.Background(), ServiceViewscore, func(context.Context) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("run error = %v, want %v", err, want)
	}
}
