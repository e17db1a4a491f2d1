package config

import (
	"errors"
	"testing"

	"github.com/DrSkyle/cloudsweep/pkg/engine"
	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	s, err := Load(v)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Region != DefaultRegion {
		t.Errorf("Expected region %s, got %s", DefaultRegion, s.Region)
	}
	if s.RetentionDays != 30 {
		t.Errorf("Expected RetentionDays 30, got %d", s.RetentionDays)
	}
	if s.CoreThreshold != 5 {
		t.Errorf("Expected CoreThreshold 5, got %d", s.CoreThreshold)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]any{
		"log_level":      "loud",
		"report_format":  "xml",
		"slack_webhook":  "not a url",
		"core_threshold": 0,
	}
	for key, value := range cases {
		v := viper.New()
		SetDefaults(v)
		v.Set(key, value)

		_, err := Load(v)
		if !errors.Is(err, engine.ErrConfiguration) {
			t.Errorf("%s=%v: expected configuration error, got %v", key, value, err)
			continue
		}
		var ce *engine.ConfigError
		if errors.As(err, &ce) && ce.Field == "" {
			t.Errorf("%s: expected the failing field to be named", key)
		}
	}
}

func TestLogLevelIsCaseInsensitive(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("log_level", "DEBUG")

	s, err := Load(v)
	if err != nil {
		t.Fatal(err)
	}
	if s.LogLevel != "debug" {
		t.Errorf("got %q", s.LogLevel)
	}
}
