package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"trivia-service/internal/config"
)

func TestLoad(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		dir := t.TempDir()

		convey.Convey("When the file does not exist", func() {
			cfg, err := config.Load(filepath.Join(dir, "missing.yaml"))

			convey.Convey("Then defaults are used", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Server.Port, convey.ShouldEqual, "8080")
				convey.So(cfg.Store.Driver, convey.ShouldEqual, config.DriverSQLite)
				convey.So(cfg.Store.SQLitePath, convey.ShouldEqual, "trivia.sqlite")
				convey.So(cfg.Provider.Kind, convey.ShouldEqual, config.ProviderOpenTDB)
				convey.So(cfg.Random.Source, convey.ShouldEqual, config.RandomDiceAPI)
				convey.So(cfg.Random.DiceURL, convey.ShouldEqual, "http://roll.diceapi.com")
			})
		})

		convey.Convey("When the file overrides values", func() {
			path := writeFile(t, dir, `
server:
  port: "9090"
store:
  driver: memory
random:
  source: local
redis:
  addr: "localhost:6379"
  ttl: 5m
`)
			cfg, err := config.Load(path)

			convey.Convey("Then file values win over defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Server.Port, convey.ShouldEqual, "9090")
				convey.So(cfg.Store.Driver, convey.ShouldEqual, config.DriverMemory)
				convey.So(cfg.Random.Source, convey.ShouldEqual, config.RandomLocal)
				convey.So(cfg.Redis.Addr, convey.ShouldEqual, "localhost:6379")
				convey.So(config.TTLDuration(cfg.Redis.TTL, time.Minute), convey.ShouldEqual, 5*time.Minute)
			})
		})

		convey.Convey("When postgres is selected without a url", func() {
			path := writeFile(t, dir, "store:\n  driver: postgres\n")
			_, err := config.Load(path)

			convey.Convey("Then validation fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "postgres.url")
			})
		})

		convey.Convey("When the openai provider has no key", func() {
			t.Setenv("OPENAI_API_KEY", "")
			path := writeFile(t, dir, "provider:\n  kind: openai\n")
			_, err := config.Load(path)

			convey.Convey("Then validation fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the openai key comes from the environment", func() {
			t.Setenv("OPENAI_API_KEY", "sk-test")
			path := writeFile(t, dir, "provider:\n  kind: openai\n")
			cfg, err := config.Load(path)

			convey.Convey("Then it is picked up", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Provider.OpenAI.APIKey, convey.ShouldEqual, "sk-test")
				convey.So(cfg.Provider.OpenAI.Model, convey.ShouldEqual, "gpt-4o")
			})
		})

		convey.Convey("When the yaml is invalid", func() {
			path := writeFile(t, dir, "invalid: yaml: content: [")
			_, err := config.Load(path)

			convey.Convey("Then it returns an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestTTLDuration(t *testing.T) {
	if got := config.TTLDuration("", time.Second); got != time.Second {
		t.Fatalf("expected fallback, got %v", got)
	}
	if got := config.TTLDuration("bogus", time.Second); got != time.Second {
		t.Fatalf("expected fallback for bogus, got %v", got)
	}
	if got := config.TTLDuration("250ms", time.Second); got != 250*time.Millisecond {
		t.Fatalf("expected 250ms, got %v", got)
	}
}

func writeFile(t *testing.T, dir, content string) string {
	t.Helper()
	f, err := os.CreateTemp(dir, "config-*.yaml")
	if err != nil {
		t.Fatalf("create temp: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	return f.Name()
}
