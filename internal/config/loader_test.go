package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/rangeboard/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldResemble, config.New())
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("RANGEBOARD_ADDR", ":8080")
			_ = os.Setenv("RANGEBOARD_QUEUE_SIZE", "500")
			_ = os.Setenv("RANGEBOARD_WORKER_COUNT", "2")
			_ = os.Setenv("RANGEBOARD_VERIFY_REBUILDS", "true")
			_ = os.Setenv("RANGEBOARD_MUTATION_RATE_PER_SEC", "12.5")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 500)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 2)
				convey.So(cfg.VerifyRebuilds, convey.ShouldBeTrue)
				convey.So(cfg.MutationRatePerSec, convey.ShouldEqual, 12.5)
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 100_000)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
queue_size: 300
seed_file: "/srv/seed.yaml"
log_format: json
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("RANGEBOARD_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from the file and keep defaults elsewhere", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 300)
				convey.So(cfg.SeedFile, convey.ShouldEqual, "/srv/seed.yaml")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When both file and environment set a key", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
dedupe_size: 42
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("RANGEBOARD_CONFIG", tmpFile)
			_ = os.Setenv("RANGEBOARD_ADDR", ":7070")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then the environment wins", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 42)
			})
		})

		convey.Convey("When the YAML file is malformed", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("RANGEBOARD_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the YAML file does not exist", func() {
			_ = os.Setenv("RANGEBOARD_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When a numeric variable is not a number", func() {
			_ = os.Setenv("RANGEBOARD_QUEUE_SIZE", "lots")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the worker count is zero", func() {
			_ = os.Setenv("RANGEBOARD_WORKER_COUNT", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then validation rejects it", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "worker_count")
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"RANGEBOARD_CONFIG",
		"RANGEBOARD_ADDR",
		"RANGEBOARD_QUEUE_SIZE",
		"RANGEBOARD_WORKER_COUNT",
		"RANGEBOARD_DEDUPE_SIZE",
		"RANGEBOARD_VERIFY_REBUILDS",
		"RANGEBOARD_MUTATION_RATE_PER_SEC",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "rangeboard-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
