package config_test

import (
	"context"
	"os"
	"testing"

	"github.com/okian/rollbot/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.Store, convey.ShouldEqual, config.StoreJSON)
				convey.So(cfg.RollsPerReset, convey.ShouldEqual, 8)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("ROLLBOT_ADDR", ":8080")
			_ = os.Setenv("ROLLBOT_CHANNEL_ID", "1253331619326984275")
			_ = os.Setenv("ROLLBOT_CLAIM_WINDOW_MS", "10000")
			_ = os.Setenv("ROLLBOT_STORE", "sqlite")
			_ = os.Setenv("ROLLBOT_INGEST_ON_START", "true")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.ChannelID, convey.ShouldEqual, "1253331619326984275")
				convey.So(cfg.ClaimWindowMS, convey.ShouldEqual, 10000)
				convey.So(cfg.Store, convey.ShouldEqual, config.StoreSQLite)
				convey.So(cfg.IngestOnStart, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with a YAML file and env overrides", func() {
			tmpFile := createTempConfigFile(`
# economy tuning
addr: ":9090"
rolls_per_reset: 5
timezone: "UTC"
claim_reset_cron: "*/30 * * * *"
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("ROLLBOT_CONFIG", tmpFile)
			_ = os.Setenv("ROLLBOT_ROLLS_PER_RESET", "3")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.RollsPerReset, convey.ShouldEqual, 3)
				convey.So(cfg.Timezone, convey.ShouldEqual, "UTC")
				convey.So(cfg.ClaimResetCron, convey.ShouldEqual, "*/30 * * * *")
				convey.So(cfg.UsersPageSize, convey.ShouldEqual, 10)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("ROLLBOT_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("ROLLBOT_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("ROLLBOT_ADDR", "")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("ROLLBOT_QUEUE_SIZE", "invalid")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, envVar := range []string{
		"ROLLBOT_CONFIG",
		"ROLLBOT_ADDR",
		"ROLLBOT_CHANNEL_ID",
		"ROLLBOT_CLAIM_WINDOW_MS",
		"ROLLBOT_STORE",
		"ROLLBOT_INGEST_ON_START",
		"ROLLBOT_ROLLS_PER_RESET",
		"ROLLBOT_QUEUE_SIZE",
	} {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "rollbot-config-*.yaml")
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
