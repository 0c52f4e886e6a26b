package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/rollbot/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should carry the economy defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.RollsPerReset, convey.ShouldEqual, 8)
			convey.So(cfg.ClaimWindow(), convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.PaginationIdle(), convey.ShouldEqual, time.Minute)
			convey.So(cfg.DailyCooldown(), convey.ShouldEqual, 24*time.Hour)
			convey.So(cfg.EntitiesPageSize, convey.ShouldEqual, 15)
			convey.So(cfg.UsersPageSize, convey.ShouldEqual, 10)
			convey.So(cfg.TopEntitiesLimit, convey.ShouldEqual, 1000)
			convey.So(cfg.MaxPopularity, convey.ShouldEqual, 32670)
			convey.So(cfg.RollResetCron, convey.ShouldEqual, "*/30 * * * *")
			convey.So(cfg.Timezone, convey.ShouldEqual, "Africa/Casablanca")
		})

		convey.Convey("And they should validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
			convey.So(cfg.Location().String(), convey.ShouldEqual, "Africa/Casablanca")
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given invalid configurations", t, func() {
		cases := []struct {
			name   string
			mutate func(c *config.Config)
		}{
			{"empty addr", func(c *config.Config) { c.Addr = " " }},
			{"unknown store", func(c *config.Config) { c.Store = "redis" }},
			{"sqlite without path", func(c *config.Config) { c.Store = config.StoreSQLite; c.SQLitePath = "" }},
			{"webhook without url", func(c *config.Config) { c.Messenger = config.MessengerWebhook }},
			{"unknown messenger", func(c *config.Config) { c.Messenger = "carrier-pigeon" }},
			{"bad timezone", func(c *config.Config) { c.Timezone = "Mars/Olympus" }},
			{"bad cron", func(c *config.Config) { c.ClaimResetCron = "every hour" }},
			{"zero rolls", func(c *config.Config) { c.RollsPerReset = 0 }},
			{"zero page size", func(c *config.Config) { c.UsersPageSize = 0 }},
		}
		for _, tc := range cases {
			convey.Convey("When the config has "+tc.name, func() {
				cfg := config.New()
				tc.mutate(cfg)
				err := cfg.Validate()

				convey.Convey("Then validation fails with ErrInvalidConfig", func() {
					convey.So(err, convey.ShouldNotBeNil)
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				})
			})
		}
	})
}
