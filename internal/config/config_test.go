package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/pable/cs-round-features/internal/config"
)

var envKeys = []string{
	"CSFEATURES_CONFIG", "CSFEATURES_WORKERS", "CSFEATURES_MONEY_CAP",
	"CSFEATURES_FREEZE_OFFSET_SECONDS", "CSFEATURES_LOG_LEVEL",
}

func clearEnv() {
	for _, k := range envKeys {
		_ = os.Unsetenv(k)
	}
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearEnv()
		defer clearEnv()

		convey.Convey("When loading with defaults only", func() {
			cfg, err := config.Load(ctx, "")

			convey.Convey("Then the defaults apply", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Workers, convey.ShouldEqual, runtime.NumCPU())
				convey.So(cfg.MoneyCap, convey.ShouldEqual, 16000)
				convey.So(cfg.Window().Offset, convey.ShouldEqual, 2*time.Second)
				convey.So(cfg.Window().Tolerance, convey.ShouldEqual, 500*time.Millisecond)
				convey.So(cfg.Schedule().IsSwitch(13), convey.ShouldBeTrue)
				convey.So(cfg.Limits().RosterSize, convey.ShouldEqual, 5)
			})
		})

		convey.Convey("When environment variables are set", func() {
			_ = os.Setenv("CSFEATURES_WORKERS", "3")
			_ = os.Setenv("CSFEATURES_FREEZE_OFFSET_SECONDS", "2.5")

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then they override the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Workers, convey.ShouldEqual, 3)
				convey.So(cfg.Window().Offset, convey.ShouldEqual, 2500*time.Millisecond)
			})
		})

		convey.Convey("When a YAML file is given", func() {
			path := filepath.Join(t.TempDir(), "csfeatures.yaml")
			err := os.WriteFile(path, []byte("money_cap: 10000\nroster_size: 2\nlog_level: debug\n"), 0o600)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then file values apply and env still wins", func() {
				_ = os.Setenv("CSFEATURES_MONEY_CAP", "12000")

				cfg, err := config.Load(ctx, path)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.MoneyCap, convey.ShouldEqual, 12000)
				convey.So(cfg.RosterSize, convey.ShouldEqual, 2)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
			})

			convey.Convey("Then CSFEATURES_CONFIG finds it too", func() {
				_ = os.Setenv("CSFEATURES_CONFIG", path)

				cfg, err := config.Load(ctx, "")
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.RosterSize, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the file does not exist", func() {
			_, err := config.Load(ctx, filepath.Join(t.TempDir(), "missing.yaml"))

			convey.Convey("Then loading fails with ErrLoadConfig", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a value is out of range", func() {
			_ = os.Setenv("CSFEATURES_WORKERS", "0")

			_, err := config.Load(ctx, "")

			convey.Convey("Then loading fails with ErrInvalidConfig", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the log level is unknown", func() {
			_ = os.Setenv("CSFEATURES_LOG_LEVEL", "loud")

			_, err := config.Load(ctx, "")

			convey.Convey("Then loading fails with ErrInvalidConfig", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}
