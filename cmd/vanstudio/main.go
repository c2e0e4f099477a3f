// Package main is the interactive van interior editor.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/van-studio/internal/assets"
	"github.com/Faultbox/van-studio/internal/config"
	"github.com/Faultbox/van-studio/internal/design"
	"github.com/Faultbox/van-studio/internal/editor"
	"github.com/Faultbox/van-studio/internal/editor/toolbar"
	"github.com/Faultbox/van-studio/internal/logger"
	"github.com/Faultbox/van-studio/internal/studio"
	"github.com/Faultbox/van-studio/internal/viewer"
)

func main() {
	cfg, err := config.Load(config.ParseFlags())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	opts := logger.Options{Level: cfg.Logging.Level, Console: true, JSON: cfg.Logging.JSON}
	if cfg.Logging.LogFile != "" {
		opts.File = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}
	if err := logger.InitWithOptions(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Log.Error("studio error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Log.Info("studio closed normally")
}

func run(cfg *config.Config) error {
	log := logger.Named("main")
	log.Info("=== Van Studio ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	cat, err := assets.LoadCatalog(cfg.Assets.Catalog)
	if err != nil {
		return err
	}
	mgr := assets.NewManager(cat, assets.Options{
		Roots:        cfg.Assets.Roots,
		CacheBytes:   int64(cfg.Assets.CacheMB) << 20,
		FetchTimeout: cfg.Assets.FetchTimeout,
		Progress: func(url string, done, total int64) {
			if done == total {
				log.Debug("fetched", zap.String("url", url), zap.Int64("bytes", done))
			}
		},
	})
	defer mgr.Close()

	v, err := viewer.New(cfg)
	if err != nil {
		return err
	}
	defer v.Close()

	s := studio.New(cfg, studio.Deps{
		Loader:   mgr,
		Store:    design.NewFileStore(cfg.Store.DesignsDir),
		Confirm:  toolbar.ConfirmFunc(v.Confirm),
		Notifier: editor.NotifyFunc(v.Notify),
	})
	defer s.Close()

	if cfg.Assets.WatchCatalog {
		w, err := assets.WatchCatalog(cfg.Assets.Catalog, func(c *assets.Catalog) {
			s.Queue().Post(func() {
				mgr.SetCatalog(c)
				v.Notify("Catalog reloaded", nil)
			})
		})
		if err != nil {
			log.Warn("catalog watch disabled", zap.Error(err))
		} else {
			defer w.Close()
		}
	}

	v.Bind(s)
	if len(cat.Vehicles) > 0 {
		s.LoadVehicle(cat.Vehicles[0].ID, nil)
	}
	return v.Run()
}
