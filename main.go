package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/inkpress/inkpress/config"
	"github.com/inkpress/inkpress/models"
	"github.com/inkpress/inkpress/routes"
	"github.com/inkpress/inkpress/store"
	"github.com/inkpress/inkpress/utils"
)

func main() {
	configPath := pflag.String("config", config.DefaultPath, "path to the JSON configuration file")
	port := pflag.String("port", "", "HTTP port, overrides the configured AppPort")
	pflag.Parse()

	cfg := config.LoadFrom(*configPath)
	if *port != "" {
		cfg.AppPort = *port
		config.Set(cfg)
	}

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer utils.Logger.Sync()

	db := config.InitDatabase(models.All()...)
	s := store.New(db)

	seedCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	deleted, created, err := s.Categories.Reseed(seedCtx)
	cancel()
	if err != nil {
		utils.Logger.Fatal("category seeding failed", zap.Error(err))
	}
	utils.Logger.Info("categories seeded", zap.Int64("deleted", deleted), zap.Int("created", len(created)))

	r := routes.SetupRouter(s)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	utils.StartJanitor(ctx, 5*time.Minute)
	defer utils.CloseRedis()

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.Serve(ctx, utils.NewServer(":"+cfg.AppPort, r)); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
