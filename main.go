package main

import (
	"github.com/convictionlabs/conviction/config"
	"github.com/convictionlabs/conviction/feed"
	"github.com/convictionlabs/conviction/models"
	"github.com/convictionlabs/conviction/repos"
	"github.com/convictionlabs/conviction/routes"
	"github.com/convictionlabs/conviction/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db, err := config.OpenDatabase(cfg,
		&models.User{},
		&models.Post{},
		&models.Thesis{},
		&models.Reaction{},
		&models.Block{},
		&models.Rationale{},
		&models.Event{},
		&models.Notification{},
	)
	if err != nil {
		utils.Sugar.Fatalf("database init failed: %v", err)
	}

	stores := repos.New(db)
	engine := feed.NewService(stores, cfg.MaxRationaleLimit)

	r := routes.SetupRouter(db, engine)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
