package main

import (
	"context"
	"log"
	"os"

	"unilib/app"
	"unilib/config"
	"unilib/db"
	"unilib/routes"
	"unilib/workers"
)

func main() {
	config.LoadEnv()

	application := app.MustNew()
	defer application.Close()

	r := application.Router

	// Health
	r.GET("/healthz", func(c *app.Ctx) { c.JSON(200, app.H{"ok": true}) })

	routes.RegisterRoutes(r, application)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app.BootstrapFirstAdmin(ctx, application.Config, db.NewRepo(application.DB))

	// 逾期/到期提醒
	notifier := workers.NewOverdueNotifier(
		db.NewRepo(application.DB),
		workers.RedisDeduper{RDB: application.RDB},
	)
	notifier.Start(ctx)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3001"
	}
	log.Printf("listening on :%s", port)
	_ = r.Run(":" + port)
}
