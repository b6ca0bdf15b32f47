package main

import (
    "go.uber.org/zap"

    "github.com/maria162003/clinikdent-v2-0-sub004/config"
    "github.com/maria162003/clinikdent-v2-0-sub004/migrations"
)

// Applies pending schema migrations and exits. Run before starting the
// server on a fresh or upgraded database.
func main() {
    logger, err := zap.NewProduction()
    if err != nil {
        panic(err)
    }
    defer logger.Sync()

    cfg := config.Load()

    db, err := config.ConnectDB(cfg)
    if err != nil {
        logger.Fatal("failed to connect to database", zap.Error(err))
    }
    defer db.Close()

    if err := migrations.Apply(db, logger); err != nil {
        logger.Fatal("migration failed", zap.Error(err))
    }

    logger.Info("migrations up to date")
}
