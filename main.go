package main

import (
    "context"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/gin-gonic/gin"
    "go.uber.org/zap"

    "github.com/maria162003/clinikdent-v2-0-sub004/config"
    "github.com/maria162003/clinikdent-v2-0-sub004/controllers"
    "github.com/maria162003/clinikdent-v2-0-sub004/mailer"
    "github.com/maria162003/clinikdent-v2-0-sub004/routes"
    "github.com/maria162003/clinikdent-v2-0-sub004/security"
    "github.com/maria162003/clinikdent-v2-0-sub004/utils"
)

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
    logger.Info("connected to Postgres")

    tm, err := security.NewTokenManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret)
    if err != nil {
        logger.Fatal("failed to configure token manager", zap.Error(err))
    }

    lockout := utils.NewLockoutPolicy(db, logger, cfg.MaxLoginAttempts, cfg.LockDurationMinutes)
    mail := mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, logger)

    ctl := routes.Controllers{
        Auth:         controllers.NewAuthController(db, logger, tm, lockout, mail, cfg.ResetTokenTTL),
        Appointments: controllers.NewAppointmentController(db, logger, cfg.ClinicLocation()),
        Activity:     controllers.NewActivityController(db, logger),
        Users:        controllers.NewUserController(db, logger, lockout),
    }

    r := gin.Default()
    r.Use(security.CORSMiddleware())

    api := r.Group("/api/v1")
    routes.Register(api, db, tm, ctl)

    srv := &http.Server{
        Addr:    ":" + cfg.Port,
        Handler: r,
    }

    go func() {
        logger.Info("clinikdent backend starting", zap.String("port", cfg.Port))
        if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
            logger.Fatal("failed to start server", zap.Error(err))
        }
    }()

    quit := make(chan os.Signal, 1)
    signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
    <-quit
    logger.Info("shutting down")

    // Give outstanding requests 30 seconds to complete.
    ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
    defer cancel()

    if err := srv.Shutdown(ctx); err != nil {
        logger.Fatal("forced to shutdown", zap.Error(err))
    }

    logger.Info("server exited")
}
