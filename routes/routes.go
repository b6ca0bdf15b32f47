package routes

import (
    "database/sql"

    "github.com/gin-gonic/gin"

    "github.com/maria162003/clinikdent-v2-0-sub004/controllers"
    "github.com/maria162003/clinikdent-v2-0-sub004/security"
)

// Controllers bundles the handler sets wired into the router.
type Controllers struct {
    Auth         *controllers.AuthController
    Appointments *controllers.AppointmentController
    Activity     *controllers.ActivityController
    Users        *controllers.UserController
}

// Register mounts the API routes. Identity-bearing routes run behind the JWT
// auth middleware; admin-only routes additionally pass the role gate.
func Register(rg *gin.RouterGroup, db *sql.DB, tm *security.TokenManager, ctl Controllers) {
    // Health check endpoint (no auth required)
    rg.GET("/health", ctl.Auth.HealthCheck)

    auth := rg.Group("/auth")
    {
        auth.POST("/register", ctl.Auth.Register)
        auth.POST("/login", ctl.Auth.Login)
        auth.POST("/refresh", ctl.Auth.Refresh)
        auth.POST("/logout", ctl.Auth.Logout)
        auth.POST("/forgot-password", ctl.Auth.ForgotPassword)
        auth.POST("/reset-password", ctl.Auth.ResetPassword)

        auth.GET("/profile", security.AuthMiddleware(tm, db), ctl.Auth.GetProfile)
        auth.PUT("/password", security.AuthMiddleware(tm, db), ctl.Auth.ChangePassword)
    }

    citas := rg.Group("/citas")
    {
        citas.POST("", ctl.Appointments.CreateAppointment)
        citas.GET("", ctl.Appointments.GetAppointments)
        citas.GET("/slots/disponibles", ctl.Appointments.GetAvailableSlots)
        citas.GET("/:id", ctl.Appointments.GetAppointment)
        citas.POST("/:id/reschedule", ctl.Appointments.RescheduleAppointment)
        citas.POST("/:id/cancel", ctl.Appointments.CancelAppointment)
        citas.PUT("/:id/status", security.RequireAdmin(), ctl.Appointments.UpdateAppointmentStatus)
    }

    actividad := rg.Group("/actividad")
    {
        actividad.POST("", ctl.Activity.RecordActivity)
        actividad.GET("", security.RequireAdmin(), ctl.Activity.GetActivity)
    }

    usuarios := rg.Group("/usuarios", security.RequireAdmin())
    {
        usuarios.GET("", ctl.Users.GetUsers)
        usuarios.GET("/:id", ctl.Users.GetUser)
        usuarios.PUT("/:id", ctl.Users.UpdateUser)
        usuarios.DELETE("/:id", ctl.Users.DeactivateUser)
        usuarios.POST("/:id/desbloquear", ctl.Users.UnlockUser)
    }
}
