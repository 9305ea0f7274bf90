// Package server assembles the HTTP API: middleware, routes and the
// graceful-shutdown loop used by cmd/api.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "github.com/apgoswamieww-droid/expense-tracker/internal/docs" // Import swagger docs
	"github.com/apgoswamieww-droid/expense-tracker/internal/events"
	"github.com/apgoswamieww-droid/expense-tracker/internal/handlers"
	"github.com/apgoswamieww-droid/expense-tracker/internal/logger"
	"github.com/apgoswamieww-droid/expense-tracker/internal/middleware"
	"github.com/apgoswamieww-droid/expense-tracker/internal/services"
	"github.com/apgoswamieww-droid/expense-tracker/internal/validator"
)

const shutdownTimeout = 10 * time.Second

// Deps are the services the router dispatches to.
type Deps struct {
	Users    services.UserServicer
	Expenses services.ExpenseServicer
	Audit    services.AuditServicer
	// APIKey is required in the apikey header when non-empty.
	APIKey string
	// Swagger mounts the API docs at /swagger.
	Swagger bool
}

// NewDeps wires the gorm-backed services around db.
func NewDeps(db *gorm.DB, publisher events.Publisher, apiKey string) Deps {
	return Deps{
		Users:    services.NewUserService(db),
		Expenses: services.NewExpenseService(db, publisher),
		Audit:    services.NewAuditService(db),
		APIKey:   apiKey,
		Swagger:  true,
	}
}

// NewRouter builds the gin engine serving the API under /api/v1.
func NewRouter(deps Deps) *gin.Engine {
	validator.Register()

	authHandler := handlers.NewAuthHandler(deps.Users, deps.Audit)
	expenseHandler := handlers.NewExpenseHandler(deps.Expenses, deps.Audit)

	router := gin.New()
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Recovery())
	router.Use(cors())
	router.NoRoute(middleware.NoRoute)

	if deps.Swagger {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	v1.Use(middleware.APIKeyMiddleware(deps.APIKey))

	auth := v1.Group("/auth")
	auth.POST("/signup", authHandler.SignUp)
	auth.POST("/signin", authHandler.SignIn)

	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(deps.Users))

	protected.GET("/auth/user", authHandler.GetUser)
	protected.POST("/auth/signout", authHandler.SignOut)

	expenses := protected.Group("/expenses")
	expenses.GET("", expenseHandler.ListExpenses)
	expenses.POST("", expenseHandler.CreateExpense)
	expenses.GET("/:id", expenseHandler.GetExpense)
	expenses.PUT("/:id", expenseHandler.UpdateExpense)
	expenses.DELETE("/:id", expenseHandler.DeleteExpense)

	return router
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, apikey, X-API-Key, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Serve runs srv until ctx is cancelled, then shuts it down gracefully.
func Serve(ctx context.Context, srv *http.Server) error {
	log := logger.Named("server")

	errCh := make(chan error, 1)
	go func() {
		log.Infow("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
