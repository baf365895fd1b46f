// Package server assembles the HTTP API: stores, services, handlers and
// the routes under /api/v1.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"pocketbook/internal/clock"
	"pocketbook/internal/handlers"
	"pocketbook/internal/middleware"
	"pocketbook/internal/repository"
	"pocketbook/internal/services"

	_ "pocketbook/internal/docs" // swagger spec
)

// Options configures NewRouter.
type Options struct {
	// Clock decides "today" for budget periods. Defaults to the system clock.
	Clock  clock.Clock
	Budget services.BudgetOptions
	// AuthLimiter throttles the register and login endpoints. Nil disables
	// throttling.
	AuthLimiter middleware.RateLimiter
	// Swagger serves the API docs under /swagger.
	Swagger bool
}

// NewRouter builds the application's gin engine on top of db.
func NewRouter(db *gorm.DB, opts Options) *gin.Engine {
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}

	budgetStore := repository.NewBudgetRepository(db)
	transactionStore := repository.NewTransactionRepository(db)

	auditService := services.NewAuditService(db)
	userService := services.NewUserService(db)
	categoryService := services.NewCategoryService(db)
	transactionService := services.NewTransactionService(transactionStore, categoryService, userService, opts.Clock)
	budgetService := services.NewBudgetService(
		budgetStore,
		services.NewSpendingAggregator(transactionStore),
		categoryService,
		auditService,
		opts.Clock,
		opts.Budget,
	)

	authHandler := handlers.NewAuthHandler(userService)
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	budgetHandler := handlers.NewBudgetHandler(budgetService)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(cors())

	if opts.Swagger {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	if opts.AuthLimiter != nil {
		auth.Use(middleware.RateLimit(opts.AuthLimiter))
	}
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)

	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetCategories)
	categories.GET("/:id", categoryHandler.GetCategory)

	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.GetTransactions)
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	reports := protected.Group("/reports")
	reports.GET("/monthly", transactionHandler.GetMonthlyTotals)
	reports.GET("/top-categories", transactionHandler.GetTopCategories)
	reports.GET("/categories", transactionHandler.GetCategoryTotals)
	reports.GET("/balance", transactionHandler.GetBalance)

	budgets := protected.Group("/budgets")
	budgets.POST("", budgetHandler.CreateBudget)
	budgets.GET("", budgetHandler.GetBudgets)
	budgets.GET("/alerts", budgetHandler.GetBudgetAlerts)
	budgets.GET("/summary", budgetHandler.GetBudgetSummary)
	budgets.GET("/category/:categoryId", budgetHandler.GetBudgetByCategory)
	budgets.PUT("/:id", budgetHandler.UpdateBudget)
	budgets.DELETE("/:id", budgetHandler.DeleteBudget)

	return router
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
