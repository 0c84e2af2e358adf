package routes

import (
	"sangha/backend/config"
	"sangha/backend/controllers"
	"sangha/backend/middleware"
	"sangha/backend/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Deps bundles the session-scoped components handed to the controllers.
type Deps struct {
	Stats   *services.StatsAggregator
	Ledger  *services.HistoryLedger
	Weekly  *services.WeeklyTracker
	Ranking *services.RankingCalculator
	Clock   services.Clock
}

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, deps Deps) {
	// Auth routes
	authController := controllers.NewAuthController(db, cfg)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg)
	adminMiddleware := middleware.AdminMiddleware(cfg)

	// User routes
	userController := controllers.NewUserController(db, cfg, deps.Stats, deps.Ledger, deps.Clock)
	app.Get("/api/user/profile", authMiddleware, userController.GetProfile)
	app.Put("/api/user/profile", authMiddleware, userController.UpdateProfile)

	// Practice routes
	practiceController := controllers.NewPracticeController(db, cfg, deps.Stats, deps.Ledger, deps.Ranking, deps.Clock)
	practice := app.Group("/api/practice", authMiddleware)
	practice.Post("/minutes", practiceController.AddMinutes)
	practice.Get("/today", practiceController.Today)
	practice.Get("/history", practiceController.History)
	practice.Get("/rank", practiceController.Rank)

	// Weekly leave / check-in routes
	weeklyController := controllers.NewWeeklyController(db, cfg, deps.Weekly, deps.Clock)
	weekly := app.Group("/api/weekly", authMiddleware)
	weekly.Get("/state", weeklyController.State)
	weekly.Post("/leave", weeklyController.RequestLeave)
	weekly.Post("/leave/revoke", weeklyController.RevokeLeave)
	weekly.Post("/checkin", weeklyController.CheckIn)

	// Courses routes
	coursesController := controllers.NewCoursesController(db, cfg)
	courses := app.Group("/api/courses", authMiddleware)
	courses.Get("/", coursesController.GetCourses)
	courses.Get("/:id", coursesController.GetCourse)

	// Config replicated to all clients
	adminController := controllers.NewAdminController(db, cfg)
	app.Get("/api/config", authMiddleware, adminController.GetConfig)

	// Admin routes
	admin := app.Group("/api/admin", authMiddleware, adminMiddleware)
	admin.Post("/courses", coursesController.CreateCourse)
	admin.Put("/courses/:id", coursesController.UpdateCourse)
	admin.Put("/config/:key", adminController.SetConfig)
	admin.Put("/quotas", adminController.SetQuota)
}
