package router

import (
	"errors"
	"net/http"
	"sync"
	"time"

	appsvc "helpmate-backend/internal/application/applications"
	authsvc "helpmate-backend/internal/application/auth"
	donsvc "helpmate-backend/internal/application/donations"
	emailsvc "helpmate-backend/internal/application/emails"
	healthsvc "helpmate-backend/internal/application/health"
	progsvc "helpmate-backend/internal/application/progress"
	projsvc "helpmate-backend/internal/application/projects"
	usersvc "helpmate-backend/internal/application/user"
	volsvc "helpmate-backend/internal/application/volunteers"
	"helpmate-backend/internal/config"
	"helpmate-backend/internal/infrastructure/cache"
	"helpmate-backend/internal/infrastructure/database"
	apphandler "helpmate-backend/internal/interfaces/handlers/applications"
	authhandler "helpmate-backend/internal/interfaces/handlers/auth"
	donhandler "helpmate-backend/internal/interfaces/handlers/donations"
	healthhandler "helpmate-backend/internal/interfaces/handlers/health"
	projhandler "helpmate-backend/internal/interfaces/handlers/projects"
	taskhandler "helpmate-backend/internal/interfaces/handlers/tasks"
	volhandler "helpmate-backend/internal/interfaces/handlers/volunteers"
	"helpmate-backend/internal/middleware"
	"helpmate-backend/internal/pkg/constants"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// The collectors register with the default registry, so they are built once
// per process however many apps are created.
var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

func httpMetrics() *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = fiberprometheus.New("helpmate-api")
	})
	return prom
}

// StatsCache picks Redis when a client is available, else an in-process cache.
func StatsCache(rdb *redis.Client, ttl time.Duration) cache.Cache {
	if rdb != nil {
		return cache.NewRedis(rdb)
	}
	return cache.NewLocal(ttl)
}

// CreateApp wires services, handlers and middleware. Sessions live in Redis,
// so rdb is required.
func CreateApp(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*fiber.App, error) {
	if db == nil {
		return nil, errors.New("router: database is required")
	}
	if rdb == nil {
		return nil, errors.New("router: redis is required for sessions")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	metricsMw := httpMetrics()

	app.Use(recover.New())
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())
	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	app.Use(metricsMw.Middleware)
	metricsMw.RegisterAt(app, "/metrics")
	app.Use(middleware.Session(rdb))
	app.Use(middleware.HealthMarker(rdb))

	hh := &healthhandler.Handlers{
		Service:        &healthsvc.Service{Rdb: rdb, DB: &gormDBPinger{db: db}},
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/health/json", hh.JSON)
	app.Get("/health/reset", hh.Reset)
	app.Get("/health/errors", hh.Errors)

	store := database.NewStore(db)
	statsCache := StatsCache(rdb, cfg.StatsCacheTTL)
	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.IsProduction(),
	}
	mailer := emailsvc.NewBrevoClient(cfg.SendinblueAPIKey, cfg.MailFrom)

	// Auth
	ah := &authhandler.Handlers{
		Accounts:   &usersvc.Service{DB: db, Welcomer: mailer},
		UserFinder: &authsvc.GormUserFinder{DB: db},
		Rdb:        rdb,
		Config:     sessionCfg,
	}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/register", ah.Register)
	authGroup.Post("/login", ah.Login)
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", ah.Logout)
	authGroup.Delete("/sessions", ah.LogoutAll)

	// Projects
	ph := &projhandler.Handlers{Service: projsvc.NewService(store, statsCache, cfg.StatsCacheTTL)}
	apps := appsvc.NewService(store, statsCache, mailer, appsvc.Policy{
		CheckCapacityOnApply: cfg.CheckCapacityOnApply,
		AllowReapply:         cfg.ReapplyPolicy == config.ReapplyAfterRefusal,
	})
	aph := &apphandler.Handlers{Service: apps}
	dh := &donhandler.Handlers{Service: donsvc.NewService(store, statsCache)}
	th := &taskhandler.Handlers{Service: progsvc.NewService(store, statsCache)}

	pg := app.Group("/api/v1/projects")
	pg.Get("/", ph.List)
	pg.Get("/stats", ph.Stats)
	pg.Get("/:id", ph.Get)
	pg.Get("/:id/donations", dh.List)

	auth := middleware.RequireAuth()
	perm := middleware.AuthorizePermission
	pg.Post("/", auth, perm(constants.CreateProject), ph.Create)
	pg.Patch("/:id", auth, perm(constants.ManageProject), ph.Update)
	pg.Post("/:id/activate", auth, perm(constants.ManageProject), ph.Activate)
	pg.Post("/:id/cancel", auth, perm(constants.ManageProject), ph.Cancel)
	pg.Post("/:id/complete", auth, perm(constants.ManageProject), ph.Complete)
	pg.Delete("/:id", auth, perm(constants.ManageProject), ph.Delete)

	pg.Post("/:id/apply", auth, perm(constants.ApplyToProject), aph.Apply)
	pg.Post("/:id/reapply", auth, perm(constants.ApplyToProject), aph.Reapply)
	pg.Get("/:id/status", auth, perm(constants.ApplyToProject), aph.Status)
	pg.Get("/:id/requests", auth, perm(constants.DecideApplications), aph.Requests)
	pg.Get("/:id/roster", auth, perm(constants.ViewData), aph.Roster)
	pg.Delete("/:id/roster/:volunteerId", auth, perm(constants.DecideApplications), aph.RemoveVolunteer)
	pg.Post("/:id/applications/:volunteerId/decision", auth, perm(constants.DecideApplications), aph.Decide)

	pg.Post("/:id/donations", auth, perm(constants.Donate), dh.Add)

	pg.Get("/:id/tasks", auth, perm(constants.ViewData), th.List)
	pg.Post("/:id/tasks", auth, perm(constants.ManageTasks), th.Create)

	tg := app.Group("/api/v1/tasks", auth)
	tg.Patch("/:taskId/status", perm(constants.UpdateTaskProgress), th.UpdateStatus)
	tg.Patch("/:taskId/hours", perm(constants.UpdateTaskProgress), th.LogHours)
	tg.Delete("/:taskId", perm(constants.ManageTasks), th.Delete)

	// Volunteers
	vh := &volhandler.Handlers{Service: volsvc.NewService(store)}
	vg := app.Group("/api/v1/volunteers/me", auth, perm(constants.ManageProfile))
	vg.Get("/", vh.Profile)
	vg.Put("/", vh.UpdateProfile)
	vg.Get("/applications", vh.Applications)
	vg.Get("/tasks", th.Mine)

	return app, nil
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
