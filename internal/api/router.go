package api

import (
	"library-system/internal/api/handler"
	mw "library-system/internal/api/middleware"
	"library-system/internal/config"
	"library-system/internal/domain/catalog"
	"library-system/internal/domain/loan"
	"library-system/internal/domain/member"
	"library-system/internal/domain/report"
	"log/slog"
	"net/http"
	"time"

	_ "library-system/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/traceid"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

const apiPrefix = "/api"

// Services bundles what the HTTP layer serves. DB is optional and only feeds
// the health check.
type Services struct {
	Catalog catalog.CatalogService
	Members member.MemberService
	Loans   loan.LoanService
	Reports report.ReportService
	DB      handler.Pinger
}

// SetupRouter builds the HTTP router. The returned stop function releases the
// rate limiter's background sweeper.
func SetupRouter(svc Services, cfg *config.Config, logger *slog.Logger) (*chi.Mux, func()) {
	router := chi.NewRouter()

	stop := setupMiddleware(router, cfg, logger)
	setupMetricsEndpoint(router, cfg, logger)
	router.Get("/health", handler.NewHealthHandler(svc.DB, logger).Health)
	setupAuthRoutes(router, svc, cfg, logger)
	router.Route(apiPrefix, func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		setupCatalogRoutes(r, svc, cfg, logger)
		setupMemberRoutes(r, svc, cfg, logger)
		setupLoanRoutes(r, svc, cfg, logger)
		r.Get("/top-active-members", handler.NewReportHandler(svc.Reports, logger).TopActiveMembers)
	})
	setupSwaggerEndpoint(router, logger)

	return router, stop
}

func setupMiddleware(router *chi.Mux, cfg *config.Config, logger *slog.Logger) func() {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(traceid.Middleware)
	router.Use(mw.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.StripSlashes)
	router.Use(middleware.Compress(5))
	router.Use(middleware.Timeout(60 * time.Second))

	stop := func() {}
	if cfg.Server.RateLimit.Enabled {
		limiter := mw.NewRateLimiterMiddleware(cfg.Server.RateLimit, logger)
		router.Use(limiter.Middleware)
		stop = limiter.Stop
	}
	router.Use(mw.MetricsMiddleware())
	return stop
}

func setupMetricsEndpoint(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	logger.Info("Setting up Prometheus metrics endpoint", "path", metricsPath)
	router.Handle(metricsPath, promhttp.Handler())
}

func setupSwaggerEndpoint(router *chi.Mux, logger *slog.Logger) {
	logger.Info("Setting up Swagger UI endpoint", "path", "/swagger/")
	router.Get("/swagger/*", httpSwagger.WrapHandler)
	router.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
}

func setupAuthRoutes(router *chi.Mux, svc Services, cfg *config.Config, logger *slog.Logger) {
	authHandler := handler.NewAuthHandler(svc.Members, cfg.Server.Auth, logger)
	router.Route("/auth", func(r chi.Router) {
		r.Post("/token", authHandler.GenerateBearerToken)
	})
}

func setupCatalogRoutes(r chi.Router, svc Services, cfg *config.Config, logger *slog.Logger) {
	authors := handler.NewAuthorHandler(svc.Catalog, cfg.Pagination, logger)
	books := handler.NewBookHandler(svc.Catalog, svc.Loans, cfg.Pagination, logger)

	r.Route("/authors", func(r chi.Router) {
		r.Post("/", authors.CreateAuthor)
		r.Get("/", authors.ListAuthors)
		r.Route("/{authorID}", func(r chi.Router) {
			r.Get("/", authors.GetAuthor)
			r.Put("/", authors.UpdateAuthor)
			r.Delete("/", authors.DeleteAuthor)
		})
	})

	r.Route("/books", func(r chi.Router) {
		r.Post("/", books.CreateBook)
		r.Get("/", books.ListBooks)
		r.Route("/{bookID}", func(r chi.Router) {
			r.Get("/", books.GetBook)
			r.Put("/", books.UpdateBook)
			r.Delete("/", books.DeleteBook)
			r.Post("/loan", books.LoanBook)
			r.Post("/return", books.ReturnBook)
			r.Post("/return_book", books.ReturnBook)
		})
	})
}

func setupMemberRoutes(r chi.Router, svc Services, cfg *config.Config, logger *slog.Logger) {
	members := handler.NewMemberHandler(svc.Members, cfg.Pagination, logger)

	r.Route("/users", func(r chi.Router) {
		r.Post("/", members.CreateUser)
		r.Get("/{userID}", members.GetUser)
	})

	r.Route("/members", func(r chi.Router) {
		r.Post("/", members.CreateMember)
		r.Get("/", members.ListMembers)
		r.Route("/{memberID}", func(r chi.Router) {
			r.Get("/", members.GetMember)
			r.Delete("/", members.DeleteMember)
		})
	})
}

func setupLoanRoutes(r chi.Router, svc Services, cfg *config.Config, logger *slog.Logger) {
	loans := handler.NewLoanHandler(svc.Loans, cfg.Pagination, logger)

	r.Route("/loans", func(r chi.Router) {
		r.Post("/", loans.CreateLoan)
		r.Get("/", loans.ListLoans)
		r.Route("/{loanID}", func(r chi.Router) {
			r.Get("/", loans.GetLoan)
			r.Delete("/", loans.DeleteLoan)
			r.Post("/extend_due_date", loans.ExtendDueDate)
		})
	})
}
