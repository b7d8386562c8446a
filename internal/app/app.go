package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	_ "salespipeline/docs"
	"salespipeline/internal/config"
	"salespipeline/internal/events"
	"salespipeline/internal/handlers"
	"salespipeline/internal/idgen"
	"salespipeline/internal/metrics"
	"salespipeline/internal/middleware"
	"salespipeline/internal/pdf"
	"salespipeline/internal/repositories"
	"salespipeline/internal/routes"
	"salespipeline/internal/services"
)

// stores groups one implementation of every repository.
type stores struct {
	opportunities repositories.OpportunityRepository
	leads         repositories.LeadRepository
	companies     repositories.CompanyRepository
	quotations    repositories.QuotationRepository
	orderAcks     repositories.OrderAckRepository
	sequencer     idgen.Sequencer
}

type App struct {
	cfg     *config.Config
	log     *logrus.Logger
	router  *gin.Engine
	closers []func()
}

func NewLogger(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// New opens every backend named in cfg and builds the HTTP engine.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*App, error) {
	a := &App{cfg: cfg, log: logger}

	st, err := a.openStores(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	pub, err := a.openPublisher()
	if err != nil {
		a.Close()
		return nil, err
	}

	ids := idgen.NewAllocator(st.sequencer)
	renderer := pdf.NewDocumentGenerator(cfg.PDF.FontPath, cfg.PDF.CompanyName)

	validator := services.NewStageValidator(st.quotations)
	oppService := services.NewOpportunityService(st.opportunities, ids, validator, pub, logger)
	leadService := services.NewLeadService(st.leads, ids, pub, logger)
	companyService := services.NewCompanyService(st.companies, logger)
	quotationService := services.NewQuotationService(st.quotations, ids, logger)
	orderAckService := services.NewOrderAckService(st.orderAcks, st.opportunities, ids, renderer, logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(metrics.Middleware())
	r.Use(cors.New(corsConfig(cfg.Server.AllowedOrigins)))

	a.router = routes.SetupRoutes(
		r,
		[]byte(cfg.Auth.JWTSecret),
		handlers.NewOpportunityHandler(oppService, quotationService, orderAckService),
		handlers.NewLeadHandler(leadService),
		handlers.NewCompanyHandler(companyService),
		handlers.NewOrderAckHandler(orderAckService),
	)
	return a, nil
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		c.AllowAllOrigins = true
		c.AllowCredentials = false
	} else {
		c.AllowOrigins = origins
	}
	return c
}

func (a *App) openStores(ctx context.Context) (*stores, error) {
	var (
		st stores
		db *sql.DB
	)
	switch a.cfg.Database.Driver {
	case config.StoragePostgres:
		var err error
		db, err = repositories.OpenPostgres(a.cfg.Database.DSN, 20)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() {
			if err := db.Close(); err != nil {
				a.log.WithError(err).Warn("close database")
			}
		})
		if a.cfg.Database.Migrate {
			if err := repositories.Migrate(ctx, db); err != nil {
				return nil, err
			}
			a.log.Info("database schema applied")
		}
		st = stores{
			opportunities: repositories.NewOpportunityRepository(db),
			leads:         repositories.NewLeadRepository(db),
			companies:     repositories.NewCompanyRepository(db),
			quotations:    repositories.NewQuotationRepository(db),
			orderAcks:     repositories.NewOrderAckRepository(db),
		}
	default:
		mem := repositories.NewMemoryStore()
		st = stores{
			opportunities: mem.Opportunities(),
			leads:         mem.Leads(),
			companies:     mem.Companies(),
			quotations:    mem.Quotations(),
			orderAcks:     mem.OrderAcks(),
			sequencer:     mem,
		}
	}

	switch a.cfg.Sequence.Backend {
	case config.SequencePostgres:
		st.sequencer = repositories.NewSequenceRepository(db)
	case config.SequenceRedis:
		client, err := idgen.NewRedisClient(a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		st.sequencer = idgen.NewRedisSequencer(client, "salespipeline:seq:")
	default:
		if st.sequencer == nil {
			st.sequencer = idgen.NewMemorySequencer()
		}
	}

	a.log.WithFields(logrus.Fields{
		"storage":  a.cfg.Database.Driver,
		"sequence": a.cfg.Sequence.Backend,
	}).Info("storage ready")
	return &st, nil
}

func (a *App) openPublisher() (events.Publisher, error) {
	if a.cfg.NATS.URL == "" {
		a.log.Info("NATS disabled, domain events are dropped")
		return events.NoopPublisher{}, nil
	}
	pub, err := events.NewNATSPublisher(a.cfg.NATS.URL, a.cfg.NATS.Name, a.log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, pub.Close)
	return pub, nil
}

func (a *App) Router() *gin.Engine { return a.router }

// Close releases backends in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Run serves until SIGINT/SIGTERM and then shuts down gracefully.
func (a *App) Run() error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.WithField("addr", srv.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		a.log.WithField("signal", sig.String()).Info("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
