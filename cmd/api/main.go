package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/jhoicas/nfe-api/internal/application/billing"
	"github.com/jhoicas/nfe-api/internal/domain/repository"
	"github.com/jhoicas/nfe-api/internal/infrastructure/boltstore"
	infrapdf "github.com/jhoicas/nfe-api/internal/infrastructure/pdf"
	"github.com/jhoicas/nfe-api/internal/infrastructure/postgres"
	"github.com/jhoicas/nfe-api/internal/infrastructure/sefaz"
	httpRouter "github.com/jhoicas/nfe-api/internal/interfaces/http"
	"github.com/jhoicas/nfe-api/internal/observability/metrics"
	"github.com/jhoicas/nfe-api/pkg/config"
	"github.com/jhoicas/nfe-api/pkg/logger"
)

// repositories puertos de persistencia del driver elegido.
type repositories struct {
	emissions repository.EmissionRepository
	orders    repository.OrderRepository
	customers repository.CustomerRepository
	products  repository.ProductRepository
	companies repository.CompanyRepository
	close     func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("nfe_env", cfg.NFe.AppEnv).
		Str("authority", cfg.NFe.Authority).
		Str("storage", cfg.Storage.Driver).
		Msg("iniciando aplicación")

	metrics.Init()

	ctx := context.Background()
	repos, err := openStorage(ctx, cfg, log.Component("storage"))
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar persistencia")
	}
	defer repos.close()

	// ═══════════════════════════════════════════════════════════════════════════
	// Certificado A1 y cliente SOAP de la SEFAZ
	// ═══════════════════════════════════════════════════════════════════════════
	environment := cfg.NFe.Environment()
	supplied, err := certificateSource(cfg.NFe.CertPath, cfg.NFe.CertPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("leer certificado A1")
	}
	testCert, err := certificateSource(cfg.NFe.TestCertPath, cfg.NFe.TestCertPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("leer certificado de homologación")
	}
	certs := sefaz.StrategyFor(environment, supplied, testCert, log.Component("cert"))

	// Cliente SOAP: solo en "test" o "prod". En "dev" el orquestador no transmite.
	var authorizer billing.Authorizer
	if cfg.NFe.AppEnv != billing.AppEnvDev {
		client, err := newSOAPClient(cfg.NFe, environment, certs, log.Component("sefaz"))
		if err != nil {
			log.Fatal().Err(err).Msg("configurar cliente SEFAZ")
		}
		authorizer = client
	}

	builder := billing.NewDocumentBuilder(environment, log.Component("builder"))
	orchestrator := billing.NewNFeOrchestrator(
		repos.emissions, repos.orders, repos.customers, repos.products, repos.companies,
		builder, sefaz.NewXMLBuilderService(), sefaz.CanonicalSigner{}, certs, authorizer,
		billing.NFeConfig{
			AppEnv:       cfg.NFe.AppEnv,
			Environment:  environment,
			PollAttempts: cfg.NFe.PollAttempts,
			AsyncTimeout: time.Duration(cfg.NFe.AsyncTimeout) * time.Second,
		},
		log.Component("billing"),
	)

	// PDF: DANFE de la NF-e
	danfeUC := billing.NewPDFUseCase(repos.emissions, infrapdf.NewMarotoPDFGenerator())

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: cfg.NFe.Timeout()*time.Duration(cfg.NFe.SubmitRetries+cfg.NFe.PollAttempts) + 30*time.Second,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "NF-e API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		Emissions: orchestrator,
		DANFE:     danfeUC,
		JWTSecret: cfg.JWT.Secret,
		AppName:   cfg.App.Name,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

// openStorage abre PostgreSQL o el archivo BoltDB según STORAGE_DRIVER.
func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*repositories, error) {
	if cfg.Storage.Driver == "bolt" {
		store, err := boltstore.Open(cfg.Storage.BoltPath)
		if err != nil {
			return nil, err
		}
		if cfg.Storage.FixturesFile != "" {
			if err := store.LoadFixturesFile(cfg.Storage.FixturesFile); err != nil {
				store.Close()
				return nil, err
			}
			log.Info().Str("file", cfg.Storage.FixturesFile).Msg("fixtures cargados")
		}
		log.Info().Str("path", cfg.Storage.BoltPath).Msg("persistencia BoltDB")
		return &repositories{
			emissions: store.Emissions(),
			orders:    store.Orders(),
			customers: store.Customers(),
			products:  store.Products(),
			companies: store.Companies(),
			close:     func() { _ = store.Close() },
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB, log)
	if err != nil {
		return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	return &repositories{
		emissions: postgres.NewEmissionRepository(pool),
		orders:    postgres.NewOrderRepository(pool),
		customers: postgres.NewCustomerRepository(pool),
		products:  postgres.NewProductRepository(pool),
		companies: postgres.NewCompanyRepository(pool),
		close:     pool.Close,
	}, nil
}

// certificateSource lee el archivo del certificado; ruta vacía = sin certificado.
func certificateSource(path, password string) (sefaz.CertificateSource, error) {
	if path == "" {
		return sefaz.CertificateSource{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return sefaz.CertificateSource{}, err
	}
	return sefaz.CertificateSource{Filename: filepath.Base(path), Data: data, Password: password}, nil
}

// newSOAPClient carga la identidad TLS y arma el cliente del autorizador configurado.
func newSOAPClient(cfg config.NFeConfig, environment string, certs sefaz.CertificateStrategy, log zerolog.Logger) (*sefaz.SOAPClient, error) {
	endpoints, err := sefaz.EndpointsFor(cfg.Authority, environment)
	if err != nil {
		return nil, err
	}
	cert, err := certs.Load()
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("subject", cert.Subject).
		Time("not_after", cert.NotAfter).
		Bool("placeholder", cert.Placeholder).
		Str("status_url", endpoints.Status).
		Msg("cliente SEFAZ configurado")
	return sefaz.NewSOAPClient(sefaz.Config{
		Environment:   environment,
		StateCode:     cfg.StateCode,
		Endpoints:     endpoints,
		Timeout:       cfg.Timeout(),
		SubmitRetries: cfg.SubmitRetries,
	}, cert.TLS, log), nil
}
