package factory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"travinhgo-backend/internal/audit"
	"travinhgo-backend/internal/bucketing"
	"travinhgo-backend/internal/client"
	"travinhgo-backend/internal/config"
	"travinhgo-backend/internal/hashing"
	"travinhgo-backend/internal/notify"
	redisrepo "travinhgo-backend/internal/repository/redis"
	"travinhgo-backend/internal/repository/scylla"
	"travinhgo-backend/internal/service"
	"travinhgo-backend/internal/util"
)

// Factory manages the lifecycle of all application dependencies
type Factory struct {
	config *config.Config

	// Clients
	redisClient      *client.RedisClient
	scyllaClient     *scylla.ScyllaClient
	kafkaProducer    *client.KafkaProducer
	clickhouseClient *client.ClickHouseClient

	// Managers
	hasher           *hashing.Hasher
	bucketingManager *bucketing.Manager

	// Repositories
	identityRepository *scylla.IdentityRepository
	sessionRepository  *scylla.SessionRepository
	otpStore           *redisrepo.OTPStore

	// Services
	dispatcher    notify.Dispatcher
	recorder      audit.Recorder
	authService   *service.AuthService
	authenticator *service.SessionAuthenticator

	closeOnce sync.Once
	closed    chan struct{}
}

// NewFactory creates and initializes all application dependencies
func NewFactory() (*Factory, error) {
	cfg := config.LoadConfig()

	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)

	factory := &Factory{
		config: cfg,
		closed: make(chan struct{}),
	}

	if err := factory.initializeClients(); err != nil {
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}

	factory.initializeManagers()

	util.Info("Factory initialized successfully",
		util.String("environment", cfg.Environment),
	)

	return factory, nil
}

// initializeClients initializes all external service clients with health checks
func (f *Factory) initializeClients() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var initErrors []error

	// Redis
	if rc, err := client.NewRedisClient(f.config); err != nil {
		initErrors = append(initErrors, fmt.Errorf("redis: %w", err))
	} else {
		f.redisClient = rc
		if err := f.redisClient.HealthCheck(ctx); err != nil {
			initErrors = append(initErrors, fmt.Errorf("redis health check: %w", err))
		} else {
			util.Info("Redis client initialized and healthy")
		}
	}

	// ScyllaDB
	if sc, err := scylla.NewScyllaClient(f.config); err != nil {
		initErrors = append(initErrors, fmt.Errorf("scylla: %w", err))
	} else {
		f.scyllaClient = sc
		if err := f.scyllaClient.HealthCheck(ctx); err != nil {
			initErrors = append(initErrors, fmt.Errorf("scylla health check: %w", err))
		} else {
			util.Info("ScyllaDB client initialized and healthy")
		}
	}

	// Kafka carries OTP delivery; without it codes cannot go out in
	// production.
	if producer, err := client.NewKafkaProducer(f.config, util.Get()); err != nil {
		if f.config.IsProduction() {
			initErrors = append(initErrors, fmt.Errorf("kafka: %w", err))
		} else {
			util.Warn("Kafka producer initialization failed - OTP delivery is logged only", util.ErrorField(err))
		}
	} else {
		f.kafkaProducer = producer
		util.Info("Kafka producer initialized")
	}

	// ClickHouse audit trail is best-effort outside production.
	if ch, err := client.NewClickHouseClient(f.config); err != nil {
		if f.config.IsProduction() {
			initErrors = append(initErrors, fmt.Errorf("clickhouse: %w", err))
		} else {
			util.Warn("ClickHouse client initialization failed - audit events are dropped", util.ErrorField(err))
		}
	} else {
		f.clickhouseClient = ch
		if err := f.clickhouseClient.HealthCheck(ctx); err != nil {
			initErrors = append(initErrors, fmt.Errorf("clickhouse health check: %w", err))
		} else {
			util.Info("ClickHouse client initialized and healthy")
		}
	}

	if len(initErrors) > 0 {
		if f.config.IsProduction() {
			return fmt.Errorf("critical service initialization failed: %v", initErrors)
		}
		for _, err := range initErrors {
			util.Warn("Service initialization warning", util.ErrorField(err))
		}
	}

	return nil
}

// initializeManagers initializes hashing and bucketing managers
func (f *Factory) initializeManagers() {
	f.hasher = hashing.NewHasher(f.config)
	f.bucketingManager = bucketing.NewManager(f.config)

	util.Info("Managers initialized successfully",
		util.Bool("hashing_initialized", f.hasher != nil),
		util.Bool("bucketing_initialized", f.bucketingManager != nil),
	)
}

// ==============================
// Repositories
// ==============================

func (f *Factory) IdentityRepository() *scylla.IdentityRepository {
	if f.identityRepository == nil {
		f.identityRepository = scylla.NewIdentityRepository(f.scyllaClient, f.bucketingManager)
	}
	return f.identityRepository
}

func (f *Factory) SessionRepository() *scylla.SessionRepository {
	if f.sessionRepository == nil {
		f.sessionRepository = scylla.NewSessionRepository(f.scyllaClient)
	}
	return f.sessionRepository
}

func (f *Factory) OTPStore() *redisrepo.OTPStore {
	if f.otpStore == nil {
		f.otpStore = redisrepo.NewOTPStore(f.redisClient)
	}
	return f.otpStore
}

// ==============================
// Services
// ==============================

func (f *Factory) Dispatcher() notify.Dispatcher {
	if f.dispatcher == nil {
		if f.kafkaProducer != nil {
			f.dispatcher = notify.NewKafkaDispatcher(f.kafkaProducer, f.config)
		} else {
			f.dispatcher = notify.NewLogDispatcher()
		}
	}
	return f.dispatcher
}

func (f *Factory) Recorder() audit.Recorder {
	if f.recorder == nil {
		if f.clickhouseClient != nil {
			f.recorder = audit.NewClickHouseRecorder(f.clickhouseClient)
		} else {
			f.recorder = audit.NopRecorder{}
		}
	}
	return f.recorder
}

func (f *Factory) AuthService() *service.AuthService {
	if f.authService == nil {
		issuer := service.NewOTPIssuer(f.OTPStore(), f.hasher, f.Dispatcher(), f.config)
		limiter := service.NewSessionLimiter(f.SessionRepository(), f.config)
		f.authService = service.NewAuthService(
			f.IdentityRepository(),
			f.SessionRepository(),
			issuer,
			limiter,
			f.hasher,
			f.Recorder(),
			f.config,
		)
	}
	return f.authService
}

func (f *Factory) SessionAuthenticator() *service.SessionAuthenticator {
	if f.authenticator == nil {
		f.authenticator = service.NewSessionAuthenticator(
			f.SessionRepository(),
			f.IdentityRepository(),
			f.hasher,
			f.Recorder(),
		)
	}
	return f.authenticator
}

// ==============================
// Health Checks
// ==============================

func (f *Factory) HealthCheck(ctx context.Context) map[string]error {
	healthErrors := make(map[string]error)

	if f.redisClient != nil {
		if err := f.redisClient.HealthCheck(ctx); err != nil {
			healthErrors["redis"] = err
		}
	} else {
		healthErrors["redis"] = fmt.Errorf("redis client not initialized")
	}

	if f.scyllaClient != nil {
		if err := f.scyllaClient.HealthCheck(ctx); err != nil {
			healthErrors["scylla"] = err
		}
	} else {
		healthErrors["scylla"] = fmt.Errorf("scylla client not initialized")
	}

	if f.clickhouseClient != nil {
		if err := f.clickhouseClient.HealthCheck(ctx); err != nil {
			healthErrors["clickhouse"] = err
		}
	}

	if f.kafkaProducer != nil {
		if err := f.kafkaProducer.HealthCheck(ctx); err != nil {
			healthErrors["kafka"] = err
		}
	}

	if f.hasher == nil {
		healthErrors["hasher"] = fmt.Errorf("hasher not initialized")
	}
	if f.bucketingManager == nil {
		healthErrors["bucketing"] = fmt.Errorf("bucketing manager not initialized")
	}

	return healthErrors
}

func (f *Factory) IsHealthy(ctx context.Context) bool {
	healthErrors := f.HealthCheck(ctx)
	delete(healthErrors, "kafka")
	delete(healthErrors, "clickhouse")
	return len(healthErrors) == 0
}

func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		close(f.closed)
		util.Info("Shutting down factory...")

		if f.clickhouseClient != nil {
			if err := f.clickhouseClient.Close(); err != nil {
				util.Error("Failed to close ClickHouse client", util.ErrorField(err))
			} else {
				util.Info("ClickHouse client closed")
			}
		}

		if f.kafkaProducer != nil {
			if err := f.kafkaProducer.Close(); err != nil {
				util.Error("Failed to close Kafka producer", util.ErrorField(err))
			} else {
				util.Info("Kafka producer closed")
			}
		}

		if f.scyllaClient != nil {
			f.scyllaClient.Close()
			util.Info("ScyllaDB client closed")
		}

		if f.redisClient != nil {
			if err := f.redisClient.Close(); err != nil {
				util.Error("Failed to close Redis client", util.ErrorField(err))
			} else {
				util.Info("Redis client closed")
			}
		}

		util.Sync()
		util.Info("Factory shutdown completed")
	})

	return nil
}

func (f *Factory) WaitForClose() {
	<-f.closed
}

func (f *Factory) Config() *config.Config {
	return f.config
}
