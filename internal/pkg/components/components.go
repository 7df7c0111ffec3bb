// Package components assembles and owns the lifecycle of every subsystem,
// the way the teacher's internal/pkg/components.Container does: config,
// logger, store, bus, idempotency layer, processor, relay, consumer, and the
// HTTP server, wired once and torn down gracefully.
package components

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"transferengine/internal/bus"
	buskafka "transferengine/internal/bus/kafka"
	busconsumer "transferengine/internal/bus/consumer"
	"transferengine/internal/config"
	"transferengine/internal/httpapi/handlers"
	"transferengine/internal/httpapi/routes"
	"transferengine/internal/idempotency"
	"transferengine/internal/outbox"
	"transferengine/internal/pkg/logging"
	"transferengine/internal/processor"
	"transferengine/internal/store"
	"transferengine/internal/store/postgres"
)

// Container holds every wired component. It implements
// httpapi/handlers.HandlerDependencies directly.
type Container struct {
	Config      *config.Config
	Store       *postgres.Store
	Idempotency *idempotency.Layer
	Processor   *processor.Processor
	Relay       *outbox.Relay
	Consumer    *busconsumer.Consumer
	Publisher   bus.Publisher
	DLQRouter   bus.Publisher
	Router      *gin.Engine
	Server      *http.Server
}

var (
	instance     *Container
	instanceOnce sync.Once
	instanceErr  error
)

// GetInstance returns the singleton container, building it on first call.
func GetInstance() (*Container, error) {
	instanceOnce.Do(func() {
		instance, instanceErr = newContainer()
	})
	return instance, instanceErr
}

func newContainer() (*Container, error) {
	c := &Container{}
	c.Config = config.Load()
	logging.Init(c.Config)
	logging.Info("logger initialized", map[string]interface{}{"level": c.Config.Logging.Level})

	if err := c.initStore(); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	c.Idempotency = idempotency.New(c.Store, c.Config.Idempotency.Window())
	c.Processor = processor.New(c.Store, c.Idempotency, c.Config.Processor, c.Config.Idempotency.Window())

	if err := c.initBus(); err != nil {
		return nil, fmt.Errorf("failed to initialize bus: %w", err)
	}
	c.Relay = outbox.New(c.Store, c.Publisher, c.Config.Bus.LedgerTopic, c.Config.Outbox)

	if err := c.initConsumer(); err != nil {
		logging.Warn("bus consumer unavailable, running HTTP-only", map[string]interface{}{"error": err.Error()})
	}

	c.initServer()

	logging.Info("all components initialized", nil)
	return c, nil
}

func (c *Container) initStore() error {
	db := c.Config.Database
	dbCfg := &postgres.Config{
		Host:              db.Host,
		Port:              db.Port,
		Database:          db.Database,
		User:              db.User,
		Password:          db.Password,
		SSLMode:           db.SSLMode,
		MaxOpenConns:      db.MaxOpenConns,
		MaxIdleConns:      db.MaxIdleConns,
		ConnMaxLifetime:   db.ConnMaxLifetime,
		ConnMaxIdleTime:   db.ConnMaxIdleTime,
		HealthCheckPeriod: db.HealthCheckPeriod,
	}
	s, err := postgres.NewStore(context.Background(), dbCfg)
	if err != nil {
		return err
	}
	c.Store = s
	logging.Info("store initialized", map[string]interface{}{
		"host":     dbCfg.Host,
		"database": dbCfg.Database,
	})
	return nil
}

func (c *Container) initBus() error {
	if os.Getenv("KAFKA_ENABLED") == "false" {
		logging.Info("kafka disabled, using no-op publisher", nil)
		c.Publisher = bus.NoOp{}
		c.DLQRouter = bus.NoOp{}
		return nil
	}

	kafkaCfg := buskafka.NewConfig(c.Config.Bus)

	syncProducer, err := buskafka.NewProducer(kafkaCfg)
	if err != nil {
		logging.Warn("failed to initialize kafka sync producer, falling back to no-op", map[string]interface{}{"error": err.Error()})
		c.Publisher = bus.NoOp{}
	} else {
		c.Publisher = syncProducer
	}

	asyncProducer, err := buskafka.NewAsyncProducer(kafkaCfg)
	if err != nil {
		logging.Warn("failed to initialize kafka async producer, DLQ routing disabled", map[string]interface{}{"error": err.Error()})
		c.DLQRouter = bus.NoOp{}
	} else {
		c.DLQRouter = asyncProducer
	}
	return nil
}

func (c *Container) initConsumer() error {
	if os.Getenv("KAFKA_ENABLED") == "false" {
		return fmt.Errorf("kafka disabled")
	}

	kafkaCfg := buskafka.NewConfig(c.Config.Bus)
	saramaCfg, err := kafkaCfg.ToSaramaConfig()
	if err != nil {
		return err
	}

	cons, err := busconsumer.New(
		c.Config.Bus.Brokers,
		saramaCfg,
		c.Config.Bus.ConsumerGroup,
		c.Config.Bus.IngressTopic,
		c.Config.Bus.DLQTopic,
		c.Processor,
		c.DLQRouter,
	)
	if err != nil {
		return err
	}
	c.Consumer = cons
	return nil
}

func (c *Container) initServer() {
	if c.Config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	c.Router = gin.New()
	c.Router.Use(gin.Recovery())
	routes.RegisterRoutes(c.Router, c)

	c.Server = &http.Server{
		Addr:           c.Config.Server.Host + ":" + c.Config.Server.Port,
		Handler:        c.Router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
}

// GetProcessor implements httpapi/handlers.HandlerDependencies.
func (c *Container) GetProcessor() handlers.Processor { return c.Processor }

// GetStore implements httpapi/handlers.HandlerDependencies.
func (c *Container) GetStore() handlers.Pinger { return c.Store }

// Start runs the Relay and the bus consumer as background goroutines, serves
// HTTP, and blocks until SIGINT/SIGTERM.
func (c *Container) Start() error {
	c.Relay.Start()
	if c.Consumer != nil {
		c.Consumer.Start()
	}

	go func() {
		logging.Info("starting http server", map[string]interface{}{"address": c.Server.Addr})
		if err := c.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("http server failed", err, nil)
			os.Exit(1)
		}
	}()

	c.waitForShutdown()
	return nil
}

func (c *Container) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info("shutting down", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.Shutdown(ctx); err != nil {
		logging.Error("shutdown did not complete cleanly", err, nil)
	}
	logging.Info("shutdown complete", nil)
}

// Shutdown stops every component in dependency order: ingress first, then
// background workers, then the store.
func (c *Container) Shutdown(ctx context.Context) error {
	if err := c.Server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	if c.Consumer != nil {
		if err := c.Consumer.Stop(); err != nil {
			logging.Error("bus consumer shutdown error", err, nil)
		}
	}
	c.Relay.Stop()
	if err := c.Publisher.Close(); err != nil {
		logging.Error("publisher close error", err, nil)
	}
	if c.DLQRouter != nil {
		if err := c.DLQRouter.Close(); err != nil {
			logging.Error("dlq router close error", err, nil)
		}
	}
	c.Store.Close()
	return nil
}
