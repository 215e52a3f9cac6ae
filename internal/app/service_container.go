package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"gorm.io/gorm"

	"sponsor-backend/internal/clients"
	"sponsor-backend/internal/config"
	"sponsor-backend/internal/db"
	"sponsor-backend/internal/events"
	"sponsor-backend/internal/handlers"
	"sponsor-backend/internal/pool"
	"sponsor-backend/internal/repository"
	"sponsor-backend/internal/router"
	"sponsor-backend/internal/scratch"
	"sponsor-backend/internal/services"
	"sponsor-backend/internal/validation"
	"sponsor-backend/internal/verifier"
)

// ServiceContainer wires every layer of the sponsor once at boot.
type ServiceContainer struct {
	// Database
	DB *gorm.DB

	// Repositories
	SponsorshipRepo repository.SponsorshipRepository
	FactoryRepo     repository.FactoryRepository
	BalanceRepo     repository.BalanceRepository

	// Chain access
	EthClient     *ethclient.Client
	ChainProvider *pool.ChainProvider
	RootHistory   *pool.RootHistory
	PoolView      *pool.LiveView

	// Validation pipeline
	Verifier     *verifier.Groth16Verifier
	PreValidator *validation.PreValidator
	Scratch      *scratch.Store

	// Services
	RegistryService      *services.RegistryService
	BalanceService       *services.BalanceService
	ValidationService    *services.ValidationService
	SettlementService    *services.SettlementService
	WebSocketPushService *services.WebSocketPushService

	// Refund delivery, nil when no key is configured
	RefundSender clients.RefundSender

	// Handlers
	Handlers *router.Handlers
}

var Container *ServiceContainer
var containerOnce sync.Once

// InitializeContainer builds the container exactly once.
func InitializeContainer() (*ServiceContainer, error) {
	var initErr error

	containerOnce.Do(func() {
		log.Println("🚀 Initializing Service Container...")

		container := &ServiceContainer{
			DB: db.DB,
		}

		container.initRepositories()

		if err := container.initChainAccess(); err != nil {
			initErr = fmt.Errorf("failed to initialize chain access: %w", err)
			return
		}
		if err := container.initValidationPipeline(); err != nil {
			initErr = fmt.Errorf("failed to initialize validation pipeline: %w", err)
			return
		}
		if err := container.initServices(); err != nil {
			initErr = fmt.Errorf("failed to initialize services: %w", err)
			return
		}

		// Event services are optional, the sponsor runs on chain reads alone
		// when NATS is absent.
		if err := container.initEventServices(); err != nil {
			log.Printf("⚠️ Event services initialization skipped or failed: %v", err)
		}

		container.initHandlers()

		Container = container
		log.Println("✅ Service Container initialized successfully")
	})

	return Container, initErr
}

func (c *ServiceContainer) initRepositories() {
	log.Println("📦 Initializing Repositories...")

	c.SponsorshipRepo = repository.NewSponsorshipRepository(c.DB)
	c.FactoryRepo = repository.NewFactoryRepository(c.DB)
	c.BalanceRepo = repository.NewBalanceRepository(c.DB)

	log.Println("✅ Repositories initialized")
}

func (c *ServiceContainer) initChainAccess() error {
	cfg := config.AppConfig
	log.Printf("🔗 Connecting to chain RPC: %s", cfg.Blockchain.RPCEndpoint)

	client, err := ethclient.Dial(cfg.Blockchain.RPCEndpoint)
	if err != nil {
		return fmt.Errorf("dial rpc: %w", err)
	}
	c.EthClient = client

	provider, err := pool.NewChainProvider(
		client,
		common.HexToAddress(cfg.Blockchain.PoolContract),
		common.HexToAddress(cfg.Blockchain.ASPRegistryAddress),
	)
	if err != nil {
		return err
	}
	c.ChainProvider = provider

	c.RootHistory = pool.NewRootHistory(cfg.Blockchain.RootHistorySize)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := provider.Hydrate(ctx, c.RootHistory); err != nil {
		return fmt.Errorf("hydrate root history: %w", err)
	}
	log.Printf("🌲 Root ring hydrated: %d roots", c.RootHistory.Len())

	c.PoolView = pool.NewLiveView(provider, c.RootHistory)
	return nil
}

func (c *ServiceContainer) initValidationPipeline() error {
	cfg := config.AppConfig

	v, err := verifier.LoadVerifyingKey(cfg.Paymaster.VerifyingKeyPath)
	if err != nil {
		return fmt.Errorf("load verifying key: %w", err)
	}
	c.Verifier = v

	c.PreValidator = validation.NewPreValidator(
		c.PoolView,
		v,
		common.HexToAddress(cfg.Paymaster.SponsorAddress),
	)
	c.Scratch = scratch.NewStore()

	log.Println("✅ Validation pipeline initialized")
	return nil
}

func (c *ServiceContainer) initServices() error {
	cfg := config.AppConfig
	log.Println("🔧 Initializing Core Services...")

	c.WebSocketPushService = services.NewWebSocketPushService()

	c.RegistryService = services.NewRegistryService(
		c.FactoryRepo,
		common.HexToAddress(cfg.Blockchain.PoolContract),
	)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.RegistryService.Load(ctx); err != nil {
		return err
	}

	c.BalanceService = services.NewBalanceService(
		c.BalanceRepo,
		c.EthClient,
		common.HexToAddress(cfg.Paymaster.SponsorAddress),
	)

	c.ValidationService = services.NewValidationService(
		c.RegistryService,
		c.PreValidator,
		c.Scratch,
		c.BalanceService,
	)

	if cfg.Paymaster.RefundPrivateKey != "" {
		sender, err := clients.NewChainRefundSender(
			c.EthClient,
			cfg.Paymaster.RefundPrivateKey,
			cfg.Blockchain.ChainID,
		)
		if err != nil {
			return fmt.Errorf("refund sender: %w", err)
		}
		c.RefundSender = sender
		log.Printf("💸 Refund sender configured: %s", sender.From().Hex())
	} else {
		log.Println("⚠️ No refund private key configured, refunds will be recorded but not delivered")
	}

	log.Println("✅ Core Services initialized")
	return nil
}

func (c *ServiceContainer) initEventServices() error {
	if config.AppConfig == nil || config.AppConfig.NATS.URL == "" {
		return fmt.Errorf("NATS not configured")
	}

	log.Println("📡 Initializing Event Services...")
	if err := events.InitNATSServices(); err != nil {
		return err
	}
	if err := events.SubscribeRootUpdates(c.PoolView); err != nil {
		return err
	}

	log.Println("✅ Event Services initialized")
	return nil
}

func (c *ServiceContainer) initHandlers() {
	// Publisher stays a nil interface when NATS is absent.
	var publisher services.Publisher
	if nc := events.Client(); nc != nil {
		publisher = nc
	}

	c.SettlementService = services.NewSettlementService(
		c.Scratch,
		c.SponsorshipRepo,
		c.RefundSender,
		publisher,
		c.WebSocketPushService,
		config.AppConfig.Paymaster.PostSettlementAllowance,
	)

	c.Handlers = &router.Handlers{
		Paymaster:     handlers.NewPaymasterHandler(c.ValidationService, c.SettlementService),
		Records:       handlers.NewRecordsHandler(c.SponsorshipRepo),
		AdminAuth:     handlers.NewAdminAuthHandler(),
		AdminRegistry: handlers.NewAdminRegistryHandler(c.RegistryService),
		AdminBalance:  handlers.NewAdminBalanceHandler(c.BalanceService),
		WebSocket:     handlers.NewWebSocketHandler(c.WebSocketPushService),
	}
}

// Shutdown releases external connections.
func (c *ServiceContainer) Shutdown() {
	events.Shutdown()
	if c.EthClient != nil {
		c.EthClient.Close()
	}
	log.Println("👋 Service Container shut down")
}
