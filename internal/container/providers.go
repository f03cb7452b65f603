package container

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/spendlens/internal/application/port"
	"github.com/garyjia/spendlens/internal/application/service"
	"github.com/garyjia/spendlens/internal/description"
	"github.com/garyjia/spendlens/internal/infrastructure/external/openai"
	"github.com/garyjia/spendlens/internal/infrastructure/pdf"
	"github.com/garyjia/spendlens/internal/infrastructure/persistence/repository"
	"github.com/garyjia/spendlens/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/spendlens/internal/infrastructure/storage"
	"github.com/garyjia/spendlens/internal/receipt"
	"github.com/garyjia/spendlens/migrations"
	"github.com/garyjia/spendlens/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// AIBundle holds the OpenAI-backed adapters. Both are nil when AI is disabled.
type AIBundle struct {
	Categorizer port.AICategorizer
	Extractor   port.ReceiptExtractor
}

// ProvideDatabase opens the database and applies pending migrations.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	migrator := database.NewMigrator(db, logger)
	if cfg.MigrationsDir != "" {
		err = migrator.RunMigrationsDir(cfg.MigrationsDir)
	} else {
		err = migrator.RunMigrations(migrations.FS)
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Receipt:     repository.NewReceiptRepository(sqlDB, logger),
		Transaction: repository.NewTransactionRepository(sqlDB, logger),
		Preference:  repository.NewPreferenceRepository(sqlDB, logger),
	}, nil
}

// ProvideAI builds the AI categorizer and receipt extractor when enabled.
func ProvideAI(cfg *OpenAIConfig, logger *zap.Logger) (*AIBundle, error) {
	if cfg == nil || !cfg.Enabled {
		logger.Info("OpenAI disabled, AI fallbacks are off")
		return &AIBundle{}, nil
	}

	prompts, err := openai.LoadPrompts(cfg.PromptsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}

	client := openai.NewClient(openai.ClientConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		VisionModel: cfg.VisionModel,
		Timeout:     cfg.Timeout,
	}, prompts, logger.Named("openai"))

	logger.Info("OpenAI enabled",
		zap.String("model", cfg.Model),
		zap.String("vision_model", cfg.VisionModel))

	return &AIBundle{
		Categorizer: openai.NewCategorizer(client),
		Extractor:   openai.NewReceiptExtractor(client),
	}, nil
}

// ProvideClassifier loads the rule table at cfg.Path or the built-in one.
func ProvideClassifier(cfg *RulesConfig, logger *zap.Logger) (*description.Classifier, error) {
	if cfg == nil || cfg.Path == "" {
		return description.DefaultClassifier(), nil
	}
	c, err := description.LoadClassifier(cfg.Path)
	if err != nil {
		return nil, err
	}
	logger.Info("Loaded classification rules",
		zap.String("path", cfg.Path),
		zap.Int("rules", len(c.Rules())))
	return c, nil
}

// ProvideStorage creates the upload store.
func ProvideStorage(cfg *StorageConfig, logger *zap.Logger) (port.FileStorage, error) {
	if cfg == nil || cfg.UploadDir == "" {
		return nil, fmt.Errorf("upload directory is required")
	}
	return storage.NewUploadStore(cfg.UploadDir, cfg.MaxBytes, logger), nil
}

// ServiceDeps holds dependencies for creating services.
type ServiceDeps struct {
	Repos          *RepositoryBundle
	TxManager      port.TransactionManager
	Classifier     *description.Classifier
	AI             *AIBundle
	Files          port.FileStorage
	MaxConcurrency int
	Logger         *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil || deps.TxManager == nil || deps.Logger == nil {
		return nil, fmt.Errorf("repositories, transaction manager and logger are required")
	}
	ai := deps.AI
	if ai == nil {
		ai = &AIBundle{}
	}

	svcLogger := &zapLoggerAdapter{logger: deps.Logger}

	categorization := service.NewCategorizationService(
		deps.Classifier,
		deps.Repos.Preference,
		ai.Categorizer,
		svcLogger,
	)

	importer := service.NewImportService(
		categorization,
		deps.Repos.Transaction,
		deps.TxManager,
		deps.MaxConcurrency,
		svcLogger,
	)

	receipts := service.NewReceiptService(service.ReceiptServiceDeps{
		Registry:  receipt.DefaultRegistry(),
		Repo:      deps.Repos.Receipt,
		Extractor: ai.Extractor,
		PDF:       pdf.NewExtractor(deps.Logger.Named("pdf")),
		Files:     deps.Files,
		Logger:    svcLogger,
	})

	return &ServiceBundle{
		Categorization: categorization,
		Import:         importer,
		Receipt:        receipts,
	}, nil
}
