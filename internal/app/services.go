package app

import (
	"os"

	"zapcommerce/internal/auth"
	"zapcommerce/internal/repo"
	"zapcommerce/internal/services"
	"zapcommerce/internal/tenant"
	"zapcommerce/internal/vault"
	"zapcommerce/internal/webhook"
	"zapcommerce/internal/window"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Services holds all application services
type Services struct {
	DB          *gorm.DB
	AuthService *auth.Service
	Cipher      *vault.Cipher
	Binder      *tenant.Binder

	UserRepo     *repo.UserRepository
	MerchantRepo *repo.MerchantRepository
	WindowRepo   *repo.WindowRepository

	WindowService   *window.Service
	Ingestor        *webhook.Ingestor
	ArchiveService  *services.ArchiveService
	CleanupService  *services.CleanupService
	CredentialSweep *services.CredentialRenewalService
}

// NewServices creates a new services container
func NewServices(db *gorm.DB) (*Services, error) {
	// Initialize repositories
	userRepo := repo.NewUserRepository(db)
	merchantRepo := repo.NewMerchantRepository(db)
	windowRepo := repo.NewWindowRepository(db)

	// Initialize core services
	authService := auth.NewService(userRepo)
	windowService := window.NewService(windowRepo)

	masterKey := os.Getenv("VAULT_MASTER_KEY")
	if masterKey == "" {
		log.Warn().Msg("VAULT_MASTER_KEY not set, using insecure development key")
		masterKey = "dev-only-insecure-key"
	}
	cipher, err := vault.NewCipher(masterKey)
	if err != nil {
		return nil, err
	}

	ingestor := webhook.NewIngestor(db, windowService, cipher)

	// Payload archival is optional; without S3 configuration raw bodies
	// only live in the events table
	archiveService, err := services.NewArchiveService()
	if err != nil {
		log.Warn().Err(err).Msg("Webhook payload archival disabled")
	} else {
		ingestor.SetArchiver(archiveService)
	}

	// No token renewer is wired by default; the sweep still surfaces
	// expiring credentials in the logs
	credentialSweep := services.NewCredentialRenewalService(db, nil)

	return &Services{
		DB:          db,
		AuthService: authService,
		Cipher:      cipher,
		Binder:      tenant.NewBinder(db),

		UserRepo:     userRepo,
		MerchantRepo: merchantRepo,
		WindowRepo:   windowRepo,

		WindowService:   windowService,
		Ingestor:        ingestor,
		ArchiveService:  archiveService,
		CleanupService:  services.NewCleanupService(db),
		CredentialSweep: credentialSweep,
	}, nil
}
