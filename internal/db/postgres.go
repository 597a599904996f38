package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	types "github.com/storynest/storynest-backend/internal/domain"
	"github.com/storynest/storynest-backend/internal/pkg/logger"
	"github.com/storynest/storynest-backend/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "storynest", log)
	postgresSSLMode := utils.GetEnv("POSTGRES_SSL_MODE", "disable", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		postgresUser, postgresPassword, postgresHost, postgresPort, postgresName, postgresSSLMode)

	log.Info("Connecting to Postgres...")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		log.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		log.Error("Failed to enable uuid-ossp extension", "error", err)
		return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: db, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&types.User{},
		&types.Story{},
		&types.StorySegment{},
		&types.CreditLedgerEntry{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}

	s.log.Info("Configuring foreign key relationships for postgres tables...")
	fks := []struct {
		name string
		stmt string
	}{
		{
			name: "fk_story_user_id",
			stmt: `ALTER TABLE "story" ADD CONSTRAINT "fk_story_user_id" FOREIGN KEY ("user_id") REFERENCES "user"("id") ON DELETE CASCADE`,
		},
		{
			name: "fk_story_segment_story_id",
			stmt: `ALTER TABLE "story_segment" ADD CONSTRAINT "fk_story_segment_story_id" FOREIGN KEY ("story_id") REFERENCES "story"("id") ON DELETE CASCADE`,
		},
		{
			name: "fk_credit_ledger_entry_user_id",
			stmt: `ALTER TABLE "credit_ledger_entry" ADD CONSTRAINT "fk_credit_ledger_entry_user_id" FOREIGN KEY ("user_id") REFERENCES "user"("id") ON DELETE CASCADE`,
		},
	}
	for _, fk := range fks {
		var exists bool
		if err := s.db.Raw(
			`SELECT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = ?)`, fk.name,
		).Scan(&exists).Error; err != nil {
			return fmt.Errorf("failed to check constraint %s: %w", fk.name, err)
		}
		if exists {
			continue
		}
		if err := s.db.Exec(fk.stmt).Error; err != nil {
			return fmt.Errorf("failed to add %s: %w", fk.name, err)
		}
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
