package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"campus-hub/internal/config"
	"campus-hub/internal/models"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

const (
	maxAttempts  = 10
	retryBackoff = 2 * time.Second
)

// Connect opens the database, retrying Postgres while it comes up.
func Connect(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	attempts := 1
	switch driver {
	case config.DriverPostgres:
		dialector = postgres.Open(dsn)
		attempts = maxAttempts
	case config.DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	log := zap.L().Named("database")

	var (
		db  *gorm.DB
		err error
	)
	for i := 1; i <= attempts; i++ {
		log.Info("connecting to database", zap.String("driver", driver), zap.Int("attempt", i), zap.Int("of", attempts))

		db, err = gorm.Open(dialector, &gorm.Config{
			Logger: newGormLogger(log),
		})
		if err == nil {
			break
		}

		log.Warn("failed to connect to database", zap.Error(err))
		if i < attempts {
			time.Sleep(retryBackoff)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect after %d attempts: %w", attempts, err)
	}

	if driver == config.DriverSQLite {
		// one connection keeps in-memory databases alive and avoids
		// SQLITE_BUSY between writers
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	log.Info("connected to database")
	return db, nil
}

// newGormLogger sends gorm's slow query and error lines through zap.
// A missed lookup is an expected outcome here, not an error.
func newGormLogger(log *zap.Logger) gormlogger.Interface {
	w, err := zap.NewStdLogAt(log.WithOptions(zap.AddCallerSkip(1)), zapcore.WarnLevel)
	if err != nil {
		w = zap.NewStdLog(log)
	}
	return gormlogger.New(w, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Asset{},
		&models.Log{},
		&models.AuditLog{},
	); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Init connects, migrates, bootstraps the admin and installs the result
// as the package-level DB.
func Init(cfg *config.Config) error {
	db, err := Connect(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	if err := Migrate(db); err != nil {
		return err
	}
	DB = db

	return EnsureDefaultAdmin(context.Background(), cfg.AdminEmail, cfg.AdminPassword)
}

// EnsureDefaultAdmin creates the bootstrap admin unless some admin exists.
func EnsureDefaultAdmin(ctx context.Context, email, password string) error {
	log := zap.L().Named("database")

	var count int64
	if err := DB.WithContext(ctx).Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).
		Count(&count).Error; err != nil {
		return fmt.Errorf("check admin user: %w", err)
	}
	if count > 0 {
		return nil
	}

	admin, err := CreateUser(ctx, email, password, "Administrator", models.RoleAdmin)
	if err != nil {
		return fmt.Errorf("create default admin: %w", err)
	}

	log.Info("created default admin user", zap.String("email", admin.Email))
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
