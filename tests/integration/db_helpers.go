package integration

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bidhaven/backend/internal/database"
	"github.com/bidhaven/backend/internal/models"
	"github.com/bidhaven/backend/internal/repositories"
	"github.com/bidhaven/backend/pkg/auth"
	"github.com/google/uuid"
)

// TestDB manages the PostgreSQL testcontainer and database handles
type TestDB struct {
	Container  testcontainers.Container
	ConnString string
	Pool       *pgxpool.Pool
	DB         *database.DB
}

// SetupTestDatabase creates a PostgreSQL testcontainer, runs migrations, returns TestDB
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("bidhaven"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &TestDB{
		Container:  container,
		ConnString: connStr,
		Pool:       pool,
		DB:         &database.DB{Pool: pool},
	}, nil
}

// runMigrations executes all goose migrations
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir, err := filepath.Abs("../../migrations")
	if err != nil {
		return fmt.Errorf("failed to get migrations path: %w", err)
	}

	goose.SetLogger(log.New(io.Discard, "", 0))

	// Goose needs a database/sql connection, use the pgx stdlib adapter
	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer sqlDB.Close()

	if err := goose.UpContext(ctx, sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// Teardown stops the container and closes the connection pool
func (db *TestDB) Teardown(ctx context.Context) error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

// CleanupTables truncates mutable tables for test isolation. Role seed data
// survives so permission checks keep working between tests.
func (db *TestDB) CleanupTables(ctx context.Context) error {
	tables := []string{
		"password_reset_logs",
		"login_logs",
		"sessions",
		"failed_logins",
		"blocked_ips",
		"profiles",
	}

	for _, table := range tables {
		if _, err := db.Pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return nil
}

// InitializeRepositories creates all repository instances from the database wrapper
func InitializeRepositories(db *database.DB) (
	*repositories.ProfileRepository,
	*repositories.FailedLoginRepository,
	*repositories.SessionRepository,
	*repositories.LoginLogRepository,
	*repositories.PasswordResetLogRepository,
	*repositories.RoleRepository,
	*repositories.BlockedIPRepository,
) {
	return repositories.NewProfileRepository(db),
		repositories.NewFailedLoginRepository(db),
		repositories.NewSessionRepository(db),
		repositories.NewLoginLogRepository(db),
		repositories.NewPasswordResetLogRepository(db),
		repositories.NewRoleRepository(db),
		repositories.NewBlockedIPRepository(db)
}

// SeedProfile inserts a verified, active account with a hashed password.
func SeedProfile(ctx context.Context, pool *pgxpool.Pool, email, password, roleCode string) (*models.Profile, error) {
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var roleID, userType string
	err = pool.QueryRow(ctx,
		`SELECT id, type FROM roles WHERE role_code = $1`, roleCode,
	).Scan(&roleID, &userType)
	if err != nil {
		return nil, fmt.Errorf("failed to look up role %s: %w", roleCode, err)
	}

	profile := &models.Profile{
		ID:            uuid.New().String(),
		Email:         email,
		PasswordHash:  hashedPassword,
		RoleID:        roleID,
		RoleCode:      roleCode,
		UserType:      userType,
		Status:        models.StatusActive,
		EmailVerified: true,
	}

	query := `
		INSERT INTO profiles (id, email, password_hash, role_id, role_code, user_type, status, email_verified, verified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, true, NOW())
		RETURNING created_at
	`
	err = pool.QueryRow(ctx, query,
		profile.ID, profile.Email, profile.PasswordHash,
		profile.RoleID, profile.RoleCode, profile.UserType, profile.Status,
	).Scan(&profile.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert profile: %w", err)
	}

	return profile, nil
}

// SeedMFAProfile flips MFA on for a seeded account.
func SeedMFAProfile(ctx context.Context, pool *pgxpool.Pool, email, password, roleCode string) (*models.Profile, error) {
	profile, err := SeedProfile(ctx, pool, email, password, roleCode)
	if err != nil {
		return nil, err
	}

	if _, err := pool.Exec(ctx, `UPDATE profiles SET mfa_enabled = true WHERE id = $1`, profile.ID); err != nil {
		return nil, fmt.Errorf("failed to enable mfa: %w", err)
	}
	profile.MFAEnabled = true
	return profile, nil
}

// SeedFailedLogins writes a failure counter so lockout tiers can be exercised
// without replaying dozens of requests.
func SeedFailedLogins(ctx context.Context, pool *pgxpool.Pool, email string, attempts int) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO failed_logins (email, attempts, last_attempt_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (email) DO UPDATE SET attempts = $2, last_attempt_at = NOW()
	`, email, attempts)
	if err != nil {
		return fmt.Errorf("failed to seed failure counter: %w", err)
	}
	return nil
}

// ReadMFAChallenge returns the OTP and temp token stashed on a profile.
func ReadMFAChallenge(ctx context.Context, pool *pgxpool.Pool, email string) (otp, tempToken string, err error) {
	err = pool.QueryRow(ctx,
		`SELECT COALESCE(mfa_otp, ''), COALESCE(mfa_temp_token, '') FROM profiles WHERE email = $1`, email,
	).Scan(&otp, &tempToken)
	if err != nil {
		return "", "", fmt.Errorf("failed to read mfa challenge: %w", err)
	}
	return otp, tempToken, nil
}
