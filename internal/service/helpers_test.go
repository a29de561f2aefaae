package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/waqf-api/internal/docstore"
	"github.com/noah-isme/waqf-api/internal/models"
	"github.com/noah-isme/waqf-api/internal/repository"
	"github.com/noah-isme/waqf-api/internal/roles"
	"github.com/noah-isme/waqf-api/internal/satellite"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// newTestStore returns a document store enforcing the backend rules on a private
// in-memory database.
func newTestStore(t *testing.T) docstore.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, docstore.Migrate(db))
	return docstore.NewGormStore(db, satellite.Rules(), testLogger())
}

type auditRecorderStub struct {
	entries []AuditInput
	failOn  models.AuditAction
}

func (a *auditRecorderStub) Record(ctx context.Context, input AuditInput) (models.AuditEntry, error) {
	if a.failOn != "" && input.Action == a.failOn {
		return models.AuditEntry{}, errors.New("audit backend unavailable")
	}
	a.entries = append(a.entries, input)
	return models.AuditEntry{ID: uuid.NewString(), Action: input.Action, TargetUserID: input.TargetUserID, PerformedBy: input.PerformedBy}, nil
}

func (a *auditRecorderStub) actions() []models.AuditAction {
	out := make([]models.AuditAction, 0, len(a.entries))
	for _, entry := range a.entries {
		out = append(out, entry.Action)
	}
	return out
}

// seedSuperAdmin bootstraps the first administrator directly through the store.
func seedSuperAdmin(t *testing.T, store docstore.Store, userID string) models.AdminUser {
	t.Helper()
	admin := models.AdminUser{
		UserID:      userID,
		Email:       userID + "@example.com",
		Name:        "Admin " + userID,
		Role:        roles.SuperAdmin,
		Permissions: roles.PermissionsFor(roles.SuperAdmin),
		CreatedBy:   userID,
	}
	require.NoError(t, repository.NewAdminRepository(store).Put(docstore.WithCaller(context.Background(), userID), admin))
	return admin
}

func TestMaskEmail(t *testing.T) {
	require.Equal(t, "a***a@example.com", maskEmail(" Aisha@Example.com "))
	require.Equal(t, "b***@example.com", maskEmail("bo@example.com"))
	require.Equal(t, "***", maskEmail("not-an-email"))
	require.Equal(t, "", maskEmail(""))
}
