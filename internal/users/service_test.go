package users

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cartaviva/cartaviva-backend/pkg/db/models"
	pkgerrors "github.com/cartaviva/cartaviva-backend/pkg/errors"
	"github.com/cartaviva/cartaviva-backend/pkg/logger"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := "file:users_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate users: %v", err)
	}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(NewRepository(db), logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, db
}

func seedUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	city := "Barcelona"
	user := &models.User{
		ID:           uuid.New(),
		Email:        "trader@example.com",
		PasswordHash: "hash",
		DisplayName:  "Card Trader",
		City:         &city,
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestMeReturnsAccountView(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	user := seedUser(t, db)

	dto, err := svc.Me(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if dto.Email != user.Email || dto.DisplayName != user.DisplayName {
		t.Fatalf("unexpected dto: %+v", dto)
	}
}

func TestMeUnknownUser(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)

	_, err := svc.Me(context.Background(), uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPublicProfileOmitsEmail(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	user := seedUser(t, db)

	profile, err := svc.PublicProfile(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("public profile: %v", err)
	}
	if profile.DisplayName != user.DisplayName {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if profile.City == nil || *profile.City != "Barcelona" {
		t.Fatalf("city should survive into the public view: %+v", profile)
	}
}

func TestUpdateProfileAppliesNonNilFields(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	user := seedUser(t, db)

	name := "Renamed Trader"
	phone := "+34123456789"
	dto, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileDTO{
		DisplayName: &name,
		Phone:       &phone,
	})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if dto.DisplayName != name {
		t.Fatalf("display name not applied: %+v", dto)
	}
	if dto.Phone == nil || *dto.Phone != phone {
		t.Fatalf("phone not applied: %+v", dto)
	}
	if dto.City == nil || *dto.City != "Barcelona" {
		t.Fatalf("untouched field should survive: %+v", dto)
	}
}

func TestUpdateProfileRejectsBlankDisplayName(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	user := seedUser(t, db)

	blank := "   "
	_, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileDTO{DisplayName: &blank})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
