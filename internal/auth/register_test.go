package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cartaviva/cartaviva-backend/pkg/config"
	"github.com/cartaviva/cartaviva-backend/pkg/db/models"
	pkgerrors "github.com/cartaviva/cartaviva-backend/pkg/errors"
	"github.com/cartaviva/cartaviva-backend/pkg/security"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newRegisterFixture(t *testing.T) (RegisterService, *gorm.DB) {
	t.Helper()
	dsn := "file:auth_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	svc, err := NewRegisterService(RegisterServiceParams{
		DB:             testTxRunner{db: db},
		PasswordConfig: config.PasswordConfig{},
	})
	if err != nil {
		t.Fatalf("new register service: %v", err)
	}
	return svc, db
}

func sampleRegisterRequest(email string) RegisterRequest {
	city := "Guadalajara"
	return RegisterRequest{
		DisplayName: "Jamie Rivera",
		Email:       email,
		Password:    "Secret123!",
		City:        &city,
		AcceptTOS:   true,
	}
}

func TestRegisterCreatesUser(t *testing.T) {
	svc, db := newRegisterFixture(t)

	created, err := svc.Register(context.Background(), sampleRegisterRequest("New@Example.com"))
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if created.Email != "new@example.com" {
		t.Fatalf("expected lowercased email, got %q", created.Email)
	}
	if created.DisplayName != "Jamie Rivera" {
		t.Fatalf("unexpected display name %q", created.DisplayName)
	}

	var stored models.User
	if err := db.First(&stored, "id = ?", created.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if !stored.IsActive {
		t.Fatalf("new users should be active")
	}
	if stored.PasswordHash == "Secret123!" || stored.PasswordHash == "" {
		t.Fatalf("password must be stored hashed")
	}
	valid, err := security.VerifyPassword("Secret123!", stored.PasswordHash)
	if err != nil || !valid {
		t.Fatalf("stored hash should verify: %v", err)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newRegisterFixture(t)

	if _, err := svc.Register(context.Background(), sampleRegisterRequest("dupe@example.com")); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	_, err := svc.Register(context.Background(), sampleRegisterRequest("DUPE@example.com"))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeAlreadyDone {
		t.Fatalf("expected already-done error for duplicate email, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newRegisterFixture(t)

	cases := []struct {
		name   string
		mutate func(*RegisterRequest)
	}{
		{"missing email", func(r *RegisterRequest) { r.Email = "  " }},
		{"missing display name", func(r *RegisterRequest) { r.DisplayName = "" }},
		{"tos not accepted", func(r *RegisterRequest) { r.AcceptTOS = false }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := sampleRegisterRequest("valid@example.com")
			tc.mutate(&req)
			_, err := svc.Register(context.Background(), req)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}
