package auth

import (
	"testing"

	"zapcommerce/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeUserRepo struct {
	users map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (r *fakeUserRepo) GetByEmail(email string) (*models.User, error) {
	if u, ok := r.users[email]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByID(id uuid.UUID) (*models.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) Create(user *models.User) error {
	r.users[user.Email] = user
	return nil
}

func (r *fakeUserRepo) Update(user *models.User) error {
	r.users[user.Email] = user
	return nil
}

func seedUser(t *testing.T, svc *Service, repo *fakeUserRepo, role string, merchantID *uuid.UUID) *models.User {
	t.Helper()

	hash, err := svc.HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	user := &models.User{
		BaseModel:  models.BaseModel{ID: uuid.New()},
		MerchantID: merchantID,
		Email:      "owner@example.com",
		Password:   hash,
		Name:       "Owner",
		Role:       role,
		IsActive:   true,
	}
	repo.Create(user)
	return user
}

func TestLoginAndValidateToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	repo := newFakeUserRepo()
	svc := NewService(repo)
	merchantID := uuid.New()
	seedUser(t, svc, repo, models.RoleMerchantAdmin, &merchantID)

	resp, err := svc.Login(LoginRequest{Email: "owner@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("login response missing tokens")
	}

	claims, err := svc.ValidateToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Type != "access" {
		t.Errorf("token type = %q, expected access", claims.Type)
	}
	if claims.MerchantID == nil || *claims.MerchantID != merchantID {
		t.Error("claims lost the merchant binding")
	}
	if claims.IsSystemAdmin() {
		t.Error("merchant admin must not report system admin")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	repo := newFakeUserRepo()
	svc := NewService(repo)
	seedUser(t, svc, repo, models.RoleMerchantUser, nil)

	if _, err := svc.Login(LoginRequest{Email: "owner@example.com", Password: "wrong"}); err == nil {
		t.Error("wrong password accepted")
	}
	if _, err := svc.Login(LoginRequest{Email: "nobody@example.com", Password: "correct-horse"}); err == nil {
		t.Error("unknown user accepted")
	}
}

func TestLoginRejectsDisabledUser(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	repo := newFakeUserRepo()
	svc := NewService(repo)
	user := seedUser(t, svc, repo, models.RoleMerchantUser, nil)
	user.IsActive = false

	if _, err := svc.Login(LoginRequest{Email: "owner@example.com", Password: "correct-horse"}); err == nil {
		t.Error("disabled account logged in")
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	repo := newFakeUserRepo()
	svc := NewService(repo)
	seedUser(t, svc, repo, models.RoleSystemAdmin, nil)

	resp, err := svc.Login(LoginRequest{Email: "owner@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, err := svc.RefreshToken(resp.AccessToken); err == nil {
		t.Error("access token accepted as refresh token")
	}
	if _, err := svc.RefreshToken(resp.RefreshToken); err != nil {
		t.Errorf("refresh token rejected: %v", err)
	}
}

func TestValidateTokenRejectsForgedSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	repo := newFakeUserRepo()
	svc := NewService(repo)
	seedUser(t, svc, repo, models.RoleMerchantUser, nil)

	resp, err := svc.Login(LoginRequest{Email: "owner@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	t.Setenv("JWT_SECRET", "different-secret")
	if _, err := svc.ValidateToken(resp.AccessToken); err == nil {
		t.Error("token validated against a different secret")
	}
}
