package services

import (
	"errors"
	"testing"

	"github.com/teamtrackhq/teamtrack/internal/models"
	"github.com/teamtrackhq/teamtrack/pkg/response"
)

func TestRegister_FirstUserBecomesAdmin(t *testing.T) {
	db := setupTestDB(t)
	svc := testAuthService(db)

	alice, err := svc.Register(&RegisterRequest{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if alice.Role != models.RoleAdmin {
		t.Errorf("first user role = %q, expected %q", alice.Role, models.RoleAdmin)
	}

	bob, err := svc.Register(&RegisterRequest{
		Name:     "Bob",
		Email:    "bob@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("second registration failed: %v", err)
	}
	if bob.Role != models.RoleMember {
		t.Errorf("second user role = %q, expected %q", bob.Role, models.RoleMember)
	}
}

func TestRegister_EmailLowercasedAndUnique(t *testing.T) {
	db := setupTestDB(t)
	svc := testAuthService(db)

	user, err := svc.Register(&RegisterRequest{
		Name: "Alice", Email: "Alice@Example.COM", Password: "password123",
	})
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("email = %q, expected lowercased", user.Email)
	}

	_, err = svc.Register(&RegisterRequest{
		Name: "Imposter", Email: "ALICE@example.com", Password: "password123",
	})
	var appErr *response.AppError
	if !errors.As(err, &appErr) || appErr.Kind != response.KindDuplicateIdentity {
		t.Errorf("duplicate email: expected %s error, got %v", response.KindDuplicateIdentity, err)
	}
}

func TestLogin_IdenticalErrorsHideAccountExistence(t *testing.T) {
	db := setupTestDB(t)
	svc := testAuthService(db)

	createUser(t, db, "alice@example.com", models.RoleAdmin)
	inactive := createUser(t, db, "gone@example.com", models.RoleMember)
	db.Model(inactive).Update("is_active", false)

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@example.com", "password123"},
		{"wrong password", "alice@example.com", "wrong-password"},
		{"inactive account", "gone@example.com", "password123"},
	}

	var messages []string
	for _, tc := range cases {
		_, err := svc.Login(&LoginRequest{Email: tc.email, Password: tc.password}, "127.0.0.1", "test")
		var appErr *response.AppError
		if !errors.As(err, &appErr) {
			t.Fatalf("%s: expected AppError, got %v", tc.name, err)
		}
		if appErr.Kind != response.KindInvalidCredentials {
			t.Errorf("%s: kind = %q, expected %q", tc.name, appErr.Kind, response.KindInvalidCredentials)
		}
		messages = append(messages, appErr.Message)
	}

	for i := 1; i < len(messages); i++ {
		if messages[i] != messages[0] {
			t.Errorf("credential failure messages differ: %q vs %q", messages[0], messages[i])
		}
	}
}

func TestLogin_SuccessIssuesTokenPair(t *testing.T) {
	db := setupTestDB(t)
	svc := testAuthService(db)
	createUser(t, db, "alice@example.com", models.RoleAdmin)

	result, err := svc.Login(&LoginRequest{
		Email: "alice@example.com", Password: "password123",
	}, "127.0.0.1", "test")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if result.AccessToken == "" {
		t.Error("expected non-empty access token")
	}
	if result.RefreshToken == "" {
		t.Error("expected non-empty refresh token")
	}
	if result.User == nil || result.User.LastLogin == nil {
		t.Error("expected last_login to be stamped")
	}
}

func TestRefresh_RotatesAndRevokesOldToken(t *testing.T) {
	db := setupTestDB(t)
	svc := testAuthService(db)
	createUser(t, db, "alice@example.com", models.RoleAdmin)

	login, err := svc.Login(&LoginRequest{
		Email: "alice@example.com", Password: "password123",
	}, "127.0.0.1", "test")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	refreshed, err := svc.Refresh(login.RefreshToken, "127.0.0.1", "test")
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Error("refresh should issue a new token")
	}

	// The old token is revoked and cannot be replayed.
	_, err = svc.Refresh(login.RefreshToken, "127.0.0.1", "test")
	var appErr *response.AppError
	if !errors.As(err, &appErr) || appErr.Kind != response.KindInvalidCredentials {
		t.Errorf("replayed token: expected %s error, got %v", response.KindInvalidCredentials, err)
	}

	// The rotated token still works.
	if _, err := svc.Refresh(refreshed.RefreshToken, "127.0.0.1", "test"); err != nil {
		t.Errorf("rotated token should refresh, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	db := setupTestDB(t)
	svc := testAuthService(db)
	alice := createUser(t, db, "alice@example.com", models.RoleMember)

	err := svc.ChangePassword(alice.ID, &ChangePasswordRequest{
		CurrentPassword: "wrong-password",
		NewPassword:     "newpassword456",
	})
	var appErr *response.AppError
	if !errors.As(err, &appErr) || appErr.Kind != response.KindInvalidCredentials {
		t.Errorf("wrong current password: expected %s error, got %v", response.KindInvalidCredentials, err)
	}

	if err := svc.ChangePassword(alice.ID, &ChangePasswordRequest{
		CurrentPassword: "password123",
		NewPassword:     "newpassword456",
	}); err != nil {
		t.Fatalf("change password failed: %v", err)
	}

	if _, err := svc.Login(&LoginRequest{
		Email: "alice@example.com", Password: "newpassword456",
	}, "127.0.0.1", "test"); err != nil {
		t.Errorf("login with new password failed: %v", err)
	}
}
