package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/teamtrackhq/teamtrack/internal/config"
	"github.com/teamtrackhq/teamtrack/internal/models"
	"github.com/teamtrackhq/teamtrack/internal/utils"
	"github.com/teamtrackhq/teamtrack/pkg/response"
	"gorm.io/gorm"
)

// invalidCredentialsMsg is shared by unknown-email, wrong-password and
// inactive-account failures so responses never reveal which one occurred.
const invalidCredentialsMsg = "invalid email or password"

type AuthService struct {
	db          *gorm.DB
	ldapService *LDAPService
	jwtConfig   *config.JWTConfig
}

func NewAuthService(db *gorm.DB, ldapCfg *config.LDAPConfig, jwtCfg *config.JWTConfig) *AuthService {
	return &AuthService{
		db:          db,
		ldapService: NewLDAPService(ldapCfg),
		jwtConfig:   jwtCfg,
	}
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// Register creates a local account. The very first registered identity
// becomes admin; everyone after that starts as member (elevation is an
// admin operation, so a requested role in the payload has no effect).
func (s *AuthService) Register(req *RegisterRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, transient(err)
	}

	user := models.User{
		Username: email,
		Email:    email,
		Password: hashed,
		Nickname: req.Name,
		Role:     models.RoleMember,
		AuthType: models.AuthTypeLocal,
		IsActive: true,
	}

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return response.NewDuplicateIdentity("email already registered")
		}

		var total int64
		if err := tx.Model(&models.User{}).Count(&total).Error; err != nil {
			return err
		}
		if total == 0 {
			user.Role = models.RoleAdmin
		}

		return tx.Create(&user).Error
	})
	if txErr != nil {
		var appErr *response.AppError
		if errors.As(txErr, &appErr) {
			return nil, appErr
		}
		return nil, transient(txErr)
	}

	return &user, nil
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	AuthType string `json:"auth_type"` // local, ldap
}

type LoginResult struct {
	AccessToken     string
	AccessExpireAt  time.Time
	RefreshToken    string
	RefreshExpireAt time.Time
	User            *models.User
}

type RefreshResult struct {
	AccessToken     string
	AccessExpireAt  time.Time
	RefreshToken    string
	RefreshExpireAt time.Time
}

// Login authenticates a user and issues an access token plus a rotated
// refresh token. A successful login stamps last_login.
func (s *AuthService) Login(req *LoginRequest, clientIP, userAgent string) (*LoginResult, error) {
	var user *models.User
	var err error

	if req.AuthType == "" {
		req.AuthType = models.AuthTypeLocal
	}

	switch req.AuthType {
	case models.AuthTypeLocal:
		user, err = s.localAuth(req.Email, req.Password)
	case models.AuthTypeLDAP:
		user, err = s.ldapAuth(req.Email, req.Password)
	default:
		return nil, response.NewValidation("invalid auth type")
	}
	if err != nil {
		return nil, err
	}

	accessHours := s.accessTokenExpireHours()
	refreshHours := s.refreshTokenExpireHours()

	token, tokenErr := utils.GenerateToken(user.ID, user.Username, user.Role, accessHours)
	if tokenErr != nil {
		return nil, transient(tokenErr)
	}

	refreshToken, refreshHash, tokenErr := generateRefreshToken()
	if tokenErr != nil {
		return nil, transient(tokenErr)
	}

	refreshExpireAt := time.Now().Add(time.Duration(refreshHours) * time.Hour)
	refreshRecord := models.RefreshToken{
		UserID:      user.ID,
		TokenHash:   refreshHash,
		ExpiresAt:   refreshExpireAt,
		CreatedByIP: clientIP,
		UserAgent:   userAgent,
	}
	if err := s.db.Create(&refreshRecord).Error; err != nil {
		return nil, transient(err)
	}

	now := time.Now()
	user.LastLogin = &now
	s.db.Model(user).Update("last_login", now)

	return &LoginResult{
		AccessToken:     token,
		AccessExpireAt:  time.Now().Add(time.Duration(accessHours) * time.Hour),
		RefreshToken:    refreshToken,
		RefreshExpireAt: refreshExpireAt,
		User:            user,
	}, nil
}

// Refresh rotates a refresh token: the old token is revoked and linked to
// its replacement, and a fresh access token is issued.
func (s *AuthService) Refresh(refreshToken string, clientIP, userAgent string) (*RefreshResult, error) {
	if refreshToken == "" {
		return nil, response.NewInvalidCredentials("refresh token required")
	}

	hash := hashRefreshToken(refreshToken)

	var stored models.RefreshToken
	if err := s.db.Where("token_hash = ?", hash).First(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewInvalidCredentials("invalid refresh token")
		}
		return nil, transient(err)
	}

	if stored.RevokedAt != nil {
		return nil, response.NewInvalidCredentials("refresh token revoked")
	}
	if time.Now().After(stored.ExpiresAt) {
		return nil, response.NewExpiredCredential("refresh token expired")
	}

	user, appErr := findActiveUser(s.db, stored.UserID)
	if appErr != nil {
		return nil, response.NewInvalidCredentials("invalid refresh token")
	}

	accessHours := s.accessTokenExpireHours()
	refreshHours := s.refreshTokenExpireHours()

	newAccessToken, err := utils.GenerateToken(user.ID, user.Username, user.Role, accessHours)
	if err != nil {
		return nil, transient(err)
	}

	newRefreshToken, newRefreshHash, err := generateRefreshToken()
	if err != nil {
		return nil, transient(err)
	}

	now := time.Now()
	newRefresh := models.RefreshToken{
		UserID:      user.ID,
		TokenHash:   newRefreshHash,
		ExpiresAt:   now.Add(time.Duration(refreshHours) * time.Hour),
		CreatedByIP: clientIP,
		UserAgent:   userAgent,
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&newRefresh).Error; err != nil {
			return err
		}
		return tx.Model(&stored).Updates(map[string]interface{}{
			"revoked_at":           now,
			"replaced_by_token_id": newRefresh.ID,
		}).Error
	}); err != nil {
		return nil, transient(err)
	}

	return &RefreshResult{
		AccessToken:     newAccessToken,
		AccessExpireAt:  time.Now().Add(time.Duration(accessHours) * time.Hour),
		RefreshToken:    newRefreshToken,
		RefreshExpireAt: newRefresh.ExpiresAt,
	}, nil
}

// RevokeRefreshToken invalidates a refresh token on logout. Unknown tokens
// are ignored.
func (s *AuthService) RevokeRefreshToken(refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	hash := hashRefreshToken(refreshToken)
	now := time.Now()
	if err := s.db.Model(&models.RefreshToken{}).
		Where("token_hash = ? AND revoked_at IS NULL", hash).
		Update("revoked_at", now).Error; err != nil {
		return transient(err)
	}
	return nil
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

func (s *AuthService) ChangePassword(userID uint, req *ChangePasswordRequest) error {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return response.NewNotFound("user not found")
	}

	if user.AuthType != models.AuthTypeLocal {
		return response.NewConflict("directory users cannot change password here")
	}

	if !utils.CheckPassword(req.CurrentPassword, user.Password) {
		return response.NewInvalidCredentials("incorrect current password")
	}

	hashed, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return transient(err)
	}

	if err := s.db.Model(&user).Update("password", hashed).Error; err != nil {
		return transient(err)
	}
	return nil
}

// GetUserByID retrieves a user by ID.
func (s *AuthService) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("user not found")
		}
		return nil, transient(err)
	}
	return &user, nil
}

func (s *AuthService) IsLDAPEnabled() bool {
	return s.ldapService.IsEnabled()
}

func (s *AuthService) accessTokenExpireHours() int {
	if s.jwtConfig.ExpireHour > 0 {
		return s.jwtConfig.ExpireHour
	}
	return 24
}

func (s *AuthService) refreshTokenExpireHours() int {
	if s.jwtConfig.RefreshExpireHour > 0 {
		return s.jwtConfig.RefreshExpireHour
	}
	return 720
}

func (s *AuthService) localAuth(email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	if err := s.db.Where("email = ? AND auth_type = ?", email, models.AuthTypeLocal).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewInvalidCredentials(invalidCredentialsMsg)
		}
		return nil, transient(err)
	}

	if !user.IsActive {
		return nil, response.NewInvalidCredentials(invalidCredentialsMsg)
	}

	if !utils.CheckPassword(password, user.Password) {
		return nil, response.NewInvalidCredentials(invalidCredentialsMsg)
	}

	return &user, nil
}

func (s *AuthService) ldapAuth(username, password string) (*models.User, error) {
	ldapUser, err := s.ldapService.Authenticate(username, password)
	if err != nil {
		return nil, response.NewInvalidCredentials(invalidCredentialsMsg)
	}

	// Find or provision the directory user locally
	var user models.User
	err = s.db.Where("username = ? AND auth_type = ?", ldapUser.Username, models.AuthTypeLDAP).First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			Username: ldapUser.Username,
			Email:    strings.ToLower(ldapUser.Email),
			Nickname: ldapUser.Nickname,
			Role:     models.RoleMember,
			AuthType: models.AuthTypeLDAP,
			IsActive: true,
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, transient(err)
		}
	} else if err != nil {
		return nil, transient(err)
	}

	if !user.IsActive {
		return nil, response.NewInvalidCredentials(invalidCredentialsMsg)
	}

	// Refresh profile fields from the directory
	user.Email = strings.ToLower(ldapUser.Email)
	user.Nickname = ldapUser.Nickname
	s.db.Save(&user)

	return &user, nil
}

func generateRefreshToken() (token string, tokenHash string, err error) {
	randomBytes := make([]byte, 32)
	if _, err = rand.Read(randomBytes); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(randomBytes)
	tokenHash = hashRefreshToken(token)
	return token, tokenHash, nil
}

func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
