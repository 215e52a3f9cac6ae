package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"sponsor-backend/internal/config"
)

// AdminAuthHandler issues admin session tokens after password + TOTP login.
type AdminAuthHandler struct {
	jwtSecret    []byte
	totpSecret   string
	passwordHash string // bcrypt
}

// AdminLoginRequest admin login request
type AdminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	TOTPCode string `json:"totp_code" binding:"required"`
}

// AdminLoginResponse admin login response
type AdminLoginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message"`
}

// AdminJWTClaims admin JWT claims
type AdminJWTClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func NewAdminAuthHandler() *AdminAuthHandler {
	cfg := config.AppConfig.Admin
	if cfg.TOTPSecret == "" || cfg.PasswordHash == "" {
		logrus.Warn("⚠️ ADMIN_TOTP_SECRET or ADMIN_PASSWORD_HASH not set; admin login will refuse all requests")
	}
	jwtSecret := []byte(cfg.JWTSecret)
	if len(jwtSecret) == 0 {
		jwtSecret = []byte("sponsor-admin-jwt-secret-default-change-me")
		logrus.Warn("⚠️ Using default ADMIN_JWT_SECRET, set the environment variable in production")
	}
	return &AdminAuthHandler{
		jwtSecret:    jwtSecret,
		totpSecret:   cfg.TOTPSecret,
		passwordHash: cfg.PasswordHash,
	}
}

// AdminLoginHandler handles admin login
// POST /api/v1/admin/login
func (h *AdminAuthHandler) AdminLoginHandler(c *gin.Context) {
	if h.totpSecret == "" || h.passwordHash == "" {
		c.JSON(http.StatusInternalServerError, AdminLoginResponse{
			Success: false,
			Message: "Server misconfiguration: admin credentials not set",
		})
		return
	}

	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, AdminLoginResponse{
			Success: false,
			Message: fmt.Sprintf("Invalid request: %v", err),
		})
		return
	}

	if req.Username != "admin" {
		c.JSON(http.StatusUnauthorized, AdminLoginResponse{Success: false, Message: "Invalid credentials"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(h.passwordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, AdminLoginResponse{Success: false, Message: "Invalid credentials"})
		return
	}
	if !totp.Validate(req.TOTPCode, h.totpSecret) {
		c.JSON(http.StatusUnauthorized, AdminLoginResponse{Success: false, Message: "Invalid TOTP code"})
		return
	}

	token, err := h.generateAdminJWTToken(req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, AdminLoginResponse{
			Success: false,
			Message: "Failed to generate token",
		})
		return
	}

	c.JSON(http.StatusOK, AdminLoginResponse{Success: true, Token: token, Message: "Login successful"})
}

// GenerateTOTPSecretHandler bootstraps a TOTP secret. Disabled once a secret
// is configured.
// POST /api/v1/admin/totp/generate
func (h *AdminAuthHandler) GenerateTOTPSecretHandler(c *gin.Context) {
	if h.totpSecret != "" {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   "TOTP secret already configured in environment",
		})
		return
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "Sponsor Admin",
		AccountName: "admin@sponsor",
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to generate TOTP secret",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"secret":  key.Secret(),
		"url":     key.URL(),
		"message": "Save this secret to ADMIN_TOTP_SECRET. Use it to generate TOTP codes.",
	})
}

func (h *AdminAuthHandler) generateAdminJWTToken(username string) (string, error) {
	claims := AdminJWTClaims{
		Username: username,
		Role:     "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "sponsor-backend-admin",
			Subject:   username,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(h.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateAdminJWTToken validates an admin JWT token
func ValidateAdminJWTToken(tokenString string) (*AdminJWTClaims, error) {
	jwtSecret := []byte("sponsor-admin-jwt-secret-default-change-me")
	if config.AppConfig != nil && config.AppConfig.Admin.JWTSecret != "" {
		jwtSecret = []byte(config.AppConfig.Admin.JWTSecret)
	}

	token, err := jwt.ParseWithClaims(tokenString, &AdminJWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims, ok := token.Claims.(*AdminJWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}
