package main

import (
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AdminJWTClaims mirrors the claims the admin auth handler issues.
type AdminJWTClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func main() {
	secret := os.Getenv("ADMIN_JWT_SECRET")
	if secret == "" {
		secret = "sponsor-admin-jwt-secret-default-change-me"
		fmt.Println("⚠️ ADMIN_JWT_SECRET not set, using default secret")
	}

	username := "admin"
	now := time.Now()
	claims := AdminJWTClaims{
		Username: username,
		Role:     "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "sponsor-backend-admin",
			Subject:   username,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		fmt.Printf("Error generating token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("============================================================")
	fmt.Println("Admin JWT Token Generated for Testing")
	fmt.Println("============================================================")
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(tokenString)
	fmt.Println()
	fmt.Printf("Expires: %s\n", claims.ExpiresAt.Time)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("curl -H 'Authorization: Bearer %s' http://localhost:8080/api/v1/admin/registry/factories\n", tokenString)
}
