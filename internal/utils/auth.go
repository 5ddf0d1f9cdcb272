package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// DeviceTokenTTL is the lifetime of a scanner bearer token
const DeviceTokenTTL = 30 * 24 * time.Hour

// HashPassword hashes a password (or device pairing code) using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 10)
	return string(bytes), err
}

// CheckPasswordHash compares a password with a hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// GenerateDeviceToken issues a bearer token for a scanner device
func GenerateDeviceToken(deviceID, name, secret string) (string, error) {
	if deviceID == "" {
		return "", errors.New("device id is required")
	}
	claims := jwt.MapClaims{
		"device_id": deviceID,
		"name":      name,
		"type":      "device",
		"iat":       time.Now().Unix(),
		"exp":       time.Now().Add(DeviceTokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken parses and validates a token
func ValidateToken(tokenString string, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// DeviceID extracts the device id claim
func DeviceID(claims jwt.MapClaims) string {
	id, _ := claims["device_id"].(string)
	return id
}
