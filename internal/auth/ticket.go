package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TicketService 签发并校验 WebSocket 连接票据。
// 票据是短时效的 RS256 JWT，由已登录的会话换取，
// 避免把不透明会话令牌暴露给 WebSocket 握手。
type TicketService struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	ttl        time.Duration
}

// TicketClaims 携带持票人信息。
type TicketClaims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// NewTicketService 解析 PEM 密钥并构造服务实例。
func NewTicketService(privateKeyPEM, publicKeyPEM []byte, ttl time.Duration) (*TicketService, error) {
	if len(privateKeyPEM) == 0 {
		return nil, errors.New("private key pem is required")
	}
	if len(publicKeyPEM) == 0 {
		return nil, errors.New("public key pem is required")
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse rsa private key: %w", err)
	}
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse rsa public key: %w", err)
	}

	return &TicketService{
		privateKey: privateKey,
		publicKey:  publicKey,
		ttl:        ttl,
	}, nil
}

// IssueTicket 为用户签发一张新票据。
func (s *TicketService) IssueTicket(userID uint) (string, error) {
	now := time.Now()
	claims := TicketClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign ticket: %w", err)
	}
	return signed, nil
}

// ValidateTicket 解析并验证票据。
func (s *TicketService) ValidateTicket(tokenString string) (*TicketClaims, error) {
	if tokenString == "" {
		return nil, errors.New("ticket is empty")
	}

	token, err := jwt.ParseWithClaims(tokenString, &TicketClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodRS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return s.publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse ticket: %w", err)
	}

	claims, ok := token.Claims.(*TicketClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid ticket claims")
	}
	return claims, nil
}

// TTL 暴露票据有效期。
func (s *TicketService) TTL() time.Duration { return s.ttl }
