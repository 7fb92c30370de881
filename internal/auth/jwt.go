// Package auth 身份令牌
//
// 玩家不需要注册：首次进入时签发一个访客令牌，携带稳定的用户ID与昵称。
// 网关只信任令牌中的用户ID，说书人身份由房间文档推导。
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token has expired")
)

const (
	issuer         = "grimoire"
	maxDisplayName = 32
)

// Claims JWT 声明
type Claims struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	jwt.RegisteredClaims
}

// Token 签发结果
type Token struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	ExpiresAt   int64  `json:"expires_at"`
}

// Service JWT 服务
type Service struct {
	secretKey    []byte
	accessExpire time.Duration
}

// NewService 创建 JWT 服务
func NewService(secretKey string, accessExpire time.Duration) *Service {
	if accessExpire <= 0 {
		accessExpire = 24 * time.Hour
	}
	return &Service{
		secretKey:    []byte(secretKey),
		accessExpire: accessExpire,
	}
}

// IssueGuest 为新访客生成用户ID并签发令牌
func (s *Service) IssueGuest(displayName string) (*Token, error) {
	return s.Issue(uuid.NewString(), displayName)
}

// Issue 为已有用户ID签发令牌（昵称可更新）
func (s *Service) Issue(userID, displayName string) (*Token, error) {
	if userID == "" {
		return nil, ErrTokenInvalid
	}
	name := NormalizeDisplayName(displayName)
	now := time.Now()
	expiresAt := now.Add(s.accessExpire)

	claims := &Claims{
		UserID:      userID,
		DisplayName: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secretKey)
	if err != nil {
		return nil, err
	}
	return &Token{
		AccessToken: signed,
		UserID:      userID,
		DisplayName: name,
		ExpiresAt:   expiresAt.Unix(),
	}, nil
}

// Validate 验证令牌
func (s *Service) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return s.secretKey, nil
	}, jwt.WithIssuer(issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// NormalizeDisplayName 去掉首尾空白并截断，空昵称使用默认值
func NormalizeDisplayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Guest"
	}
	if r := []rune(name); len(r) > maxDisplayName {
		name = string(r[:maxDisplayName])
	}
	return name
}
