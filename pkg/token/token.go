package token

import (
	"fmt"
	"strconv"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/hertz-contrib/jwt"

	"FieldForce/pkg/errors"
)

const (
	IdentityKey = "uid"
)

// Options JWT 签发参数，来自 config
type Options struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	TimeFunc   func() time.Time
}

var (
	// 这个实例会被 middleware 和 token 包共同使用
	sharedGenerator *jwt.HertzJWTMiddleware
	opts            Options
)

func Init(o Options) error {
	if o.TimeFunc == nil {
		o.TimeFunc = time.Now
	}

	generator, err := jwt.New(&jwt.HertzJWTMiddleware{
		Key:         []byte(o.Secret),
		Timeout:     o.AccessTTL,
		MaxRefresh:  o.RefreshTTL,
		IdentityKey: IdentityKey,
		TimeFunc:    o.TimeFunc,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize token generator: %w", err)
	}

	sharedGenerator = generator
	opts = o
	return nil
}

// GetGenerator 获取共享的 token 生成器（供 middleware 使用）
func GetGenerator() *jwt.HertzJWTMiddleware {
	return sharedGenerator
}

// GenerateTokenPair 为员工生成 access token 和 refresh token
func GenerateTokenPair(employeeID int64) (accessToken, refreshToken string, expiresIn int, err error) {
	if sharedGenerator == nil {
		return "", "", 0, errors.ErrTokenGeneratorNotInitialized
	}

	uid := strconv.FormatInt(employeeID, 10)
	now := opts.TimeFunc()
	expiresAt := now.Add(opts.AccessTTL)

	// orig_iat 供中间件刷新 token 时使用
	accessClaims := jwtv5.MapClaims{
		IdentityKey: uid,
		"iat":       now.Unix(),
		"orig_iat":  now.Unix(),
		"exp":       expiresAt.Unix(),
	}

	accessToken, err = jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, accessClaims).SignedString([]byte(opts.Secret))
	if err != nil {
		return "", "", 0, fmt.Errorf("failed to generate access token: %w", err)
	}

	expiresIn = int(expiresAt.Sub(now).Seconds())
	if expiresIn < 0 {
		expiresIn = 0
	}

	refreshClaims := jwtv5.MapClaims{
		IdentityKey: uid,
		"iat":       now.Unix(),
		"type":      "refresh",
		"exp":       now.Add(opts.RefreshTTL).Unix(),
	}

	refreshToken, err = jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, refreshClaims).SignedString([]byte(opts.Secret))
	if err != nil {
		return "", "", 0, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return accessToken, refreshToken, expiresIn, nil
}

// ValidateRefreshToken 验证 refresh token 并返回员工 ID
func ValidateRefreshToken(tokenString string) (int64, error) {
	if sharedGenerator == nil {
		return 0, errors.ErrTokenGeneratorNotInitialized
	}

	token, err := jwtv5.ParseWithClaims(tokenString, jwtv5.MapClaims{}, func(token *jwtv5.Token) (interface{}, error) {
		if token.Method != jwtv5.SigningMethodHS256 {
			return nil, fmt.Errorf("%w: %v, expected HS256", errors.ErrUnexpectedSigningMethod, token.Header["alg"])
		}
		return []byte(opts.Secret), nil
	}, jwtv5.WithTimeFunc(opts.TimeFunc))
	if err != nil {
		return 0, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return 0, errors.ErrInvalidToken
	}

	claims, ok := token.Claims.(jwtv5.MapClaims)
	if !ok {
		return 0, errors.ErrInvalidTokenClaims
	}

	tokenType, ok := claims["type"].(string)
	if !ok || tokenType != "refresh" {
		return 0, errors.ErrInvalidTokenType
	}

	return ParseEmployeeID(claims[IdentityKey])
}

// ParseEmployeeID 兼容字符串与数字两种 uid 声明
func ParseEmployeeID(raw interface{}) (int64, error) {
	switch v := raw.(type) {
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return 0, errors.ErrEmployeeIDNotFound
		}
		return id, nil
	case float64:
		if v <= 0 {
			return 0, errors.ErrEmployeeIDNotFound
		}
		return int64(v), nil
	default:
		return 0, errors.ErrEmployeeIDNotFound
	}
}
