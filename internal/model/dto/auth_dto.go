package dto

// ========== Auth 相关 DTO ==========

// RefreshTokenRequest 刷新 token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenPairData 签发结果，ExpiresIn 为 access token 剩余秒数
type TokenPairData struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

func NewTokenPairData(access, refresh string, expiresIn int) TokenPairData {
	return TokenPairData{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn,
	}
}
