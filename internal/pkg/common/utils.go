package common

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// NewErrorBody 產生統一格式的錯誤回應
func NewErrorBody(err error) ErrorResponse {
	resp := ErrorResponse{
		Code:    ErrorCode(err),
		Message: err.Error(),
	}
	var ce *CustomError
	if errors.As(err, &ce) {
		resp.Message = ce.Message
		if ce.Err != nil {
			resp.Details = ce.Err.Error()
		}
	}
	return resp
}

// MaskSecret 遮罩金鑰，只顯示前後各 4 個字符
func MaskSecret(key string) string {
	key = strings.TrimSpace(key)
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
