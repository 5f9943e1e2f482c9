// Package server 统一的响应格式
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// 错误码
const (
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeInvalidConfig = "INVALID_CONFIG"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeUnavailable   = "SERVICE_UNAVAILABLE"
	ErrCodeInternal      = "INTERNAL_SERVER_ERROR"
)

// ErrorResponse 错误响应
type ErrorResponse struct {
	Success   bool        `json:"success"`
	Error     ErrorDetail `json:"error"`
	Timestamp string      `json:"timestamp"`
	Path      string      `json:"path"`
	Method    string      `json:"method"`
}

// ErrorDetail 错误详情
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SuccessResponse 成功响应
type SuccessResponse struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
}

// respondWithError 发送错误响应
func respondWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      c.Request.URL.Path,
		Method:    c.Request.Method,
	})
}

// newSuccessResponse 构造成功响应
func newSuccessResponse(data any, message string) SuccessResponse {
	return SuccessResponse{
		Success:   true,
		Data:      data,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// respondWithSuccess 发送成功响应
func respondWithSuccess(c *gin.Context, status int, data any, message string) {
	c.JSON(status, newSuccessResponse(data, message))
}

// respondWithEncoded 先完整序列化再发送成功响应
// 序列化失败（例如数据中含NaN或±Inf）时返回500，不会写出半截响应
func respondWithEncoded(c *gin.Context, status int, data any, message string) {
	body, err := json.Marshal(newSuccessResponse(data, message))
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, ErrCodeInternal, "响应序列化失败: "+err.Error())
		return
	}
	c.Data(status, "application/json; charset=utf-8", body)
}
