// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"
	"philo-chat-go/pkg/errs"
	"philo-chat-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// statusFor 把业务错误类别映射为 HTTP 状态码。
func statusFor(kind errs.Kind) int {
	switch kind {
	case errs.KindBadRequest:
		return http.StatusBadRequest
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindPermissionDenied:
		return http.StatusUnauthorized
	case errs.KindLLM:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondOK 以统一的 JSON 信封返回成功结果。
func respondOK(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": message,
		"data":    data,
	})
}

// respondError 按错误类别返回对应状态码；非业务错误不向客户端暴露细节。
func respondError(c *gin.Context, op string, err error) {
	kind := errs.KindOf(err)
	status := statusFor(kind)
	message := err.Error()
	if kind == errs.KindUnknown {
		log.Errorf("%s: 内部错误: %v", op, err)
		message = "服务器内部错误"
	} else {
		log.Warnf("%s: %s, error: %v", op, kind, err)
	}
	c.JSON(status, gin.H{
		"code":    status,
		"message": message,
		"data":    nil,
	})
}

// respondInvalid 处理请求体无法绑定的情况。
func respondInvalid(c *gin.Context, op string, err error) {
	log.Warnf("%s: Invalid request payload, error: %v", op, err)
	c.JSON(http.StatusBadRequest, gin.H{
		"code":    http.StatusBadRequest,
		"message": "无效的请求负载",
		"data":    nil,
	})
}

// Health 是存活探针。
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "ok", "data": nil})
}
