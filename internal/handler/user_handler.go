package handler

import (
	"philo-chat-go/internal/middleware"
	"philo-chat-go/internal/service"
	"philo-chat-go/pkg/log"
	"philo-chat-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// UserHandler 负责处理账户与个人资料相关的 API 请求。
type UserHandler struct {
	sessionService service.SessionService
	jwtManager     *token.JWTManager
}

// NewUserHandler 创建一个新的 UserHandler 实例。
func NewUserHandler(sessionService service.SessionService, jwtManager *token.JWTManager) *UserHandler {
	return &UserHandler{sessionService: sessionService, jwtManager: jwtManager}
}

// CredentialsRequest 定义了注册与登录 API 的请求体结构。
type CredentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Signup 处理用户注册请求。
func (h *UserHandler) Signup(c *gin.Context) {
	var req CredentialsRequest
	// 绑定并验证 JSON 请求体
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, "Signup", err)
		return
	}

	// 调用 service 层执行注册逻辑
	if err := h.sessionService.Signup(c.Request.Context(), middleware.SessionID(c), req.Username, req.Password); err != nil {
		respondError(c, "Signup", err)
		return
	}

	log.Infof("User '%s' signed up successfully", req.Username)
	respondOK(c, "User registered successfully", nil)
}

// Login 处理用户登录请求，成功时返回携带新会话 ID 的 token。
func (h *UserHandler) Login(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, "Login", err)
		return
	}

	sessionID, err := h.sessionService.Login(c.Request.Context(), middleware.SessionID(c), req.Username, req.Password)
	if err != nil {
		respondError(c, "Login", err)
		return
	}
	tokenString, err := h.jwtManager.GenerateToken(sessionID, req.Username)
	if err != nil {
		respondError(c, "Login", err)
		return
	}

	log.Infof("User '%s' logged in successfully", req.Username)
	respondOK(c, "Login successful", gin.H{"token": tokenString})
}

// Logout 结束当前会话。
func (h *UserHandler) Logout(c *gin.Context) {
	if err := h.sessionService.Logout(c.Request.Context(), middleware.SessionID(c)); err != nil {
		respondError(c, "Logout", err)
		return
	}
	respondOK(c, "Logout successful", nil)
}

// DeleteAccount 删除当前用户及其全部数据。
func (h *UserHandler) DeleteAccount(c *gin.Context) {
	if err := h.sessionService.DeleteAccount(c.Request.Context(), middleware.SessionID(c)); err != nil {
		respondError(c, "DeleteAccount", err)
		return
	}
	respondOK(c, "Account deleted", nil)
}

// GetProfile 获取当前登录用户的个人信息。
func (h *UserHandler) GetProfile(c *gin.Context) {
	profile, err := h.sessionService.Profile(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		respondError(c, "GetProfile", err)
		return
	}
	respondOK(c, "success", profile)
}

// SetNameRequest 定义了修改昵称 API 的请求体结构。
type SetNameRequest struct {
	Name string `json:"name"`
}

// SetName 修改当前用户的昵称。
func (h *UserHandler) SetName(c *gin.Context) {
	var req SetNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, "SetName", err)
		return
	}
	if err := h.sessionService.SetName(c.Request.Context(), middleware.SessionID(c), req.Name); err != nil {
		respondError(c, "SetName", err)
		return
	}
	respondOK(c, "Name updated", nil)
}

// SetAgeRequest 定义了修改年龄 API 的请求体结构。
type SetAgeRequest struct {
	Age *int `json:"age" binding:"required"`
}

// SetAge 修改当前用户的年龄。
func (h *UserHandler) SetAge(c *gin.Context) {
	var req SetAgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, "SetAge", err)
		return
	}
	if err := h.sessionService.SetAge(c.Request.Context(), middleware.SessionID(c), *req.Age); err != nil {
		respondError(c, "SetAge", err)
		return
	}
	respondOK(c, "Age updated", nil)
}

// SetProfilePicture 处理 multipart 头像上传（字段名 file）。
func (h *UserHandler) SetProfilePicture(c *gin.Context) {
	var (
		filename    string
		size        int64
		contentType string
	)
	fileHeader, err := c.FormFile("file")
	if err == nil {
		filename = fileHeader.Filename
		size = fileHeader.Size
		contentType = fileHeader.Header.Get("Content-Type")
	}

	// 缺少文件时仍交给 service，由它先判断登录状态
	var url string
	if fileHeader == nil {
		url, err = h.sessionService.SetProfilePicture(c.Request.Context(), middleware.SessionID(c), "", nil, 0, "")
	} else {
		file, openErr := fileHeader.Open()
		if openErr != nil {
			respondError(c, "SetProfilePicture", openErr)
			return
		}
		defer file.Close()
		url, err = h.sessionService.SetProfilePicture(c.Request.Context(), middleware.SessionID(c), filename, file, size, contentType)
	}
	if err != nil {
		respondError(c, "SetProfilePicture", err)
		return
	}
	respondOK(c, "Profile picture updated", gin.H{"url": url})
}
