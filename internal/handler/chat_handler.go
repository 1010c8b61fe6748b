package handler

import (
	"encoding/json"
	"net/http"
	"philo-chat-go/internal/middleware"
	"philo-chat-go/internal/model"
	"philo-chat-go/internal/service"
	"philo-chat-go/pkg/errs"
	"philo-chat-go/pkg/log"
	"philo-chat-go/pkg/token"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var (
	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // 允许所有来源
		},
	}
)

// ChatHandler 负责对话管理与补全请求，包括 WebSocket 流式补全。
type ChatHandler struct {
	sessionService service.SessionService
	jwtManager     *token.JWTManager
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(sessionService service.SessionService, jwtManager *token.JWTManager) *ChatHandler {
	return &ChatHandler{sessionService: sessionService, jwtManager: jwtManager}
}

// NewChatRequest 定义了创建对话 API 的请求体结构。
type NewChatRequest struct {
	Name          string `json:"name"`
	PhilosopherID int    `json:"philosopherId" binding:"required"`
}

// NewChat 创建一个新对话。
func (h *ChatHandler) NewChat(c *gin.Context) {
	var req NewChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, "NewChat", err)
		return
	}
	if err := h.sessionService.NewChat(c.Request.Context(), middleware.SessionID(c), req.Name, req.PhilosopherID); err != nil {
		respondError(c, "NewChat", err)
		return
	}
	respondOK(c, "Chat created", nil)
}

// ListChats 按创建顺序列出当前用户的对话。
func (h *ChatHandler) ListChats(c *gin.Context) {
	chats, err := h.sessionService.ListChats(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		respondError(c, "ListChats", err)
		return
	}
	respondOK(c, "success", chats)
}

// SelectChatRequest 定义了选中对话 API 的请求体结构。
type SelectChatRequest struct {
	Name string `json:"name"`
}

// SelectChat 选中一个对话并返回其历史。
func (h *ChatHandler) SelectChat(c *gin.Context) {
	var req SelectChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, "SelectChat", err)
		return
	}
	history, err := h.sessionService.SelectChat(c.Request.Context(), middleware.SessionID(c), req.Name)
	if err != nil {
		respondError(c, "SelectChat", err)
		return
	}
	respondOK(c, "success", history)
}

// ExitChat 取消选中当前对话。
func (h *ChatHandler) ExitChat(c *gin.Context) {
	if err := h.sessionService.ExitChat(c.Request.Context(), middleware.SessionID(c)); err != nil {
		respondError(c, "ExitChat", err)
		return
	}
	respondOK(c, "Chat exited", nil)
}

// DeleteChat 删除指定名称的对话。
func (h *ChatHandler) DeleteChat(c *gin.Context) {
	if err := h.sessionService.DeleteChat(c.Request.Context(), middleware.SessionID(c), c.Param("name")); err != nil {
		respondError(c, "DeleteChat", err)
		return
	}
	respondOK(c, "Chat deleted", nil)
}

// ChatHistory 返回指定对话的可见历史。
func (h *ChatHandler) ChatHistory(c *gin.Context) {
	history, err := h.sessionService.ChatHistory(c.Request.Context(), middleware.SessionID(c), c.Param("name"))
	if err != nil {
		respondError(c, "ChatHistory", err)
		return
	}
	respondOK(c, "success", history)
}

// CompleteRequest 定义了补全 API 的请求体结构。
type CompleteRequest struct {
	InputText string `json:"inputText"`
}

// Complete 在选中的对话上执行一轮补全。
func (h *ChatHandler) Complete(c *gin.Context) {
	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, "Complete", err)
		return
	}
	assistant, user, err := h.sessionService.CompleteChat(c.Request.Context(), middleware.SessionID(c), req.InputText)
	if err != nil {
		respondError(c, "Complete", err)
		return
	}
	respondOK(c, "success", gin.H{"assistant": assistant, "user": user})
}

// Stream 处理一个传入的 WebSocket 连接，每条文本帧是一轮补全。
func (h *ChatHandler) Stream(c *gin.Context) {
	sessionID := middleware.SessionIDFromToken(h.jwtManager, c.Param("token"))
	profile, err := h.sessionService.Profile(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, "Stream", err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("WebSocket 连接已建立，用户: %s", profile.Username)

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			log.Warnf("从 WebSocket 读取消息失败: %v", err)
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}

		interceptor := &wsWriterInterceptor{conn: conn}
		assistant, user, err := h.sessionService.StreamChat(c.Request.Context(), sessionID, string(message), interceptor)
		if err != nil {
			kind := errs.KindOf(err)
			log.Warnf("处理流式响应失败: %v", err)
			if writeErr := sendError(conn, kind, err); writeErr != nil {
				break
			}
			// 会话失效后不再继续
			if kind == errs.KindPermissionDenied {
				break
			}
			continue
		}
		if err := sendCompletion(conn, assistant, user); err != nil {
			log.Warnf("发送完成通知失败: %v", err)
			break
		}
	}
}

// wsWriterInterceptor 把模型输出的原始分块包装成 {"chunk":"..."} 发送。
type wsWriterInterceptor struct {
	conn *websocket.Conn
}

// WriteMessage 满足 llm.MessageWriter 接口。
func (w *wsWriterInterceptor) WriteMessage(messageType int, data []byte) error {
	payload := map[string]string{"chunk": string(data)}
	b, _ := json.Marshal(payload)
	return w.conn.WriteMessage(messageType, b)
}

// sendCompletion 发送完成通知 JSON
func sendCompletion(conn *websocket.Conn, assistant, user model.Message) error {
	b, _ := json.Marshal(map[string]interface{}{
		"type":      "completion",
		"assistant": assistant,
		"user":      user,
	})
	return conn.WriteMessage(websocket.TextMessage, b)
}

// sendError 发送错误通知 JSON；非业务错误只返回通用描述。
func sendError(conn *websocket.Conn, kind errs.Kind, err error) error {
	message := err.Error()
	if kind == errs.KindUnknown {
		message = "服务器内部错误"
	}
	b, _ := json.Marshal(map[string]interface{}{
		"type":    "error",
		"kind":    kind.String(),
		"message": strings.TrimSpace(message),
	})
	return conn.WriteMessage(websocket.TextMessage, b)
}
