package handler

import (
	"philo-chat-go/internal/service"

	"github.com/gin-gonic/gin"
)

// PhilosopherHandler 暴露只读的哲学家目录。
type PhilosopherHandler struct {
	sessionService service.SessionService
}

// NewPhilosopherHandler 创建一个新的 PhilosopherHandler 实例。
func NewPhilosopherHandler(sessionService service.SessionService) *PhilosopherHandler {
	return &PhilosopherHandler{sessionService: sessionService}
}

// List 按 ID 升序返回全部哲学家。
func (h *PhilosopherHandler) List(c *gin.Context) {
	philosophers, err := h.sessionService.ListPhilosophers(c.Request.Context())
	if err != nil {
		respondError(c, "ListPhilosophers", err)
		return
	}
	respondOK(c, "success", philosophers)
}
