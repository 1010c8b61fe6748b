package handler

import (
	"philo-chat-go/internal/middleware"
	"philo-chat-go/internal/service"
	"philo-chat-go/pkg/log"
	"strconv"

	"github.com/gin-gonic/gin"
)

// SearchHandler 结构体定义了历史消息搜索的处理器。
type SearchHandler struct {
	searchService service.SearchService
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(searchService service.SearchService) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
	}
}

// SearchHistory 在当前用户的全部对话消息中全文搜索。
func (h *SearchHandler) SearchHistory(c *gin.Context) {
	query := c.Query("q")
	size, err := strconv.Atoi(c.DefaultQuery("size", "0"))
	if err != nil {
		size = 0
	}
	log.Infof("[SearchHandler] 收到搜索请求, query: %s, size: %d", query, size)

	results, err := h.searchService.SearchHistory(c.Request.Context(), middleware.SessionID(c), query, size)
	if err != nil {
		respondError(c, "SearchHistory", err)
		return
	}
	respondOK(c, "success", results)
}
