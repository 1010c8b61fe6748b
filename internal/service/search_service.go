package service

import (
	"context"
	"fmt"
	"philo-chat-go/internal/model"
	"philo-chat-go/pkg/errs"
	"philo-chat-go/pkg/log"
	"strings"
)

const (
	defaultSearchSize = 10
	maxSearchSize     = 50
)

// MessageSearcher 在消息索引中做全文检索。
type MessageSearcher interface {
	SearchMessages(ctx context.Context, username, query string, size int) ([]model.SearchResult, error)
}

// SearchService 接口定义了历史消息搜索操作。
type SearchService interface {
	SearchHistory(ctx context.Context, sessionID, query string, size int) ([]model.SearchResult, error)
}

type searchService struct {
	searcher       MessageSearcher
	sessionService SessionService
}

// NewSearchService 创建一个新的 SearchService 实例。
func NewSearchService(searcher MessageSearcher, sessionService SessionService) SearchService {
	return &searchService{searcher: searcher, sessionService: sessionService}
}

// SearchHistory 只在当前登录用户自己的消息中搜索。
func (s *searchService) SearchHistory(ctx context.Context, sessionID, query string, size int) ([]model.SearchResult, error) {
	// 1. 确认登录状态
	profile, err := s.sessionService.Profile(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// 2. 规范化参数
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errs.BadRequest("query cannot be empty")
	}
	if size <= 0 {
		size = defaultSearchSize
	}
	if size > maxSearchSize {
		size = maxSearchSize
	}

	// 3. 检索
	log.Infof("[SearchService] 开始搜索历史消息, user: %s, query: '%s', size: %d", profile.Username, query, size)
	results, err := s.searcher.SearchMessages(ctx, profile.Username, query, size)
	if err != nil {
		log.Errorf("[SearchService] 搜索失败: %v", err)
		return nil, fmt.Errorf("search history: %w", err)
	}
	log.Infof("[SearchService] 搜索完成, 命中 %d 条", len(results))
	return results, nil
}
