// Package pipeline 定义了对话消息索引的处理流程。
package pipeline

import (
	"context"
	"fmt"
	"philo-chat-go/internal/model"
	"philo-chat-go/pkg/log"
	"philo-chat-go/pkg/tasks"
	"strings"
)

// MessageIndexer 维护消息搜索索引。
type MessageIndexer interface {
	IndexMessage(ctx context.Context, doc model.MessageDocument) error
	DeleteByChat(ctx context.Context, username, chatName string) error
	DeleteByUser(ctx context.Context, username string) error
}

// Processor 消费对话事件并把它们应用到索引。
type Processor struct {
	indexer MessageIndexer
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(indexer MessageIndexer) *Processor {
	return &Processor{indexer: indexer}
}

// Process 按任务类型写入或删除索引中的消息。
func (p *Processor) Process(ctx context.Context, task tasks.ChatIndexTask) error {
	switch task.Action {
	case tasks.ActionIndex:
		return p.index(ctx, task)
	case tasks.ActionDeleteChat:
		log.Infof("[Processor] 删除对话索引, chat: %s", task.Key())
		if err := p.indexer.DeleteByChat(ctx, task.Username, task.ChatName); err != nil {
			return fmt.Errorf("delete chat %s: %w", task.Key(), err)
		}
		return nil
	case tasks.ActionDeleteUser:
		log.Infof("[Processor] 删除用户索引, user: %s", task.Username)
		if err := p.indexer.DeleteByUser(ctx, task.Username); err != nil {
			return fmt.Errorf("delete user %s: %w", task.Username, err)
		}
		return nil
	default:
		// 未知类型无法重试成功，直接丢弃
		log.Warnf("[Processor] 未知的任务类型 %q, chat: %s", task.Action, task.Key())
		return nil
	}
}

// index 写入消息。消息按任务中的顺序写入，遇到第一个失败即返回。
func (p *Processor) index(ctx context.Context, task tasks.ChatIndexTask) error {
	log.Infof("[Processor] 开始索引对话消息, user: %s, chat: %s, 消息数: %d", task.Username, task.ChatName, len(task.Messages))

	for i, m := range task.Messages {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		doc := model.MessageDocument{
			MessageID:   m.ID,
			Username:    task.Username,
			ChatName:    task.ChatName,
			Philosopher: task.Philosopher,
			Role:        m.Role,
			Author:      m.Author,
			Content:     m.Content,
			Timestamp:   m.Timestamp,
		}
		if err := p.indexer.IndexMessage(ctx, doc); err != nil {
			log.Errorf("[Processor] 索引第 %d 条消息失败: %v", i, err)
			return fmt.Errorf("index message %s: %w", m.ID, err)
		}
	}

	log.Infof("[Processor] 对话消息索引完成, chat: %s", task.Key())
	return nil
}
