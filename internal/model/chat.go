package model

import (
	"context"
	"fmt"
	"philo-chat-go/pkg/errs"
	"strings"
	"time"
)

// Chat 是用户与某位哲学家之间的一段有序对话。
//
// messages 只追加不修改。若非空，messages[0] 总是由模板生成的引导消息，
// 它会随每次补全一并发送给模型，但不会出现在 History 中。
type Chat struct {
	name        string
	philosopher *Philosopher
	messages    []Message
	createdAt   time.Time
}

// ChatSummary 是对话列表中的一项。
type ChatSummary struct {
	Name         string      `json:"name"`
	Philosopher  Philosopher `json:"philosopher"`
	MessageCount int         `json:"messageCount"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// NewChat 创建一个空对话。
func NewChat(name string, philosopher *Philosopher) *Chat {
	return &Chat{
		name:        name,
		philosopher: philosopher,
		createdAt:   time.Now(),
	}
}

// RestoreChat 用已持久化的消息序列重建对话。
func RestoreChat(name string, philosopher *Philosopher, messages []Message, createdAt time.Time) *Chat {
	c := &Chat{
		name:        name,
		philosopher: philosopher,
		messages:    append([]Message(nil), messages...),
		createdAt:   createdAt,
	}
	if c.createdAt.IsZero() {
		c.createdAt = time.Now()
	}
	return c
}

func (c *Chat) Name() string { return c.name }

func (c *Chat) Philosopher() *Philosopher { return c.philosopher }

func (c *Chat) CreatedAt() time.Time { return c.createdAt }

// IsPrimed 表示引导消息是否已写入。
func (c *Chat) IsPrimed() bool { return len(c.messages) > 0 }

// Messages 返回包含引导消息在内的完整消息序列副本。
func (c *Chat) Messages() []Message {
	return append([]Message(nil), c.messages...)
}

// History 返回除引导消息外的全部消息。
func (c *Chat) History() []Message {
	if len(c.messages) <= 1 {
		return []Message{}
	}
	return append([]Message(nil), c.messages[1:]...)
}

// Summary 返回对话摘要。
func (c *Chat) Summary() ChatSummary {
	s := ChatSummary{
		Name:         c.name,
		MessageCount: len(c.History()),
		CreatedAt:    c.createdAt,
	}
	if c.philosopher != nil {
		s.Philosopher = *c.philosopher
	}
	return s
}

func (c *Chat) philosopherName() string {
	if c.philosopher == nil {
		return ""
	}
	return c.philosopher.Name
}

// CompleteChat 执行一轮对话，返回 (助手消息, 用户消息)。
//
// 本轮的引导消息（仅首轮）与用户消息先缓存在待提交序列中，
// 只有补全成功后才与助手消息一起追加到对话；失败时对话保持不变。
func (c *Chat) CompleteChat(ctx context.Context, inputText string, profile Profile, renderer PromptRenderer, provider CompletionProvider) (Message, Message, error) {
	// 1. 清理输入
	cleaned := strings.TrimSpace(inputText)
	if cleaned == "" {
		return Message{}, Message{}, errs.BadRequest("message cannot be empty")
	}

	pending := make([]Message, 0, len(c.messages)+3)
	pending = append(pending, c.messages...)

	// 2. 首轮：渲染引导消息，携带人设与用户资料
	if !c.IsPrimed() {
		prompt, err := renderer.Render(PromptVars{
			InputText:       cleaned,
			PhilosopherName: c.philosopherName(),
			UserName:        profile.Name,
			UserAge:         profile.Age,
		})
		if err != nil {
			return Message{}, Message{}, fmt.Errorf("render priming prompt: %w", err)
		}
		pending = append(pending, NewMessage(RoleUser, profile.Username, prompt))
	}

	// 3. 用户消息
	userMsg := NewMessage(RoleUser, profile.Username, cleaned)
	pending = append(pending, userMsg)

	// 4. 把完整序列交给补全服务
	response, err := provider.Complete(ctx, pending)
	if err != nil {
		if errs.Is(err, errs.KindLLM) {
			return Message{}, Message{}, err
		}
		return Message{}, Message{}, errs.LLM(err)
	}

	// 5. 提交本轮
	assistantMsg := NewMessage(RoleAssistant, c.philosopherName(), strings.TrimSpace(response))
	c.messages = append(pending, assistantMsg)

	return assistantMsg, userMsg, nil
}
