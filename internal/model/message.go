// Package model 包含了应用的领域实体与持久化模型定义。
package model

import "time"

// Role 表示消息在对话中的角色。
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message 代表对话中的一轮发言，创建后不再修改。
type Message struct {
	Role      Role      `json:"role"`
	Author    string    `json:"author"` // 展示名：用户名或哲学家名
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage 以当前时间创建一条消息。
func NewMessage(role Role, author, content string) Message {
	return Message{
		Role:      role,
		Author:    author,
		Content:   content,
		Timestamp: time.Now(),
	}
}
