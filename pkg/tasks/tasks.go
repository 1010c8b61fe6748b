// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

import "time"

// Action 表示索引任务的类型。
type Action string

const (
	// ActionIndex 写入一轮已提交的对话消息（零值）。
	ActionIndex Action = ""
	// ActionDeleteChat 删除某个对话的全部已索引消息。
	ActionDeleteChat Action = "delete_chat"
	// ActionDeleteUser 删除某个用户的全部已索引消息。
	ActionDeleteUser Action = "delete_user"
)

// ChatIndexTask 描述一次索引变更，由消费者应用到搜索索引。
type ChatIndexTask struct {
	Action      Action         `json:"action,omitempty"`
	Username    string         `json:"username"`
	ChatName    string         `json:"chat_name"`
	Philosopher string         `json:"philosopher"`
	Messages    []IndexMessage `json:"messages"`
}

// IndexMessage 是待索引的一条消息。
type IndexMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Key 返回任务所属的对话，用于日志。
func (t ChatIndexTask) Key() string {
	return t.Username + "/" + t.ChatName
}

// PartitionKey 返回 Kafka 分区键。同一用户的任务落在同一分区，删除不会越过之前的写入。
func (t ChatIndexTask) PartitionKey() string {
	return t.Username
}
