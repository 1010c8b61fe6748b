package model

import "time"

// MessageDocument 定义了存储在 Elasticsearch 中的消息文档结构。
type MessageDocument struct {
	MessageID   string    `json:"message_id"`
	Username    string    `json:"username"`
	ChatName    string    `json:"chat_name"`
	Philosopher string    `json:"philosopher"`
	Role        string    `json:"role"`
	Author      string    `json:"author"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
}

// SearchResult 定义了返回给前端的历史搜索结果。
type SearchResult struct {
	ChatName    string    `json:"chatName"`
	Philosopher string    `json:"philosopher"`
	Role        string    `json:"role"`
	Author      string    `json:"author"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
	Score       float64   `json:"score"`
}
