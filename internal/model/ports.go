package model

import "context"

// CompletionProvider 根据按时间排序的消息序列返回下一条助手回复。
// 任何传输、鉴权、限流或响应格式错误都应返回 error，由调用方包装为 LLM 错误。
type CompletionProvider interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// PromptVars 是渲染首条引导消息时可用的变量。
type PromptVars struct {
	InputText       string
	PhilosopherName string
	UserName        string
	UserAge         int
}

// PromptRenderer 将模板与变量渲染为引导消息文本。
type PromptRenderer interface {
	Render(vars PromptVars) (string, error)
}

// Profile 是用户的资料快照。
type Profile struct {
	Username       string `json:"username"`
	Name           string `json:"name"`
	Age            int    `json:"age"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}
