package service

import (
	"context"
	"philo-chat-go/internal/model"
	"philo-chat-go/pkg/llm"
)

// llmProvider 把 llm.Client 适配为 model.CompletionProvider。
// writer 非 nil 时使用流式接口，分块随生成写出。
type llmProvider struct {
	client llm.Client
	gen    *llm.GenerationParams
	writer llm.MessageWriter
}

func (p *llmProvider) Complete(ctx context.Context, messages []model.Message) (string, error) {
	llmMsgs := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		llmMsgs = append(llmMsgs, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	if p.writer != nil {
		return p.client.Stream(ctx, llmMsgs, p.gen, p.writer)
	}
	return p.client.Complete(ctx, llmMsgs, p.gen)
}
