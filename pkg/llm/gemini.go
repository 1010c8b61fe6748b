package llm

import (
	"context"
	"errors"
	"fmt"
	"philo-chat-go/internal/config"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/gorilla/websocket"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash"

type geminiClient struct {
	client    *genai.Client
	modelName string
}

// NewGeminiClient 创建一个 Gemini 客户端。
func NewGeminiClient(ctx context.Context, cfg config.LLMConfig) (Client, error) {
	cl, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultGeminiModel
	}
	return &geminiClient{client: cl, modelName: modelName}, nil
}

// startChat 把除最后一条外的消息放进会话历史，返回会话和最后一条消息的文本。
func (g *geminiClient) startChat(messages []Message, gen *GenerationParams) (*genai.ChatSession, string, error) {
	if len(messages) == 0 {
		return nil, "", errors.New("no messages to send")
	}
	m := g.client.GenerativeModel(g.modelName)
	if gen != nil {
		if gen.Temperature != nil {
			m.SetTemperature(float32(*gen.Temperature))
		}
		if gen.TopP != nil {
			m.SetTopP(float32(*gen.TopP))
		}
		if gen.MaxTokens != nil {
			m.SetMaxOutputTokens(int32(*gen.MaxTokens))
		}
	}

	cs := m.StartChat()
	for _, msg := range messages[:len(messages)-1] {
		cs.History = append(cs.History, &genai.Content{
			Role:  geminiRole(msg.Role),
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}
	return cs, messages[len(messages)-1].Content, nil
}

func (g *geminiClient) Complete(ctx context.Context, messages []Message, gen *GenerationParams) (string, error) {
	cs, last, err := g.startChat(messages, gen)
	if err != nil {
		return "", err
	}
	resp, err := cs.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	answer := strings.TrimSpace(responseText(resp))
	if answer == "" {
		return "", ErrEmptyResponse
	}
	return answer, nil
}

func (g *geminiClient) Stream(ctx context.Context, messages []Message, gen *GenerationParams, writer MessageWriter) (string, error) {
	cs, last, err := g.startChat(messages, gen)
	if err != nil {
		return "", err
	}

	var full strings.Builder
	iter := cs.SendMessageStream(ctx, genai.Text(last))
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("gemini stream: %w", err)
		}
		text := responseText(resp)
		if text == "" {
			continue
		}
		full.WriteString(text)
		if err := writer.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
			return "", fmt.Errorf("failed to write stream chunk: %w", err)
		}
	}

	answer := strings.TrimSpace(full.String())
	if answer == "" {
		return "", ErrEmptyResponse
	}
	return answer, nil
}

// Close 释放底层 gRPC 连接。
func (g *geminiClient) Close() error {
	return g.client.Close()
}

func geminiRole(role string) string {
	if role == "assistant" {
		return "model"
	}
	return "user"
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}
