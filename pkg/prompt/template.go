// Package prompt 负责加载引导消息模板并渲染。
package prompt

import (
	"bytes"
	"fmt"
	"os"
	"philo-chat-go/internal/model"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// DefaultTemplate 在未配置模板文件时使用。
const DefaultTemplate = `You are {{.PhilosopherName}}. Stay in character and answer as {{.PhilosopherName}} would, drawing on your own works and ideas.
{{- if .UserName}}
You are talking with {{.UserName}}{{if gt .UserAge 0}}, who is {{.UserAge}} years old{{end}}.
{{- end}}
Keep your answers conversational and concise.

The first question is: {{.InputText}}`

type templateFile struct {
	Prompt string `yaml:"prompt"`
}

// Renderer 用 text/template 渲染引导消息，实现 model.PromptRenderer。
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer 解析模板文本。
func NewRenderer(text string) (*Renderer, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("prompt template is empty")
	}
	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// LoadRenderer 从 YAML 文件的 prompt 键读取模板；path 为空时使用 DefaultTemplate。
func LoadRenderer(path string) (*Renderer, error) {
	if path == "" {
		return NewRenderer(DefaultTemplate)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt template %s: %w", path, err)
	}
	var f templateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode prompt template %s: %w", path, err)
	}
	return NewRenderer(f.Prompt)
}

// Render 实现 model.PromptRenderer。
func (r *Renderer) Render(vars model.PromptVars) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
