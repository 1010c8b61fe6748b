package model

import (
	"context"
	"philo-chat-go/pkg/errs"
	"strings"
	"sync"
	"time"
)

// User 是一个账户，按名称持有若干 Chat，并至多选中其中一个。
//
// selected 若非 nil，一定指向 chats 中现存的对话。
// 所有方法都持有 mu，同一用户的操作（包括一次补全调用）因此串行执行。
type User struct {
	mu sync.Mutex

	username       string
	passwordHash   string
	name           string
	age            int
	profilePicture string
	createdAt      time.Time

	chats    map[string]*Chat
	order    []string // 对话的创建顺序
	selected *Chat
}

// NewUser 创建一个资料为空的用户。
func NewUser(username, passwordHash string) *User {
	return &User{
		username:     username,
		passwordHash: passwordHash,
		createdAt:    time.Now(),
		chats:        make(map[string]*Chat),
	}
}

func (u *User) Username() string { return u.username }

func (u *User) PasswordHash() string { return u.passwordHash }

// Profile 返回用户资料快照。
func (u *User) Profile() Profile {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.profileLocked()
}

func (u *User) profileLocked() Profile {
	return Profile{
		Username:       u.username,
		Name:           u.name,
		Age:            u.age,
		ProfilePicture: u.profilePicture,
	}
}

func (u *User) SetName(name string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.name = name
}

func (u *User) SetAge(age int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.age = age
}

// SetProfilePicture 记录头像在对象存储中的名称。
func (u *User) SetProfilePicture(objectName string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.profilePicture = objectName
}

// NewChat 创建一个绑定到指定哲学家的空对话。名称区分大小写。
func (u *User) NewChat(name string, philosopher *Philosopher) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if strings.TrimSpace(name) == "" {
		return errs.BadRequest("chat name cannot be empty")
	}
	if _, ok := u.chats[name]; ok {
		return errs.BadRequest("chat %q already exists", name)
	}
	u.chats[name] = NewChat(name, philosopher)
	u.order = append(u.order, name)
	return nil
}

// SelectChat 选中对话并返回其历史消息。
func (u *User) SelectChat(name string) ([]Message, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	chat, ok := u.chats[name]
	if !ok {
		return nil, errs.NotFound("chat %q not found", name)
	}
	u.selected = chat
	return chat.History(), nil
}

// SelectedChat 返回当前选中对话的名称，未选中时为空串。
func (u *User) SelectedChat() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.selected == nil {
		return ""
	}
	return u.selected.Name()
}

// ListChats 按创建顺序返回所有对话摘要。
func (u *User) ListChats() ([]ChatSummary, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if len(u.chats) == 0 {
		return nil, errs.NotFound("no chats found")
	}
	out := make([]ChatSummary, 0, len(u.order))
	for _, name := range u.order {
		out = append(out, u.chats[name].Summary())
	}
	return out, nil
}

// ExitChat 取消当前选中。
func (u *User) ExitChat() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.selected == nil {
		return errs.BadRequest("no chat selected")
	}
	u.selected = nil
	return nil
}

// DeleteChat 删除对话；若它正被选中，先清除选中状态。
func (u *User) DeleteChat(name string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	chat, ok := u.chats[name]
	if !ok {
		return errs.NotFound("chat %q not found", name)
	}
	if u.selected == chat {
		u.selected = nil
	}
	delete(u.chats, name)
	for i, n := range u.order {
		if n == name {
			u.order = append(u.order[:i], u.order[i+1:]...)
			break
		}
	}
	return nil
}

// HasChat 判断用户是否仍拥有该对话。
func (u *User) HasChat(name string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.chats[name]
	return ok
}

// ChatHistory 返回指定对话的历史消息。
func (u *User) ChatHistory(name string) ([]Message, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	chat, ok := u.chats[name]
	if !ok {
		return nil, errs.NotFound("chat %q not found", name)
	}
	return chat.History(), nil
}

// CompleteChat 在当前选中的对话上执行一轮补全。
// 返回 (助手消息, 用户消息, 对话名)。
func (u *User) CompleteChat(ctx context.Context, inputText string, renderer PromptRenderer, provider CompletionProvider) (Message, Message, string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.selected == nil {
		return Message{}, Message{}, "", errs.BadRequest("no chat selected")
	}
	chat := u.selected
	assistantMsg, userMsg, err := chat.CompleteChat(ctx, inputText, u.profileLocked(), renderer, provider)
	if err != nil {
		return Message{}, Message{}, "", err
	}
	return assistantMsg, userMsg, chat.Name(), nil
}
