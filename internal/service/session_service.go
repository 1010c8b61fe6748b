// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"philo-chat-go/internal/model"
	"philo-chat-go/internal/repository"
	"philo-chat-go/pkg/errs"
	"philo-chat-go/pkg/hash"
	"philo-chat-go/pkg/llm"
	"philo-chat-go/pkg/log"
	"philo-chat-go/pkg/storage"
	"philo-chat-go/pkg/tasks"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// SessionService 是所有会话级操作的入口。
//
// 每个操作都以调用方的会话 ID（可以为空）为参数，首先检查登录状态，
// 通过后才委托给 model.User / model.Chat。
type SessionService interface {
	Signup(ctx context.Context, sessionID, username, password string) error
	// Login 成功时返回新的会话 ID。
	Login(ctx context.Context, sessionID, username, password string) (string, error)
	Logout(ctx context.Context, sessionID string) error
	DeleteAccount(ctx context.Context, sessionID string) error
	Profile(ctx context.Context, sessionID string) (model.Profile, error)

	SetName(ctx context.Context, sessionID, name string) error
	SetAge(ctx context.Context, sessionID string, age int) error
	// SetProfilePicture 保存头像并返回可访问地址。
	SetProfilePicture(ctx context.Context, sessionID, filename string, content io.Reader, size int64, contentType string) (string, error)

	NewChat(ctx context.Context, sessionID, name string, philosopherID int) error
	SelectChat(ctx context.Context, sessionID, name string) ([]model.Message, error)
	ListChats(ctx context.Context, sessionID string) ([]model.ChatSummary, error)
	ExitChat(ctx context.Context, sessionID string) error
	DeleteChat(ctx context.Context, sessionID, name string) error
	ChatHistory(ctx context.Context, sessionID, name string) ([]model.Message, error)
	// CompleteChat 在选中的对话上执行一轮补全，返回 (助手消息, 用户消息)。
	CompleteChat(ctx context.Context, sessionID, inputText string) (model.Message, model.Message, error)
	// StreamChat 与 CompleteChat 相同，但回复分块会随生成写入 writer。
	StreamChat(ctx context.Context, sessionID, inputText string, writer llm.MessageWriter) (model.Message, model.Message, error)

	ListPhilosophers(ctx context.Context) ([]model.Philosopher, error)
}

// EventPublisher 发布索引变更：已提交的对话轮次，以及对话或账户的删除。
type EventPublisher interface {
	PublishIndexTask(ctx context.Context, task tasks.ChatIndexTask) error
}

type noopPublisher struct{}

func (noopPublisher) PublishIndexTask(context.Context, tasks.ChatIndexTask) error { return nil }

// SessionDeps 汇集 SessionService 的协作者。Events 可以为 nil。
type SessionDeps struct {
	Users        repository.UserRepository
	Sessions     repository.SessionRepository
	Philosophers repository.PhilosopherRepository
	LLM          llm.Client
	Generation   *llm.GenerationParams
	Prompt       model.PromptRenderer
	Store        storage.ObjectStore
	Events       EventPublisher
}

type sessionService struct {
	// mu 只保护 users 映射本身，持有期间不做任何 I/O。
	mu    sync.RWMutex
	users map[string]*model.User
	// saveLocks 按用户名串行化存储写入，加锁顺序为 saveLock -> mu。
	saveLocks sync.Map

	userRepo     repository.UserRepository
	sessionRepo  repository.SessionRepository
	philosophers repository.PhilosopherRepository
	llmClient    llm.Client
	gen          *llm.GenerationParams
	prompt       model.PromptRenderer
	store        storage.ObjectStore
	events       EventPublisher
}

// NewSessionService 创建一个新的 SessionService 实例，并从存储中恢复所有用户。
func NewSessionService(ctx context.Context, deps SessionDeps) (SessionService, error) {
	s := &sessionService{
		users:        make(map[string]*model.User),
		userRepo:     deps.Users,
		sessionRepo:  deps.Sessions,
		philosophers: deps.Philosophers,
		llmClient:    deps.LLM,
		gen:          deps.Generation,
		prompt:       deps.Prompt,
		store:        deps.Store,
		events:       deps.Events,
	}
	if s.events == nil {
		s.events = noopPublisher{}
	}

	records, err := s.userRepo.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	for _, rec := range records {
		s.users[rec.Username] = model.RestoreUser(rec, s.philosophers.FindByID)
	}
	log.Infof("[SessionService] 已恢复 %d 个用户", len(s.users))
	return s, nil
}

// currentUser 返回会话对应的用户；未登录时返回 PermissionDenied。
func (s *sessionService) currentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, errs.PermissionDenied("no user is logged in")
	}
	username, ok, err := s.sessionRepo.Find(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.PermissionDenied("no user is logged in")
	}
	s.mu.RLock()
	user := s.users[username]
	s.mu.RUnlock()
	if user == nil {
		return nil, errs.PermissionDenied("no user is logged in")
	}
	return user, nil
}

// ensureLoggedOut 在会话已登录时返回 PermissionDenied。
func (s *sessionService) ensureLoggedOut(ctx context.Context, sessionID string) error {
	_, err := s.currentUser(ctx, sessionID)
	if err == nil {
		return errs.PermissionDenied("you've already logged in")
	}
	if errs.Is(err, errs.KindPermissionDenied) {
		return nil
	}
	return err
}

// saveLock 返回用户名对应的存储写锁。
func (s *sessionService) saveLock(username string) *sync.Mutex {
	l, _ := s.saveLocks.LoadOrStore(username, &sync.Mutex{})
	return l.(*sync.Mutex)
}

// registered 判断 user 是否仍是该用户名当前注册的用户。
func (s *sessionService) registered(user *model.User) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[user.Username()] == user
}

// persist 保存用户快照并发布随之产生的索引变更。用户已被注销时跳过，失败只记录日志。
//
// 快照在写锁内获取，后获得锁的写入总是带着更新的快照，不会被先前的旧快照覆盖。
// 事件也在写锁内发布，对话删除之后到达的同名对话轮次会被丢弃。
func (s *sessionService) persist(user *model.User, events ...tasks.ChatIndexTask) {
	lock := s.saveLock(user.Username())
	lock.Lock()
	defer lock.Unlock()

	if !s.registered(user) {
		return
	}
	// Record 会等待该用户进行中的补全，此时只占用该用户自己的写锁
	if err := s.userRepo.Save(context.Background(), user.Record()); err != nil {
		log.Errorf("[SessionService] 保存用户失败, username: %s, error: %v", user.Username(), err)
	}
	for _, task := range events {
		if task.Action == tasks.ActionIndex && !user.HasChat(task.ChatName) {
			continue
		}
		s.publish(task)
	}
}

func (s *sessionService) Signup(ctx context.Context, sessionID, username, password string) error {
	// 1. 已登录的会话不能注册
	if err := s.ensureLoggedOut(ctx, sessionID); err != nil {
		return err
	}

	// 2. 校验输入
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return errs.BadRequest("username and password are required")
	}

	// 3. 对密码进行哈希处理
	hashed, err := hash.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	// 4. 注册
	s.mu.Lock()
	if _, exists := s.users[username]; exists {
		s.mu.Unlock()
		return errs.BadRequest("username %s already taken", username)
	}
	user := model.NewUser(username, hashed)
	s.users[username] = user
	s.mu.Unlock()

	s.persist(user)
	log.Infof("[SessionService] 用户注册成功, username: %s", username)
	return nil
}

func (s *sessionService) Login(ctx context.Context, sessionID, username, password string) (string, error) {
	if err := s.ensureLoggedOut(ctx, sessionID); err != nil {
		return "", err
	}

	s.mu.RLock()
	user := s.users[strings.TrimSpace(username)]
	s.mu.RUnlock()
	if user == nil {
		return "", errs.NotFound("username not found")
	}
	if !hash.CheckPasswordHash(password, user.PasswordHash()) {
		return "", errs.PermissionDenied("wrong password")
	}

	newID := uuid.NewString()
	if err := s.sessionRepo.Create(ctx, newID, user.Username()); err != nil {
		return "", err
	}
	log.Infof("[SessionService] 用户登录成功, username: %s", user.Username())
	return newID, nil
}

func (s *sessionService) Logout(ctx context.Context, sessionID string) error {
	user, err := s.currentUser(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.sessionRepo.Delete(ctx, sessionID); err != nil {
		return err
	}
	log.Infof("[SessionService] 用户已登出, username: %s", user.Username())
	return nil
}

func (s *sessionService) DeleteAccount(ctx context.Context, sessionID string) error {
	user, err := s.currentUser(ctx, sessionID)
	if err != nil {
		return err
	}
	username := user.Username()

	// 1. 先取得写锁再移出映射，同名新用户的写入会排在删除之后
	lock := s.saveLock(username)
	lock.Lock()
	s.mu.Lock()
	if s.users[username] != user {
		s.mu.Unlock()
		lock.Unlock()
		return errs.PermissionDenied("no user is logged in")
	}
	delete(s.users, username)
	s.mu.Unlock()

	// 2. 删除存储中的记录，不持有 mu
	if err := s.userRepo.Delete(context.Background(), username); err != nil {
		log.Errorf("[SessionService] 删除用户数据失败, username: %s, error: %v", username, err)
	}
	// 3. 同一分区内排在该用户之前的索引写入之后
	s.publish(tasks.ChatIndexTask{Action: tasks.ActionDeleteUser, Username: username})
	lock.Unlock()

	// 4. 清除引用该用户的全部登录会话
	if err := s.sessionRepo.DeleteByUsername(ctx, username); err != nil {
		return err
	}
	log.Infof("[SessionService] 账户已删除, username: %s", username)
	return nil
}

func (s *sessionService) Profile(ctx context.Context, sessionID string) (model.Profile, error) {
	user, err := s.currentUser(ctx, sessionID)
	if err != nil {
		return model.Profile{}, err
	}
	return user.Profile(), nil
}

func (s *sessionService) SetName(ctx context.Context, sessionID, name string) error {
	user, err := s.currentUser(ctx, sessionID)
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return errs.BadRequest("name cannot be empty")
	}
	user.SetName(name)
	s.persist(user)
	return nil
}

func (s *sessionService) SetAge(ctx context.Context, sessionID string, age int) error {
	user, err := s.currentUser(ctx, sessionID)
	if err != nil {
		return err
	}
	if age < 0 {
		return errs.BadRequest("age cannot be negative")
	}
	user.SetAge(age)
	s.persist(user)
	return nil
}

func (s *sessionService) SetProfilePicture(ctx context.Context, sessionID, filename string, content io.Reader, size int64, contentType string) (string, error) {
	user, err := s.currentUser(ctx, sessionID)
	if err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return "", errs.BadRequest("picture file must have an extension")
	}

	// 每个用户只保留一张头像，同名覆盖
	objectName := fmt.Sprintf("avatars/%s_profile%s", user.Username(), ext)
	if err := s.store.Put(ctx, objectName, content, size, contentType); err != nil {
		return "", err
	}
	user.SetProfilePicture(objectName)
	s.persist(user)

	return s.store.URL(ctx, objectName)
}

func (s *sessionService) NewChat(ctx context.Context, sessionID, name string, philosopherID int) error {
	user, err := s.currentUser(ctx, sessionID)
	if err != nil {
		return err
	}
	philosopher, ok := s.philosophers.FindByID(philosopherID)
	if !ok {
		return errs.NotFound("philosopher %d not found", philosopherID)
	}
	if err := user.NewChat(name, philosopher); err != nil {
		return err
	}
	s.persist(user)
	return nil
}

func (s *sessionService) SelectChat(ctx context.Context, sessionID, name string) ([]model.Message, error) {
	user, err := s.currentUser(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return user.SelectChat(name)
}

func (s *sessionService) ListChats(ctx context.Context, sessionID string) ([]model.ChatSummary, error) {
	user, err := s.currentUser(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return user.ListChats()
}

func (s *sessionService) ExitChat(ctx context.Context, sessionID string) error {
	user, err := s.currentUser(ctx, sessionID)
	if err != nil {
		return err
	}
	return user.ExitChat()
}

func (s *sessionService) DeleteChat(ctx context.Context, sessionID, name string) error {
	user, err := s.currentUser(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := user.DeleteChat(name); err != nil {
		return err
	}
	s.persist(user, tasks.ChatIndexTask{Action: tasks.ActionDeleteChat, Username: user.Username(), ChatName: name})
	return nil
}

func (s *sessionService) ChatHistory(ctx context.Context, sessionID, name string) ([]model.Message, error) {
	user, err := s.currentUser(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return user.ChatHistory(name)
}

func (s *sessionService) CompleteChat(ctx context.Context, sessionID, inputText string) (model.Message, model.Message, error) {
	return s.complete(ctx, sessionID, inputText, nil)
}

func (s *sessionService) StreamChat(ctx context.Context, sessionID, inputText string, writer llm.MessageWriter) (model.Message, model.Message, error) {
	return s.complete(ctx, sessionID, inputText, writer)
}

func (s *sessionService) complete(ctx context.Context, sessionID, inputText string, writer llm.MessageWriter) (model.Message, model.Message, error) {
	user, err := s.currentUser(ctx, sessionID)
	if err != nil {
		return model.Message{}, model.Message{}, err
	}

	provider := &llmProvider{client: s.llmClient, gen: s.gen, writer: writer}
	assistantMsg, userMsg, chatName, err := user.CompleteChat(ctx, inputText, s.prompt, provider)
	if err != nil {
		if errs.Is(err, errs.KindLLM) {
			log.Errorf("[SessionService] 补全失败, username: %s, error: %v", user.Username(), err)
		}
		return model.Message{}, model.Message{}, err
	}

	s.persist(user, turnTask(user.Username(), chatName, userMsg, assistantMsg))
	return assistantMsg, userMsg, nil
}

// turnTask 把一轮对话转换为索引任务。
func turnTask(username, chatName string, userMsg, assistantMsg model.Message) tasks.ChatIndexTask {
	task := tasks.ChatIndexTask{
		Username:    username,
		ChatName:    chatName,
		Philosopher: assistantMsg.Author,
	}
	for _, m := range []model.Message{userMsg, assistantMsg} {
		task.Messages = append(task.Messages, tasks.IndexMessage{
			ID:        uuid.NewString(),
			Role:      string(m.Role),
			Author:    m.Author,
			Content:   m.Content,
			Timestamp: m.Timestamp,
		})
	}
	return task
}

// publish 发布索引变更，失败只记录日志。
func (s *sessionService) publish(task tasks.ChatIndexTask) {
	if err := s.events.PublishIndexTask(context.Background(), task); err != nil {
		log.Errorf("[SessionService] 发布索引事件失败, action: %q, chat: %s, error: %v", task.Action, task.Key(), err)
	}
}

func (s *sessionService) ListPhilosophers(_ context.Context) ([]model.Philosopher, error) {
	all := s.philosophers.FindAll()
	if len(all) == 0 {
		return nil, errs.NotFound("no philosopher found")
	}
	out := make([]model.Philosopher, 0, len(all))
	for _, p := range all {
		out = append(out, *p)
	}
	return out, nil
}
