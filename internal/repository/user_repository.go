// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"context"
	"philo-chat-go/internal/model"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository 接口定义了用户聚合（用户、对话、消息）的持久化操作。
// Save 总是写入完整快照，覆盖该用户之前保存的全部对话。
type UserRepository interface {
	LoadAll(ctx context.Context) ([]model.UserRecord, error)
	Save(ctx context.Context, rec model.UserRecord) error
	Delete(ctx context.Context, username string) error
}

// userRepository 是 UserRepository 接口的 GORM 实现。
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建一个新的 UserRepository 实例。
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// LoadAll 从数据库中检索所有用户及其对话和消息。
func (r *userRepository) LoadAll(ctx context.Context) ([]model.UserRecord, error) {
	var users []model.UserRecord
	err := r.db.WithContext(ctx).
		Preload("Chats", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Chats.Messages", func(db *gorm.DB) *gorm.DB { return db.Order("seq") }).
		Find(&users).Error
	return users, err
}

// Save 在一个事务中替换用户的全部数据。
func (r *userRepository) Save(ctx context.Context, rec model.UserRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteChats(tx, rec.Username); err != nil {
			return err
		}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Omit("Chats").Create(&rec).Error; err != nil {
			return err
		}
		if len(rec.Chats) == 0 {
			return nil
		}
		return tx.Create(&rec.Chats).Error
	})
}

// Delete 删除用户及其全部对话和消息。
func (r *userRepository) Delete(ctx context.Context, username string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteChats(tx, username); err != nil {
			return err
		}
		return tx.Where("username = ?", username).Delete(&model.UserRecord{}).Error
	})
}

func deleteChats(tx *gorm.DB, username string) error {
	chatIDs := tx.Model(&model.ChatRecord{}).Select("id").Where("username = ?", username)
	if err := tx.Where("chat_id IN (?)", chatIDs).Delete(&model.MessageRecord{}).Error; err != nil {
		return err
	}
	return tx.Where("username = ?", username).Delete(&model.ChatRecord{}).Error
}

// memoryUserRepository 把快照保存在进程内，未配置 MySQL 时使用。
type memoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]model.UserRecord
	order []string
}

// NewMemoryUserRepository 创建一个内存 UserRepository。
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{users: make(map[string]model.UserRecord)}
}

func (r *memoryUserRepository) LoadAll(_ context.Context) ([]model.UserRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.UserRecord, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.users[name])
	}
	return out, nil
}

func (r *memoryUserRepository) Save(_ context.Context, rec model.UserRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[rec.Username]; !ok {
		r.order = append(r.order, rec.Username)
	}
	r.users[rec.Username] = rec
	return nil
}

func (r *memoryUserRepository) Delete(_ context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[username]; !ok {
		return nil
	}
	delete(r.users, username)
	for i, name := range r.order {
		if name == username {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}
