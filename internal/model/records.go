package model

import (
	"sort"
	"time"
)

// UserRecord 对应于数据库中的 'users' 表，聚合了用户的全部对话。
type UserRecord struct {
	Username       string       `gorm:"type:varchar(64);primaryKey" json:"username"`
	PasswordHash   string       `gorm:"type:varchar(255);not null" json:"-"`
	Name           string       `gorm:"type:varchar(100)" json:"name"`
	Age            int          `gorm:"not null;default:0" json:"age"`
	ProfilePicture string       `gorm:"type:varchar(255)" json:"profilePicture"`
	CreatedAt      time.Time    `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time    `gorm:"autoUpdateTime" json:"updatedAt"`
	Chats          []ChatRecord `gorm:"foreignKey:Username;references:Username" json:"chats"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (UserRecord) TableName() string {
	return "users"
}

// ChatRecord 对应于数据库中的 'chats' 表。
type ChatRecord struct {
	ID            uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	Username      string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_user_chat" json:"username"`
	Name          string          `gorm:"type:varchar(191);not null;uniqueIndex:idx_user_chat" json:"name"`
	PhilosopherID int             `gorm:"not null" json:"philosopherId"`
	Position      int             `gorm:"not null" json:"position"` // 创建顺序
	CreatedAt     time.Time       `json:"createdAt"`
	Messages      []MessageRecord `gorm:"foreignKey:ChatID" json:"messages"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (ChatRecord) TableName() string {
	return "chats"
}

// MessageRecord 对应于数据库中的 'chat_messages' 表。Seq 为 0 的是引导消息。
type MessageRecord struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ChatID    uint      `gorm:"index;not null" json:"chatId"`
	Seq       int       `gorm:"not null" json:"seq"`
	Role      string    `gorm:"type:varchar(16);not null" json:"role"`
	Author    string    `gorm:"type:varchar(100)" json:"author"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (MessageRecord) TableName() string {
	return "chat_messages"
}

// Record 生成用户当前状态的持久化快照。
func (u *User) Record() UserRecord {
	u.mu.Lock()
	defer u.mu.Unlock()

	rec := UserRecord{
		Username:       u.username,
		PasswordHash:   u.passwordHash,
		Name:           u.name,
		Age:            u.age,
		ProfilePicture: u.profilePicture,
		CreatedAt:      u.createdAt,
		Chats:          make([]ChatRecord, 0, len(u.order)),
	}
	for pos, name := range u.order {
		chat := u.chats[name]
		cr := ChatRecord{
			Username:  u.username,
			Name:      chat.Name(),
			Position:  pos,
			CreatedAt: chat.CreatedAt(),
		}
		if p := chat.Philosopher(); p != nil {
			cr.PhilosopherID = p.ID
		}
		for seq, m := range chat.messages {
			cr.Messages = append(cr.Messages, MessageRecord{
				Seq:       seq,
				Role:      string(m.Role),
				Author:    m.Author,
				Content:   m.Content,
				Timestamp: m.Timestamp,
			})
		}
		rec.Chats = append(rec.Chats, cr)
	}
	return rec
}

// RestoreUser 从持久化快照重建用户。
// lookup 找不到的哲学家 ID 会以仅含 ID 的占位人设恢复，历史消息不丢失。
func RestoreUser(rec UserRecord, lookup func(id int) (*Philosopher, bool)) *User {
	u := NewUser(rec.Username, rec.PasswordHash)
	u.name = rec.Name
	u.age = rec.Age
	u.profilePicture = rec.ProfilePicture
	if !rec.CreatedAt.IsZero() {
		u.createdAt = rec.CreatedAt
	}

	chats := append([]ChatRecord(nil), rec.Chats...)
	sort.SliceStable(chats, func(i, j int) bool { return chats[i].Position < chats[j].Position })

	for _, cr := range chats {
		philosopher, ok := lookup(cr.PhilosopherID)
		if !ok {
			philosopher = &Philosopher{ID: cr.PhilosopherID}
		}
		msgs := append([]MessageRecord(nil), cr.Messages...)
		sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Seq < msgs[j].Seq })

		messages := make([]Message, 0, len(msgs))
		for _, m := range msgs {
			messages = append(messages, Message{
				Role:      Role(m.Role),
				Author:    m.Author,
				Content:   m.Content,
				Timestamp: m.Timestamp,
			})
		}
		u.chats[cr.Name] = RestoreChat(cr.Name, philosopher, messages, cr.CreatedAt)
		u.order = append(u.order, cr.Name)
	}
	return u
}
