package repository

import (
	"fmt"
	"os"
	"philo-chat-go/internal/model"
	"sort"

	"gopkg.in/yaml.v3"
)

// PhilosopherRepository 提供只读的哲学家目录。
type PhilosopherRepository interface {
	FindAll() []*model.Philosopher
	FindByID(id int) (*model.Philosopher, bool)
}

type philosopherRepository struct {
	list []*model.Philosopher
	byID map[int]*model.Philosopher
}

// LoadPhilosophers 从目录文件（JSON 数组，也接受 YAML）加载哲学家。ID 重复视为错误。
func LoadPhilosophers(path string) (PhilosopherRepository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read philosopher catalog %s: %w", path, err)
	}
	var entries []model.Philosopher
	// JSON 是 YAML 的子集
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode philosopher catalog %s: %w", path, err)
	}
	return NewPhilosopherRepository(entries)
}

// NewPhilosopherRepository 用给定条目构建目录，按 ID 升序排列。
func NewPhilosopherRepository(entries []model.Philosopher) (PhilosopherRepository, error) {
	r := &philosopherRepository{byID: make(map[int]*model.Philosopher, len(entries))}
	for i := range entries {
		p := entries[i]
		if _, dup := r.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate philosopher id %d", p.ID)
		}
		r.byID[p.ID] = &p
		r.list = append(r.list, &p)
	}
	sort.Slice(r.list, func(i, j int) bool { return r.list[i].ID < r.list[j].ID })
	return r, nil
}

func (r *philosopherRepository) FindAll() []*model.Philosopher {
	return append([]*model.Philosopher(nil), r.list...)
}

func (r *philosopherRepository) FindByID(id int) (*model.Philosopher, bool) {
	p, ok := r.byID[id]
	return p, ok
}
