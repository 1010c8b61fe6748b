package model

// Philosopher 是对话人设，进程启动时从目录文件加载，之后只读。
// 所有引用同一人设的 Chat 共享同一个 *Philosopher。
type Philosopher struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}
