// Package storage 提供了头像等二进制对象的存储功能。
package storage

import (
	"context"
	"io"
)

// ObjectStore 是对象存储的抽象。
type ObjectStore interface {
	// Put 写入对象，同名对象被覆盖。
	Put(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	// URL 返回对象的可访问地址。
	URL(ctx context.Context, objectName string) (string, error)
}
