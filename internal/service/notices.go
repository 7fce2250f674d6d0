package service

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

type NoticeKind string

const (
	NoticeRead  NoticeKind = "read"
	NoticeWrite NoticeKind = "write"
)

// Notice is a dismissible banner describing a failed store read or write.
type Notice struct {
	ID        string     `json:"id"`
	Kind      NoticeKind `json:"kind"`
	Message   string     `json:"message"`
	CreatedAt int64      `json:"created_at"`
}

const maxNotices = 20

type noticeBoard struct {
	mu      sync.Mutex
	notices []Notice
}

func (b *noticeBoard) add(kind NoticeKind, msg string) Notice {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := Notice{
		ID:        uuid.NewString(),
		Kind:      kind,
		Message:   msg,
		CreatedAt: time.Now().UnixMilli(),
	}
	b.notices = append(b.notices, n)
	if len(b.notices) > maxNotices {
		b.notices = slices.Delete(b.notices, 0, len(b.notices)-maxNotices)
	}
	return n
}

func (b *noticeBoard) list() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Notice, len(b.notices))
	copy(out, b.notices)
	return out
}

func (b *noticeBoard) dismiss(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := slices.IndexFunc(b.notices, func(n Notice) bool { return n.ID == id })
	if i < 0 {
		return false
	}
	b.notices = slices.Delete(b.notices, i, i+1)
	return true
}

func (b *noticeBoard) clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.notices = nil
}
