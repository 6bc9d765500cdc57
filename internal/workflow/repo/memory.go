package repo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"

	errx "github.com/contentstudio/server/internal/core/error"
	"github.com/contentstudio/server/internal/workflow/model"
)

// MemoryThreadRepository keeps threads in process. It is used when Redis is
// not configured and in tests. Expired entries are dropped lazily on read.
type MemoryThreadRepository struct {
	mu          sync.Mutex
	ttl         time.Duration
	recentLimit int
	now         func() time.Time

	threads  map[string]memoryThread
	messages map[string][]*schema.Message
	recent   []string
}

type memoryThread struct {
	rec       model.ThreadRecord
	expiresAt time.Time
}

func NewMemoryThreadRepository(ttl time.Duration, recentLimit int) *MemoryThreadRepository {
	if recentLimit <= 0 {
		recentLimit = defaultRecentLimit
	}
	return &MemoryThreadRepository{
		ttl:         ttl,
		recentLimit: recentLimit,
		now:         time.Now,
		threads:     map[string]memoryThread{},
		messages:    map[string][]*schema.Message{},
	}
}

func (r *MemoryThreadRepository) SaveThread(_ context.Context, rec *model.ThreadRecord) error {
	if rec == nil || rec.ID == "" {
		return errx.Validation("thread record requires an id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	t := memoryThread{rec: *rec}
	if r.ttl > 0 {
		t.expiresAt = r.now().Add(r.ttl)
	}
	r.threads[rec.ID] = t

	r.recent = append([]string{rec.ID}, remove(r.recent, rec.ID)...)
	if len(r.recent) > r.recentLimit {
		r.recent = r.recent[:r.recentLimit]
	}
	return nil
}

func (r *MemoryThreadRepository) GetThread(_ context.Context, id string) (*model.ThreadRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.liveThread(id)
	if !ok {
		return nil, errx.NotFound(fmt.Errorf("thread %s", id), threadNotFound)
	}
	rec := t.rec
	return &rec, nil
}

func (r *MemoryThreadRepository) ListThreads(_ context.Context, limit int) ([]*model.ThreadRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 || limit > r.recentLimit {
		limit = r.recentLimit
	}
	out := make([]*model.ThreadRecord, 0, min(limit, len(r.recent)))
	for _, id := range r.recent {
		if len(out) == limit {
			break
		}
		if t, ok := r.liveThread(id); ok {
			rec := t.rec
			out = append(out, &rec)
		}
	}
	return out, nil
}

func (r *MemoryThreadRepository) AddMessage(_ context.Context, threadID string, message *schema.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[threadID] = append(r.messages[threadID], message)
	return nil
}

func (r *MemoryThreadRepository) LoadHistory(_ context.Context, threadID string) (*model.ThreadHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := append([]*schema.Message{}, r.messages[threadID]...)
	return &model.ThreadHistory{ThreadID: threadID, Messages: msgs}, nil
}

func (r *MemoryThreadRepository) DeleteThread(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.threads, id)
	delete(r.messages, id)
	r.recent = remove(r.recent, id)
	return nil
}

// liveThread must be called with mu held.
func (r *MemoryThreadRepository) liveThread(id string) (memoryThread, bool) {
	t, ok := r.threads[id]
	if !ok {
		return memoryThread{}, false
	}
	if !t.expiresAt.IsZero() && r.now().After(t.expiresAt) {
		delete(r.threads, id)
		delete(r.messages, id)
		return memoryThread{}, false
	}
	return t, true
}

func remove(ids []string, id string) []string {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

var _ model.ThreadRepository = (*MemoryThreadRepository)(nil)
