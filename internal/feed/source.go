package feed

import (
	"context"
	"sync"
	"time"
)

// Post is one entry in the global feed.
type Post struct {
	ID        int64     `json:"id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Page is one page of the global feed as returned by a Loader.
type Page struct {
	Posts []Post `json:"posts"`
	Total int    `json:"total"`
	Skip  int    `json:"skip"`
	Limit int    `json:"limit"`
}

// MemorySource is an in-memory Loader holding posts newest-first. It stands
// in for the system of record behind the cache.
type MemorySource struct {
	mu     sync.RWMutex
	posts  []Post
	nextID int64
}

// NewMemorySource creates an empty source.
func NewMemorySource() *MemorySource {
	return &MemorySource{nextID: 1}
}

// AddPost prepends a post and returns it with its assigned ID. Callers are
// responsible for invalidating cached feed pages afterwards.
func (s *MemorySource) AddPost(author, body string) Post {
	s.mu.Lock()
	defer s.mu.Unlock()

	post := Post{
		ID:        s.nextID,
		Author:    author,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	s.nextID++

	s.posts = append([]Post{post}, s.posts...)
	return post
}

// LoadFeed returns one page of posts, newest first.
func (s *MemorySource) LoadFeed(ctx context.Context, skip, limit int) (interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.posts)

	start := skip
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	page := Page{
		Posts: make([]Post, end-start),
		Total: total,
		Skip:  skip,
		Limit: limit,
	}
	copy(page.Posts, s.posts[start:end])
	return page, nil
}
