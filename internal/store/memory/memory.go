// Package memory is an in-process store.Store used by tests and by local
// runs started with STORE_DRIVER=memory. It is safe for concurrent use.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"backend-socialmedia/internal/store"

	"github.com/google/uuid"
)

type Store struct {
	mu        sync.RWMutex
	users     map[string]store.User
	byEmail   map[string]string
	userOrder []string
	posts     map[string]store.Post
	postOrder []string
	now       func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:   make(map[string]store.User),
		byEmail: make(map[string]string),
		posts:   make(map[string]store.Post),
		now:     time.Now,
	}
}

// Users -----------------------------------------------------------------------

func (s *Store) CreateUser(_ context.Context, user store.User) (store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, taken := s.byEmail[email]; taken {
		return store.User{}, store.ErrDuplicateEmail
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := s.now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	user = cloneUser(user)

	s.users[user.ID] = user
	s.byEmail[email] = user.ID
	s.userOrder = append(s.userOrder, user.ID)
	return withoutPassword(user), nil
}

func (s *Store) UserByID(_ context.Context, id string) (store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return withoutPassword(cloneUser(user)), nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return cloneUser(s.users[id]), nil
}

func (s *Store) UsersByIDs(_ context.Context, ids []string) ([]store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.User, 0, len(ids))
	for _, id := range s.userOrder {
		if store.Contains(ids, id) {
			out = append(out, withoutPassword(cloneUser(s.users[id])))
		}
	}
	return out, nil
}

func (s *Store) UsersExcept(_ context.Context, ids []string) ([]store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.User, 0, len(s.users))
	for _, id := range s.userOrder {
		if !store.Contains(ids, id) {
			out = append(out, withoutPassword(cloneUser(s.users[id])))
		}
	}
	return out, nil
}

func (s *Store) SaveUser(_ context.Context, user store.User) (store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	// Email and password are immutable through SaveUser.
	user.Email = existing.Email
	user.PasswordHash = existing.PasswordHash
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = s.now().UTC()
	s.users[user.ID] = cloneUser(user)
	return withoutPassword(cloneUser(user)), nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	delete(s.users, id)
	delete(s.byEmail, strings.ToLower(user.Email))
	s.userOrder = store.Remove(s.userOrder, id)
	return nil
}

// Posts -----------------------------------------------------------------------

func (s *Store) CreatePost(_ context.Context, post store.Post) (store.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	now := s.now().UTC()
	post.CreatedAt, post.UpdatedAt = now, now
	post = clonePost(post)

	s.posts[post.ID] = post
	s.postOrder = append(s.postOrder, post.ID)
	return clonePost(post), nil
}

func (s *Store) PostByID(_ context.Context, id string) (store.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[id]
	if !ok {
		return store.Post{}, store.ErrNotFound
	}
	return clonePost(post), nil
}

func (s *Store) PostsByOwners(_ context.Context, ownerIDs []string) ([]store.Post, error) {
	return s.filterPosts(func(p store.Post) bool { return store.Contains(ownerIDs, p.Owner) }), nil
}

func (s *Store) PostsLikedBy(_ context.Context, userID string) ([]store.Post, error) {
	return s.filterPosts(func(p store.Post) bool { return store.Contains(p.Likes, userID) }), nil
}

func (s *Store) SavePost(_ context.Context, post store.Post) (store.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.posts[post.ID]
	if !ok {
		return store.Post{}, store.ErrNotFound
	}
	post.CreatedAt = existing.CreatedAt
	post.UpdatedAt = s.now().UTC()
	s.posts[post.ID] = clonePost(post)
	return clonePost(post), nil
}

func (s *Store) DeletePost(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.posts, id)
	s.postOrder = store.Remove(s.postOrder, id)
	return nil
}

func (s *Store) DeletePostsByOwner(_ context.Context, ownerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	kept := s.postOrder[:0]
	for _, id := range s.postOrder {
		if s.posts[id].Owner == ownerID {
			delete(s.posts, id)
			n++
			continue
		}
		kept = append(kept, id)
	}
	s.postOrder = kept
	return n, nil
}

func (s *Store) filterPosts(match func(store.Post) bool) []store.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Post
	for _, id := range s.postOrder {
		if p := s.posts[id]; match(p) {
			out = append(out, clonePost(p))
		}
	}
	return out
}

func withoutPassword(u store.User) store.User {
	u.PasswordHash = ""
	return u
}

func cloneUser(u store.User) store.User {
	u.Posts = cloneIDs(u.Posts)
	u.Followers = cloneIDs(u.Followers)
	u.Followings = cloneIDs(u.Followings)
	return u
}

func clonePost(p store.Post) store.Post {
	p.Likes = cloneIDs(p.Likes)
	return p
}

func cloneIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return slices.Clone(ids)
}
