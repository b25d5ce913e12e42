// Package store defines the persisted entities and the contract every
// storage backend implements. Relationships are kept as id references on
// both sides and maintained by the services, not by the backend.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

type Image struct {
	URL      string `json:"url" bson:"url"`
	PublicID string `json:"publicId" bson:"publicId"`
}

type User struct {
	ID           string    `json:"_id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password,omitempty"`
	Bio          string    `json:"bio" bson:"bio"`
	Avatar       Image     `json:"avatar" bson:"avatar"`
	Posts        []string  `json:"posts" bson:"posts"`
	Followers    []string  `json:"followers" bson:"followers"`
	Followings   []string  `json:"followings" bson:"followings"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

type Post struct {
	ID        string    `json:"_id" bson:"_id"`
	Owner     string    `json:"owner" bson:"owner"`
	Caption   string    `json:"caption" bson:"caption"`
	Image     Image     `json:"image" bson:"image"`
	Likes     []string  `json:"likes" bson:"likes"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// UserStore persists user documents. Reads other than UserByEmail leave
// PasswordHash empty.
type UserStore interface {
	CreateUser(ctx context.Context, user User) (User, error)
	UserByID(ctx context.Context, id string) (User, error)
	UserByEmail(ctx context.Context, email string) (User, error)
	UsersByIDs(ctx context.Context, ids []string) ([]User, error)
	UsersExcept(ctx context.Context, ids []string) ([]User, error)
	SaveUser(ctx context.Context, user User) (User, error)
	DeleteUser(ctx context.Context, id string) error
}

// PostStore persists post documents. Lists are returned in creation order.
type PostStore interface {
	CreatePost(ctx context.Context, post Post) (Post, error)
	PostByID(ctx context.Context, id string) (Post, error)
	PostsByOwners(ctx context.Context, ownerIDs []string) ([]Post, error)
	PostsLikedBy(ctx context.Context, userID string) ([]Post, error)
	SavePost(ctx context.Context, post Post) (Post, error)
	DeletePost(ctx context.Context, id string) error
	DeletePostsByOwner(ctx context.Context, ownerID string) (int64, error)
}

type Store interface {
	UserStore
	PostStore
}

// Contains reports whether id is in ids.
func Contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// Remove returns ids without any occurrence of id. Absent ids are a no-op.
func Remove(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// Toggle removes id when present and appends it otherwise. The returned
// flag is true when id was added.
func Toggle(ids []string, id string) ([]string, bool) {
	if Contains(ids, id) {
		return Remove(ids, id), false
	}
	return append(ids, id), true
}
