// Package pgstore implements store.Store on PostgreSQL. Relationship lists
// are text[] columns so the document shape survives unchanged.
package pgstore

import (
	"context"
	"errors"
	"strings"

	"backend-socialmedia/internal/db"
	"backend-socialmedia/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		seq BIGSERIAL,
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		bio TEXT NOT NULL DEFAULT '',
		avatar_url TEXT NOT NULL DEFAULT '',
		avatar_public_id TEXT NOT NULL DEFAULT '',
		posts TEXT[] NOT NULL DEFAULT '{}',
		followers TEXT[] NOT NULL DEFAULT '{}',
		followings TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
		seq BIGSERIAL,
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		caption TEXT NOT NULL,
		image_url TEXT NOT NULL DEFAULT '',
		image_public_id TEXT NOT NULL DEFAULT '',
		likes TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS posts_owner_idx ON posts (owner, seq)`,
	`CREATE INDEX IF NOT EXISTS posts_likes_idx ON posts USING GIN (likes)`,
}

const (
	userColumns = `id, name, email, bio, avatar_url, avatar_public_id, posts, followers, followings, created_at, updated_at`
	postColumns = `id, owner, caption, image_url, image_public_id, likes, created_at, updated_at`
)

type Store struct {
	db db.Querier
}

var _ store.Store = (*Store)(nil)

func New(q db.Querier) *Store {
	return &Store{db: q}
}

// Migrate creates the tables and indexes when they are missing.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, user store.User) (store.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = strings.ToLower(user.Email)
	normalizeUser(&user)

	row := s.db.QueryRow(ctx, `
		INSERT INTO users (id, name, email, password, bio, avatar_url, avatar_public_id, posts, followers, followings)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at
	`, user.ID, user.Name, user.Email, user.PasswordHash, user.Bio, user.Avatar.URL, user.Avatar.PublicID,
		user.Posts, user.Followers, user.Followings)
	if err := row.Scan(&user.CreatedAt, &user.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return store.User{}, store.ErrDuplicateEmail
		}
		return store.User{}, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *Store) UserByID(ctx context.Context, id string) (store.User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
	return scanUser(row)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (store.User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+`, password FROM users WHERE email=$1`, strings.ToLower(email))
	var u store.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Bio, &u.Avatar.URL, &u.Avatar.PublicID,
		&u.Posts, &u.Followers, &u.Followings, &u.CreatedAt, &u.UpdatedAt, &u.PasswordHash)
	if err != nil {
		return store.User{}, mapErr(err)
	}
	normalizeUser(&u)
	return u, nil
}

func (s *Store) UsersByIDs(ctx context.Context, ids []string) ([]store.User, error) {
	return s.queryUsers(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1) ORDER BY seq`, nonNil(ids))
}

func (s *Store) UsersExcept(ctx context.Context, ids []string) ([]store.User, error) {
	return s.queryUsers(ctx, `SELECT `+userColumns+` FROM users WHERE NOT (id = ANY($1)) ORDER BY seq`, nonNil(ids))
}

func (s *Store) queryUsers(ctx context.Context, sql string, args ...any) ([]store.User, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []store.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) SaveUser(ctx context.Context, user store.User) (store.User, error) {
	normalizeUser(&user)
	row := s.db.QueryRow(ctx, `
		UPDATE users
		SET name=$2, bio=$3, avatar_url=$4, avatar_public_id=$5, posts=$6, followers=$7, followings=$8, updated_at=now()
		WHERE id=$1
		RETURNING `+userColumns,
		user.ID, user.Name, user.Bio, user.Avatar.URL, user.Avatar.PublicID, user.Posts, user.Followers, user.Followings)
	return scanUser(row)
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreatePost(ctx context.Context, post store.Post) (store.Post, error) {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.Likes == nil {
		post.Likes = []string{}
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO posts (id, owner, caption, image_url, image_public_id, likes)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at
	`, post.ID, post.Owner, post.Caption, post.Image.URL, post.Image.PublicID, post.Likes)
	if err := row.Scan(&post.CreatedAt, &post.UpdatedAt); err != nil {
		return store.Post{}, err
	}
	return post, nil
}

func (s *Store) PostByID(ctx context.Context, id string) (store.Post, error) {
	row := s.db.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id=$1`, id)
	return scanPost(row)
}

func (s *Store) PostsByOwners(ctx context.Context, ownerIDs []string) ([]store.Post, error) {
	return s.queryPosts(ctx, `SELECT `+postColumns+` FROM posts WHERE owner = ANY($1) ORDER BY seq`, nonNil(ownerIDs))
}

func (s *Store) PostsLikedBy(ctx context.Context, userID string) ([]store.Post, error) {
	return s.queryPosts(ctx, `SELECT `+postColumns+` FROM posts WHERE $1 = ANY(likes) ORDER BY seq`, userID)
}

func (s *Store) queryPosts(ctx context.Context, sql string, args ...any) ([]store.Post, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []store.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (s *Store) SavePost(ctx context.Context, post store.Post) (store.Post, error) {
	if post.Likes == nil {
		post.Likes = []string{}
	}
	row := s.db.QueryRow(ctx, `
		UPDATE posts
		SET caption=$2, image_url=$3, image_public_id=$4, likes=$5, updated_at=now()
		WHERE id=$1
		RETURNING `+postColumns,
		post.ID, post.Caption, post.Image.URL, post.Image.PublicID, post.Likes)
	return scanPost(row)
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM posts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeletePostsByOwner(ctx context.Context, ownerID string) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM posts WHERE owner=$1`, ownerID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanUser(row pgx.Row) (store.User, error) {
	var u store.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Bio, &u.Avatar.URL, &u.Avatar.PublicID,
		&u.Posts, &u.Followers, &u.Followings, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return store.User{}, mapErr(err)
	}
	normalizeUser(&u)
	return u, nil
}

func scanPost(row pgx.Row) (store.Post, error) {
	var p store.Post
	err := row.Scan(&p.ID, &p.Owner, &p.Caption, &p.Image.URL, &p.Image.PublicID,
		&p.Likes, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return store.Post{}, mapErr(err)
	}
	if p.Likes == nil {
		p.Likes = []string{}
	}
	return p, nil
}

func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func normalizeUser(u *store.User) {
	if u.Posts == nil {
		u.Posts = []string{}
	}
	if u.Followers == nil {
		u.Followers = []string{}
	}
	if u.Followings == nil {
		u.Followings = []string{}
	}
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
