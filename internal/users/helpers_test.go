package users

import (
	"context"
	"errors"
	"sync"
	"testing"

	"backend-socialmedia/internal/activity"
	"backend-socialmedia/internal/media"
	"backend-socialmedia/internal/store"
	"backend-socialmedia/internal/store/memory"
)

type fakeImages struct {
	mu      sync.Mutex
	n       int
	deleted []string
	failDel bool
}

func (f *fakeImages) Upload(_ context.Context, folder, data string) (store.Image, error) {
	if data == "bad" {
		return store.Image{}, media.ErrInvalidImage
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	key := folder + "/" + data + ".jpg"
	return store.Image{URL: "http://cdn.test/" + key, PublicID: key}, nil
}

func (f *fakeImages) Delete(_ context.Context, publicID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDel {
		return errors.New("storage down")
	}
	f.deleted = append(f.deleted, publicID)
	return nil
}

type recorder struct {
	mu     sync.Mutex
	to     []string
	events []activity.Event
}

func (r *recorder) Publish(_ context.Context, userID string, evt activity.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.to = append(r.to, userID)
	r.events = append(r.events, evt)
}

type revoker struct {
	revoked []string
	err     error
}

func (r *revoker) RevokeAll(_ context.Context, userID string) error {
	r.revoked = append(r.revoked, userID)
	return r.err
}

type fixture struct {
	store    *memory.Store
	images   *fakeImages
	events   *recorder
	sessions *revoker
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: memory.New(), images: &fakeImages{}, events: &recorder{}, sessions: &revoker{}}
	f.svc = NewService(f.store, f.images, f.events, f.sessions)
	return f
}

func (f *fixture) user(t *testing.T, name string) store.User {
	t.Helper()
	u, err := f.store.CreateUser(context.Background(), store.User{Name: name, Email: name + "@example.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (f *fixture) post(t *testing.T, owner store.User, caption string, likedBy ...string) store.Post {
	t.Helper()
	ctx := context.Background()
	p, err := f.store.CreatePost(ctx, store.Post{
		Owner:   owner.ID,
		Caption: caption,
		Image:   store.Image{URL: "http://cdn.test/" + caption, PublicID: "postImage/" + caption},
		Likes:   likedBy,
	})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	u := f.reload(t, owner.ID)
	u.Posts = append(u.Posts, p.ID)
	if _, err := f.store.SaveUser(ctx, u); err != nil {
		t.Fatalf("save owner: %v", err)
	}
	return p
}

func (f *fixture) follow(t *testing.T, from, to store.User) {
	t.Helper()
	if _, err := f.svc.FollowOrUnfollow(context.Background(), from.ID, to.ID); err != nil {
		t.Fatalf("follow: %v", err)
	}
}

func (f *fixture) reload(t *testing.T, id string) store.User {
	t.Helper()
	u, err := f.store.UserByID(context.Background(), id)
	if err != nil {
		t.Fatalf("reload %s: %v", id, err)
	}
	return u
}
