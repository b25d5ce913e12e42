package posts

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
	mu       sync.Mutex
	uploads  []string
	deleted  []string
	failDel  bool
	onUpload func()
}

func (f *fakeImages) Upload(_ context.Context, folder, data string) (store.Image, error) {
	if data == "bad" {
		return store.Image{}, media.ErrInvalidImage
	}
	if f.onUpload != nil {
		f.onUpload()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := folder + "/img" + string(rune('a'+len(f.uploads))) + ".jpg"
	f.uploads = append(f.uploads, key)
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

type published struct {
	userID string
	event  activity.Event
}

type recorder struct {
	mu     sync.Mutex
	events []published
}

func (r *recorder) Publish(_ context.Context, userID string, evt activity.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, published{userID: userID, event: evt})
}

type fixture struct {
	store  *memory.Store
	images *fakeImages
	events *recorder
	svc    *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: memory.New(), images: &fakeImages{}, events: &recorder{}}
	f.svc = NewService(f.store, f.images, f.events)
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

// failingStore fails selected writes of the wrapped memory store.
type failingStore struct {
	*memory.Store
	failCreatePost bool
	failSaveUser   bool
}

func (s *failingStore) CreatePost(ctx context.Context, post store.Post) (store.Post, error) {
	if s.failCreatePost {
		return store.Post{}, errors.New("insert failed")
	}
	return s.Store.CreatePost(ctx, post)
}

func (s *failingStore) SaveUser(ctx context.Context, user store.User) (store.User, error) {
	if s.failSaveUser {
		return store.User{}, errors.New("update failed")
	}
	return s.Store.SaveUser(ctx, user)
}
