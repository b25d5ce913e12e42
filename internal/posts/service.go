package posts

import (
	"context"
	"errors"
	"fmt"

	"backend-socialmedia/internal/activity"
	"backend-socialmedia/internal/logging"
	"backend-socialmedia/internal/media"
	"backend-socialmedia/internal/metrics"
	"backend-socialmedia/internal/store"
)

var (
	ErrMissingContent = errors.New("caption and image are required")
	ErrMissingPostID  = errors.New("post id is required")
	ErrPostNotFound   = errors.New("post not found")
	ErrNotOwner       = errors.New("not the post owner")
)

// Images is the media collaborator.
type Images interface {
	Upload(ctx context.Context, folder, data string) (store.Image, error)
	Delete(ctx context.Context, publicID string) error
}

type Service struct {
	store  store.Store
	images Images
	events activity.Publisher
}

func NewService(st store.Store, images Images, events activity.Publisher) *Service {
	if events == nil {
		events = activity.Discard{}
	}
	return &Service{store: st, images: images, events: events}
}

// Create uploads the image, stores the post and links it to the owner. The
// owner is read after the upload so the save does not overwrite follow
// changes made meanwhile. On failure the uploaded image is deleted.
func (s *Service) Create(ctx context.Context, ownerID string, req CreateRequest) (store.Post, error) {
	if req.Caption == "" || req.PostImage == "" {
		return store.Post{}, ErrMissingContent
	}
	if _, err := s.store.UserByID(ctx, ownerID); err != nil {
		return store.Post{}, err
	}

	img, err := s.images.Upload(ctx, media.FolderPosts, req.PostImage)
	if err != nil {
		return store.Post{}, err
	}
	post, err := s.store.CreatePost(ctx, store.Post{
		Owner:   ownerID,
		Caption: req.Caption,
		Image:   img,
	})
	if err != nil {
		s.discardImage(ctx, img)
		return store.Post{}, err
	}

	owner, err := s.store.UserByID(ctx, ownerID)
	if err == nil {
		owner.Posts = append(owner.Posts, post.ID)
		owner, err = s.store.SaveUser(ctx, owner)
	}
	if err != nil {
		if derr := s.store.DeletePost(ctx, post.ID); derr != nil {
			l := logging.Ctx(ctx)
			l.Warn().Err(derr).Str("post_id", post.ID).Msg("delete unlinked post")
		}
		s.discardImage(ctx, img)
		return store.Post{}, fmt.Errorf("link post to owner: %w", err)
	}

	metrics.RecordPostCreated()
	for _, follower := range owner.Followers {
		s.events.Publish(ctx, follower, activity.Event{
			Type:    activity.EventPostCreated,
			ActorID: ownerID,
			PostID:  post.ID,
		})
	}
	return post, nil
}

func (s *Service) discardImage(ctx context.Context, img store.Image) {
	if err := s.images.Delete(ctx, img.PublicID); err != nil {
		l := logging.Ctx(ctx)
		l.Warn().Err(err).Str("public_id", img.PublicID).Msg("delete orphaned image")
	}
}

// LikeOrUnlike toggles userID in the like set of the post and returns the
// post as seen by userID.
func (s *Service) LikeOrUnlike(ctx context.Context, userID, postID string) (View, error) {
	if postID == "" {
		return View{}, ErrMissingPostID
	}
	post, err := s.findPost(ctx, postID)
	if err != nil {
		return View{}, err
	}

	var liked bool
	post.Likes, liked = store.Toggle(post.Likes, userID)
	post, err = s.store.SavePost(ctx, post)
	if err != nil {
		return View{}, err
	}
	metrics.RecordLikeToggled(liked)

	if liked && post.Owner != userID {
		s.events.Publish(ctx, post.Owner, activity.Event{
			Type:    activity.EventPostLiked,
			ActorID: userID,
			PostID:  post.ID,
		})
	}

	owner, err := s.store.UserByID(ctx, post.Owner)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return View{}, err
	}
	return NewView(post, owner, userID), nil
}

func (s *Service) Update(ctx context.Context, userID string, req UpdateRequest) (store.Post, error) {
	if req.PostID == "" {
		return store.Post{}, ErrMissingPostID
	}
	post, err := s.findPost(ctx, req.PostID)
	if err != nil {
		return store.Post{}, err
	}
	if post.Owner != userID {
		return store.Post{}, ErrNotOwner
	}
	if req.Caption != "" {
		post.Caption = req.Caption
	}
	return s.store.SavePost(ctx, post)
}

// Delete removes the post from its owner's list, then the post itself,
// then its image. A failed image delete is only logged.
func (s *Service) Delete(ctx context.Context, userID, postID string) error {
	if postID == "" {
		return ErrMissingPostID
	}
	post, err := s.findPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.Owner != userID {
		return ErrNotOwner
	}

	owner, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return err
	}
	owner.Posts = store.Remove(owner.Posts, postID)
	if _, err := s.store.SaveUser(ctx, owner); err != nil {
		return err
	}
	if err := s.store.DeletePost(ctx, postID); err != nil {
		return err
	}

	if err := s.images.Delete(ctx, post.Image.PublicID); err != nil {
		l := logging.Ctx(ctx)
		l.Warn().Err(err).Str("public_id", post.Image.PublicID).Msg("delete post image")
	}
	return nil
}

func (s *Service) findPost(ctx context.Context, postID string) (store.Post, error) {
	post, err := s.store.PostByID(ctx, postID)
	if errors.Is(err, store.ErrNotFound) {
		return store.Post{}, ErrPostNotFound
	}
	return post, err
}
