package users

import (
	"context"
	"errors"
	"fmt"

	"backend-socialmedia/internal/activity"
	"backend-socialmedia/internal/logging"
	"backend-socialmedia/internal/media"
	"backend-socialmedia/internal/metrics"
	"backend-socialmedia/internal/posts"
	"backend-socialmedia/internal/store"
)

var (
	ErrMissingTarget  = errors.New("user to follow is required")
	ErrSelfFollow     = errors.New("users cannot follow themselves")
	ErrTargetNotFound = errors.New("user to follow not found")
	ErrMissingUserID  = errors.New("user id is required")
	ErrUserNotFound   = errors.New("user not found")
)

// SessionRevoker drops the refresh sessions of a deleted user.
type SessionRevoker interface {
	RevokeAll(ctx context.Context, userID string) error
}

type Service struct {
	store    store.Store
	images   posts.Images
	events   activity.Publisher
	sessions SessionRevoker
}

func NewService(st store.Store, images posts.Images, events activity.Publisher, sessions SessionRevoker) *Service {
	if events == nil {
		events = activity.Discard{}
	}
	return &Service{store: st, images: images, events: events, sessions: sessions}
}

// FollowOrUnfollow toggles the follow edge from currentID to targetID on
// both documents. The target is written first; a failure between the two
// writes leaves the edge one-sided.
func (s *Service) FollowOrUnfollow(ctx context.Context, currentID, targetID string) (store.User, error) {
	if targetID == "" {
		return store.User{}, ErrMissingTarget
	}
	if targetID == currentID {
		return store.User{}, ErrSelfFollow
	}
	target, err := s.store.UserByID(ctx, targetID)
	if errors.Is(err, store.ErrNotFound) {
		return store.User{}, ErrTargetNotFound
	}
	if err != nil {
		return store.User{}, err
	}
	current, err := s.user(ctx, currentID)
	if err != nil {
		return store.User{}, err
	}

	var followed bool
	current.Followings, followed = store.Toggle(current.Followings, targetID)
	if followed {
		if !store.Contains(target.Followers, currentID) {
			target.Followers = append(target.Followers, currentID)
		}
	} else {
		target.Followers = store.Remove(target.Followers, currentID)
	}

	target, err = s.store.SaveUser(ctx, target)
	if err != nil {
		return store.User{}, err
	}
	if _, err := s.store.SaveUser(ctx, current); err != nil {
		return store.User{}, fmt.Errorf("save follower: %w", err)
	}

	metrics.RecordFollowToggled(followed)
	if followed {
		s.events.Publish(ctx, targetID, activity.Event{Type: activity.EventFollowed, ActorID: currentID})
	}
	return target, nil
}

func (s *Service) Feed(ctx context.Context, currentID string) (FeedData, error) {
	current, err := s.user(ctx, currentID)
	if err != nil {
		return FeedData{}, err
	}

	followings, err := s.store.UsersByIDs(ctx, current.Followings)
	if err != nil {
		return FeedData{}, err
	}
	list, err := s.store.PostsByOwners(ctx, current.Followings)
	if err != nil {
		return FeedData{}, err
	}
	views, err := posts.Views(ctx, s.store, list, currentID, false)
	if err != nil {
		return FeedData{}, err
	}
	suggestions, err := s.store.UsersExcept(ctx, append(append([]string{}, current.Followings...), currentID))
	if err != nil {
		return FeedData{}, err
	}

	return FeedData{
		User:        current,
		Followings:  followings,
		Suggestions: suggestions,
		Posts:       posts.NewestFirst(views),
	}, nil
}

// MyPosts lists the posts owned by currentID, newest first, with likers
// populated.
func (s *Service) MyPosts(ctx context.Context, currentID string) ([]posts.View, error) {
	return s.postsOf(ctx, currentID, currentID)
}

func (s *Service) UserPosts(ctx context.Context, viewerID, userID string) ([]posts.View, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	return s.postsOf(ctx, viewerID, userID)
}

func (s *Service) postsOf(ctx context.Context, viewerID, ownerID string) ([]posts.View, error) {
	list, err := s.store.PostsByOwners(ctx, []string{ownerID})
	if err != nil {
		return nil, err
	}
	views, err := posts.Views(ctx, s.store, list, viewerID, true)
	if err != nil {
		return nil, err
	}
	return posts.NewestFirst(views), nil
}

// DeleteProfile removes userID and every reference to it: owned posts,
// follow edges on other users and likes on other posts. Steps run in
// sequence without compensation.
func (s *Service) DeleteProfile(ctx context.Context, userID string) error {
	l := logging.Ctx(ctx)
	user, err := s.user(ctx, userID)
	if err != nil {
		return err
	}

	owned, err := s.store.PostsByOwners(ctx, []string{userID})
	if err != nil {
		return err
	}
	if _, err := s.store.DeletePostsByOwner(ctx, userID); err != nil {
		return fmt.Errorf("delete posts: %w", err)
	}
	for _, p := range owned {
		if err := s.images.Delete(ctx, p.Image.PublicID); err != nil {
			l.Warn().Err(err).Str("public_id", p.Image.PublicID).Msg("delete post image")
		}
	}

	for _, id := range user.Followers {
		if err := s.updateUser(ctx, id, func(u *store.User) { u.Followings = store.Remove(u.Followings, userID) }); err != nil {
			return fmt.Errorf("unlink follower %s: %w", id, err)
		}
	}
	for _, id := range user.Followings {
		if err := s.updateUser(ctx, id, func(u *store.User) { u.Followers = store.Remove(u.Followers, userID) }); err != nil {
			return fmt.Errorf("unlink following %s: %w", id, err)
		}
	}

	liked, err := s.store.PostsLikedBy(ctx, userID)
	if err != nil {
		return err
	}
	for _, p := range liked {
		p.Likes = store.Remove(p.Likes, userID)
		if _, err := s.store.SavePost(ctx, p); err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("unlike post %s: %w", p.ID, err)
		}
	}

	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return err
	}
	if user.Avatar.PublicID != "" {
		if err := s.images.Delete(ctx, user.Avatar.PublicID); err != nil {
			l.Warn().Err(err).Msg("delete avatar")
		}
	}
	if s.sessions != nil {
		if err := s.sessions.RevokeAll(ctx, userID); err != nil {
			l.Warn().Err(err).Msg("revoke sessions of deleted user")
		}
	}

	metrics.RecordProfileDeleted()
	l.Info().Int("posts", len(owned)).Int("likes", len(liked)).Msg("profile deleted")
	return nil
}

// updateUser applies fn to a stored user. Users that vanished meanwhile
// are skipped.
func (s *Service) updateUser(ctx context.Context, id string, fn func(*store.User)) error {
	u, err := s.store.UserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	fn(&u)
	_, err = s.store.SaveUser(ctx, u)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

func (s *Service) MyInfo(ctx context.Context, currentID string) (store.User, error) {
	return s.user(ctx, currentID)
}

// UpdateProfile sets the non-empty fields of req. A new avatar replaces the
// old one, which is then deleted best effort.
func (s *Service) UpdateProfile(ctx context.Context, currentID string, req UpdateRequest) (store.User, error) {
	user, err := s.user(ctx, currentID)
	if err != nil {
		return store.User{}, err
	}
	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Bio != "" {
		user.Bio = req.Bio
	}

	previous := user.Avatar
	if req.UserImage != "" {
		img, err := s.images.Upload(ctx, media.FolderProfiles, req.UserImage)
		if err != nil {
			return store.User{}, err
		}
		user.Avatar = img
	}

	saved, err := s.store.SaveUser(ctx, user)
	if err != nil {
		return store.User{}, err
	}
	if req.UserImage != "" && previous.PublicID != "" {
		if err := s.images.Delete(ctx, previous.PublicID); err != nil {
			l := logging.Ctx(ctx)
			l.Warn().Err(err).Str("public_id", previous.PublicID).Msg("delete previous avatar")
		}
	}
	return saved, nil
}

func (s *Service) UserProfile(ctx context.Context, viewerID, userID string) (ProfileData, error) {
	if userID == "" {
		return ProfileData{}, ErrMissingUserID
	}
	user, err := s.user(ctx, userID)
	if err != nil {
		return ProfileData{}, err
	}
	list, err := s.store.PostsByOwners(ctx, []string{userID})
	if err != nil {
		return ProfileData{}, err
	}
	views, err := posts.Views(ctx, s.store, list, viewerID, false)
	if err != nil {
		return ProfileData{}, err
	}
	return ProfileData{User: user, Posts: posts.NewestFirst(views)}, nil
}

func (s *Service) user(ctx context.Context, id string) (store.User, error) {
	u, err := s.store.UserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return store.User{}, ErrUserNotFound
	}
	return u, err
}
