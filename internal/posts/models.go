package posts

import (
	"context"
	"time"

	"backend-socialmedia/internal/store"
)

type CreateRequest struct {
	Caption   string `json:"caption"`
	PostImage string `json:"postImage"`
}

type LikeRequest struct {
	PostID string `json:"postId"`
}

type UpdateRequest struct {
	PostID  string `json:"postId"`
	Caption string `json:"caption"`
}

type DeleteRequest struct {
	PostID string `json:"postId"`
}

// UserSummary is the public slice of a user embedded in post views.
type UserSummary struct {
	ID     string      `json:"_id"`
	Name   string      `json:"name"`
	Avatar store.Image `json:"avatar"`
}

// View is a post as seen by a particular viewer.
type View struct {
	ID         string        `json:"_id"`
	Caption    string        `json:"caption"`
	Image      store.Image   `json:"image"`
	Owner      UserSummary   `json:"owner"`
	LikesCount int           `json:"likesCount"`
	IsLiked    bool          `json:"isLiked"`
	Likes      []UserSummary `json:"likes,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

func Summarize(u store.User) UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Avatar: u.Avatar}
}

func NewView(p store.Post, owner store.User, viewerID string) View {
	summary := Summarize(owner)
	if summary.ID == "" {
		summary.ID = p.Owner
	}
	return View{
		ID:         p.ID,
		Caption:    p.Caption,
		Image:      p.Image,
		Owner:      summary,
		LikesCount: len(p.Likes),
		IsLiked:    store.Contains(p.Likes, viewerID),
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

// Views maps posts for viewerID, loading every referenced user in a single
// query. With withLikes set, each view also lists who liked it. The input
// order is kept.
func Views(ctx context.Context, users store.UserStore, list []store.Post, viewerID string, withLikes bool) ([]View, error) {
	var ids []string
	for _, p := range list {
		if !store.Contains(ids, p.Owner) {
			ids = append(ids, p.Owner)
		}
		if withLikes {
			for _, id := range p.Likes {
				if !store.Contains(ids, id) {
					ids = append(ids, id)
				}
			}
		}
	}

	byID := make(map[string]store.User, len(ids))
	if len(ids) > 0 {
		found, err := users.UsersByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, u := range found {
			byID[u.ID] = u
		}
	}

	views := make([]View, 0, len(list))
	for _, p := range list {
		v := NewView(p, byID[p.Owner], viewerID)
		if withLikes {
			v.Likes = make([]UserSummary, 0, len(p.Likes))
			for _, id := range p.Likes {
				if u, ok := byID[id]; ok {
					v.Likes = append(v.Likes, Summarize(u))
				}
			}
		}
		views = append(views, v)
	}
	return views, nil
}

// NewestFirst reverses views in place. Stores return creation order.
func NewestFirst(views []View) []View {
	for i, j := 0, len(views)-1; i < j; i, j = i+1, j-1 {
		views[i], views[j] = views[j], views[i]
	}
	return views
}
