package users

import (
	"backend-socialmedia/internal/posts"
	"backend-socialmedia/internal/store"
)

type FollowRequest struct {
	UserIDToFollow string `json:"userIdToFollow"`
}

type UserIDRequest struct {
	UserID string `json:"userId" query:"userId"`
}

type UpdateRequest struct {
	Name      string `json:"name"`
	Bio       string `json:"bio"`
	UserImage string `json:"userImage"`
}

// FeedData is the current user's document with its followings populated,
// follow suggestions and the followings' posts.
type FeedData struct {
	store.User
	Followings  []store.User `json:"followings"`
	Suggestions []store.User `json:"suggestions"`
	Posts       []posts.View `json:"posts"`
}

// ProfileData is a user's document with its posts as seen by the viewer.
type ProfileData struct {
	store.User
	Posts []posts.View `json:"posts"`
}
