// Package mongostore implements store.Store on a MongoDB database with one
// collection per entity. Ids are ObjectID hex strings.
package mongostore

import (
	"context"
	"errors"
	"strings"
	"time"

	"backend-socialmedia/internal/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection = "users"
	postsCollection = "posts"
)

var (
	withoutPassword = bson.D{{Key: "password", Value: 0}}
	creationOrder   = bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}
)

type Store struct {
	users *mongo.Collection
	posts *mongo.Collection
	now   func() time.Time
}

var _ store.Store = (*Store)(nil)

func New(db *mongo.Database) *Store {
	return &Store{
		users: db.Collection(usersCollection),
		posts: db.Collection(postsCollection),
		now:   time.Now,
	}
}

// EnsureIndexes creates the unique email index and the lookup indexes used
// by feed and cascade queries. It is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	_, err := s.posts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "likes", Value: 1}}},
	})
	return err
}

func (s *Store) CreateUser(ctx context.Context, user store.User) (store.User, error) {
	if user.ID == "" {
		user.ID = primitive.NewObjectID().Hex()
	}
	user.Email = strings.ToLower(user.Email)
	now := s.now().UTC().Truncate(time.Millisecond)
	user.CreatedAt, user.UpdatedAt = now, now
	normalizeUser(&user)

	if _, err := s.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.User{}, store.ErrDuplicateEmail
		}
		return store.User{}, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *Store) UserByID(ctx context.Context, id string) (store.User, error) {
	return s.findUser(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(withoutPassword))
}

func (s *Store) UserByEmail(ctx context.Context, email string) (store.User, error) {
	return s.findUser(ctx, bson.M{"email": strings.ToLower(email)}, options.FindOne())
}

func (s *Store) findUser(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (store.User, error) {
	var user store.User
	if err := s.users.FindOne(ctx, filter, opts).Decode(&user); err != nil {
		return store.User{}, mapErr(err)
	}
	normalizeUser(&user)
	return user, nil
}

func (s *Store) UsersByIDs(ctx context.Context, ids []string) ([]store.User, error) {
	return s.findUsers(ctx, bson.M{"_id": bson.M{"$in": nonNil(ids)}})
}

func (s *Store) UsersExcept(ctx context.Context, ids []string) ([]store.User, error) {
	return s.findUsers(ctx, bson.M{"_id": bson.M{"$nin": nonNil(ids)}})
}

func (s *Store) findUsers(ctx context.Context, filter bson.M) ([]store.User, error) {
	opts := options.Find().SetProjection(withoutPassword).SetSort(creationOrder)
	cur, err := s.users.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	users := []store.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	for i := range users {
		normalizeUser(&users[i])
	}
	return users, nil
}

func (s *Store) SaveUser(ctx context.Context, user store.User) (store.User, error) {
	normalizeUser(&user)
	update := bson.M{"$set": bson.M{
		"name":       user.Name,
		"bio":        user.Bio,
		"avatar":     user.Avatar,
		"posts":      user.Posts,
		"followers":  user.Followers,
		"followings": user.Followings,
		"updatedAt":  s.now().UTC().Truncate(time.Millisecond),
	}}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(withoutPassword)

	var saved store.User
	if err := s.users.FindOneAndUpdate(ctx, bson.M{"_id": user.ID}, update, opts).Decode(&saved); err != nil {
		return store.User{}, mapErr(err)
	}
	normalizeUser(&saved)
	return saved, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.users.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreatePost(ctx context.Context, post store.Post) (store.Post, error) {
	if post.ID == "" {
		post.ID = primitive.NewObjectID().Hex()
	}
	now := s.now().UTC().Truncate(time.Millisecond)
	post.CreatedAt, post.UpdatedAt = now, now
	if post.Likes == nil {
		post.Likes = []string{}
	}
	if _, err := s.posts.InsertOne(ctx, post); err != nil {
		return store.Post{}, err
	}
	return post, nil
}

func (s *Store) PostByID(ctx context.Context, id string) (store.Post, error) {
	var post store.Post
	if err := s.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&post); err != nil {
		return store.Post{}, mapErr(err)
	}
	if post.Likes == nil {
		post.Likes = []string{}
	}
	return post, nil
}

func (s *Store) PostsByOwners(ctx context.Context, ownerIDs []string) ([]store.Post, error) {
	return s.findPosts(ctx, bson.M{"owner": bson.M{"$in": nonNil(ownerIDs)}})
}

func (s *Store) PostsLikedBy(ctx context.Context, userID string) ([]store.Post, error) {
	return s.findPosts(ctx, bson.M{"likes": userID})
}

func (s *Store) findPosts(ctx context.Context, filter bson.M) ([]store.Post, error) {
	cur, err := s.posts.Find(ctx, filter, options.Find().SetSort(creationOrder))
	if err != nil {
		return nil, err
	}
	posts := []store.Post{}
	if err := cur.All(ctx, &posts); err != nil {
		return nil, err
	}
	for i := range posts {
		if posts[i].Likes == nil {
			posts[i].Likes = []string{}
		}
	}
	return posts, nil
}

func (s *Store) SavePost(ctx context.Context, post store.Post) (store.Post, error) {
	if post.Likes == nil {
		post.Likes = []string{}
	}
	update := bson.M{"$set": bson.M{
		"caption":   post.Caption,
		"image":     post.Image,
		"likes":     post.Likes,
		"updatedAt": s.now().UTC().Truncate(time.Millisecond),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var saved store.Post
	if err := s.posts.FindOneAndUpdate(ctx, bson.M{"_id": post.ID}, update, opts).Decode(&saved); err != nil {
		return store.Post{}, mapErr(err)
	}
	if saved.Likes == nil {
		saved.Likes = []string{}
	}
	return saved, nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	res, err := s.posts.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeletePostsByOwner(ctx context.Context, ownerID string) (int64, error) {
	res, err := s.posts.DeleteMany(ctx, bson.M{"owner": ownerID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func mapErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
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

// nonNil keeps $in/$nin operands encoded as arrays rather than null.
func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
