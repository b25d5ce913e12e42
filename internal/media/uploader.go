package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"

	"backend-socialmedia/internal/logging"
	"backend-socialmedia/internal/store"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const (
	FolderPosts    = "postImage"
	FolderProfiles = "profileImage"

	jpegQuality = 85
)

var ErrInvalidImage = errors.New("invalid image data")

type transform func(image.Image) image.Image

// Post images keep their aspect ratio; avatars are cropped square.
var transforms = map[string]transform{
	FolderPosts: func(img image.Image) image.Image {
		return imaging.Fit(img, 1080, 1080, imaging.Lanczos)
	},
	FolderProfiles: func(img image.Image) image.Image {
		return imaging.Fill(img, 400, 400, imaging.Center, imaging.Lanczos)
	},
}

// Uploader is the media collaborator used by the post and profile
// services.
type Uploader struct {
	storage ObjectStorage
}

func NewUploader(storage ObjectStorage) *Uploader {
	return &Uploader{storage: storage}
}

// Upload decodes data (a data URI or bare base64), normalises it for folder
// and stores it as JPEG under folder/<uuid>.jpg.
func (u *Uploader) Upload(ctx context.Context, folder, data string) (store.Image, error) {
	raw, err := decodeBase64(data)
	if err != nil {
		return store.Image{}, err
	}
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return store.Image{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if t, ok := transforms[folder]; ok {
		img = t(img)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return store.Image{}, fmt.Errorf("encode image: %w", err)
	}

	key := folder + "/" + uuid.NewString() + ".jpg"
	if err := u.storage.Write(ctx, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), "image/jpeg"); err != nil {
		return store.Image{}, err
	}

	l := logging.Ctx(ctx)
	l.Debug().Str("key", key).Int("bytes", buf.Len()).Msg("image stored")
	return store.Image{URL: u.storage.URL(key), PublicID: key}, nil
}

// Delete removes a previously uploaded image. An empty id is a no-op.
func (u *Uploader) Delete(ctx context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}
	return u.storage.Delete(ctx, publicID)
}

func decodeBase64(data string) ([]byte, error) {
	data = strings.TrimSpace(data)
	if strings.HasPrefix(data, "data:") {
		comma := strings.IndexByte(data, ',')
		if comma < 0 || !strings.HasSuffix(data[:comma], ";base64") {
			return nil, ErrInvalidImage
		}
		data = data[comma+1:]
	}
	if data == "" {
		return nil, ErrInvalidImage
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(data)
	}
	if err != nil {
		return nil, ErrInvalidImage
	}
	return raw, nil
}
