package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"backend-socialmedia/internal/config"
	"backend-socialmedia/internal/media"
	"backend-socialmedia/internal/store/memory"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testConfig() config.Config {
	return config.Config{
		ServerPort:      ":0",
		AccessTokenKey:  "access",
		RefreshTokenKey: "refresh",
		RateLimitRPS:    100,
		RateLimitBurst:  100,
	}
}

func newTestServer(t *testing.T, rdb *redis.Client) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	objects, err := media.NewLocalStorage(dir, "http://localhost/media")
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}
	s := NewServer(testConfig(), memory.New(), objects, rdb)
	t.Cleanup(func() { _ = s.Close() })
	return s, dir
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
}

func do(t *testing.T, s *Server, method, path, token string, body any) (*http.Response, envelope) {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.App.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &env)
	return resp, env
}

func TestHealthRoute(t *testing.T) {
	s, _ := newTestServer(t, nil)

	resp, _ := do(t, s, http.MethodGet, "/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 status")
	}
}

func TestMetricsRoute(t *testing.T) {
	s, _ := newTestServer(t, nil)
	do(t, s, http.MethodGet, "/health", "", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := s.App.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), "socialmedia_http_requests_total") {
		t.Fatalf("expected request counter in exposition")
	}
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	s, _ := newTestServer(t, nil)

	resp, env := do(t, s, http.MethodGet, "/nope", "", nil)
	if resp.StatusCode != http.StatusOK || env.StatusCode != http.StatusNotFound {
		t.Fatalf("expected enveloped 404, got %d %+v", resp.StatusCode, env)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s, _ := newTestServer(t, nil)

	for _, path := range []string{"/users/getMyInfo", "/users/getFeedData", "/users/getMyPosts"} {
		_, env := do(t, s, http.MethodGet, path, "", nil)
		if env.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %+v", path, env)
		}
	}
}

func TestSignupLoginAndPostFlow(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	s, dir := newTestServer(t, rdb)

	_, env := do(t, s, http.MethodPost, "/auth/signup", "", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "secret",
	})
	if env.StatusCode != http.StatusCreated {
		t.Fatalf("signup: %+v", env)
	}

	_, env = do(t, s, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "secret",
	})
	var tokens struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(env.Data, &tokens); err != nil || tokens.AccessToken == "" {
		t.Fatalf("login: %+v", env)
	}

	_, env = do(t, s, http.MethodPost, "/posts", tokens.AccessToken, map[string]string{
		"caption": "summit", "postImage": tinyPNG(t),
	})
	if env.StatusCode != http.StatusOK {
		t.Fatalf("create post: %+v", env)
	}
	var created struct {
		Post struct {
			Image struct {
				PublicID string `json:"publicId"`
			} `json:"image"`
		} `json:"post"`
	}
	_ = json.Unmarshal(env.Data, &created)
	if _, err := os.Stat(filepath.Join(dir, created.Post.Image.PublicID)); err != nil {
		t.Fatalf("expected image on disk: %v", err)
	}

	resp, err := s.App.Test(httptest.NewRequest(http.MethodGet, "/media/"+created.Post.Image.PublicID, nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("expected image served under /media")
	}

	_, env = do(t, s, http.MethodGet, "/users/getMyPosts", tokens.AccessToken, nil)
	var mine struct {
		AllUserPosts []struct {
			Caption string `json:"caption"`
		} `json:"allUserPosts"`
	}
	_ = json.Unmarshal(env.Data, &mine)
	if len(mine.AllUserPosts) != 1 || mine.AllUserPosts[0].Caption != "summit" {
		t.Fatalf("my posts: %s", env.Data)
	}

	_, env = do(t, s, http.MethodDelete, "/users", tokens.AccessToken, nil)
	if env.StatusCode != http.StatusOK {
		t.Fatalf("delete: %+v", env)
	}
	_, env = do(t, s, http.MethodGet, "/users/getMyInfo", tokens.AccessToken, nil)
	if env.StatusCode != http.StatusNotFound {
		t.Fatalf("expected deleted user to be rejected, got %+v", env)
	}
}

func tinyPNG(t *testing.T) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}
