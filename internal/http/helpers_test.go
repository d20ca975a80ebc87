package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	api "github.com/tazhibayda/posts-service/internal/http"
	"github.com/tazhibayda/posts-service/internal/repo"
	"github.com/tazhibayda/posts-service/internal/security"
	"github.com/tazhibayda/posts-service/internal/service"
)

const testSecret = "test-secret"

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	T      *testing.T
	Store  *repo.MemStore
	Clock  *clock
	Router *gin.Engine
}

func newTestEnv(t *testing.T, limiter api.Limiter) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repo.NewMemStore()
	clk := &clock{t: time.Now().UTC()}
	posts := service.NewPosts(store, nil, "posts.events", 280)
	posts.Now = clk.Now
	users := &service.Users{Store: store, JWTSecret: testSecret, AccessTTL: time.Hour}

	if limiter == nil {
		limiter = api.NewRateLimiter(1000, time.Minute)
	}
	h := api.NewHandler(posts, users, store)
	r := api.NewRouter(h, security.HMACVerifier{Secret: testSecret}, limiter)
	return &testEnv{T: t, Store: store, Clock: clk, Router: r}
}

// user returns a fresh user id and a bearer token for it.
func (e *testEnv) user() (primitive.ObjectID, string) {
	e.T.Helper()
	uid := primitive.NewObjectID()
	tok, err := security.MakeAccess(testSecret, uid.Hex(), uid.Hex()+"@example.com", time.Hour)
	require.NoError(e.T, err)
	return uid, tok
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.T.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(e.T, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body=%s", w.Body.String())
	return v
}

type postResp struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Topic    string   `json:"topic"`
	Status   string   `json:"status"`
	Owner    string   `json:"owner"`
	Likes    []string `json:"likes"`
	Dislikes []string `json:"dislikes"`
	Comments []struct {
		User    string `json:"user"`
		Comment string `json:"comment"`
	} `json:"comments"`
}

type errResp struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

func (e *testEnv) createPost(token, topic string, minutes int) postResp {
	e.T.Helper()
	w := e.do("POST", "/posts", token, map[string]any{
		"title": "hello", "body": "world", "topic": topic, "expiration_minutes": minutes,
	})
	require.Equal(e.T, 201, w.Code, w.Body.String())
	return decode[postResp](e.T, w)
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return context.DeadlineExceeded }
