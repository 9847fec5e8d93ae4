package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/convictionlabs/conviction/feed"
	"github.com/convictionlabs/conviction/middleware"
	"github.com/convictionlabs/conviction/models"
	"github.com/convictionlabs/conviction/repos"
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "test-secret")
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newTestEngine(t *testing.T) (*feed.Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	// One pooled connection keeps every caller on the same in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Thesis{},
		&models.Reaction{},
		&models.Block{},
		&models.Rationale{},
		&models.Event{},
		&models.Notification{},
	))
	return feed.NewService(repos.New(db), 0), db
}

func testContext(t *testing.T, method, target string, body interface{}, userID uint) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	ctx.Request = httptest.NewRequest(method, target, reader)
	ctx.Set(middleware.ContextUserIDKey, userID)
	ctx.Set(middleware.ContextUsernameKey, "tester")
	return ctx, w
}

type listPostsResponse struct {
	Code int `json:"code"`
	Data struct {
		Items []models.Post `json:"items"`
	} `json:"data"`
}

func TestListPostsCommentOnFilter(t *testing.T) {
	engine, db := newTestEngine(t)
	controller := NewPostController(engine)

	alice := &models.User{Username: "alice", PasswordHash: "x"}
	require.NoError(t, db.Create(alice).Error)
	root := &models.Post{UserID: alice.ID, Username: alice.Username, Content: "root"}
	require.NoError(t, db.Create(root).Error)
	other := &models.Post{UserID: alice.ID, Username: alice.Username, Content: "other root"}
	require.NoError(t, db.Create(other).Error)

	reply := &models.Post{
		UserID:          alice.ID,
		Username:        alice.Username,
		Content:         "reply",
		CommentOnPostID: &root.ID,
	}
	require.NoError(t, engine.CreatePost(context.Background(), reply))

	target := fmt.Sprintf("/api/v1/posts?comment_on_post_id=%d", root.ID)
	ctx, w := testContext(t, http.MethodGet, target, nil, alice.ID)
	controller.ListPosts(ctx)

	require.Equal(t, http.StatusOK, w.Code)
	var resp listPostsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Items, 1)
	assert.Equal(t, reply.ID, resp.Data.Items[0].ID)
}

func TestListPostsCommentOnThesisFilter(t *testing.T) {
	engine, db := newTestEngine(t)
	controller := NewPostController(engine)

	alice := &models.User{Username: "alice", PasswordHash: "x"}
	require.NoError(t, db.Create(alice).Error)
	thesis := &models.Thesis{
		UserID:      alice.ID,
		Username:    alice.Username,
		Title:       "TSLA view",
		Content:     "body",
		AssetSymbol: "TSLA",
		Sentiment:   models.SentimentBull,
	}
	require.NoError(t, db.Create(thesis).Error)

	reply := &models.Post{
		UserID:            alice.ID,
		Username:          alice.Username,
		Content:           "thesis reply",
		CommentOnThesisID: &thesis.ID,
	}
	require.NoError(t, engine.CreatePost(context.Background(), reply))

	target := fmt.Sprintf("/api/v1/posts?comment_on_thesis_id=%d", thesis.ID)
	ctx, w := testContext(t, http.MethodGet, target, nil, alice.ID)
	controller.ListPosts(ctx)

	require.Equal(t, http.StatusOK, w.Code)
	var resp listPostsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Items, 1)
	assert.Equal(t, reply.ID, resp.Data.Items[0].ID)
}

func TestUpdatePost(t *testing.T) {
	engine, db := newTestEngine(t)
	controller := NewPostController(engine)

	alice := &models.User{Username: "alice", PasswordHash: "x"}
	bob := &models.User{Username: "bob", PasswordHash: "x"}
	require.NoError(t, db.Create(alice).Error)
	require.NoError(t, db.Create(bob).Error)
	post := &models.Post{UserID: alice.ID, Username: alice.Username, Content: "before"}
	require.NoError(t, db.Create(post).Error)

	// Someone else's edit is rejected.
	ctx, w := testContext(t, http.MethodPatch, "/api/v1/posts/1", gin.H{"content": "hijack"}, bob.ID)
	ctx.Params = gin.Params{{Key: "id", Value: fmt.Sprint(post.ID)}}
	controller.UpdatePost(ctx)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// The owner's edit sticks.
	ctx, w = testContext(t, http.MethodPatch, "/api/v1/posts/1", gin.H{"content": "after"}, alice.ID)
	ctx.Params = gin.Params{{Key: "id", Value: fmt.Sprint(post.ID)}}
	controller.UpdatePost(ctx)
	require.Equal(t, http.StatusOK, w.Code)

	var stored models.Post
	require.NoError(t, db.First(&stored, post.ID).Error)
	assert.Equal(t, "after", stored.Content)

	// Blank content is rejected.
	ctx, w = testContext(t, http.MethodPatch, "/api/v1/posts/1", gin.H{"content": "   "}, alice.ID)
	ctx.Params = gin.Params{{Key: "id", Value: fmt.Sprint(post.ID)}}
	controller.UpdatePost(ctx)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
