package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/tazhibayda/posts-service/internal/log"
	"github.com/tazhibayda/posts-service/internal/service"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Posts *service.Posts
	Users *service.Users
	Store Pinger
}

func NewHandler(posts *service.Posts, users *service.Users, store Pinger) *Handler {
	return &Handler{Posts: posts, Users: users, Store: store}
}

func statusOf(r service.Reason) int {
	switch r {
	case service.ReasonNotFound:
		return http.StatusNotFound
	case service.ReasonUnauthorized:
		return http.StatusUnauthorized
	case service.ReasonConflict:
		return http.StatusConflict
	case service.ReasonStore:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// writeError is the only place a rejection becomes an HTTP response.
func writeError(c *gin.Context, err error) {
	reason := service.ReasonOf(err)
	status := statusOf(reason)
	if status >= http.StatusInternalServerError {
		log.Ctx(c.Request.Context()).Error("request failed",
			zap.String("route", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": service.MessageOf(err), "reason": reason})
}

func badJSON(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json", "reason": service.ReasonValidation})
}

// actor reads the user id that AuthJWT put on the context.
func actor(c *gin.Context) (primitive.ObjectID, bool) {
	uid, err := primitive.ObjectIDFromHex(c.GetString("uid"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid uid", "reason": service.ReasonUnauthorized})
		return primitive.NilObjectID, false
	}
	return uid, true
}

type createPostReq struct {
	Title             string `json:"title"`
	Body              string `json:"body"`
	Topic             string `json:"topic"`
	ExpirationMinutes int    `json:"expiration_minutes"`
}

// CreatePost godoc
// @Summary Create post
// @Tags posts
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body createPostReq true "title, body, topic (Politics|Health|Sport|Tech), expiration_minutes"
// @Success 201 {object} domain.Post
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /posts [post]
func (h *Handler) CreatePost(c *gin.Context) {
	uid, ok := actor(c)
	if !ok {
		return
	}
	var in createPostReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badJSON(c)
		return
	}
	p, err := h.Posts.Create(c.Request.Context(), uid, service.CreatePostInput{
		Title: in.Title, Body: in.Body, Topic: in.Topic, ExpirationMinutes: in.ExpirationMinutes,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// ListByTopic godoc
// @Summary Posts of a topic, oldest first
// @Tags posts
// @Security BearerAuth
// @Produce json
// @Param topic path string true "Politics|Health|Sport|Tech"
// @Success 200 {array} domain.Post
// @Failure 400 {object} map[string]string
// @Router /posts/{topic} [get]
func (h *Handler) ListByTopic(c *gin.Context) {
	posts, err := h.Posts.ListByTopic(c.Request.Context(), c.Param("topic"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

// Like godoc
// @Summary Like post
// @Tags reactions
// @Security BearerAuth
// @Produce json
// @Param id path string true "post id"
// @Success 200 {object} map[string]int
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /posts/{id}/like [put]
func (h *Handler) Like(c *gin.Context) {
	h.react(c, "likes", h.Posts.Like)
}

// Dislike godoc
// @Summary Dislike post
// @Tags reactions
// @Security BearerAuth
// @Produce json
// @Param id path string true "post id"
// @Success 200 {object} map[string]int
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /posts/{id}/dislike [put]
func (h *Handler) Dislike(c *gin.Context) {
	h.react(c, "dislikes", h.Posts.Dislike)
}

func (h *Handler) react(c *gin.Context, field string, fn func(context.Context, primitive.ObjectID, primitive.ObjectID) (int, error)) {
	uid, ok := actor(c)
	if !ok {
		return
	}
	id, err := service.ParseID(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	n, err := fn(c.Request.Context(), id, uid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{field: n})
}

type commentReq struct {
	Comment string `json:"comment"`
}

// Comment godoc
// @Summary Comment on post
// @Tags reactions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "post id"
// @Param payload body commentReq true "comment"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /posts/{id}/comment [post]
func (h *Handler) Comment(c *gin.Context) {
	uid, ok := actor(c)
	if !ok {
		return
	}
	id, err := service.ParseID(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	var in commentReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badJSON(c)
		return
	}
	cm, err := h.Posts.Comment(c.Request.Context(), id, uid, in.Comment)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Comment added", "comment": cm})
}

// MostActive godoc
// @Summary Post with the most likes and dislikes in a topic
// @Description Returns null when the topic has no posts. Expired posts are included.
// @Tags posts
// @Security BearerAuth
// @Produce json
// @Param topic path string true "Politics|Health|Sport|Tech"
// @Success 200 {object} domain.Post
// @Failure 400 {object} map[string]string
// @Router /posts/most-active/{topic} [get]
func (h *Handler) MostActive(c *gin.Context) {
	p, err := h.Posts.MostActive(c.Request.Context(), c.Param("topic"))
	if err != nil {
		writeError(c, err)
		return
	}
	if p == nil {
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Expired godoc
// @Summary Posts of a topic stored as Expired
// @Tags posts
// @Security BearerAuth
// @Produce json
// @Param topic path string true "Politics|Health|Sport|Tech"
// @Success 200 {array} domain.Post
// @Failure 400 {object} map[string]string
// @Router /posts/expired/{topic} [get]
func (h *Handler) Expired(c *gin.Context) {
	posts, err := h.Posts.ExpiredByTopic(c.Request.Context(), c.Param("topic"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register godoc
// @Summary Register user
// @Tags users
// @Accept json
// @Produce json
// @Param payload body registerReq true "register"
// @Success 201 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/users/register [post]
func (h *Handler) Register(c *gin.Context) {
	var in registerReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badJSON(c)
		return
	}
	u, err := h.Users.Register(c.Request.Context(), service.RegisterInput{
		Username: in.Username, Email: in.Email, Password: in.Password,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	log.Ctx(c.Request.Context()).Info("user registered", zap.String("user_id", u.ID.Hex()))
	c.JSON(http.StatusCreated, gin.H{"id": u.ID.Hex(), "username": u.Username, "email": u.Email})
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login godoc
// @Summary Login, returns an access token
// @Tags users
// @Accept json
// @Produce json
// @Param payload body loginReq true "login"
// @Success 200 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/users/login [post]
func (h *Handler) Login(c *gin.Context) {
	var in loginReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badJSON(c)
		return
	}
	tok, err := h.Users.Login(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	// старые клиенты читают токен из заголовка
	c.Header(headerAuthToken, tok)
	c.JSON(http.StatusOK, gin.H{"access": tok})
}

func (h *Handler) Healthz(c *gin.Context) {
	if err := h.Store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
