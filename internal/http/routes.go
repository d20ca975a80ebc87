package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/tazhibayda/posts-service/internal/security"
)

func NewRouter(h *Handler, v security.Verifier, rl Limiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID(), Trace("posts-service"), Metrics(), AccessLog())

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if h.Users != nil {
		users := r.Group("/api/users")
		{
			users.POST("/register", h.Register)
			users.POST("/login", h.Login)
		}
	}

	limit := RateLimit(rl)
	posts := r.Group("/posts", AuthJWT(v))
	{
		posts.POST("", limit, h.CreatePost)
		posts.GET("/:topic", h.ListByTopic)
		posts.GET("/most-active/:topic", h.MostActive)
		posts.GET("/expired/:topic", h.Expired)
		posts.PUT("/:id/like", limit, h.Like)
		posts.PUT("/:id/dislike", limit, h.Dislike)
		posts.POST("/:id/comment", limit, h.Comment)
	}
	return r
}
