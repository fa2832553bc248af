package relay

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"tradechat/internal/config"
	"tradechat/internal/dto"
	"tradechat/internal/obs"
)

// Server bundles the relay's HTTP surface: the websocket endpoint and the
// REST conversation API.
type Server struct {
	store     *Store
	hub       *Hub
	publisher Publisher
	logger    *slog.Logger
	authToken string
	upgrader  websocket.Upgrader
}

// NewServer wires a relay server. publisher may be nil, in which case
// messages fan out through the local hub only.
func NewServer(cfg config.Config, store *Store, hub *Hub, publisher Publisher, logger *slog.Logger) *Server {
	if publisher == nil {
		publisher = localPublisher{hub: hub}
	}
	return &Server{
		store:     store,
		hub:       hub,
		publisher: publisher,
		logger:    logger,
		authToken: cfg.AuthToken,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(*http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Router builds the gin engine.
func (s *Server) Router(cfg config.Config) *gin.Engine {
	mode := configureGinMode(cfg.Env)
	if s.logger != nil {
		s.logger.Info("gin initialized", "mode", mode)
	}

	obsMW := obs.Middleware{Logger: s.logger}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.AccessLog())
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "Content-Type", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))

	health := obs.HealthHandlers{Ready: func() error { return nil }}
	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	router.GET("/ws", s.handleWS)

	api := router.Group("/api/v1")
	api.Use(s.requireAuth())
	api.GET("/conversations", s.listConversations)
	api.GET("/conversations/:id/messages", s.listMessages)
	api.DELETE("/conversations/:id", s.deleteConversation)

	return router
}

func (s *Server) handleWS(c *gin.Context) {
	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("websocket upgrade failed", "error", err)
		}
		return
	}
	client := &wsClient{
		ws:        ws,
		hub:       s.hub,
		store:     s.store,
		publisher: s.publisher,
		logger:    s.logger,
		authToken: s.authToken,
	}
	client.serve()
}

func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.authToken == "" {
			c.Next()
			return
		}
		auth := c.GetHeader("Authorization")
		if auth != "Bearer "+s.authToken {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func (s *Server) listConversations(c *gin.Context) {
	c.JSON(http.StatusOK, dto.ConversationList{Items: s.store.List()})
}

func (s *Server) listMessages(c *gin.Context) {
	conversationID := strings.TrimSpace(c.Param("id"))
	if conversationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "conversation id is required"})
		return
	}
	messages, ok := s.store.Messages(conversationID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, dto.ChatMessageList{Items: messages})
}

func (s *Server) deleteConversation(c *gin.Context) {
	conversationID := strings.TrimSpace(c.Param("id"))
	if !s.store.Delete(conversationID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func configureGinMode(env string) string {
	if env == "dev" || env == "local" {
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	}
	gin.SetMode(gin.ReleaseMode)
	return gin.ReleaseMode
}
