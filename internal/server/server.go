package server

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"whiteboard-backend/internal/auth"
	"whiteboard-backend/internal/config"
	"whiteboard-backend/internal/handler"
	"whiteboard-backend/internal/presence"
	"whiteboard-backend/internal/room"
	"whiteboard-backend/internal/service"
)

// Server Fiber 서버 래퍼
type Server struct {
	app            *fiber.App
	cfg            *config.Config
	db             *gorm.DB
	hub            *room.Hub
	mirror         *presence.Mirror
	authHandler    *handler.AuthHandler
	boardHandler   *handler.BoardHandler
	inviteHandler  *handler.InviteHandler
	elementHandler *handler.ElementHandler
	boardWSHandler *handler.BoardWSHandler
	healthHandler  *handler.HealthHandler
	jwtManager     *auth.JWTManager
}

// New 새 서버 인스턴스 생성
func New(cfg *config.Config, db *gorm.DB) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "Collaborative Whiteboard API",
		ServerHeader:          "Fiber",
		StrictRouting:         false,
		CaseSensitive:         true,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		Prefork:               false, // WebSocket과 호환성 문제로 비활성화
		ReadBufferSize:        16384,
		WriteBufferSize:       16384,
		BodyLimit:             10 * 1024 * 1024, // 10MB (elements/sync 체크포인트)
		DisableStartupMessage: false,
	})

	// Auth 초기화
	jwtManager := auth.NewJWTManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)
	googleAuth := auth.NewGoogleAuthenticator(cfg.Auth.GoogleClientID)

	// Redis presence 미러 초기화 (선택적)
	mirror, err := presence.NewMirror(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Printf("⚠️ Redis presence mirror initialization failed: %v (online-user listing will use in-memory state only)", err)
		mirror = nil
	} else if mirror == nil {
		log.Println("ℹ️ Redis not configured (online-user listing will use in-memory state only)")
	}

	// 실시간 코어
	registry := room.NewRegistry()
	hub := room.NewHub(registry, cfg.Realtime.CursorInterval)

	members := service.NewMemberService(db)

	return &Server{
		app:            app,
		cfg:            cfg,
		db:             db,
		hub:            hub,
		mirror:         mirror,
		authHandler:    handler.NewAuthHandler(db, jwtManager, googleAuth, cfg.Auth.SecureCookie),
		boardHandler:   handler.NewBoardHandler(db, members, hub, mirror),
		inviteHandler:  handler.NewInviteHandler(db, members),
		elementHandler: handler.NewElementHandler(db, members),
		boardWSHandler: handler.NewBoardWSHandler(hub, members, mirror),
		healthHandler:  handler.NewHealthHandler(db, mirror),
		jwtManager:     jwtManager,
	}
}

// SetupMiddleware 미들웨어 설정
func (s *Server) SetupMiddleware() {
	// 패닉 복구
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// 로깅
	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	// CORS
	s.app.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORS.AllowOrigins,
		AllowHeaders:     s.cfg.CORS.AllowHeaders,
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))
}

// SetupRoutes 라우트 설정
func (s *Server) SetupRoutes() {
	// 헬스체크 엔드포인트
	s.app.Get("/health", s.healthHandler.Check)
	s.app.Get("/health/live", s.healthHandler.Liveness)
	s.app.Get("/health/ready", s.healthHandler.Readiness)

	// Rate Limiter 설정 (인증 엔드포인트용 - Brute Force 방지)
	authLimiter := limiter.New(limiter.Config{
		Max:        10,              // 최대 10회
		Expiration: 1 * time.Minute, // 1분당
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() // IP 기반 제한
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests, please try again later",
			})
		},
	})

	requireAuth := auth.AuthMiddleware(s.jwtManager)
	optionalAuth := auth.OptionalAuthMiddleware(s.jwtManager)

	// Auth 라우트 그룹
	authGroup := s.app.Group("/auth")
	authGroup.Post("/register", authLimiter, s.authHandler.Register)
	authGroup.Post("/login", authLimiter, s.authHandler.Login)
	authGroup.Post("/google", authLimiter, s.authHandler.GoogleLogin)
	authGroup.Post("/refresh", authLimiter, s.authHandler.RefreshToken)
	authGroup.Post("/logout", requireAuth, s.authHandler.Logout)
	authGroup.Get("/me", requireAuth, s.authHandler.GetMe)
	authGroup.Put("/me", requireAuth, s.authHandler.UpdateProfile)
	authGroup.Put("/password", requireAuth, s.authHandler.ChangePassword)

	// Board 라우트 그룹
	boardGroup := s.app.Group("/api/boards")
	boardGroup.Get("/", requireAuth, s.boardHandler.ListBoards)
	boardGroup.Post("/", requireAuth, s.boardHandler.CreateBoard)
	boardGroup.Get("/:id", optionalAuth, s.boardHandler.GetBoard)
	boardGroup.Put("/:id", requireAuth, s.boardHandler.RenameBoard)
	boardGroup.Delete("/:id", requireAuth, s.boardHandler.DeleteBoard)
	boardGroup.Post("/:id/leave", requireAuth, s.boardHandler.LeaveBoard)
	boardGroup.Post("/:id/pin", requireAuth, s.boardHandler.PinBoard)
	boardGroup.Delete("/:id/pin", requireAuth, s.boardHandler.UnpinBoard)
	boardGroup.Get("/:id/online", optionalAuth, s.boardHandler.OnlineUsers)

	// 멤버/초대 라우트 (보드 하위)
	boardGroup.Post("/:id/invites", requireAuth, s.inviteHandler.InviteMember)
	boardGroup.Get("/:id/members", requireAuth, s.inviteHandler.GetBoardMembers)
	boardGroup.Delete("/:id/members/:userId", requireAuth, s.inviteHandler.RemoveMember)
	boardGroup.Put("/:id/members/:userId/role", requireAuth, s.inviteHandler.UpdateMemberRole)

	// Element 라우트 (보드 하위) — sync가 :elementId보다 먼저 매칭돼야 함
	boardGroup.Get("/:id/elements", optionalAuth, s.elementHandler.ListElements)
	boardGroup.Post("/:id/elements", requireAuth, s.elementHandler.CreateElement)
	boardGroup.Put("/:id/elements/sync", requireAuth, s.elementHandler.SyncElements)
	boardGroup.Put("/:id/elements/:elementId", requireAuth, s.elementHandler.UpdateElement)
	boardGroup.Delete("/:id/elements/:elementId", requireAuth, s.elementHandler.DeleteElement)

	// 내 초대 라우트
	inviteGroup := s.app.Group("/api/invites", requireAuth)
	inviteGroup.Get("/", s.inviteHandler.PendingInvites)
	inviteGroup.Post("/:inviteId/accept", s.inviteHandler.AcceptInvite)
	inviteGroup.Post("/:inviteId/decline", s.inviteHandler.DeclineInvite)
	inviteGroup.Delete("/:inviteId", s.inviteHandler.CancelInvite)

	// WebSocket 보드 협업 엔드포인트
	// 익명 방문자도 허용 (공개 보드 조회) — 쿠키/쿼리의 토큰이 유효할 때만 identity 부여
	s.app.Get("/ws/board", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		accessToken := c.Cookies("access_token")
		if accessToken == "" {
			// 브라우저 외 클라이언트는 쿼리 파라미터로 전달
			accessToken = c.Query("token")
		}

		if accessToken != "" {
			claims, err := s.jwtManager.ValidateAccessToken(accessToken)
			if err != nil {
				// 유효하지 않은 토큰은 익명 접속이 아니라 거부
				return c.SendStatus(fiber.StatusUnauthorized)
			}
			c.Locals("userID", claims.UserID)
			c.Locals("nickname", claims.Nickname)
		}

		return c.Next()
	}, websocket.New(s.boardWSHandler.HandleWebSocket, websocket.Config{
		ReadBufferSize:  s.cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: s.cfg.WebSocket.WriteBufferSize,
	}))
}

// Start 서버 시작 (Graceful Shutdown 지원)
func (s *Server) Start() error {
	// Graceful Shutdown 설정
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("🛑 Shutting down server...")
		if err := s.app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Fatalf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("🚀 Collaborative Whiteboard API starting on %s", s.cfg.Server.Port)
	log.Printf("📡 WebSocket endpoint: ws://localhost%s/ws/board", s.cfg.Server.Port)

	return s.app.Listen(s.cfg.Server.Port)
}

// Shutdown 서버 종료
func (s *Server) Shutdown() error {
	if s.mirror != nil {
		s.mirror.Close()
	}
	return s.app.ShutdownWithTimeout(30 * time.Second)
}
