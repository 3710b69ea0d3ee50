package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/hqv2016/salonpulse/internal/auth"
	"github.com/hqv2016/salonpulse/internal/handlers"
	"github.com/hqv2016/salonpulse/internal/middleware"
	"github.com/hqv2016/salonpulse/internal/notify"
	"github.com/hqv2016/salonpulse/internal/realtime"
	"github.com/hqv2016/salonpulse/internal/services"
)

// Dependencies bundles everything the router needs.
type Dependencies struct {
	DB            *gorm.DB
	JWTService    *auth.JWTService
	Hub           *realtime.Hub
	Registry      *realtime.Registry
	Notifications *services.NotificationService
	Chat          *services.ChatService
	Dispatcher    *notify.Dispatcher
}

// NewRouter assembles the gin engine with all middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	engine := gin.New()
	engine.Use(
		middleware.Recovery(),
		middleware.RequestLogger(),
		middleware.Metrics(),
	)

	registerSystemRoutes(engine, deps)
	registerRealtimeRoutes(engine, deps)

	api := engine.Group("/api")
	api.Use(middleware.RequireAuth(deps.JWTService))

	registerNotificationRoutes(api, deps)
	registerChatRoutes(api, deps)
	registerPresenceRoutes(api, deps)
	registerEventRoutes(api, deps)

	return engine
}

func registerSystemRoutes(engine *gin.Engine, deps Dependencies) {
	health := handlers.NewHealthHandler(deps.DB, deps.Registry)
	engine.GET("/health", health.Check)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func registerRealtimeRoutes(engine *gin.Engine, deps Dependencies) {
	handler := handlers.NewRealtimeHandler(deps.Hub)
	engine.GET("/ws", middleware.RequireAuth(deps.JWTService), handler.Connect)
}

func registerNotificationRoutes(group *gin.RouterGroup, deps Dependencies) {
	handler := handlers.NewNotificationHandler(deps.Notifications)

	notifications := group.Group("/notifications")
	notifications.Use(middleware.RequireRole(realtime.RoleAdmin))
	{
		notifications.GET("", handler.List)
		notifications.GET("/unread-count", handler.UnreadCount)
		notifications.PUT("/:id/read", handler.MarkRead)
		notifications.PUT("/mark-all-read", handler.MarkAllRead)
	}
}

func registerChatRoutes(group *gin.RouterGroup, deps Dependencies) {
	handler := handlers.NewChatHandler(deps.Chat, deps.Registry)

	chat := group.Group("/chat")
	chat.Use(middleware.RequireStaff())
	{
		chat.GET("/contacts", handler.ListContacts)
		chat.POST("/rooms", handler.OpenRoom)
		chat.GET("/rooms", handler.ListRooms)
		chat.GET("/rooms/:id/messages", handler.ListMessages)
		chat.POST("/rooms/:id/messages", handler.SendMessage)
		chat.PUT("/rooms/:id/read", handler.MarkRead)
		chat.PUT("/rooms/:id/mute", handler.SetMuted)
		chat.DELETE("/rooms/:id/messages/:messageId", handler.DeleteMessage)
	}
}

func registerEventRoutes(group *gin.RouterGroup, deps Dependencies) {
	handler := handlers.NewEventHandler(deps.Dispatcher)

	events := group.Group("/events")
	events.Use(middleware.RequireRole(realtime.RoleAdmin))
	{
		events.POST("/orders", handler.NewOrder)
		events.POST("/orders/status", handler.OrderStatusChanged)
		events.POST("/appointments", handler.NewAppointment)
		events.POST("/appointments/status", handler.AppointmentStatusChanged)
		events.POST("/low-stock", handler.LowStock)
		events.POST("/reviews", handler.NewReview)
		events.POST("/dashboard/refresh", handler.RefreshDashboard)
		events.POST("/users/:id/notify", handler.NotifyUser)
	}
}

func registerPresenceRoutes(group *gin.RouterGroup, deps Dependencies) {
	handler := handlers.NewPresenceHandler(deps.Registry)

	presence := group.Group("/presence")
	{
		presence.GET("/staff", handler.OnlineStaff)
		presence.GET("/staff/:id", handler.StaffStatus)
	}
}
