package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func NewRouter(h *Handler) *gin.Engine {
	useJSONFieldNames()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(Tracing(h.TraceOn, h.ServiceName))
	r.Use(CORS())
	r.Use(Metrics())
	r.Use(AccessLog())

	r.GET("/", h.Home)
	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/.well-known/jwks.json", h.JWKS)
	if h.UploadDir != "" {
		r.Static("/images", h.UploadDir)
	}
	if h.Hub != nil {
		r.GET("/socket", gin.WrapH(h.Hub))
		r.GET("/socket.io/", gin.WrapH(h.Hub))
	}

	otp := RateLimit(h.OTPLimiter)
	a := r.Group("/api/auth")
	{
		a.POST("/register", otp, h.Register)
		a.POST("/verify-email", h.VerifyEmail)
		a.POST("/send-otp", otp, h.SendOTP)
		a.POST("/resend-otp", otp, h.SendOTP)
		a.POST("/login", h.Login)
		a.POST("/reset-password", h.ResetPassword)
		a.POST("/guest-login", h.GuestLogin)
		a.GET("/profile-details", h.Authenticate(), h.ProfileDetails)
	}

	e := r.Group("/api/event")
	{
		e.POST("/create-event", h.Authenticate(), h.CreateEvent)
		e.GET("/list", h.ListEvents)
		e.GET("/:id", h.GetEvent)
		e.POST("/:id/update", h.Authenticate(), h.UpdateEvent)
		e.GET("/:id/join", h.Authenticate(), h.JoinEvent)
		e.GET("/:id/leave", h.Authenticate(), h.LeaveEvent)
		e.GET("/:id/delete", h.Authenticate(), h.DeleteEvent)
	}
	return r
}
