package restapi

import (
	"net/http"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"token_portfolio/internal/infrastructure/configloader"
)

// SetupRouter wires middleware, the v1 API, metrics and, when enabled, Swagger UI.
func SetupRouter(h *PortfolioHandler, cfg *configloader.Config, zapLogger *zap.Logger) *gin.Engine {
	router := gin.New()

	corsConfig := cors.DefaultConfig()
	if len(cfg.Server.AllowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
	}
	corsConfig.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	router.Use(cors.New(corsConfig))
	router.Use(ZapLoggerMiddleware(zapLogger.Named("http")))
	router.Use(gin.Recovery())

	v1 := router.Group("/api/v1")
	{
		v1.GET("/portfolio", h.GetPortfolio)
		v1.GET("/portfolio/allocation", h.GetAllocation)

		v1.GET("/watchlist", h.GetWatchlist)
		v1.POST("/watchlist", h.AddTokens)
		v1.DELETE("/watchlist/:id", h.RemoveToken)
		v1.PUT("/watchlist/:id/holdings", h.UpdateHoldings)

		v1.POST("/refresh", h.Refresh)

		v1.GET("/tokens/trending", h.GetTrending)
		v1.GET("/tokens/search", h.SearchTokens)
		v1.GET("/tokens/:id/history", h.GetHistory)

		v1.GET("/status", h.GetStatus)
		v1.POST("/wallet", h.ConnectWallet)
		v1.DELETE("/wallet", h.DisconnectWallet)
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.Swagger.Enabled {
		if _, err := os.Stat(cfg.Swagger.SpecPath); err != nil {
			zapLogger.Warn("Swagger spec not found, Swagger UI disabled", zap.String("path", cfg.Swagger.SpecPath), zap.Error(err))
		} else {
			router.StaticFile("/docs/swagger.yaml", cfg.Swagger.SpecPath)
			router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/docs/swagger.yaml")))
			zapLogger.Info("Swagger UI enabled", zap.String("path", "/swagger/index.html"))
		}
	}

	return router
}
