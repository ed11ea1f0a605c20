// Package api exposes the portal over HTTP with gin.
//
// @title           Class Portal API
// @version         1.0.0
// @description     REST backend of a class document portal: classes, course documents grouped by
// @description     chapter, weekly kolles, annual programs, chapter catalog and per-class progression.
// @description
// @description     **Reading** endpoints are public. **Writing** endpoints need a bearer token from
// @description     `POST /api/auth/login` belonging to an `admin` account.
// @description
// @description     **Class scope:** list and upload endpoints are scoped with the `X-Class-Id` header
// @description     or the `class` query parameter, e.g. `GET /api/documents?class=tsi1`.
// @description
// @description     **Record filter (`q` parameter):** `GET /api/documents` and `GET /api/kolles` accept
// @description     repeated `q` conditions of the form `path operator value`, joined by `and` (implicit)
// @description     or an explicit `or` part. Example: `?q=type equals ds&q=or&q=type equals dm`.
//
// @BasePath  /api
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
package api

import (
	"net/http"
	"time"

	"classportal/config"
	"classportal/db"
	"classportal/storage"
	"classportal/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// NewRouter builds the gin engine with every route of the portal.
func NewRouter(database *db.Database, files *storage.Storage, cfg *config.Config) *gin.Engine {
	registerValidators()

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.RedirectTrailingSlash = false
	// Multipart parts above this stay on disk; the hard limit is enforced per upload.
	router.MaxMultipartMemory = 8 << 20

	authMiddleware := utils.AuthMiddleware(cfg)
	adminOnly := []gin.HandlerFunc{authMiddleware, utils.RequireAdmin()}
	admin := func(h gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, adminOnly...), h)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})

	apiGroup := router.Group("/api")

	authGroup := apiGroup.Group("/auth")
	{
		authGroup.POST("/login", func(c *gin.Context) { LoginHandler(c, database, cfg) })
		authGroup.GET("/me", authMiddleware, func(c *gin.Context) { MeHandler(c, database) })
	}

	userGroup := apiGroup.Group("/users")
	userGroup.Use(authMiddleware)
	{
		userGroup.GET("", utils.RequireAdmin(), func(c *gin.Context) { ListUsersHandler(c, database) })
		userGroup.POST("", utils.RequireAdmin(), func(c *gin.Context) { CreateUserHandler(c, database) })
		userGroup.DELETE("/:id", utils.RequireAdmin(), func(c *gin.Context) { DeleteUserHandler(c, database) })
		userGroup.PUT("/:id/password", func(c *gin.Context) { SetPasswordHandler(c, database) })
	}

	classGroup := apiGroup.Group("/classes")
	{
		classGroup.GET("", func(c *gin.Context) { ListClassesHandler(c, database) })
		classGroup.GET("/:id/stats", func(c *gin.Context) { ClassStatsHandler(c, database) })
		classGroup.POST("", admin(func(c *gin.Context) { CreateClassHandler(c, database) })...)
		classGroup.PUT("/:id", admin(func(c *gin.Context) { UpdateClassHandler(c, database) })...)
		classGroup.DELETE("/:id", admin(func(c *gin.Context) { DeleteClassHandler(c, database) })...)
	}

	docGroup := apiGroup.Group("/documents")
	{
		docGroup.GET("", func(c *gin.Context) { ListDocumentsHandler(c, database) })
		docGroup.GET("/:id", func(c *gin.Context) { GetDocumentHandler(c, database) })
		docGroup.POST("", admin(func(c *gin.Context) { CreateDocumentHandler(c, database, files) })...)
		docGroup.PUT("/:id", admin(func(c *gin.Context) { UpdateDocumentHandler(c, database) })...)
		docGroup.DELETE("/:id", admin(func(c *gin.Context) { DeleteDocumentHandler(c, database) })...)
	}

	kolleGroup := apiGroup.Group("/kolles")
	{
		kolleGroup.GET("", func(c *gin.Context) { ListKollesHandler(c, database) })
		kolleGroup.POST("", admin(func(c *gin.Context) { CreateKolleHandler(c, database, files) })...)
		kolleGroup.PUT("/:id", admin(func(c *gin.Context) { UpdateKolleHandler(c, database) })...)
		kolleGroup.DELETE("/:id", admin(func(c *gin.Context) { DeleteKolleHandler(c, database) })...)
	}

	programGroup := apiGroup.Group("/annual-programs")
	{
		programGroup.GET("", func(c *gin.Context) { ListProgramsHandler(c, database) })
		programGroup.GET("/active", func(c *gin.Context) { ActiveProgramHandler(c, database) })
		programGroup.POST("", admin(func(c *gin.Context) { CreateProgramHandler(c, database, files) })...)
		programGroup.PUT("/:id", admin(func(c *gin.Context) { UpdateProgramHandler(c, database) })...)
		programGroup.PUT("/:id/toggle", admin(func(c *gin.Context) { ToggleProgramHandler(c, database) })...)
		programGroup.DELETE("/:id", admin(func(c *gin.Context) { DeleteProgramHandler(c, database) })...)
	}

	chapterGroup := apiGroup.Group("/chapters")
	{
		chapterGroup.GET("", func(c *gin.Context) { ListChaptersHandler(c, database) })
		chapterGroup.POST("", admin(func(c *gin.Context) { CreateChapterHandler(c, database) })...)
		chapterGroup.PUT("/:id", admin(func(c *gin.Context) { UpdateChapterHandler(c, database) })...)
		chapterGroup.DELETE("/:id", admin(func(c *gin.Context) { DeleteChapterHandler(c, database) })...)
	}

	progressionGroup := apiGroup.Group("/progression/:classId")
	{
		progressionGroup.GET("", func(c *gin.Context) { GetProgressionHandler(c, database) })
		progressionGroup.PUT("", admin(func(c *gin.Context) { ReplaceProgressionHandler(c, database) })...)
		progressionGroup.DELETE("", admin(func(c *gin.Context) { DeleteProgressionHandler(c, database) })...)
		progressionGroup.PUT("/chapters/:chapterId", admin(func(c *gin.Context) { SetChapterStatusHandler(c, database) })...)
		progressionGroup.PUT("/reorder", admin(func(c *gin.Context) { ReorderProgressionHandler(c, database) })...)
		progressionGroup.POST("/reset", admin(func(c *gin.Context) { ResetProgressionHandler(c, database) })...)
		progressionGroup.POST("/sync", admin(func(c *gin.Context) { SyncProgressionHandler(c, database) })...)
	}

	settingsGroup := apiGroup.Group("/settings")
	{
		settingsGroup.GET("", func(c *gin.Context) { GetSettingsHandler(c, database) })
		settingsGroup.GET("/*path", func(c *gin.Context) { GetSettingHandler(c, database) })
		settingsGroup.PUT("", admin(func(c *gin.Context) { UpdateSettingsHandler(c, database) })...)
	}

	apiGroup.GET("/download", func(c *gin.Context) { DownloadHandler(c, files) })
	router.Static("/uploads", files.Root())

	// Swagger UI over the generated spec, when ./docs exists.
	router.StaticFS("/docs", http.Dir("docs"))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/docs/swagger.json")))

	return router
}

// WithCORS wraps h so the front end served from origins can call the API.
func WithCORS(h http.Handler, origins []string) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type", classHeader},
		AllowCredentials: true,
	})
	return c.Handler(h)
}
