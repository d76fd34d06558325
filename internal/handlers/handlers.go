package handlers

import (
	"DriveKeeper/internal/config"
	"DriveKeeper/internal/middleware"
	"DriveKeeper/internal/security"
	"DriveKeeper/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	Router chi.Router
}

// NewHandler разводящий для хендлеров
func NewHandler(
	authService *service.AuthService,
	fileService *service.FileService,
	tokens *security.TokenManager,
	logger *zap.SugaredLogger,
	config *config.Config,
) *Handler {
	r := chi.NewRouter()

	r.Use(middleware.WithGzip)
	r.Use(middleware.WithLogging)

	// Handlers
	authHandler := NewAuthHandler(authService, logger, config)
	fileHandler := NewFileHandler(fileService, logger, config)

	// Auth routes — без токена
	r.Post("/api/auth/register", authHandler.Register)
	r.Post("/api/auth/login", authHandler.Login)
	r.Post("/api/auth/refresh", authHandler.Refresh)
	r.Post("/api/auth/auto", authHandler.AutoAuth)

	// Маршруты под access-токеном
	r.Group(func(r chi.Router) {
		r.Use(middleware.WithAuth(tokens))

		r.Post("/api/auth/logout", authHandler.Logout)

		r.Post("/api/files", fileHandler.Upload)
		r.Get("/api/files", fileHandler.List)
		r.Post("/api/folders", fileHandler.CreateFolder)
		r.Patch("/api/files/{id}/rename", fileHandler.Rename)
		r.Delete("/api/files/{id}", fileHandler.Delete)
		r.Get("/api/files/{id}/versions", fileHandler.ListVersions)
		r.Get("/api/files/{id}/download", fileHandler.Download)
	})

	return &Handler{Router: r}
}
