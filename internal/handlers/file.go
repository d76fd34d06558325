package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"DriveKeeper/internal/config"
	"DriveKeeper/internal/middleware"
	"DriveKeeper/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FileHandler обрабатывает загрузку, выдачу и управление деревом файлов.
type FileHandler struct {
	FileService *service.FileService
	Logger      *zap.SugaredLogger
	Config      *config.Config
}

// NewFileHandler создаёт хендлер файлов
func NewFileHandler(fileService *service.FileService, logger *zap.SugaredLogger, cfg *config.Config) *FileHandler {
	return &FileHandler{FileService: fileService, Logger: logger, Config: cfg}
}

type FileItemDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsFolder  bool   `json:"is_folder"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
}

type BreadcrumbDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ListResponse struct {
	CurrentFolderID *string         `json:"current_folder_id"`
	Items           []FileItemDTO   `json:"items"`
	Breadcrumbs     []BreadcrumbDTO `json:"breadcrumbs"`
}

type VersionDTO struct {
	ID         string `json:"id"`
	VersionNo  int    `json:"version_no"`
	UploadedAt string `json:"uploaded_at"`
	SizeBytes  int64  `json:"size_bytes"`
}

type CreateFolderRequest struct {
	Name           string  `json:"name"`
	ParentFolderID *string `json:"parent_folder_id,omitempty"`
}

type RenameRequest struct {
	NewName string `json:"new_name"`
}

// identity достаёт пользователя и сессию, положенные WithAuth.
func identity(r *http.Request) (uuid.UUID, *uuid.UUID, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, nil, false
	}
	var sessionID *uuid.UUID
	if sid, ok := middleware.GetSessionIDFromContext(r.Context()); ok {
		sessionID = &sid
	}
	return userID, sessionID, true
}

// parseOptionalUUID: пустая строка -> nil, мусор -> ошибка.
func parseOptionalUUID(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// Upload принимает multipart-форму с полем file и опциональным parent_folder_id
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := identity(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	// лимит тела: полезная нагрузка + запас на заголовки multipart
	maxBody := h.Config.MaxUploadSizeBytes() + 1*1024*1024
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.Logger.Warnw("Upload: invalid multipart form", "error", err)
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.Logger.Warnw("Upload: missing file field", "error", err)
		http.Error(w, "missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Filename == "" {
		http.Error(w, "missing filename", http.StatusBadRequest)
		return
	}

	parentID, err := parseOptionalUUID(r.FormValue("parent_folder_id"))
	if err != nil {
		http.Error(w, "invalid parent_folder_id", http.StatusBadRequest)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	res, err := h.FileService.Upload(r.Context(), userID, file, header.Filename, contentType, parentID, sessionID, clientInfo(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":           res.ID,
		"name":         res.Name,
		"version":      res.Version,
		"deduplicated": res.Deduplicated,
	})
}

// List содержимое папки (?folder_id=) с хлебными крошками
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := identity(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	folderID, err := parseOptionalUUID(r.URL.Query().Get("folder_id"))
	if err != nil {
		http.Error(w, "invalid folder_id", http.StatusBadRequest)
		return
	}

	res, err := h.FileService.ListFiles(r.Context(), userID, folderID, sessionID, clientInfo(r))
	if err != nil {
		writeError(w, err)
		return
	}

	items := make([]FileItemDTO, 0, len(res.Items))
	for _, it := range res.Items {
		items = append(items, FileItemDTO{
			ID:        it.ID.String(),
			Name:      it.Name,
			IsFolder:  it.IsFolder,
			MimeType:  it.MimeType,
			SizeBytes: it.SizeBytes,
		})
	}
	crumbs := make([]BreadcrumbDTO, 0, len(res.Breadcrumbs))
	for _, b := range res.Breadcrumbs {
		crumbs = append(crumbs, BreadcrumbDTO{ID: b.ID.String(), Name: b.Name})
	}
	var current *string
	if res.CurrentFolderID != nil {
		s := res.CurrentFolderID.String()
		current = &s
	}

	writeJSON(w, http.StatusOK, ListResponse{CurrentFolderID: current, Items: items, Breadcrumbs: crumbs})
}

// CreateFolder создаёт папку
func (h *FileHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := identity(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	var parentID *uuid.UUID
	if req.ParentFolderID != nil {
		var err error
		parentID, err = parseOptionalUUID(*req.ParentFolderID)
		if err != nil {
			http.Error(w, "invalid parent_folder_id", http.StatusBadRequest)
			return
		}
	}

	folder, err := h.FileService.CreateFolder(r.Context(), userID, req.Name, parentID, sessionID, clientInfo(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, FileItemDTO{
		ID:       folder.ID.String(),
		Name:     folder.Name,
		IsFolder: true,
		MimeType: folder.MimeType,
	})
}

// Rename переименование файла или папки
func (h *FileHandler) Rename(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := identity(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	fileID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid file id", http.StatusBadRequest)
		return
	}

	var req RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.NewName == "" {
		http.Error(w, "new_name is required", http.StatusBadRequest)
		return
	}

	item, err := h.FileService.Rename(r.Context(), userID, fileID, req.NewName, sessionID, clientInfo(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FileItemDTO{
		ID:        item.ID.String(),
		Name:      item.Name,
		IsFolder:  item.IsFolder,
		MimeType:  item.MimeType,
		SizeBytes: item.SizeBytes,
	})
}

// Delete удаляет файл или папку с потомками
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := identity(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	fileID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid file id", http.StatusBadRequest)
		return
	}

	if err := h.FileService.Delete(r.Context(), userID, fileID, sessionID, clientInfo(r)); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListVersions история версий файла
func (h *FileHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := identity(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	fileID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid file id", http.StatusBadRequest)
		return
	}

	versions, err := h.FileService.ListVersions(r.Context(), userID, fileID, sessionID, clientInfo(r))
	if err != nil {
		writeError(w, err)
		return
	}

	dtos := make([]VersionDTO, 0, len(versions))
	for _, v := range versions {
		dtos = append(dtos, VersionDTO{
			ID:         v.ID.String(),
			VersionNo:  v.VersionNo,
			UploadedAt: v.UploadedAt.UTC().Format(time.RFC3339),
			SizeBytes:  v.SizeBytes,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Download отдаёт содержимое версии (?version_id=, по умолчанию текущей)
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, ok := identity(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	fileID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid file id", http.StatusBadRequest)
		return
	}

	versionID, err := parseOptionalUUID(r.URL.Query().Get("version_id"))
	if err != nil {
		http.Error(w, "invalid version_id", http.StatusBadRequest)
		return
	}

	res, err := h.FileService.Download(r.Context(), userID, fileID, versionID, sessionID, clientInfo(r))
	if err != nil {
		writeError(w, err)
		return
	}
	defer res.Content.Close()

	contentType := res.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(res.SizeBytes, 10))
	// filename* с процентным кодированием — имена не обязаны быть ASCII
	w.Header().Set("Content-Disposition", fmt.Sprintf(
		"attachment; filename=%q; filename*=UTF-8''%s",
		res.Name, url.PathEscape(res.Name),
	))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, res.Content); err != nil {
		h.Logger.Warnw("Download: streaming interrupted", "file_id", fileID, "error", err)
	}
}
