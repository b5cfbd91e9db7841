package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/showdesk/internal/repository"
)

// UploadFormField is the multipart field carrying the uploaded file.
const UploadFormField = "pdfFile"

// UploadHandler serves the PDF upload, listing and delete endpoints.
type UploadHandler struct {
	Repo *repository.UploadRepo
	Log  *logrus.Logger
}

// NewUploadHandler constructs an UploadHandler and panics if repo is nil.
func NewUploadHandler(repo *repository.UploadRepo, log *logrus.Logger) *UploadHandler {
	if repo == nil {
		panic("nil repository passed to NewUploadHandler")
	}
	return &UploadHandler{Repo: repo, Log: log}
}

// Upload handles POST /upload with a single file in the pdfFile field.
func (h *UploadHandler) Upload(c echo.Context) error {
	fh, err := c.FormFile(UploadFormField)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Errore nel caricamento del file."})
	}
	src, err := fh.Open()
	if err != nil {
		h.Log.WithError(err).WithField("file", fh.Filename).Error("upload: open part")
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Errore nel caricamento del file."})
	}
	defer src.Close()

	stored, err := h.Repo.Upload(src, fh.Filename)
	if err != nil {
		if errors.Is(err, repository.ErrNoFile) {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Errore nel caricamento del file."})
		}
		h.Log.WithError(err).WithField("file", fh.Filename).Error("upload: store file")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Errore durante il salvataggio del file."})
	}
	h.Log.WithFields(logrus.Fields{
		"file":         stored.Name,
		"size":         stored.Size,
		"content_type": stored.ContentType,
	}).Info("upload: file stored")
	return c.JSON(http.StatusOK, echo.Map{
		"message":     "File caricato con successo!",
		"filename":    stored.Name,
		"filePath":    stored.Path,
		"contentType": stored.ContentType,
	})
}

// List handles GET /get-pdf-list.
func (h *UploadHandler) List(c echo.Context) error {
	paths, err := h.Repo.List()
	if err != nil {
		h.Log.WithError(err).WithField("dir", h.Repo.Dir()).Error("upload: list dir")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Errore durante la lettura della directory."})
	}
	return c.JSON(http.StatusOK, echo.Map{"pdfFiles": paths})
}

type deleteReq struct {
	FilePath string `json:"filePath"`
}

// Delete handles POST /delete-pdf with body {"filePath": "..."}. Deleting a
// file that does not exist is a 500, as any other removal failure.
func (h *UploadHandler) Delete(c echo.Context) error {
	var req deleteReq
	if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "Richiesta non valida"})
	}
	if strings.TrimSpace(req.FilePath) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "Nessun percorso specificato"})
	}
	if err := h.Repo.Delete(req.FilePath); err != nil {
		if errors.Is(err, repository.ErrInvalidPath) {
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "Percorso non valido"})
		}
		h.Log.WithError(err).WithField("path", req.FilePath).Error("upload: delete file")
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "Impossibile eliminare il file"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
