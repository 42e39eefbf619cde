package projects

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/creavibe/creavibe/internal/api/respond"
	"github.com/creavibe/creavibe/internal/apperr"
	"github.com/creavibe/creavibe/internal/middleware"
	"github.com/creavibe/creavibe/internal/telemetry"
)

// ImageFormField is the multipart field carrying the image
const ImageFormField = "image"

// multipartOverhead allows for boundaries and part headers on top of the file itself
const multipartOverhead = 64 << 10

// imageExtensions maps accepted content types, as sniffed from the file, to extensions
var imageExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// ImagePath is where a project's uploaded image is stored
func ImagePath(userID, projectID, ext string) string {
	return fmt.Sprintf("projects/%s/%s/%s.%s", userID, projectID, uuid.New().String(), ext)
}

// @Summary      Upload project image
// @Description  Multipart upload of a PNG, JPEG, WebP or GIF cover image (max 5 MiB by default).
// @Tags         Projects
// @Security     Bearer
// @Accept       multipart/form-data
// @Produce      json
// @Param        id     path      string  true  "Project ID"
// @Param        image  formData  file    true  "Image file"
// @Success      200  {object}  respond.Envelope
// @Failure      400  {object}  respond.Envelope
// @Failure      404  {object}  respond.Envelope
// @Failure      413  {object}  respond.Envelope
// @Router       /api/v1/projects/{id}/image [post]
func (h *ProjectHandlers) UploadImageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		userID := middleware.GetUserID(c)

		project, err := h.lookup(ctx, userID, c.Param("id"))
		if err != nil {
			respond.Error(c, err)
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)
		fileHeader, err := c.FormFile(ImageFormField)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				h.rejectTooLarge(c)
				return
			}
			h.countUpload("rejected")
			respond.Error(c, apperr.Validation("An image file is required in the 'image' field", nil))
			return
		}
		if fileHeader.Size > h.maxUploadBytes {
			h.rejectTooLarge(c)
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			h.countUpload("error")
			respond.Error(c, apperr.Wrap(apperr.CodeServer, "Failed to read upload", err))
			return
		}
		defer file.Close()

		// sniff rather than trust the client's Content-Type
		head := make([]byte, 512)
		n, err := io.ReadFull(file, head)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			h.countUpload("error")
			respond.Error(c, apperr.Wrap(apperr.CodeServer, "Failed to read upload", err))
			return
		}
		head = head[:n]
		contentType := http.DetectContentType(head)
		ext, ok := imageExtensions[contentType]
		if !ok {
			h.countUpload("rejected")
			respond.Error(c, apperr.Validation("Unsupported image type", gin.H{
				"content_type": contentType,
				"allowed":      []string{"image/png", "image/jpeg", "image/webp", "image/gif"},
			}))
			return
		}

		path := ImagePath(userID, project.ID, ext)
		body := io.MultiReader(bytes.NewReader(head), file)
		if _, err := h.storage.Upload(ctx, path, body, fileHeader.Size, contentType); err != nil {
			h.countUpload("error")
			respond.Error(c, apperr.Wrap(apperr.CodeStorage, "Failed to store image", err))
			return
		}

		url, err := h.storage.GetURL(ctx, path)
		if err != nil {
			h.countUpload("error")
			respond.Error(c, apperr.Wrap(apperr.CodeStorage, "Failed to resolve image URL", err))
			return
		}

		found, err := h.store.SetProjectImage(ctx, userID, project.ID, url)
		if err != nil {
			h.countUpload("error")
			respond.Error(c, apperr.Database(err))
			return
		}
		if !found {
			// deleted while uploading; drop the orphan
			if err := h.storage.Delete(ctx, path); err != nil {
				slog.Warn("failed to remove orphaned project image", "path", path, "error", err)
			}
			h.countUpload("error")
			respond.Error(c, errProjectNotFound)
			return
		}

		h.countUpload("ok")
		slog.Info("project image uploaded",
			"user_id", userID,
			"project_id", project.ID,
			"path", path,
			"size", fileHeader.Size,
		)
		project.ImageURL = &url
		respond.OK(c, project)
	}
}

func (h *ProjectHandlers) rejectTooLarge(c *gin.Context) {
	h.countUpload("rejected")
	respond.Error(c, apperr.New(apperr.CodeTooLarge,
		fmt.Sprintf("Image exceeds the %d byte limit", h.maxUploadBytes)))
}

func (h *ProjectHandlers) countUpload(outcome string) {
	telemetry.StorageUploadsTotal.WithLabelValues(h.storageBackend, outcome).Inc()
}
