// Package submit 处理图片提交接口
package submit

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anoixa/story-overlay/api/common"
	"github.com/anoixa/story-overlay/internal/ingestion"
	"github.com/anoixa/story-overlay/utils"
)

// Handler 提交接口处理器
type Handler struct {
	ingest *ingestion.Service
}

// NewHandler 创建提交接口处理器
func NewHandler(ingest *ingestion.Service) *Handler {
	return &Handler{ingest: ingest}
}

// UploadImage 处理 POST /api/upload-image。
// multipart 字段：url、image、contact、credits、pageUrl。
func (h *Handler) UploadImage(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "image file is required")
		return
	}
	targetURL := c.PostForm("url")
	if targetURL == "" {
		common.RespondError(c, http.StatusBadRequest, "url field is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Printf("Failed to open uploaded file: %v", err)
		common.RespondError(c, http.StatusInternalServerError, "failed to read uploaded file")
		return
	}
	defer file.Close()

	_, err = h.ingest.Submit(c.Request.Context(), ingestion.SubmitInput{
		TargetURL:    targetURL,
		File:         file,
		Size:         fileHeader.Size,
		OriginalName: fileHeader.Filename,
		PageURL:      c.PostForm("pageUrl"),
		Contact:      c.PostForm("contact"),
		Credits:      c.PostForm("credits"),
	})
	if err != nil {
		switch {
		case errors.Is(err, ingestion.ErrFileTooLarge):
			common.RespondError(c, http.StatusBadRequest, "file exceeds size limit")
		case errors.Is(err, ingestion.ErrNotImage):
			common.RespondError(c, http.StatusBadRequest, "file is not a supported image")
		default:
			log.Printf("Failed to ingest submission for %s: %v", utils.SanitizeLogMessage(targetURL), err)
			common.RespondError(c, http.StatusInternalServerError, "failed to store submission")
		}
		return
	}

	c.Status(http.StatusCreated)
}
