// Package moderation 提供审核接口与审核页面
package moderation

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anoixa/story-overlay/api/common"
	"github.com/anoixa/story-overlay/internal/moderation"
)

// Handler 审核接口处理器
type Handler struct {
	svc *moderation.Service
}

// NewHandler 创建审核接口处理器
func NewHandler(svc *moderation.Service) *Handler {
	return &Handler{svc: svc}
}

// decisionRequest 审核动作的请求体
type decisionRequest struct {
	URL      string `json:"url" binding:"required"`
	Filename string `json:"filename" binding:"required"`
}

// Accept 处理 PUT /api/accept。
// 记录不存在或已处于终态时同样返回 204；
// 同一页面已有其他采纳记录时返回 409。
func (h *Handler) Accept(c *gin.Context) {
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, "url and filename are required")
		return
	}

	if err := h.svc.Accept(c.Request.Context(), req.URL, req.Filename); err != nil {
		if errors.Is(err, moderation.ErrAcceptConflict) {
			common.RespondError(c, http.StatusConflict, "another image is already accepted for this page")
			return
		}
		log.Printf("Failed to accept image: %v", err)
		common.RespondError(c, http.StatusInternalServerError, "failed to accept image")
		return
	}

	c.Status(http.StatusNoContent)
}

// Reject 处理 DELETE /api/reject，幂等，总是 204
func (h *Handler) Reject(c *gin.Context) {
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, "url and filename are required")
		return
	}

	if err := h.svc.Reject(c.Request.Context(), req.URL, req.Filename); err != nil {
		log.Printf("Failed to reject image: %v", err)
		common.RespondError(c, http.StatusInternalServerError, "failed to reject image")
		return
	}

	c.Status(http.StatusNoContent)
}
