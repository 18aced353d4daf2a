// Package proxy 提供兜底的透明代理入口与覆盖层文件下发
package proxy

import (
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anoixa/story-overlay/api/common"
	upstream "github.com/anoixa/story-overlay/internal/proxy"
	"github.com/anoixa/story-overlay/internal/rewrite"
	"github.com/anoixa/story-overlay/storage"
	"github.com/anoixa/story-overlay/utils"
)

// redirects 在代理前检查的固定跳转表
var redirects = map[string]string{
	// 站点标题图
	"/assets/HS_logo-d428d19c5a20af8e0e84ec06a0a67ab6add95a595c18a2d412031d7615edc2c7.png": "https://cdn.glitch.com/439ce8bc-0439-41f9-9690-30909a6349d0%2Fhomestuck-title.gif?v=1572169366776",
	// 首页面板
	"/images/homepage/00001.gif": "https://cdn.glitch.com/439ce8bc-0439-41f9-9690-30909a6349d0%2Fhomepage-june.gif?v=1572169858862",
	"/images/homepage/00214.gif": "https://cdn.glitch.com/439ce8bc-0439-41f9-9690-30909a6349d0%2Fhomepage-rose.gif?v=1572169650785",
	"/images/homepage/00309.gif": "https://cdn.glitch.com/439ce8bc-0439-41f9-9690-30909a6349d0%2Fhomepage-dave.gif?v=1572170238065",
	"/images/homepage/00313.gif": "https://cdn.glitch.com/439ce8bc-0439-41f9-9690-30909a6349d0%2Fhomepage-dave.gif?v=1572170238065",
	"/images/homepage/00760.gif": "https://cdn.glitch.com/439ce8bc-0439-41f9-9690-30909a6349d0%2Fhomepage-jade.gif?v=1572170005980",
	"/stories": "/story",
}

// pinnedPages 不走上游、直接用本地静态页面响应的路径
var pinnedPages = map[string]string{
	"/info-story": "info-story.html",
	"/contacts":   "contacts.html",
	"/info-shop":  "info-shop.html",
	"/info-games": "info-games.html",
	"/news":       "news.html",
	"/info-more":  "info-more.html",
}

// Handler 代理处理器
type Handler struct {
	client    *upstream.Client
	rewriter  *rewrite.Rewriter
	store     storage.Provider
	publicDir string
}

// NewHandler 创建代理处理器
func NewHandler(client *upstream.Client, rewriter *rewrite.Rewriter, store storage.Provider, publicDir string) *Handler {
	return &Handler{
		client:    client,
		rewriter:  rewriter,
		store:     store,
		publicDir: publicDir,
	}
}

// OverlayFile 处理 GET /calibornstuck/:file，从存储下发覆盖层图片
func (h *Handler) OverlayFile(c *gin.Context) {
	filename := c.Param("file")
	if !storage.IsValidStorageName(filename) {
		common.RespondError(c, http.StatusNotFound, "file not found")
		return
	}

	ctx := c.Request.Context()
	exists, err := h.store.Exists(ctx, filename)
	if err != nil {
		log.Printf("Failed to check overlay file %s: %v", utils.SanitizeLogMessage(filename), err)
		common.RespondError(c, http.StatusInternalServerError, "failed to read file")
		return
	}
	if !exists {
		common.RespondError(c, http.StatusNotFound, "file not found")
		return
	}

	reader, err := h.store.GetWithContext(ctx, filename)
	if err != nil {
		log.Printf("Failed to read overlay file %s: %v", utils.SanitizeLogMessage(filename), err)
		common.RespondError(c, http.StatusInternalServerError, "failed to read file")
		return
	}
	if closer, ok := reader.(io.Closer); ok {
		defer closer.Close()
	}

	// 文件名是内容哈希，内容不会变化，修改时间无意义
	http.ServeContent(c.Writer, c.Request, filename, time.Time{}, reader)
}

// ProxyPage 兜底处理所有未匹配的 GET 请求：
// 先查跳转表与固定页面，再查本地静态目录，最后代理上游。
// HTML 响应经过改写管线，改写失败时整个请求失败。
func (h *Handler) ProxyPage(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		common.RespondError(c, http.StatusNotFound, "not found")
		return
	}

	path := c.Request.URL.Path
	log.Printf("GET %s (Proxied)", utils.SanitizeLogMessage(path))

	if target, ok := redirects[path]; ok {
		c.Redirect(http.StatusFound, target)
		return
	}

	if name, ok := pinnedPages[path]; ok {
		c.File(filepath.Join(h.publicDir, name))
		return
	}

	if file, ok := h.publicFile(path); ok {
		c.File(file)
		return
	}

	result, err := h.client.Fetch(c.Request.Context(), path, c.Request.Header)
	if err != nil {
		log.Printf("Failed to proxy %s: %v", utils.SanitizeLogMessage(path), err)
		common.RespondError(c, http.StatusBadGateway, "upstream fetch failed")
		return
	}

	body := result.Body
	if result.IsHTML() {
		body, err = h.rewriter.Page(c.Request.Context(), body, path)
		if err != nil {
			log.Printf("Failed to rewrite %s: %v", utils.SanitizeLogMessage(path), err)
			common.RespondError(c, http.StatusInternalServerError, "failed to rewrite page")
			return
		}
	}

	for key, values := range result.Header {
		for _, value := range values {
			c.Writer.Header().Add(key, value)
		}
	}
	c.Data(result.StatusCode, result.ContentType, body)
}

// publicFile 在静态目录中查找路径对应的文件，防目录穿越
func (h *Handler) publicFile(path string) (string, bool) {
	if h.publicDir == "" {
		return "", false
	}
	cleaned := filepath.Clean("/" + path)
	full := filepath.Join(h.publicDir, cleaned)
	if !strings.HasPrefix(full, filepath.Clean(h.publicDir)+string(os.PathSeparator)) {
		return "", false
	}
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return "", false
	}
	return full, true
}
