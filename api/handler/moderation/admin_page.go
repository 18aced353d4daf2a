package moderation

import (
	"fmt"
	"html"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/anoixa/story-overlay/api/common"
	"github.com/anoixa/story-overlay/database/models"
	"github.com/anoixa/story-overlay/database/repo/records"
	"github.com/anoixa/story-overlay/internal/rewrite"
)

const adminPageHead = `<html>
<head>
<style>
.spacer { flex-grow: 1; }
.line { flex-basis: 0.5em; }
.row { display: flex; flex-direction: row; }
.col { display: flex; flex-direction: column; }
ul { padding: 0; }
li { margin-bottom: 5em; }
img { object-fit: contain; }
body { max-width: 900px; min-height: 100vh; margin: 0 auto; padding: 1em; }
</style>
</head>
<body>
  <h1>Admin Page</h1>`

const adminPageScript = `<script>
function makeButton(verb, url) {
  return async function button(e) {
    const button = e.target;
    await fetch(url, {
      method: verb,
      headers: {
        'Content-Type': 'application/json',
      },
      body: JSON.stringify({
        url: button.dataset.url,
        filename: button.dataset.filename,
      }),
      credentials: 'same-origin',
    });
    button.parentNode.parentNode.remove();
  }
}

function renderWidth(img) {
  const path = new URL(img.src).pathname;
  const sel = '[data-img="' + path + '"]';
  for (const label of document.querySelectorAll(sel)) {
    label.querySelector('.width').innerText = img.naturalWidth;
    label.querySelector('.height').innerText = img.naturalHeight;
  }
}

const acceptButton = makeButton('PUT', '/api/accept');
const rejectButton = makeButton('DELETE', '/api/reject');

for (const button of document.querySelectorAll('.accept-button')) {
  button.addEventListener('click', acceptButton)
}
for (const button of document.querySelectorAll('.reject-button')) {
  button.addEventListener('click', rejectButton)
}
for (const img of document.querySelectorAll('img')) {
  img.onload = () => renderWidth(img);
  renderWidth(img);
}
</script>
</body>
</html>`

// AdminHandler 人工审核页面
type AdminHandler struct {
	repo records.RepositoryInterface
}

// NewAdminHandler 创建审核页面处理器
func NewAdminHandler(repo records.RepositoryInterface) *AdminHandler {
	return &AdminHandler{repo: repo}
}

// ReviewPage 处理 GET /admin。
// 列出所有待审记录（所属页面尚无已采纳图片的），
// 原图与提交图并排展示，附带接受 / 拒绝按钮。
func (h *AdminHandler) ReviewPage(c *gin.Context) {
	ctx := c.Request.Context()
	rows, err := h.repo.ListPendingForReview(ctx)
	if err != nil {
		log.Printf("Failed to list pending submissions: %v", err)
		common.RespondError(c, http.StatusInternalServerError, "failed to list pending submissions")
		return
	}
	acceptedTotal, err := h.repo.CountAccepted(ctx)
	if err != nil {
		log.Printf("Failed to count accepted submissions: %v", err)
		common.RespondError(c, http.StatusInternalServerError, "failed to count accepted submissions")
		return
	}

	var buf strings.Builder
	buf.WriteString(adminPageHead)
	fmt.Fprintf(&buf, "<p>%d pending, %d accepted so far</p>", len(rows), acceptedTotal)
	buf.WriteString(`<ul class="col">`)
	for _, row := range rows {
		writeReviewEntry(&buf, row)
	}
	buf.WriteString("</ul>")
	buf.WriteString(adminPageScript)

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(buf.String()))
}

// writeReviewEntry 渲染单条待审记录：标题、图片对照、尺寸标签、
// 联系方式与署名、操作按钮。提交图尺寸来自入库时探测的宽高，
// 上游原图的尺寸服务端无从得知，仍由页面脚本在加载后填充。
func writeReviewEntry(buf *strings.Builder, row *models.ImageRecord) {
	refURL := html.EscapeString(row.ForURL)
	newURL := html.EscapeString(rewrite.OverlayPathPrefix + row.Filename)
	onPage := html.EscapeString(row.OnPage)
	filename := html.EscapeString(row.Filename)

	buf.WriteString(`<li class="col">`)
	fmt.Fprintf(buf, `<h3><span>%s</span> - <a href="%s">%s</a></h3>`, refURL, onPage, onPage)
	buf.WriteString(`<div class="line"></div>`)
	fmt.Fprintf(buf, `<div class="row"><img src="%s"><img src="%s"></div>`, refURL, newURL)
	buf.WriteString(`<div class="line"></div>`)
	buf.WriteString(`<div class="row"><div class="spacer"></div>`)
	fmt.Fprintf(buf, `<div data-img="%s"><span class="width">width</span>x<span class="height">height</span></div>`, refURL)
	buf.WriteString(`<div class="spacer"></div>`)
	fmt.Fprintf(buf, `<div data-img="%s"><span class="width">%d</span>x<span class="height">%d</span></div>`, newURL, row.Width, row.Height)
	buf.WriteString(`<div class="spacer"></div></div>`)
	buf.WriteString(`<div class="line"></div>`)
	buf.WriteString(`<div class="row"><div class="spacer"></div>`)
	fmt.Fprintf(buf, "<div>Contact info: %s</div>", html.EscapeString(row.Contact))
	buf.WriteString(`<div class="spacer"></div>`)
	fmt.Fprintf(buf, "<div>Credits: %s</div>", html.EscapeString(row.Credits))
	buf.WriteString(`<div class="spacer"></div></div>`)
	buf.WriteString(`<div class="line"></div>`)
	buf.WriteString(`<div class="row"><div class="spacer"></div>`)
	fmt.Fprintf(buf, `<button class="reject-button" data-url="%s" data-filename="%s">Reject</button>`, refURL, filename)
	buf.WriteString(`<div class="spacer"></div>`)
	fmt.Fprintf(buf, `<button class="accept-button" data-url="%s" data-filename="%s">Accept</button>`, refURL, filename)
	buf.WriteString(`<div class="spacer"></div></div>`)
	buf.WriteString("</li>")
}
