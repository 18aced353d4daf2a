// Package rewrite 负责改写上游返回的 HTML 页面：
// 注入提交弹窗与脚本，替换已采纳的覆盖图，渲染贡献者页面。
package rewrite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/anoixa/story-overlay/database/repo/records"
	"github.com/anoixa/story-overlay/internal/credits"
)

// 页面 <title> 的固定替换规则，按顺序应用
var titleSubstitutions = []struct {
	pattern *regexp.Regexp
	with    string
}{
	{regexp.MustCompile(`Homestuck`), "Calibornstuck"},
	{regexp.MustCompile(`Official`), ""},
	{regexp.MustCompile(`(?i)Andrew Hussie`), "Caliborn"},
}

// Rewriter HTML 改写器
type Rewriter struct {
	repo         records.RepositoryInterface
	creditsSvc   *credits.Service
	originPrefix string
}

// imageDecision 单张图片的查库结论，DOM 改写在所有查询汇合后串行执行
type imageDecision struct {
	skip        bool
	accepted    bool
	newSrc      string
	credits     string
	buttonLabel string
}

// NewRewriter 创建改写器。origin 形如 https://www.homestuck.com
func NewRewriter(repo records.RepositoryInterface, creditsSvc *credits.Service, origin string) *Rewriter {
	return &Rewriter{
		repo:         repo,
		creditsSvc:   creditsSvc,
		originPrefix: strings.TrimRight(origin, "/"),
	}
}

// Page 改写一个完整的 HTML 文档。
// 任意一张图片的记录查询失败都会使整个文档改写失败，
// 调用方不应把半成品页面发给客户端。
func (r *Rewriter) Page(ctx context.Context, body []byte, path string) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	r.rewriteTitle(doc)
	doc.Find("head").AppendHtml(overlayStyle)
	doc.Find("body").AppendHtml(overlayModal)
	doc.Find("body").AppendHtml(overlayScript)

	if path == CreditsPagePath {
		if err := r.renderCredits(ctx, doc); err != nil {
			return nil, err
		}
	}

	r.augmentCopyright(doc)

	if err := r.rewriteImages(ctx, doc); err != nil {
		return nil, err
	}

	out, err := doc.Html()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize document: %w", err)
	}
	return []byte(out), nil
}

func (r *Rewriter) rewriteTitle(doc *goquery.Document) {
	title := doc.Find("title")
	if title.Length() == 0 {
		return
	}
	text := title.Text()
	for _, sub := range titleSubstitutions {
		text = sub.pattern.ReplaceAllString(text, sub.with)
	}
	title.SetText(text)
}

// augmentCopyright 找到第一个含 © 的 span，在其父节点上
// 补齐原站名并追加覆盖层的署名行。页面上没有版权栏时为空操作。
func (r *Rewriter) augmentCopyright(doc *goquery.Document) {
	span := doc.Find(`span:contains("©")`).First()
	if span.Length() == 0 {
		return
	}
	parent := span.Parent()
	if parent.Length() == 0 {
		return
	}
	parent.PrependHtml("Homestuck ")
	parent.AppendHtml("<br>Calibornstuck © 2019 by its contributors")
}

// rewriteImages 对每张属于上游 URL 空间的图片做查库决策。
// 查询经 errgroup 并发执行，每个决策写入各自的槽位；
// DOM 修改在全部查询汇合之后串行进行，goquery 文档本身不做并发访问。
func (r *Rewriter) rewriteImages(ctx context.Context, doc *goquery.Document) error {
	images := doc.Find("img")
	decisions := make([]imageDecision, images.Length())

	group, groupCtx := errgroup.WithContext(ctx)
	images.Each(func(i int, img *goquery.Selection) {
		src, ok := img.Attr("src")
		if !ok || !strings.HasPrefix(src, r.originPrefix+"/") {
			decisions[i].skip = true
			return
		}
		basePath := strings.TrimPrefix(src, r.originPrefix)
		group.Go(func() error {
			return r.decideImage(groupCtx, basePath, &decisions[i])
		})
	})
	if err := group.Wait(); err != nil {
		return err
	}

	images.Each(func(i int, img *goquery.Selection) {
		d := decisions[i]
		if d.skip {
			return
		}
		img.WrapHtml(`<div class="calibornstuck-img-wrapper"></div>`)
		if d.accepted {
			img.SetAttr("src", d.newSrc)
			if d.credits != "" {
				img.AfterHtml(fmt.Sprintf(`<div class="credits">image by %s</div>`, html.EscapeString(d.credits)))
			} else {
				img.AfterHtml(`<div class="credits"></div>`)
			}
		} else {
			img.SetAttr("src", d.newSrc)
			img.BeforeHtml(fmt.Sprintf(`<a class="calibornstuck-button">%s</a>`, html.EscapeString(d.buttonLabel)))
		}
	})
	return nil
}

// decideImage 决定一张图片的改写方式：
// 有已采纳记录 → 换源并标注署名；否则按待审数量生成提交按钮文案。
func (r *Rewriter) decideImage(ctx context.Context, basePath string, decision *imageDecision) error {
	record, err := r.repo.GetAccepted(ctx, basePath)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up accepted image for %s: %w", basePath, err)
	}
	if record != nil {
		decision.accepted = true
		decision.newSrc = OverlayPathPrefix + record.Filename
		decision.credits = record.Credits
		return nil
	}

	count, err := r.repo.CountPending(ctx, basePath)
	if err != nil {
		return fmt.Errorf("failed to count pending images for %s: %w", basePath, err)
	}
	decision.newSrc = basePath
	switch {
	case count == 1:
		decision.buttonLabel = "(1 SUBMISSION. PENDING.)"
	case count > 1:
		decision.buttonLabel = fmt.Sprintf("(%d SUBMISSIONS. PENDING.)", count)
	default:
		decision.buttonLabel = "SUBMIT. AN IMAGE."
	}
	return nil
}

// renderCredits 把贡献者报表插入 /credits/art 页面。
// 目标容器是第一个 <h2> 的父节点下的第一个 <div>，
// 上游页面结构变化导致找不到容器时保持原样。
func (r *Rewriter) renderCredits(ctx context.Context, doc *goquery.Document) error {
	heading := doc.Find("h2").First()
	if heading.Length() == 0 {
		return nil
	}
	container := heading.Parent().Find("div").First()
	if container.Length() == 0 {
		return nil
	}

	report, err := r.creditsSvc.Report(ctx)
	if err != nil {
		return fmt.Errorf("failed to build credits report: %w", err)
	}

	var buf strings.Builder
	buf.WriteString(`<div class="type-bs pad-x-0 pad-x-lg--md" style="font-family:Verdana,Arial,Helvetica,sans-serif;font-weight:normal;">`)
	fmt.Fprintf(&buf, "<p>%d images from %d contributors</p><br>", report.TotalAccepted, report.DistinctCredits)
	for _, group := range report.Groups {
		fmt.Fprintf(&buf, `<p><a href="%s">Page %s</a>`,
			html.EscapeString(group.OnPage), html.EscapeString(group.PageNumber))
		if len(group.Credits) > 0 {
			fmt.Fprintf(&buf, " - images by <span>%s</span>", html.EscapeString(strings.Join(group.Credits, ", ")))
		}
		buf.WriteString("</p>")
	}
	buf.WriteString("</div>")

	// 三次 prepend 依次入栈，最终顺序与原始页面的版式一致
	container.PrependHtml("<br><h3>Original Homestuck Credits</h3><br>")
	container.PrependHtml(buf.String())
	container.PrependHtml("<h3>Calibornstuck Credits</h3><br>")
	return nil
}
