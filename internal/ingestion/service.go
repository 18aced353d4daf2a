// Package ingestion 处理用户上传的替换图：校验、内容寻址、入库。
package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/anoixa/story-overlay/database/models"
	"github.com/anoixa/story-overlay/database/repo/records"
	"github.com/anoixa/story-overlay/storage"
	"github.com/anoixa/story-overlay/utils"
	"github.com/anoixa/story-overlay/utils/validator"
)

// FileSizeLimit 上传文件大小上限（字节）。
// 前端校验脚本和服务端共用同一个值。
const FileSizeLimit = 500000

var (
	// ErrFileTooLarge 文件超过大小上限
	ErrFileTooLarge = errors.New("uploaded file exceeds size limit")
	// ErrNotImage 文件内容不是允许的图片类型
	ErrNotImage = errors.New("uploaded file is not a supported image")
)

// Service 上传处理服务
type Service struct {
	repo   records.RepositoryInterface
	store  storage.Provider
	origin *url.URL
}

// NewService 创建上传处理服务
func NewService(repo records.RepositoryInterface, store storage.Provider, origin string) (*Service, error) {
	originURL, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream origin %q: %w", origin, err)
	}
	return &Service{
		repo:   repo,
		store:  store,
		origin: originURL,
	}, nil
}

// SubmitInput 一次图片提交
type SubmitInput struct {
	// TargetURL 被替换图片的地址（绝对或相对均可）
	TargetURL string
	// File 上传内容
	File io.Reader
	// Size 声明的文件大小
	Size int64
	// OriginalName 上传时的文件名，只取扩展名
	OriginalName string
	// PageURL 上传发生时所在页面的路径
	PageURL string
	Contact string
	Credits string
}

// Submit 校验并保存一次提交。
//
// 文件按内容寻址：存储名为 SHA-256 哈希加原扩展名，
// 字节相同的重复上传复用同一个存储文件。
// 记录按 (for_url, filename) 整行替换，重复上传会覆盖
// contact/credits/on_page 并把记录重置回待审状态。
func (s *Service) Submit(ctx context.Context, input SubmitInput) (*models.ImageRecord, error) {
	if input.Size > FileSizeLimit {
		return nil, ErrFileTooLarge
	}

	forURL, err := s.ResolveForURL(input.TargetURL)
	if err != nil {
		return nil, err
	}

	// 边写临时文件边计算哈希
	tempFile, err := os.CreateTemp("", "overlay-upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		_ = tempFile.Close()
		_ = os.Remove(tempFile.Name())
	}()

	hasher := sha256.New()
	writer := io.MultiWriter(tempFile, hasher)

	// 多拷贝一个字节以发现超限的流
	written, err := io.Copy(writer, io.LimitReader(input.File, FileSizeLimit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to process file stream: %w", err)
	}
	if written > FileSizeLimit {
		return nil, ErrFileTooLarge
	}

	// 验证文件类型
	if _, err := tempFile.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek temp file: %w", err)
	}
	headerBuf := make([]byte, 512)
	n, _ := tempFile.Read(headerBuf)
	isImage, _ := validator.IsImageBytes(headerBuf[:n])
	if !isImage {
		return nil, ErrNotImage
	}

	// 获取图片尺寸
	if _, err := tempFile.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek temp file: %w", err)
	}
	width, height := validator.GetImageDimensions(tempFile)

	fileHash := hex.EncodeToString(hasher.Sum(nil))
	fileName := fileHash + normalizeExtension(input.OriginalName)

	// 保存到存储，内容寻址使重复保存无害
	if _, err := tempFile.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek temp file: %w", err)
	}
	if err := s.store.SaveWithContext(ctx, fileName, tempFile); err != nil {
		return nil, fmt.Errorf("failed to save uploaded file: %w", err)
	}

	record := &models.ImageRecord{
		ForURL:   forURL,
		Filename: fileName,
		OnPage:   input.PageURL,
		Width:    width,
		Height:   height,
		Contact:  input.Contact,
		Credits:  input.Credits,
	}
	if err := s.repo.Upsert(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save image record: %w", err)
	}

	log.Printf("UPLOADED IMAGE: %s", utils.SanitizeLogMessage(forURL))
	return record, nil
}

// ResolveForURL 把提交的目标地址解析到已知站点上并只保留路径部分，
// 防止提交方夹带其他主机或协议。
func (s *Service) ResolveForURL(target string) (string, error) {
	ref, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("invalid target url %q: %w", target, err)
	}
	resolved := s.origin.ResolveReference(ref)
	if resolved.Path == "" {
		return "/", nil
	}
	return resolved.Path, nil
}

// normalizeExtension 提取小写扩展名，过滤掉不安全的后缀
func normalizeExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" || strings.ContainsAny(ext, "/\\") {
		return ""
	}
	return ext
}
