package validator

import (
	"image"
	"io"
	"net/http"

	// 注册解码器，供 image.DecodeConfig 探测尺寸
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// allowedImageMimeTypes Allowed image types
var allowedImageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
}

// IsImageBytes 通过文件头嗅探判断内容是否为允许的图片类型
func IsImageBytes(header []byte) (bool, string) {
	mimeType := http.DetectContentType(header)
	if _, ok := allowedImageMimeTypes[mimeType]; ok {
		return true, mimeType
	}
	return false, mimeType
}

// GetImageDimensions 读取图片尺寸，失败时返回 0, 0
func GetImageDimensions(r io.Reader) (int, int) {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
