package validator

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

var tinyGIF = []byte{
	'G', 'I', 'F', '8', '9', 'a',
	0x01, 0x00, 0x02, 0x00, 0x80, 0x00, 0x00,
	0xff, 0xff, 0xff, 0x00, 0x00, 0x00,
	0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x02, 0x00, 0x00,
	0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

func TestIsImageBytes(t *testing.T) {
	tests := []struct {
		name     string
		header   []byte
		wantOK   bool
		wantMime string
	}{
		{"gif", tinyGIF, true, "image/gif"},
		{"png magic", []byte("\x89PNG\r\n\x1a\n rest of file"), true, "image/png"},
		{"jpeg magic", []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F'}, true, "image/jpeg"},
		{"html", []byte("<html><body>hi</body></html>"), false, "text/html; charset=utf-8"},
		{"plain text", []byte("just some text"), false, "text/plain; charset=utf-8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, mime := IsImageBytes(tt.header)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantMime, mime)
		})
	}
}

func TestGetImageDimensions(t *testing.T) {
	width, height := GetImageDimensions(bytes.NewReader(tinyGIF))
	assert.Equal(t, 1, width)
	assert.Equal(t, 2, height)
}

func TestGetImageDimensions_InvalidData(t *testing.T) {
	width, height := GetImageDimensions(bytes.NewReader([]byte("not an image")))
	assert.Zero(t, width)
	assert.Zero(t, height)
}
