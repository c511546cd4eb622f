package helpers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

type UploadConfig struct {
	MaxSizeBytes     int64
	AllowedMimeTypes []string
}

var DefaultImageUploadConfig = UploadConfig{
	MaxSizeBytes: 5 * 1024 * 1024, // 5MB
	AllowedMimeTypes: []string{
		"image/jpeg",
		"image/png",
		"image/gif",
		"image/webp",
	},
}

// OpenUpload checks an uploaded file against config and returns it rewound,
// ready to be copied into a blob store, with a cleaned filename.
func OpenUpload(fileHeader *multipart.FileHeader, configs ...UploadConfig) (multipart.File, string, error) {
	config := DefaultImageUploadConfig
	if len(configs) > 0 {
		config = configs[0]
	}

	if fileHeader.Size > config.MaxSizeBytes {
		return nil, "", fmt.Errorf("file size exceeds maximum limit of %d MB", config.MaxSizeBytes/(1024*1024))
	}

	src, err := fileHeader.Open()
	if err != nil {
		return nil, "", err
	}

	buffer := make([]byte, 512)
	n, err := src.Read(buffer)
	if err != nil && err != io.EOF {
		src.Close()
		return nil, "", err
	}
	mimeType := http.DetectContentType(buffer[:n])

	mimeTypeAllowed := false
	for _, allowedType := range config.AllowedMimeTypes {
		if mimeType == allowedType {
			mimeTypeAllowed = true
			break
		}
	}
	if !mimeTypeAllowed {
		src.Close()
		return nil, "", fmt.Errorf("invalid file type. Allowed types: %v", config.AllowedMimeTypes)
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		src.Close()
		return nil, "", err
	}
	return src, strings.ToLower(filepath.Base(fileHeader.Filename)), nil
}
