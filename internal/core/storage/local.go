package storage

import (
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var (
	ErrNotImage = errors.New("uploaded file is not an allowed image type")
	ErrTooLarge = errors.New("uploaded file too large")
)

var allowedExt = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".webp": {},
}

// Local 把上传文件落到本地目录，返回相对路径（如 uploads/<uuid>.png）
type Local struct {
	Dir      string
	MaxBytes int64
}

func (s Local) Save(c *gin.Context, fh *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if _, ok := allowedExt[ext]; !ok {
		return "", fmt.Errorf("%w: %q", ErrNotImage, ext)
	}
	if s.MaxBytes > 0 && fh.Size > s.MaxBytes {
		return "", fmt.Errorf("%w: limit %d bytes", ErrTooLarge, s.MaxBytes)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("prepare upload dir: %w", err)
	}
	name := uuid.NewString() + ext
	if err := c.SaveUploadedFile(fh, filepath.Join(s.Dir, name)); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	return path.Join(filepath.ToSlash(s.Dir), name), nil
}

// Remove 删除 Save 返回的文件；文件不存在不算错误
func (s Local) Remove(rel string) error {
	if rel == "" {
		return nil
	}
	err := os.Remove(filepath.FromSlash(rel))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
