// Package image moves image content between files and models.Image.
package image

import (
	"bytes"
	"errors"
	"fmt"
	stdimage "image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/webp"

	"github.com/manash/cyberedit/internal/security"
	"github.com/manash/cyberedit/pkg/models"
)

var (
	ErrNotImage  = errors.New("file is not an image")
	ErrEmptyFile = errors.New("file is empty")
	ErrTooLarge  = errors.New("file is too large")
)

const MaxUploadBytes = 20 << 20

// Load reads an uploaded file into an image with a sniffed content type.
// The file extension is consulted only when sniffing is inconclusive.
func Load(path string) (models.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Image{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxUploadBytes+1))
	if err != nil {
		return models.Image{}, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return models.Image{}, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}
	if len(data) > MaxUploadBytes {
		return models.Image{}, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, path, MaxUploadBytes)
	}

	mimeType := DetectMIMEType(data, path)
	if !strings.HasPrefix(mimeType, "image/") {
		return models.Image{}, fmt.Errorf("%w: %s (%s)", ErrNotImage, path, mimeType)
	}

	return models.Image{Data: data, MIMEType: mimeType}, nil
}

func DetectMIMEType(data []byte, path string) string {
	sniffed := http.DetectContentType(data)
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); strings.HasPrefix(byExt, "image/") {
		if i := strings.IndexByte(byExt, ';'); i >= 0 {
			byExt = byExt[:i]
		}
		return byExt
	}
	return sniffed
}

// Decode parses image content for rendering.
func Decode(img models.Image) (stdimage.Image, error) {
	decoded, _, err := stdimage.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", img.ContentType(), err)
	}
	return decoded, nil
}

// EncodePNG writes a rendered image as PNG content.
func EncodePNG(img stdimage.Image) (models.Image, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return models.Image{}, fmt.Errorf("failed to encode png: %w", err)
	}
	return models.Image{Data: buf.Bytes(), MIMEType: models.FormatPNG.MIMEType()}, nil
}

// Extension returns the file extension, without the dot, for a content
// type.
func Extension(mimeType string) string {
	format, err := models.FormatFromMIME(mimeType)
	if err != nil {
		if mimeType == "image/gif" {
			return "gif"
		}
		return "png"
	}
	if format == models.FormatJPEG {
		return "jpg"
	}
	return format.String()
}

type Saver struct {
	allowAbs bool
	dir      string
}

func NewSaver() *Saver {
	return &Saver{allowAbs: true}
}

// NewRelativeSaver returns a Saver that refuses absolute paths.
func NewRelativeSaver() *Saver {
	return &Saver{}
}

// InDir returns a copy of s that places generated filenames under dir.
func (s *Saver) InDir(dir string) *Saver {
	c := *s
	c.dir = dir
	return &c
}

// Join places name in the Saver's output directory.
func (s *Saver) Join(name string) string {
	return filepath.Join(s.dir, name)
}

// Save writes img to path and returns the path written. A path without an
// extension gets one from the image's content type.
func (s *Saver) Save(img models.Image, path string) (string, error) {
	if img.IsEmpty() {
		return "", errors.New("no image data available")
	}
	if filepath.Ext(path) == "" {
		path = path + "." + Extension(img.ContentType())
	}
	if err := security.ValidateOutputPath(path, s.allowAbs); err != nil {
		return "", fmt.Errorf("invalid output path %q: %w", path, err)
	}

	if err := s.ensureDir(path); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, img.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return path, nil
}

// SaveAll writes the generated image of every pair. prompts[i] names the
// file for pair i when basePath is empty.
func (s *Saver) SaveAll(pairs []models.ResultPair, prompts []string, basePath string) ([]string, error) {
	paths := make([]string, 0, len(pairs))

	for i, pair := range pairs {
		prompt := ""
		if i < len(prompts) {
			prompt = prompts[i]
		}
		path := s.generatePath(basePath, i, len(pairs), Extension(pair.Generated.ContentType()), prompt)
		written, err := s.Save(pair.Generated, path)
		if err != nil {
			return paths, fmt.Errorf("failed to save image %d: %w", i+1, err)
		}
		paths = append(paths, written)
	}

	return paths, nil
}

func (s *Saver) ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}

func (s *Saver) generatePath(basePath string, index, total int, ext, prompt string) string {
	if basePath == "" {
		return filepath.Join(s.dir, security.PromptFilename(index, prompt, ext))
	}
	if total == 1 {
		return basePath
	}
	pathExt := filepath.Ext(basePath)
	base := basePath[:len(basePath)-len(pathExt)]
	if pathExt == "" {
		pathExt = "." + ext
	}
	return fmt.Sprintf("%s-%d%s", base, index+1, pathExt)
}
