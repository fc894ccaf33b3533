package pressroom

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"

	"github.com/avolier/pressroom/storage"
)

const (
	maxImageWidth = 1600
	jpegQuality   = 82
	maxUploadSize = 10 << 20 // 10MB
)

// Media describes one uploaded image on disk.
type Media struct {
	Filename   string    `json:"filename"`
	URL        string    `json:"url"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// processImage decodes an image, downscales anything wider than
// maxImageWidth, and re-encodes the result as JPEG.
func processImage(src io.Reader) ([]byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	if w := bounds.Dx(); w > maxImageWidth {
		newH := bounds.Dy() * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// uploadFilename derives a slug-safe JPEG filename from the original name,
// appending a counter until it is free in dir.
func uploadFilename(dir, originalName string) string {
	base := storage.Slugify(strings.TrimSuffix(originalName, filepath.Ext(originalName)))
	candidate := base + ".jpg"
	for counter := 2; ; counter++ {
		if _, err := os.Stat(filepath.Join(dir, candidate)); os.IsNotExist(err) {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d.jpg", base, counter)
	}
}

func (a *App) handleMediaUpload(c echo.Context) error {
	file, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "no image file provided"})
	}
	if file.Size > maxUploadSize {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "file too large (max 10MB)"})
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	data, err := processImage(src)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid image"})
	}

	if err := os.MkdirAll(a.cfg.UploadsDir, 0o755); err != nil {
		return fmt.Errorf("create uploads dir: %w", err)
	}
	filename := uploadFilename(a.cfg.UploadsDir, file.Filename)
	if err := os.WriteFile(filepath.Join(a.cfg.UploadsDir, filename), data, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}

	media := Media{
		Filename:   filename,
		URL:        "/uploads/" + filename,
		Size:       int64(len(data)),
		UploadedAt: time.Now().UTC(),
	}
	a.recordActivity(c.Request().Context(), storage.ActionMediaUpload, "media", 0,
		fmt.Sprintf("uploaded %s", filename))
	return c.JSON(http.StatusCreated, media)
}

func (a *App) handleMediaList(c echo.Context) error {
	entries, err := os.ReadDir(a.cfg.UploadsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return c.JSON(http.StatusOK, []Media{})
		}
		return err
	}

	media := make([]Media, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		media = append(media, Media{
			Filename:   e.Name(),
			URL:        "/uploads/" + e.Name(),
			Size:       info.Size(),
			UploadedAt: info.ModTime().UTC(),
		})
	}
	sort.Slice(media, func(i, j int) bool {
		return media[i].UploadedAt.After(media[j].UploadedAt)
	})
	return c.JSON(http.StatusOK, media)
}

func (a *App) handleMediaDelete(c echo.Context) error {
	filename := filepath.Base(c.Param("filename"))
	if filename == "" || filename == "." || filename == ".." || filename == string(filepath.Separator) {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "filename required"})
	}

	path := filepath.Join(a.cfg.UploadsDir, filename)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "media not found"})
		}
		return err
	}

	a.recordActivity(c.Request().Context(), storage.ActionMediaDelete, "media", 0,
		fmt.Sprintf("deleted %s", filename))
	return c.JSON(http.StatusOK, map[string]bool{"deleted": true})
}
