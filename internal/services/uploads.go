package services

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"resumematch/scanner-web/internal/models"
)

// StagedUpload is a resume file written to the upload directory while a scan
// is in flight.
type StagedUpload struct {
	Name         string
	Path         string
	OriginalName string
	Size         int64
}

// UploadStore stages uploaded resume files on disk between the browser and
// the backend.
type UploadStore interface {
	EnsureUploadDir() error
	Stage(file *multipart.FileHeader, mode models.ScanMode) (*StagedUpload, error)
	Read(upload *StagedUpload) ([]byte, error)
	Discard(upload *StagedUpload) error
}

type uploadStore struct {
	uploadPath  string
	maxFileSize int64
}

func NewUploadStore(uploadPath string, maxFileSize int64) UploadStore {
	return &uploadStore{
		uploadPath:  uploadPath,
		maxFileSize: maxFileSize,
	}
}

func (s *uploadStore) EnsureUploadDir() error {
	if err := os.MkdirAll(s.uploadPath, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	return nil
}

var modeExtensions = map[models.ScanMode]string{
	models.ScanModePDF:  ".pdf",
	models.ScanModeDocx: ".docx",
}

// Stage implements UploadStore. Extension and size are checked before
// anything is written.
func (s *uploadStore) Stage(file *multipart.FileHeader, mode models.ScanMode) (*StagedUpload, error) {
	want, ok := modeExtensions[mode]
	if !ok {
		return nil, newValidationError("mode", "unknown scan mode")
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != want {
		return nil, newValidationError("file", fmt.Sprintf("only %s files are allowed", strings.ToUpper(want[1:])))
	}
	if s.maxFileSize > 0 && file.Size > s.maxFileSize {
		return nil, newValidationError("file", fmt.Sprintf("file too large (> %d MB)", s.maxFileSize/(1024*1024)))
	}

	if err := s.EnsureUploadDir(); err != nil {
		return nil, err
	}

	uniqueFilename := fmt.Sprintf("%s_%s%s", mode, uuid.New().String(), ext)
	filePath := filepath.Join(s.uploadPath, uniqueFilename)

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, src)
	if err != nil {
		_ = os.Remove(filePath)
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	return &StagedUpload{
		Name:         uniqueFilename,
		Path:         filePath,
		OriginalName: file.Filename,
		Size:         written,
	}, nil
}

func (s *uploadStore) Read(upload *StagedUpload) ([]byte, error) {
	data, err := os.ReadFile(upload.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read staged file: %w", err)
	}
	return data, nil
}

func (s *uploadStore) Discard(upload *StagedUpload) error {
	if err := os.Remove(upload.Path); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
