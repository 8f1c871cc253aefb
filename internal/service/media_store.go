package service

import (
	"fmt"
	"os"
	"path/filepath"
)

// MediaStore раскладывает медиафайлы сабмишенов по директориям
// media_root/submission_{id}/{images|segments|videos}
type MediaStore struct {
	root string
}

func NewMediaStore(root string) *MediaStore {
	return &MediaStore{root: root}
}

func (m *MediaStore) Root() string {
	return m.root
}

func (m *MediaStore) SubmissionDir(submissionID int64) string {
	return filepath.Join(m.root, fmt.Sprintf("submission_%d", submissionID))
}

func (m *MediaStore) ImagesDir(submissionID int64) string {
	return filepath.Join(m.SubmissionDir(submissionID), "images")
}

func (m *MediaStore) SegmentsDir(submissionID int64) string {
	return filepath.Join(m.SubmissionDir(submissionID), "segments")
}

func (m *MediaStore) VideosDir(submissionID int64) string {
	return filepath.Join(m.SubmissionDir(submissionID), "videos")
}

// EnsureDirs создает структуру директорий сабмишена
func (m *MediaStore) EnsureDirs(submissionID int64) error {
	for _, dir := range []string{
		m.ImagesDir(submissionID),
		m.SegmentsDir(submissionID),
		m.VideosDir(submissionID),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create media dir %s: %w", dir, err)
		}
	}
	return nil
}

// SaveBytes пишет файл в директорию сабмишена и возвращает путь относительно корня
func (m *MediaStore) SaveBytes(submissionID int64, subdir, filename string, data []byte) (string, error) {
	dir := filepath.Join(m.SubmissionDir(submissionID), subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create media dir %s: %w", dir, err)
	}

	fullPath := filepath.Join(dir, filename)
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write media file %s: %w", fullPath, err)
	}

	rel, err := filepath.Rel(m.root, fullPath)
	if err != nil {
		return fullPath, nil
	}
	return rel, nil
}

// Abs возвращает абсолютный путь файла по сохраненному относительному
func (m *MediaStore) Abs(relPath string) string {
	if filepath.IsAbs(relPath) {
		return relPath
	}
	return filepath.Join(m.root, relPath)
}
