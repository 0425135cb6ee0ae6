package validation

import (
	"errors"
	"mime/multipart"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	MaxAssetSize      = 10 * 1024 * 1024 // 10MB
	MaxCommentLength  = 5000
	MaxFolderNameLen  = 100
	MaxTitleLength    = 255
	MaxFilenameLength = 255
)

var (
	ErrFileTooLarge     = errors.New("file too large - maximum 10MB allowed")
	ErrInvalidFileType  = errors.New("invalid file type - only png, jpg, gif, webp, svg allowed")
	ErrFilenameTooLong  = errors.New("filename too long - maximum 255 characters")
	ErrEmptyFile        = errors.New("file is empty")
	ErrTitleRequired    = errors.New("title is required")
	ErrTitleTooLong     = errors.New("title too long - maximum 255 characters")
	ErrInvalidFolder    = errors.New("folder_name must be 1-100 letters, digits, '.', '_' or '-' and start with a letter or digit")
	ErrInvalidExtension = errors.New("invalid extension name")
	ErrEmptyComment     = errors.New("comment content is required")
	ErrCommentTooLong   = errors.New("comment too long - maximum 5000 characters")
	ErrInvalidPageIndex = errors.New("page index must be a positive integer")
)

var AllowedImageTypes = map[string]bool{
	"image/png":     true,
	"image/jpeg":    true,
	"image/gif":     true,
	"image/webp":    true,
	"image/svg+xml": true,
}

var folderPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

func ValidateUpload(fileHeader *multipart.FileHeader) error {

	if fileHeader.Size == 0 {
		return ErrEmptyFile
	}

	if fileHeader.Size > MaxAssetSize {
		return ErrFileTooLarge
	}

	if len(fileHeader.Filename) > MaxFilenameLength {
		return ErrFilenameTooLong
	}

	contentType := fileHeader.Header.Get("Content-Type")

	if contentType == "" || contentType == "application/octet-stream" {
		contentType = GuessContentType(fileHeader.Filename)
	}

	if !AllowedImageTypes[contentType] {
		return ErrInvalidFileType
	}

	return nil
}

func GuessContentType(filename string) string {

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return "application/octet-stream"
	}

	typeMap := map[string]string{
		"png":  "image/png",
		"jpg":  "image/jpeg",
		"jpeg": "image/jpeg",
		"gif":  "image/gif",
		"webp": "image/webp",
		"svg":  "image/svg+xml",
	}

	if ct, ok := typeMap[ext]; ok {
		return ct
	}

	return "application/octet-stream"
}

// ValidateFolderName guards the one user-supplied value that becomes a path segment.
func ValidateFolderName(name string) error {

	if len(name) == 0 || len(name) > MaxFolderNameLen {
		return ErrInvalidFolder
	}

	if !folderPattern.MatchString(name) || strings.Contains(name, "..") {
		return ErrInvalidFolder
	}

	return nil
}

func ValidateExtensionName(name string) error {
	if ValidateFolderName(name) != nil {
		return ErrInvalidExtension
	}
	return nil
}

func ValidateTitle(title string) error {

	if strings.TrimSpace(title) == "" {
		return ErrTitleRequired
	}

	if len(title) > MaxTitleLength {
		return ErrTitleTooLong
	}

	return nil
}

func ValidateComment(content string) error {

	if strings.TrimSpace(content) == "" {
		return ErrEmptyComment
	}

	if len(content) > MaxCommentLength {
		return ErrCommentTooLong
	}

	return nil
}

func ValidatePageIndex(index int) error {
	if index < 1 {
		return ErrInvalidPageIndex
	}
	return nil
}
