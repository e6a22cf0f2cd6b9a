// Copyright (c) 2025 Rafi / Elli
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package attach converts user-selected files into a transmissible form:
// images are sent as raw bytes (encoded at submission time), PDFs and text
// files as extracted plain text folded into the prompt.
package attach

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// Sentinel errors surfaced to the user.
var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = fmt.Errorf("text file exceeds the %dKB limit", MaxTextSize/1024)
	ErrExtractFailed   = errors.New("could not read the document")
)

// =============================================================================
// CONSTANTS
// =============================================================================

// MaxTextSize caps plain-text attachments (150 KiB).
const MaxTextSize = 150 * 1024

// imageMIMEs maps accepted image extensions to their MIME type.
var imageMIMEs = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// textExtensions is the accepted plain-text family, including the markdown
// and CSV extension allowance.
var textExtensions = map[string]bool{
	".txt": true,
	".md":  true,
	".csv": true,
}

// =============================================================================
// ATTACHMENT TYPE
// =============================================================================

// Kind classifies an attachment.
type Kind int

const (
	KindImage Kind = iota
	KindDocument
)

// Attachment is a transient, submission-ready attachment. It lives from file
// selection until the turn is sent or the user removes it; it is never
// persisted.
type Attachment struct {
	// Kind is image or document.
	Kind Kind

	// Path is the source file path.
	Path string

	// DisplayLabel is shown in the transcript (the file base name).
	DisplayLabel string

	// MimeType is set for images only.
	MimeType string

	// ExtractedContent holds the full text of a document attachment.
	ExtractedContent string
}

// IsImage reports whether the attachment is an image.
func (a *Attachment) IsImage() bool {
	return a.Kind == KindImage
}

// ReadImageBytes loads the image file. Encoding is deferred to submission
// time, so selecting and then removing an image never reads it.
func (a *Attachment) ReadImageBytes() ([]byte, error) {
	if a.Kind != KindImage {
		return nil, errors.New("attachment is not an image")
	}
	return os.ReadFile(a.Path)
}

// =============================================================================
// PREPROCESSOR
// =============================================================================

// Prepare classifies a file and produces a ready attachment.
//
// Images are accepted unconditionally (their bytes are read later, at
// submission). PDFs have their text layer extracted page by page. Plain-text
// files are size-checked before any content is read. Everything else is
// rejected. A failure leaves no partial attachment behind.
func Prepare(path string) (*Attachment, error) {
	ext := strings.ToLower(filepath.Ext(path))

	if mime, ok := imageMIMEs[ext]; ok {
		return &Attachment{
			Kind:         KindImage,
			Path:         path,
			DisplayLabel: filepath.Base(path),
			MimeType:     mime,
		}, nil
	}

	if ext == ".pdf" {
		content, err := extractPDFText(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrExtractFailed, err)
		}
		return &Attachment{
			Kind:             KindDocument,
			Path:             path,
			DisplayLabel:     filepath.Base(path),
			ExtractedContent: content,
		}, nil
	}

	if textExtensions[ext] {
		content, err := readTextFile(path)
		if err != nil {
			return nil, err
		}
		return &Attachment{
			Kind:             KindDocument,
			Path:             path,
			DisplayLabel:     filepath.Base(path),
			ExtractedContent: content,
		}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
}

// =============================================================================
// EXTRACTION
// =============================================================================

// extractPDFText reads every page's text layer and joins page texts in page
// order with a newline.
func extractPDFText(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", err
		}
		pages = append(pages, text)
	}
	return strings.Join(pages, "\n"), nil
}

// readTextFile enforces the size cap from file metadata before reading any
// content.
func readTextFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractFailed, err)
	}
	if info.Size() > MaxTextSize {
		return "", ErrTooLarge
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractFailed, err)
	}
	return string(data), nil
}
