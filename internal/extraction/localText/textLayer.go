// Package localText reads what can be read from an uploaded file without the
// extraction service: its kind, and the embedded text layer of PDFs and office
// documents.
package localText

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/DocScanAPI/internal/domain/commonModels"
	"github.com/akolanti/DocScanAPI/pkg/logger_i"
	"github.com/dslipak/pdf"
	"github.com/gabriel-vasile/mimetype"
	"github.com/lu4p/cat"
)

var logger = logger_i.NewLogger("localText")

const pageTimeout = 10 * time.Second

// DetectKind classifies a file by declared content type, then extension, then
// by sniffing its bytes.
func DetectKind(f commonModels.UploadedFile) commonModels.DocType {
	if kind := kindFromMime(f.ContentType); kind != commonModels.ERR {
		return kind
	}
	if kind := kindFromExtension(f.Name); kind != commonModels.ERR {
		return kind
	}
	if len(f.Data) == 0 {
		return commonModels.ERR
	}
	return kindFromMime(mimetype.Detect(f.Data).String())
}

// MimeType returns the declared content type or the sniffed one.
func MimeType(f commonModels.UploadedFile) string {
	if f.ContentType != "" && f.ContentType != "application/octet-stream" {
		return f.ContentType
	}
	if len(f.Data) > 0 {
		return mimetype.Detect(f.Data).String()
	}
	return "application/octet-stream"
}

func kindFromMime(contentType string) commonModels.DocType {
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch {
	case mediaType == "application/pdf":
		return commonModels.PDF
	case strings.HasPrefix(mediaType, "image/"):
		return commonModels.IMAGE
	case mediaType == "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		mediaType == "application/vnd.oasis.opendocument.text",
		mediaType == "application/rtf", mediaType == "text/rtf":
		return commonModels.DOCX
	case mediaType == "text/plain":
		return commonModels.TXT
	default:
		return commonModels.ERR
	}
}

func kindFromExtension(name string) commonModels.DocType {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return commonModels.PDF
	case ".jpg", ".jpeg", ".png", ".webp", ".heic", ".heif", ".gif", ".bmp", ".tif", ".tiff":
		return commonModels.IMAGE
	case ".docx", ".odt", ".rtf":
		return commonModels.DOCX
	case ".txt":
		return commonModels.TXT
	default:
		return commonModels.ERR
	}
}

// ValidatePDF fails when data cannot be opened as a PDF with at least one page.
func ValidatePDF(data []byte) error {
	r, err := openPDF(data)
	if err != nil {
		return err
	}
	if r.NumPage() < 1 {
		return errors.New("pdf has no pages")
	}
	return nil
}

// ExtractText returns the text layer of PDFs and office documents. Images have
// none and return an empty string.
func ExtractText(f commonModels.UploadedFile) (string, error) {
	switch DetectKind(f) {
	case commonModels.PDF:
		return extractPDF(f.Data)
	case commonModels.DOCX:
		return extractOffice(f.Data)
	case commonModels.TXT:
		return string(f.Data), nil
	case commonModels.IMAGE:
		return "", nil
	default:
		return "", fmt.Errorf("unsupported file %q", f.Name)
	}
}

func openPDF(data []byte) (r *pdf.Reader, err error) {
	// the pdf reader panics on some malformed inputs
	defer func() {
		if rec := recover(); rec != nil {
			r = nil
			err = fmt.Errorf("failed to open pdf: %v", rec)
		}
	}()
	r, err = pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	return r, nil
}

func extractPDF(data []byte) (string, error) {
	r, err := openPDF(data)
	if err != nil {
		logger.Error("failed opening of pdf file", "error", err)
		return "", err
	}

	var sb strings.Builder
	numPages := r.NumPage()
	logger.Debug("extractPDF", "number of pages", numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := protectExtract(page)
		if err != nil {
			logger.Warn("Error parsing page content", "page", i, "error", err)
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(strings.TrimSpace(text))
	}
	return sb.String(), nil
}

// extractOffice reads .docx, .odt, .rtf and plain text.
func extractOffice(data []byte) (string, error) {
	text, err := cat.FromBytes(data)
	if err != nil {
		logger.Error("Error extracting content from doc", "error", err)
		return "", fmt.Errorf("failed to extract document text: %w", err)
	}
	return text, nil
}

func protectExtract(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				resChan <- result{"", fmt.Errorf("page extraction panicked: %v", rec)}
			}
		}()
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(pageTimeout):
		return "", errors.New("timeout")
	}
}
