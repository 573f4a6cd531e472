package books

import (
	"bytes"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

const pdfContentType = "application/pdf"

// DetectContentType prefers a specific declared type and otherwise sniffs data.
func DetectContentType(declared string, data []byte) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return http.DetectContentType(data)
}

// pageCount returns the page count of PDF content, or nil for other types
// and unreadable PDFs.
func pageCount(logger *slog.Logger, data []byte, contentType string) *int {
	if contentType != pdfContentType {
		return nil
	}

	count, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		logger.Warn("failed to extract PDF page count", "error", err)
		return nil
	}

	return &count
}
