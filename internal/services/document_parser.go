package services

import (
	"bytes"
	"fmt"
	"html"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"resumematch/scanner-web/internal/models"
)

// DocumentParserService inspects resume files locally before they are sent to
// the backend. Text extraction for scoring stays with the backend.
type DocumentParserService interface {
	InspectPDF(name string, data []byte) (*models.DocumentInfo, error)
	ExtractDocxText(name string, data []byte) (string, *models.DocumentInfo, error)
}

type documentParserService struct {
	maxFileSize int64
}

func NewDocumentParserService(maxFileSize int64) DocumentParserService {
	return &documentParserService{maxFileSize: maxFileSize}
}

func (p *documentParserService) checkFile(name string, data []byte, ext, missing string) error {
	if len(data) == 0 {
		return newValidationError("file", missing)
	}
	if strings.ToLower(filepath.Ext(name)) != ext {
		return newValidationError("file", fmt.Sprintf("only %s files are allowed", strings.ToUpper(ext[1:])))
	}
	if p.maxFileSize > 0 && int64(len(data)) > p.maxFileSize {
		return newValidationError("file", fmt.Sprintf("file too large (> %d MB)", p.maxFileSize/(1024*1024)))
	}
	return nil
}

// InspectPDF validates name and size, then counts pages and text. A PDF the
// local parser cannot read is still accepted; the backend has the last word.
func (p *documentParserService) InspectPDF(name string, data []byte) (*models.DocumentInfo, error) {
	if err := p.checkFile(name, data, ".pdf", "choose a PDF"); err != nil {
		return nil, err
	}

	info := &models.DocumentInfo{Name: name, Size: int64(len(data))}
	pages, text := readPDF(data)
	info.Pages = pages
	info.TextChars = len([]rune(strings.TrimSpace(text)))
	return info, nil
}

func readPDF(data []byte) (pages int, text string) {
	// The pdf package panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			pages, text = 0, ""
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, ""
	}

	var textBuilder strings.Builder
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		textBuilder.WriteString(pageText)
		textBuilder.WriteString("\n\n")
	}

	return totalPage, textBuilder.String()
}

var (
	docxParagraphEnd = regexp.MustCompile(`</w:p>`)
	docxLineBreak    = regexp.MustCompile(`<w:(?:br|cr)\b[^>]*>`)
	docxTab          = regexp.MustCompile(`<w:(?:tab|ptab)\b[^>]*/>`)
	docxTag          = regexp.MustCompile(`<[^>]+>`)
)

// ExtractDocxText returns the plain text of a DOCX resume.
func (p *documentParserService) ExtractDocxText(name string, data []byte) (string, *models.DocumentInfo, error) {
	if err := p.checkFile(name, data, ".docx", "choose a DOCX file"); err != nil {
		return "", nil, err
	}

	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, newValidationError("file", "could not read DOCX file")
	}
	defer doc.Close()

	text := CleanText(xmlToText(doc.Editable().GetContent()))
	if text == "" {
		return "", nil, newValidationError("file", "no text content found in DOCX")
	}

	return text, &models.DocumentInfo{
		Name:      name,
		Size:      int64(len(data)),
		TextChars: len([]rune(text)),
	}, nil
}

func xmlToText(content string) string {
	content = docxParagraphEnd.ReplaceAllString(content, "\n")
	content = docxLineBreak.ReplaceAllString(content, "\n")
	content = docxTab.ReplaceAllString(content, " ")
	content = docxTag.ReplaceAllString(content, "")
	return html.UnescapeString(content)
}

// CleanText trims every line and drops blank ones.
func CleanText(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	var cleanedLines []string

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleanedLines = append(cleanedLines, line)
		}
	}

	return strings.Join(cleanedLines, "\n")
}
