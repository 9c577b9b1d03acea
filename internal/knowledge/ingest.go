package knowledge

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/domain"
)

const scrapeUserAgent = "Mozilla/5.0 (Virtual PPO Knowledge Bot)"

const maxTitleChars = 200

// AllowedFileTypes lists the accepted upload extensions.
var AllowedFileTypes = map[string]bool{
	".pdf": true, ".docx": true, ".txt": true, ".md": true, ".csv": true, ".xlsx": true,
}

var loginMarkers = []string{"login", "signin", "auth", "sso"}

// ValidationError reports input the ingester refuses to process.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// IsValidationError reports whether err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Limits bounds ingestion.
type Limits struct {
	MaxFileSize     int
	MaxContentChars int
	ChunkSize       int
	ChunkOverlap    int
}

// Ingester turns uploads and public web pages into chunked knowledge documents.
type Ingester struct {
	limits Limits
	client *http.Client
	logger *zap.Logger
}

// NewIngester creates an ingester whose page fetches time out after scrapeTimeout.
func NewIngester(limits Limits, scrapeTimeout time.Duration, logger *zap.Logger) *Ingester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingester{
		limits: limits,
		client: &http.Client{Timeout: scrapeTimeout},
		logger: logger,
	}
}

// IngestFile extracts, truncates and chunks an uploaded file. The returned
// document has no ID; callers assign one when storing it.
func (i *Ingester) IngestFile(filename string, content []byte) (*domain.KnowledgeDocument, error) {
	text, err := i.extractText(filename, content)
	if err != nil {
		return nil, err
	}
	text = i.truncate(text)
	chunks := ChunkText(text, i.limits.ChunkSize, i.limits.ChunkOverlap)

	return &domain.KnowledgeDocument{
		SourceType:    "file",
		SourceName:    filename,
		FileType:      strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), "."),
		FileSize:      len(content),
		Content:       text,
		ContentChunks: chunks,
		CharCount:     utf8.RuneCountInString(text),
		ChunkCount:    len(chunks),
		CreatedAt:     time.Now().UTC(),
	}, nil
}

func (i *Ingester) extractText(filename string, content []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !AllowedFileTypes[ext] {
		allowed := make([]string, 0, len(AllowedFileTypes))
		for k := range AllowedFileTypes {
			allowed = append(allowed, k)
		}
		sort.Strings(allowed)
		return "", invalid("Unsupported file type: %s. Allowed: %s", ext, strings.Join(allowed, ", "))
	}
	if len(content) > i.limits.MaxFileSize {
		return "", invalid("File too large: %d bytes. Maximum: %dMB", len(content), i.limits.MaxFileSize/(1024*1024))
	}

	switch ext {
	case ".txt", ".md":
		return strings.ToValidUTF8(string(content), "�"), nil
	case ".csv":
		return extractCSV(content)
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDocx(content)
	case ".xlsx":
		return extractXLSX(content)
	default:
		return "", invalid("Unsupported file type: %s", ext)
	}
}

// extractPDF returns the text of each non-empty page separated by blank lines.
func extractPDF(content []byte) (text string, err error) {
	// The parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", invalid("Could not read PDF file: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", invalid("Could not open PDF file: %v", err)
	}
	var pages []string
	for n := 1; n <= r.NumPage(); n++ {
		page := r.Page(n)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", invalid("Could not read PDF file: %v", err)
		}
		if strings.TrimSpace(pageText) != "" {
			pages = append(pages, pageText)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}

// extractXLSX renders every sheet under a "--- Sheet: name ---" line, one
// "header: value" row per line. Empty sheets are skipped.
func extractXLSX(content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", invalid("Could not open XLSX file: %v", err)
	}
	defer f.Close()

	var lines []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", invalid("Could not read XLSX sheet %s: %v", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}
		lines = append(lines, "--- Sheet: "+sheet+" ---")
		headers := rows[0]
		for _, row := range rows[1:] {
			var pairs []string
			for j, v := range row {
				if j >= len(headers) {
					break
				}
				if strings.TrimSpace(v) != "" {
					pairs = append(pairs, headers[j]+": "+v)
				}
			}
			if len(pairs) > 0 {
				lines = append(lines, strings.Join(pairs, " | "))
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}

// extractCSV renders each data row as "header: value" pairs, skipping blank cells.
func extractCSV(content []byte) (string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.ToValidUTF8(content, []byte("�"))))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return "", invalid("Could not parse CSV: %v", err)
	}
	if len(rows) == 0 {
		return "", nil
	}

	headers := rows[0]
	var lines []string
	for _, row := range rows[1:] {
		var pairs []string
		for j, v := range row {
			if j >= len(headers) {
				break
			}
			if strings.TrimSpace(v) != "" {
				pairs = append(pairs, headers[j]+": "+v)
			}
		}
		if len(pairs) > 0 {
			lines = append(lines, strings.Join(pairs, " | "))
		}
	}
	return strings.Join(lines, "\n"), nil
}

// extractDocx returns the non-blank paragraphs of word/document.xml separated by blank lines.
func extractDocx(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", invalid("Could not open DOCX file: %v", err)
	}
	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", invalid("Could not open DOCX file: missing word/document.xml")
	}
	rc, err := doc.Open()
	if err != nil {
		return "", invalid("Could not open DOCX file: %v", err)
	}
	defer rc.Close()

	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", invalid("Could not read DOCX file: %v", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				current.WriteString("\t")
			case "br", "cr":
				current.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if p := current.String(); strings.TrimSpace(p) != "" {
					paragraphs = append(paragraphs, p)
				}
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	return strings.Join(paragraphs, "\n\n"), nil
}

// ScrapeURL fetches a public page and extracts its main text. Pages behind a
// login, error statuses and non-HTML responses are rejected.
func (i *Ingester) ScrapeURL(ctx context.Context, rawURL string) (*domain.KnowledgeDocument, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, invalid("URL is required")
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "https://" + rawURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, invalid("Could not reach URL: %v", err)
	}
	req.Header.Set("User-Agent", scrapeUserAgent)

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, invalid("Could not reach URL: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, invalid("URL requires authentication (HTTP %d). Only public pages without login are supported.", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, invalid("URL returned error: HTTP %d", resp.StatusCode)
	}

	finalURL := strings.ToLower(resp.Request.URL.String())
	for _, marker := range loginMarkers {
		if strings.Contains(finalURL, marker) {
			return nil, invalid("URL redirected to a login page. Only public pages without authentication are supported.")
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if lower := strings.ToLower(contentType); !strings.Contains(lower, "html") && !strings.Contains(lower, "text") {
		return nil, invalid("URL did not return HTML content (got: %s)", contentType)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, invalid("Could not extract content from URL")
	}

	title := pageTitle(doc)
	if title == "" {
		title = rawURL
	}
	removeBoilerplate(doc)
	content := mainContent(doc)
	if content == nil {
		return nil, invalid("Could not extract content from URL")
	}

	text := i.truncate(cleanText(strings.Join(textNodes(content), "\n")))
	chunks := ChunkText(text, i.limits.ChunkSize, i.limits.ChunkOverlap)

	host := ""
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}
	i.logger.Info("scraped url", zap.String("url", rawURL), zap.Int("chars", len(text)), zap.Int("chunks", len(chunks)))

	return &domain.KnowledgeDocument{
		SourceType:    "url",
		SourceName:    truncateRunes(title, maxTitleChars),
		SourceURL:     rawURL,
		Domain:        host,
		Content:       text,
		ContentChunks: chunks,
		CharCount:     utf8.RuneCountInString(text),
		ChunkCount:    len(chunks),
		CreatedAt:     time.Now().UTC(),
	}, nil
}

func (i *Ingester) truncate(text string) string {
	limit := i.limits.MaxContentChars
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	return truncateRunes(text, limit) + "\n\n[Content truncated at " + groupThousands(limit) + " characters]"
}

func groupThousands(n int) string {
	s := strconv.Itoa(n)
	var b strings.Builder
	for idx, c := range s {
		if idx > 0 && (len(s)-idx)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}
