// Package library manages the document collection: imports through the API,
// files dropped into the watched inbox directory, and the stored reading
// positions that let a reader resume where they left off.
package library

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/readalongapp/readalong-server/internal/domain"
	"github.com/readalongapp/readalong-server/internal/errors"
	"github.com/readalongapp/readalong-server/internal/extract"
	"github.com/readalongapp/readalong-server/internal/id"
	"github.com/readalongapp/readalong-server/internal/logger"
	"github.com/readalongapp/readalong-server/internal/store"
	"github.com/readalongapp/readalong-server/internal/validation"
)

// Format identifies how import content should be split into paragraphs.
type Format string

const (
	FormatText     Format = "text"
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
)

// ImportRequest adds a document through the API. StoreMarkdown asks for a
// markdown rendition of HTML content to be kept alongside the paragraphs;
// it is ignored for other formats.
type ImportRequest struct {
	Title         string `json:"title" validate:"required,max=300"`
	Content       string `json:"content" validate:"required"`
	Format        Format `json:"format,omitempty" validate:"omitempty,oneof=text html markdown"`
	StoreMarkdown bool   `json:"store_markdown,omitempty"`
}

// Service manages documents and reading positions.
type Service struct {
	store     *store.Store
	validator *validation.Validator
	log       *logger.Logger
}

// NewService creates a library service.
func NewService(st *store.Store, log *logger.Logger) *Service {
	return &Service{
		store:     st,
		validator: validation.New(),
		log:       log,
	}
}

// Import adds a document from API-submitted content. Defaults to plain text
// when no format is given.
func (s *Service) Import(ctx context.Context, req ImportRequest) (*domain.Document, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Format == "" {
		req.Format = FormatText
	}

	paragraphs, err := extractParagraphs(req.Content, req.Format)
	if err != nil {
		return nil, err
	}

	var markdown string
	if req.StoreMarkdown && req.Format == FormatHTML {
		markdown, err = extract.MarkdownFromHTML(req.Content)
		if err != nil {
			return nil, errors.Validation("malformed HTML").WithCause(err)
		}
	}

	return s.save(req.Title, paragraphs, markdown, domain.SourceAPI)
}

// ImportFile adds a document from a file path, picking the format from the
// extension. Used by the inbox watcher.
func (s *Service) ImportFile(path string, content []byte) (*domain.Document, error) {
	format, ok := formatForExtension(filepath.Ext(path))
	if !ok {
		return nil, errors.Validationf("unsupported file type: %s", filepath.Ext(path))
	}

	paragraphs, err := extractParagraphs(string(content), format)
	if err != nil {
		return nil, err
	}

	return s.save(titleFromFilename(path), paragraphs, "", domain.SourceInbox)
}

// Get returns one document.
func (s *Service) Get(id string) (*domain.Document, error) {
	return s.store.GetDocument(id)
}

// List returns all documents, newest first.
func (s *Service) List() ([]domain.Document, error) {
	return s.store.ListDocuments()
}

// Delete removes a document and its reading position.
func (s *Service) Delete(id string) error {
	return s.store.DeleteDocument(id)
}

// GetPosition returns the saved resume point for a document.
func (s *Service) GetPosition(documentID string) (*domain.ReadingPosition, error) {
	return s.store.GetPosition(documentID)
}

// ListPositions returns all resume points, most recently read first.
func (s *Service) ListPositions() ([]domain.ReadingPosition, error) {
	return s.store.ListPositions()
}

func (s *Service) save(title string, paragraphs []string, markdown string, source domain.DocumentSource) (*domain.Document, error) {
	if len(paragraphs) == 0 {
		return nil, errors.Validation("no readable paragraphs found")
	}

	docID, err := id.NewDocument()
	if err != nil {
		return nil, fmt.Errorf("generate document ID: %w", err)
	}

	doc := &domain.Document{
		ID:         docID,
		Title:      title,
		Paragraphs: paragraphs,
		Markdown:   markdown,
		Source:     source,
		WordCount:  extract.WordCount(paragraphs),
		AddedAt:    time.Now(),
	}
	if err := s.store.SaveDocument(doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}

	s.log.Info("document imported",
		"document_id", doc.ID,
		"title", doc.Title,
		"source", string(source),
		"paragraphs", len(paragraphs),
		"words", doc.WordCount)
	return doc, nil
}

func extractParagraphs(content string, format Format) ([]string, error) {
	switch format {
	case FormatHTML:
		paragraphs, err := extract.FromHTML(strings.NewReader(content))
		if err != nil {
			return nil, errors.Validation("malformed HTML").WithCause(err)
		}
		return paragraphs, nil
	case FormatMarkdown:
		return extract.FromMarkdown(content), nil
	case FormatText:
		return extract.FromPlainText(content), nil
	default:
		return nil, errors.Validationf("unknown format: %s", format)
	}
}

func formatForExtension(ext string) (Format, bool) {
	switch strings.ToLower(ext) {
	case ".html", ".htm":
		return FormatHTML, true
	case ".md", ".markdown":
		return FormatMarkdown, true
	case ".txt":
		return FormatText, true
	default:
		return "", false
	}
}

// titleFromFilename turns "my_great_story.txt" into "my great story".
func titleFromFilename(path string) string {
	base := filepath.Base(path)
	title := strings.TrimSuffix(base, filepath.Ext(base))
	title = strings.ReplaceAll(title, "_", " ")
	title = strings.ReplaceAll(title, "-", " ")
	return strings.TrimSpace(title)
}
