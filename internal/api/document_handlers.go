package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/readalongapp/readalong-server/internal/domain"
	"github.com/readalongapp/readalong-server/internal/library"
)

func (s *Server) registerDocumentRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "importDocument",
		Method:      http.MethodPost,
		Path:        "/api/v1/documents",
		Summary:     "Import document",
		Description: "Adds a document to the library from text, HTML, or Markdown content",
		Tags:        []string{"Documents"},
	}, s.handleImportDocument)

	huma.Register(s.api, huma.Operation{
		OperationID: "listDocuments",
		Method:      http.MethodGet,
		Path:        "/api/v1/documents",
		Summary:     "List documents",
		Description: "Returns all library documents, newest first",
		Tags:        []string{"Documents"},
	}, s.handleListDocuments)

	huma.Register(s.api, huma.Operation{
		OperationID: "getDocument",
		Method:      http.MethodGet,
		Path:        "/api/v1/documents/{id}",
		Summary:     "Get document",
		Description: "Returns one document with its full paragraph text",
		Tags:        []string{"Documents"},
	}, s.handleGetDocument)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteDocument",
		Method:      http.MethodDelete,
		Path:        "/api/v1/documents/{id}",
		Summary:     "Delete document",
		Description: "Removes a document and its reading position",
		Tags:        []string{"Documents"},
	}, s.handleDeleteDocument)

	huma.Register(s.api, huma.Operation{
		OperationID: "getDocumentPosition",
		Method:      http.MethodGet,
		Path:        "/api/v1/documents/{id}/position",
		Summary:     "Get reading position",
		Description: "Returns the saved resume point for a document",
		Tags:        []string{"Documents"},
	}, s.handleGetDocumentPosition)

	huma.Register(s.api, huma.Operation{
		OperationID: "listPositions",
		Method:      http.MethodGet,
		Path:        "/api/v1/positions",
		Summary:     "List reading positions",
		Description: "Returns all resume points, most recently read first",
		Tags:        []string{"Documents"},
	}, s.handleListPositions)
}

// === DTOs ===

// DocumentSummary contains document metadata without the paragraph text.
type DocumentSummary struct {
	ID             string    `json:"id" doc:"Document ID"`
	Title          string    `json:"title" doc:"Document title"`
	Source         string    `json:"source" doc:"How the document entered the library: api or inbox"`
	WordCount      int       `json:"word_count" doc:"Total word count"`
	ParagraphCount int       `json:"paragraph_count" doc:"Number of paragraphs"`
	AddedAt        time.Time `json:"added_at" doc:"Import time"`
}

// DocumentResponse contains a full document including paragraph text.
type DocumentResponse struct {
	DocumentSummary
	Paragraphs []string `json:"paragraphs" doc:"Paragraph text in reading order"`
	Markdown   string   `json:"markdown,omitempty" doc:"Markdown rendition, present when the import asked for one"`
}

// ImportDocumentRequest is the request body for importing a document.
// Presence checks live in the library validator so violations come back as
// field-keyed validation details.
type ImportDocumentRequest struct {
	Title         string `json:"title" required:"false" doc:"Document title"`
	Content       string `json:"content" required:"false" doc:"Raw document content"`
	Format        string `json:"format,omitempty" enum:"text,html,markdown" doc:"Content format, defaults to text"`
	StoreMarkdown bool   `json:"store_markdown,omitempty" doc:"For HTML imports, also store a markdown rendition"`
}

// ImportDocumentInput wraps the import request for Huma.
type ImportDocumentInput struct {
	Body ImportDocumentRequest
}

// DocumentOutput wraps a full document response for Huma.
type DocumentOutput struct {
	Body DocumentResponse
}

// ListDocumentsResponse contains the document list.
type ListDocumentsResponse struct {
	Documents []DocumentSummary `json:"documents" doc:"Library documents, newest first"`
}

// ListDocumentsOutput wraps the document list for Huma.
type ListDocumentsOutput struct {
	Body ListDocumentsResponse
}

// DocumentIDInput identifies a document by path parameter.
type DocumentIDInput struct {
	ID string `path:"id" doc:"Document ID"`
}

// PositionResponse contains a reading position in API responses.
type PositionResponse struct {
	DocumentID     string    `json:"document_id" doc:"Document ID"`
	PositionMs     int64     `json:"position_ms" doc:"Resume point in milliseconds"`
	ParagraphIndex int       `json:"paragraph_index" doc:"Paragraph at the resume point"`
	ProgressPct    float64   `json:"progress_pct" doc:"Progress percentage 0-100"`
	LastReadAt     time.Time `json:"last_read_at" doc:"When the document was last read"`
}

// PositionOutput wraps a reading position for Huma.
type PositionOutput struct {
	Body PositionResponse
}

// ListPositionsResponse contains all reading positions.
type ListPositionsResponse struct {
	Positions []PositionResponse `json:"positions" doc:"Resume points, most recently read first"`
}

// ListPositionsOutput wraps the position list for Huma.
type ListPositionsOutput struct {
	Body ListPositionsResponse
}

// === Handlers ===

func (s *Server) handleImportDocument(ctx context.Context, input *ImportDocumentInput) (*DocumentOutput, error) {
	doc, err := s.library.Import(ctx, library.ImportRequest{
		Title:         input.Body.Title,
		Content:       input.Body.Content,
		Format:        library.Format(input.Body.Format),
		StoreMarkdown: input.Body.StoreMarkdown,
	})
	if err != nil {
		return nil, err
	}
	return &DocumentOutput{Body: documentResponse(doc)}, nil
}

func (s *Server) handleListDocuments(_ context.Context, _ *struct{}) (*ListDocumentsOutput, error) {
	docs, err := s.library.List()
	if err != nil {
		return nil, err
	}

	summaries := make([]DocumentSummary, len(docs))
	for i := range docs {
		summaries[i] = documentSummary(&docs[i])
	}
	return &ListDocumentsOutput{Body: ListDocumentsResponse{Documents: summaries}}, nil
}

func (s *Server) handleGetDocument(_ context.Context, input *DocumentIDInput) (*DocumentOutput, error) {
	doc, err := s.library.Get(input.ID)
	if err != nil {
		return nil, err
	}
	return &DocumentOutput{Body: documentResponse(doc)}, nil
}

func (s *Server) handleDeleteDocument(_ context.Context, input *DocumentIDInput) (*struct{}, error) {
	if err := s.library.Delete(input.ID); err != nil {
		return nil, err
	}
	return &struct{}{}, nil
}

func (s *Server) handleGetDocumentPosition(_ context.Context, input *DocumentIDInput) (*PositionOutput, error) {
	pos, err := s.library.GetPosition(input.ID)
	if err != nil {
		return nil, err
	}
	return &PositionOutput{Body: positionResponse(pos)}, nil
}

func (s *Server) handleListPositions(_ context.Context, _ *struct{}) (*ListPositionsOutput, error) {
	positions, err := s.library.ListPositions()
	if err != nil {
		return nil, err
	}

	resp := make([]PositionResponse, len(positions))
	for i := range positions {
		resp[i] = positionResponse(&positions[i])
	}
	return &ListPositionsOutput{Body: ListPositionsResponse{Positions: resp}}, nil
}

func documentSummary(doc *domain.Document) DocumentSummary {
	return DocumentSummary{
		ID:             doc.ID,
		Title:          doc.Title,
		Source:         string(doc.Source),
		WordCount:      doc.WordCount,
		ParagraphCount: len(doc.Paragraphs),
		AddedAt:        doc.AddedAt,
	}
}

func documentResponse(doc *domain.Document) DocumentResponse {
	return DocumentResponse{
		DocumentSummary: documentSummary(doc),
		Paragraphs:      doc.Paragraphs,
		Markdown:        doc.Markdown,
	}
}

func positionResponse(pos *domain.ReadingPosition) PositionResponse {
	return PositionResponse{
		DocumentID:     pos.DocumentID,
		PositionMs:     pos.PositionMs,
		ParagraphIndex: pos.ParagraphIndex,
		ProgressPct:    pos.ProgressPct,
		LastReadAt:     pos.LastReadAt,
	}
}
