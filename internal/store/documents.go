package store

import (
	"encoding/json/v2"
	"sort"

	"github.com/readalongapp/readalong-server/internal/domain"
	apperrors "github.com/readalongapp/readalong-server/internal/errors"
)

// DocumentAddedEvent is emitted when a document enters the library.
type DocumentAddedEvent struct {
	Document *domain.Document
}

// DocumentDeletedEvent is emitted when a document is removed.
type DocumentDeletedEvent struct {
	DocumentID string
}

func documentKey(id string) []byte {
	return []byte(prefixDocument + id)
}

// SaveDocument persists a document and announces it.
func (s *Store) SaveDocument(doc *domain.Document) error {
	if doc.ID == "" {
		return apperrors.Validation("document ID is required")
	}
	if err := s.set(documentKey(doc.ID), doc); err != nil {
		return err
	}
	s.emit(DocumentAddedEvent{Document: doc})
	return nil
}

// GetDocument returns the document with the given ID.
func (s *Store) GetDocument(id string) (*domain.Document, error) {
	var doc domain.Document
	if err := s.get(documentKey(id), &doc); err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFoundf("document %s not found", id)
		}
		return nil, err
	}
	return &doc, nil
}

// ListDocuments returns all documents, newest first.
func (s *Store) ListDocuments() ([]domain.Document, error) {
	var docs []domain.Document
	err := s.listPrefix([]byte(prefixDocument), func(val []byte) error {
		var doc domain.Document
		if err := json.Unmarshal(val, &doc); err != nil {
			return err
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].AddedAt.After(docs[j].AddedAt)
	})
	return docs, nil
}

// DeleteDocument removes a document and its reading position.
func (s *Store) DeleteDocument(id string) error {
	if _, err := s.GetDocument(id); err != nil {
		return err
	}
	if err := s.delete(documentKey(id)); err != nil {
		return err
	}
	if err := s.delete(positionKey(id)); err != nil {
		return err
	}
	s.emit(DocumentDeletedEvent{DocumentID: id})
	return nil
}
