package store

import (
	"encoding/json/v2"
	"sort"

	"github.com/readalongapp/readalong-server/internal/domain"
	apperrors "github.com/readalongapp/readalong-server/internal/errors"
)

func positionKey(documentID string) []byte {
	return []byte(prefixPosition + documentID)
}

// SavePosition upserts the resume point for a document.
func (s *Store) SavePosition(pos *domain.ReadingPosition) error {
	if pos.DocumentID == "" {
		return apperrors.Validation("document ID is required")
	}
	return s.set(positionKey(pos.DocumentID), pos)
}

// GetPosition returns the resume point for a document.
func (s *Store) GetPosition(documentID string) (*domain.ReadingPosition, error) {
	var pos domain.ReadingPosition
	if err := s.get(positionKey(documentID), &pos); err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFoundf("no reading position for document %s", documentID)
		}
		return nil, err
	}
	return &pos, nil
}

// ListPositions returns all resume points, most recently read first.
func (s *Store) ListPositions() ([]domain.ReadingPosition, error) {
	var positions []domain.ReadingPosition
	err := s.listPrefix([]byte(prefixPosition), func(val []byte) error {
		var pos domain.ReadingPosition
		if err := json.Unmarshal(val, &pos); err != nil {
			return err
		}
		positions = append(positions, pos)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(positions, func(i, j int) bool {
		return positions[i].LastReadAt.After(positions[j].LastReadAt)
	})
	return positions, nil
}

// DeletePosition removes the resume point for a document.
func (s *Store) DeletePosition(documentID string) error {
	return s.delete(positionKey(documentID))
}
