package corpus

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mcdev12/typerace/go/internal/models"
)

var (
	ErrTextNotFound = errors.New("text not found")
	ErrEmptyCorpus  = errors.New("corpus has no texts")
)

// Store is an immutable, in-memory text corpus. Text ids are positions in
// load order, so the id domain is [0, Count()).
type Store struct {
	texts []models.Text
}

// NewStore builds a store from text bodies. Blank bodies are skipped.
func NewStore(bodies []string) (*Store, error) {
	texts := make([]models.Text, 0, len(bodies))
	for _, body := range bodies {
		body = strings.TrimSpace(body)
		if body == "" {
			continue
		}
		texts = append(texts, models.Text{ID: len(texts), Body: body})
	}
	if len(texts) == 0 {
		return nil, ErrEmptyCorpus
	}
	return &Store{texts: texts}, nil
}

// Count returns the number of texts.
func (s *Store) Count() int {
	return len(s.texts)
}

// Text looks a text up by id.
func (s *Store) Text(id int) (models.Text, error) {
	if id < 0 || id >= len(s.texts) {
		return models.Text{}, fmt.Errorf("%w: %d", ErrTextNotFound, id)
	}
	return s.texts[id], nil
}
