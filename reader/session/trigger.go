package session

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/example/reading-platform/reader"
)

// QuestionSource looks up philosophy questions by id. Lookups that miss
// return reader.ErrNotFound.
type QuestionSource interface {
	QuestionByID(ctx context.Context, id string) (reader.Question, error)
}

// StaticQuestions serves questions from a fixed map. Useful for tests and
// for books shipped with their questions inline.
type StaticQuestions map[string]reader.Question

func (s StaticQuestions) QuestionByID(_ context.Context, id string) (reader.Question, error) {
	q, ok := s[id]
	if !ok {
		return reader.Question{}, reader.ErrNotFound
	}
	return q, nil
}

// QuestionTrigger maps pages to their associated philosophy question, if
// any. The trigger is a pure function of the current page: revisiting a
// page that carries a question surfaces it again. Callers wanting
// ask-once semantics must track already-shown pages themselves.
type QuestionTrigger struct {
	pages     map[int]string // page number -> question id
	questions QuestionSource
	log       *zap.Logger
}

func NewQuestionTrigger(book *reader.Book, questions QuestionSource, log *zap.Logger) *QuestionTrigger {
	if log == nil {
		log = zap.NewNop()
	}
	t := &QuestionTrigger{pages: make(map[int]string), questions: questions, log: log}
	if book != nil {
		for _, p := range book.Pages {
			if p.QuestionID != "" {
				t.pages[p.PageNumber] = p.QuestionID
			}
		}
	}
	return t
}

// Check returns the question due on page n: the page must carry a
// question id and the catalog must know it. An unknown id means no
// question, not an error.
func (t *QuestionTrigger) Check(ctx context.Context, n int) (reader.Question, bool) {
	id, ok := t.pages[n]
	if !ok || t.questions == nil {
		return reader.Question{}, false
	}
	q, err := t.questions.QuestionByID(ctx, id)
	if err != nil {
		if !errors.Is(err, reader.ErrNotFound) {
			t.log.Warn("question lookup failed", zap.String("question_id", id), zap.Error(err))
		}
		return reader.Question{}, false
	}
	return q, true
}
