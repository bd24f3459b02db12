package contentgen

import (
	"context"
	"strings"
	"unicode"
)

const mockTitleWords = 6

// MockGenerator derives a slide from the prompt itself. It never fails.
type MockGenerator struct{}

func NewMockGenerator() *MockGenerator { return &MockGenerator{} }

func (g *MockGenerator) Generate(ctx context.Context, req Request) (Content, error) {
	select {
	case <-ctx.Done():
		return Content{}, ctx.Err()
	default:
	}

	prompt := strings.Join(strings.Fields(req.Prompt), " ")
	if prompt == "" {
		return Content{}, ErrEmptyContent
	}
	return Content{
		Title:  mockTitle(prompt),
		Body:   prompt,
		Source: "mock",
	}, nil
}

func mockTitle(prompt string) string {
	words := strings.Fields(prompt)
	if len(words) > mockTitleWords {
		words = words[:mockTitleWords]
	}
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.TrimRight(strings.Join(words, " "), ".,;:!?")
}
