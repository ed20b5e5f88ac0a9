package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestIsCompound(t *testing.T) {
	d := NewDecomposer(new(MockGenerator))

	tests := []struct {
		name     string
		question string
		want     bool
	}{
		{"simple question", "What are mammals?", false},
		{"two question marks", "What are mammals? Why do they have fur?", true},
		{"and connective", "What are mammals and how do birds differ?", true},
		{"then connective", "What happens first then what happens next?", true},
		{"uppercase marker", "What are mammals AND reptiles exactly?", true},
		{"comma with interrogative", "Considering evolution, what are mammals?", true},
		{"relationship marker", "What is the relationship between diet and health?", true},
		{"compare marker", "Can you compare cats with dogs?", true},
		{"single word", "Mammals?", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.IsCompound(tt.question))
		})
	}
}

func TestDecompose_Heuristic(t *testing.T) {
	generator := new(MockGenerator)
	d := NewDecomposer(generator)

	subs, method := d.Decompose(context.Background(), "What are mammals and how do birds differ from them?")

	assert.Equal(t, DecompositionHeuristic, method)
	assert.Equal(t, []string{"What are mammals", "how do birds differ from them?"}, subs)
	generator.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestDecompose_HeuristicIsCaseInsensitive(t *testing.T) {
	d := NewDecomposer(new(MockGenerator))

	subs, method := d.Decompose(context.Background(), "What are mammals AND what are birds?")

	assert.Equal(t, DecompositionHeuristic, method)
	assert.Len(t, subs, 2)
}

func TestDecompose_LLMFallback(t *testing.T) {
	generator := new(MockGenerator)
	generator.On("Generate", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return containsAll(prompt, "numbered list", "What drives photosynthesis?")
	})).Return("1. What is photosynthesis?\n2. What energy source powers it?\n", nil)

	d := NewDecomposer(generator)
	subs, method := d.Decompose(context.Background(), "What drives photosynthesis?")

	assert.Equal(t, DecompositionLLM, method)
	assert.Equal(t, []string{"What is photosynthesis?", "What energy source powers it?"}, subs)
}

func TestDecompose_LLMFailureFallsBackToOriginal(t *testing.T) {
	generator := new(MockGenerator)
	generator.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("model unavailable"))

	d := NewDecomposer(generator)
	subs, method := d.Decompose(context.Background(), "What drives photosynthesis?")

	assert.Equal(t, DecompositionFallback, method)
	assert.Equal(t, []string{"What drives photosynthesis?"}, subs)
}

func TestDecompose_EmptyLLMResponseFallsBack(t *testing.T) {
	generator := new(MockGenerator)
	generator.On("Generate", mock.Anything, mock.Anything).Return("  \n  ", nil)

	d := NewDecomposer(generator)
	subs, method := d.Decompose(context.Background(), "Why?")

	assert.Equal(t, DecompositionFallback, method)
	assert.Equal(t, []string{"Why?"}, subs)
}
