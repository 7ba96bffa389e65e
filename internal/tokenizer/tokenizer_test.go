package tokenizer

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		text string
		want []string
	}{
		{
			name: "lowercase and punctuation",
			text: "This is GOOD, and great!",
			want: []string{"this", "is", "good", "and", "great"},
		},
		{
			name: "digits removed",
			text: "Chapter 12: 3 cats2dogs",
			want: []string{"chapter", "cats", "dogs"},
		},
		{
			name: "apostrophes joined",
			text: "Don't stop; it’s fine",
			want: []string{"dont", "stop", "its", "fine"},
		},
		{
			name: "diacritics folded",
			text: "Café naïve Über",
			want: []string{"cafe", "naive", "uber"},
		},
		{
			name: "stop words removed",
			opts: Options{RemoveStopWords: true},
			text: "the cat and the hat",
			want: []string{"cat", "hat"},
		},
		{
			name: "stemming",
			opts: Options{Stem: true},
			text: "running cats",
			want: []string{"run", "cat"},
		},
		{
			name: "min length",
			opts: Options{MinLength: 3},
			text: "a to cat",
			want: []string{"cat"},
		},
		{
			name: "empty",
			text: "  ...  ",
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.opts).Tokenize(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestIsStopWord(t *testing.T) {
	if !IsStopWord("the") || IsStopWord("concrete") {
		t.Error("unexpected stop word membership")
	}
}
