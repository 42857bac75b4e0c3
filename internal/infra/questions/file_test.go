package questions

import (
	"strings"
	"testing"
)

const sampleFile = `
What is 2 + 2?
3
4
5
B

What color is the sky?
Blue
Green
Red
a
`

func TestParseFiveLineBlocks(t *testing.T) {
	questions, err := Parse(strings.NewReader(sampleFile))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	if questions[0].Prompt != "What is 2 + 2?" || questions[0].Answer != "B" {
		t.Fatalf("unexpected first question: %+v", questions[0])
	}
	if questions[0].Options != [3]string{"3", "4", "5"} {
		t.Fatalf("unexpected options: %v", questions[0].Options)
	}
	// Lowercase answer letters are normalized.
	if questions[1].Answer != "A" {
		t.Fatalf("expected normalized answer A, got %q", questions[1].Answer)
	}
}

func TestParseTruncatedBlock(t *testing.T) {
	_, err := Parse(strings.NewReader("What is 2 + 2?\n3\n4\n5"))
	if err == nil {
		t.Fatalf("expected error for truncated block")
	}
}

func TestParseInvalidAnswerLetter(t *testing.T) {
	_, err := Parse(strings.NewReader("What is 2 + 2?\n3\n4\n5\nD"))
	if err == nil || !strings.Contains(err.Error(), "answer must be") {
		t.Fatalf("expected answer letter error, got %v", err)
	}
}

func TestParseEmptyInput(t *testing.T) {
	questions, err := Parse(strings.NewReader("\n\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(questions) != 0 {
		t.Fatalf("expected no questions, got %d", len(questions))
	}
}
