// Package questions provides question-set loading: the plain-text file
// format used by operators and a static in-memory source for tests and the
// built-in demo set.
package questions

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"suquid-trivia-server/internal/domain"
)

const linesPerQuestion = 5

// ParseFile loads questions from the operator question file.
func ParseFile(path string) ([]domain.Question, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open questions file: %w", err)
	}
	defer f.Close()
	questions, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return questions, nil
}

// Parse reads the five-line-block question format: prompt, option A, option
// B, option C, correct letter. Blank lines are skipped; the remaining line
// count must be a multiple of five.
func Parse(r io.Reader) ([]domain.Question, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(lines)%linesPerQuestion != 0 {
		return nil, fmt.Errorf("expected blocks of %d lines (prompt, three options, answer), got %d lines", linesPerQuestion, len(lines))
	}

	questions := make([]domain.Question, 0, len(lines)/linesPerQuestion)
	for i := 0; i < len(lines); i += linesPerQuestion {
		answer := strings.ToUpper(lines[i+4])
		if !domain.ValidOption(answer) {
			return nil, fmt.Errorf("question %d: answer must be A, B or C, got %q", len(questions)+1, lines[i+4])
		}
		questions = append(questions, domain.Question{
			Prompt:  lines[i],
			Options: [3]string{lines[i+1], lines[i+2], lines[i+3]},
			Answer:  answer,
		})
	}
	return questions, nil
}
