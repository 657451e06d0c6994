package analysis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

var ErrMalformedDiff = errors.New("malformed diff")

// Patch locates new-side lines of a single file diff.
type Patch struct {
	lines    []Line
	byNumber map[int]int
}

// ParsePatch builds a Patch from the hunks of one file. An empty patch
// locates nothing; input that does not parse into hunks fails with
// ErrMalformedDiff.
func ParsePatch(patch string) (*Patch, error) {
	p := &Patch{byNumber: make(map[int]int)}
	if strings.TrimSpace(patch) == "" {
		return p, nil
	}
	if !strings.HasPrefix(strings.TrimLeft(patch, "\r\n"), "@@") {
		return nil, fmt.Errorf("%w: patch does not start with a hunk header", ErrMalformedDiff)
	}
	if !strings.HasSuffix(patch, "\n") {
		patch += "\n"
	}

	hunks, err := diff.ParseHunks([]byte(patch))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDiff, err)
	}
	if len(hunks) == 0 {
		return nil, fmt.Errorf("%w: no hunks found", ErrMalformedDiff)
	}

	position := 0
	for i, hunk := range hunks {
		if i > 0 {
			// later hunk headers occupy a position of their own
			position++
		}
		if err := p.addHunk(hunk, &position); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Patch) addHunk(hunk *diff.Hunk, position *int) error {
	body := string(hunk.Body)
	lines := strings.Split(strings.TrimSuffix(body, "\n"), "\n")
	if body == "" {
		lines = nil
	}

	marker := -1
	if hunk.OrigNoNewlineAt > 0 && int(hunk.OrigNoNewlineAt) <= len(body) {
		marker = strings.Count(body[:hunk.OrigNoNewlineAt], "\n")
	}

	number := int(hunk.NewStartLine)
	origCount, newCount := 0, 0
	for idx, text := range lines {
		if idx == marker {
			*position++
		}
		*position++

		if text == "" {
			text = " "
		}
		switch text[0] {
		case '+':
			p.add(Line{Number: number, Position: *position, Content: text[1:], Kind: LineAdded})
			number++
			newCount++
		case ' ':
			p.add(Line{Number: number, Position: *position, Content: text[1:], Kind: LineContext})
			number++
			origCount++
			newCount++
		case '-':
			origCount++
		case '\\':
		default:
			return fmt.Errorf("%w: unexpected line %q in hunk starting at +%d", ErrMalformedDiff, text, hunk.NewStartLine)
		}
	}
	if marker == len(lines) {
		*position++
	}
	if origCount != int(hunk.OrigLines) || newCount != int(hunk.NewLines) {
		return fmt.Errorf("%w: hunk at +%d declares -%d/+%d lines but holds -%d/+%d",
			ErrMalformedDiff, hunk.NewStartLine, hunk.OrigLines, hunk.NewLines, origCount, newCount)
	}
	return nil
}

func (p *Patch) add(line Line) {
	p.byNumber[line.Number] = len(p.lines)
	p.lines = append(p.lines, line)
}

// PositionOf returns the diff position of absolute line number, or false
// when the line is not part of any hunk.
func (p *Patch) PositionOf(number int) (int, bool) {
	if p == nil {
		return 0, false
	}
	idx, ok := p.byNumber[number]
	if !ok {
		return 0, false
	}
	return p.lines[idx].Position, true
}

// Lines returns the located lines in diff order.
func (p *Patch) Lines() []Line {
	if p == nil {
		return nil
	}
	return append([]Line(nil), p.lines...)
}

// ParseUnifiedDiff splits a multi-file unified diff (as produced by
// `git diff`) into changed files. Files without hunks, such as binary
// changes or pure renames, are dropped.
func ParseUnifiedDiff(text, revision string) ([]ChangedFile, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	fileDiffs, err := diff.NewMultiFileDiffReader(strings.NewReader(text)).ReadAllFiles()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDiff, err)
	}

	files := make([]ChangedFile, 0, len(fileDiffs))
	for _, fileDiff := range fileDiffs {
		if len(fileDiff.Hunks) == 0 {
			continue
		}
		path, status := diffPath(fileDiff)
		if path == "" {
			return nil, fmt.Errorf("%w: file diff without a path", ErrMalformedDiff)
		}
		hunks, err := diff.PrintHunks(fileDiff.Hunks)
		if err != nil {
			return nil, fmt.Errorf("printing hunks for %s: %w", path, err)
		}
		files = append(files, ChangedFile{
			Filename:   path,
			Patch:      string(hunks),
			RevisionID: revision,
			Status:     status,
		})
	}
	return files, nil
}

func diffPath(fileDiff *diff.FileDiff) (string, string) {
	const devNull = "/dev/null"
	switch {
	case fileDiff.NewName == devNull:
		return strings.TrimPrefix(fileDiff.OrigName, "a/"), FileStatusRemoved
	case fileDiff.OrigName == devNull:
		return strings.TrimPrefix(fileDiff.NewName, "b/"), FileStatusAdded
	}
	orig := strings.TrimPrefix(fileDiff.OrigName, "a/")
	path := strings.TrimPrefix(fileDiff.NewName, "b/")
	if orig != "" && orig != path {
		return path, FileStatusRenamed
	}
	return path, FileStatusModified
}
