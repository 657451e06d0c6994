package review

import (
	"fmt"
	"sort"
	"strings"

	"github.com/example/pr-style-reviewer/internal/analysis"
)

// Comment is one inline review comment anchored at a diff position.
type Comment struct {
	Path     string
	Position int
	Body     string
}

type Result struct {
	Summary  string
	Comments []Comment
}

// Generate turns file reviews into a review summary and inline comments.
// Messages landing on the same position are joined into one comment;
// comments keep file order and, within a file, checker order.
func Generate(reviews []analysis.FileReview) Result {
	total := 0
	byLanguage := map[string]int{}
	var comments []Comment
	for _, fileReview := range reviews {
		index := map[int]int{}
		for _, v := range fileReview.Violations {
			total++
			byLanguage[fileReview.Language]++
			if i, ok := index[v.Position]; ok {
				comments[i].Body += "<br>" + v.Message
				continue
			}
			index[v.Position] = len(comments)
			comments = append(comments, Comment{Path: fileReview.Filename, Position: v.Position, Body: v.Message})
		}
	}

	if total == 0 {
		return Result{Summary: "✅ No style violations found on changed lines."}
	}

	languages := make([]string, 0, len(byLanguage))
	for language := range byLanguage {
		languages = append(languages, language)
	}
	sort.Strings(languages)

	parts := make([]string, 0, len(languages))
	for _, language := range languages {
		parts = append(parts, fmt.Sprintf("%s: %d", displayName(language), byLanguage[language]))
	}

	summary := fmt.Sprintf("## Style Review\n\nFound %d %s in %d %s (%s).",
		total, plural(total, "violation"), len(reviews), plural(len(reviews), "file"), strings.Join(parts, ", "))

	return Result{Summary: summary, Comments: comments}
}

func displayName(language string) string {
	switch language {
	case "coffeescript":
		return "CoffeeScript"
	case "javascript":
		return "JavaScript"
	case "scss":
		return "SCSS"
	case "go":
		return "Go"
	case "":
		return "Other"
	}
	return strings.ToUpper(language[:1]) + language[1:]
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
