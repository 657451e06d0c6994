package checker

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
)

// GoChecker runs AST rules over Go source. Source that does not parse is
// reported as a checker failure.
type GoChecker struct {
	maxFunctionLines int
}

func NewGo() *GoChecker {
	return &GoChecker{maxFunctionLines: 50}
}

func (c *GoChecker) Language() string { return "go" }

// WithOptions applies "max_function_lines".
func (c *GoChecker) WithOptions(options map[string]any) Checker {
	if max, ok := intOption(options, "max_function_lines"); ok {
		return &GoChecker{maxFunctionLines: max}
	}
	return c
}

func (c *GoChecker) Check(ctx context.Context, content string) ([]Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCheckerFailure, err)
	}

	fset := token.NewFileSet()
	parsed, err := parser.ParseFile(fset, "source.go", content, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing go source: %v", ErrCheckerFailure, err)
	}

	var findings []Finding
	ast.Inspect(parsed, func(node ast.Node) bool {
		switch n := node.(type) {
		case *ast.FuncDecl:
			start := fset.Position(n.Pos()).Line
			end := fset.Position(n.End()).Line
			if end-start+1 > c.maxFunctionLines {
				findings = append(findings, Finding{
					Line:    start,
					RuleID:  "func-length",
					Message: fmt.Sprintf("Function exceeds %d lines; consider refactoring.", c.maxFunctionLines),
				})
			}
		case *ast.IfStmt:
			if isErrNilCheck(n.Cond) && len(n.Body.List) == 0 {
				findings = append(findings, Finding{
					Line:    fset.Position(n.Pos()).Line,
					RuleID:  "empty-error-check",
					Message: "Empty error handling block detected.",
				})
			}
		case *ast.CallExpr:
			if ident, ok := n.Fun.(*ast.Ident); ok && ident.Name == "panic" {
				findings = append(findings, Finding{
					Line:    fset.Position(n.Pos()).Line,
					RuleID:  "panic",
					Message: "panic call detected; consider returning an error instead.",
				})
			}
		}
		return true
	})

	return findings, nil
}

func isErrNilCheck(expr ast.Expr) bool {
	binary, ok := expr.(*ast.BinaryExpr)
	if !ok || binary.Op != token.NEQ {
		return false
	}
	left, ok := binary.X.(*ast.Ident)
	if !ok || left.Name != "err" {
		return false
	}
	right, ok := binary.Y.(*ast.Ident)
	return ok && right.Name == "nil"
}
