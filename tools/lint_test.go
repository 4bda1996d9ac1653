package tools

import (
	"testing"
)

func hasCode(issues []*LintIssue, code string) bool {
	for _, issue := range issues {
		if issue.Code == code {
			return true
		}
	}
	return false
}

func TestLint_UndefinedLabel(t *testing.T) {
	prog := mustParse(t, "b :missing")
	issues := Lint(prog, nil)

	if !hasCode(issues, "UNDEF_LABEL") {
		t.Errorf("expected UNDEF_LABEL, got: %v", issues)
	}
}

func TestLint_UnusedLabel(t *testing.T) {
	prog := mustParse(t, "unused:\nmov r0 #1")
	issues := Lint(prog, nil)

	if !hasCode(issues, "UNUSED_LABEL") {
		t.Errorf("expected UNUSED_LABEL, got: %v", issues)
	}
}

func TestLint_UsedLabelIsClean(t *testing.T) {
	prog := mustParse(t, "start:\nb :start")
	issues := Lint(prog, nil)

	if hasCode(issues, "UNUSED_LABEL") {
		t.Errorf("label referenced by a branch should not be flagged unused: %v", issues)
	}
	if hasCode(issues, "UNDEF_LABEL") {
		t.Errorf("label declared before use should resolve: %v", issues)
	}
}

func TestLint_ValidWriteDestination(t *testing.T) {
	prog := mustParse(t, "mov r0 #5")
	issues := Lint(prog, nil)
	if hasCode(issues, "BAD_WRITE_DEST") {
		t.Errorf("valid register destination should not be flagged: %v", issues)
	}
}

func TestLint_DivisionByLiteralZero(t *testing.T) {
	prog := mustParse(t, "div r0 #0")
	issues := Lint(prog, nil)

	if !hasCode(issues, "DIV_BY_ZERO") {
		t.Errorf("expected DIV_BY_ZERO, got: %v", issues)
	}
}

func TestLint_DisableUnusedCheck(t *testing.T) {
	prog := mustParse(t, "unused:\nmov r0 #1")
	issues := Lint(prog, &LintOptions{CheckUnusedLabels: false})

	if hasCode(issues, "UNUSED_LABEL") {
		t.Errorf("unused-label check should be disabled: %v", issues)
	}
}

func TestLintIssue_String(t *testing.T) {
	issue := &LintIssue{Level: LintError, Line: 3, Message: "boom", Code: "X"}
	want := "line 3: error: boom [X]"
	if got := issue.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
