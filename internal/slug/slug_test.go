package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "empty", raw: "", want: ""},
		{name: "whitespace only", raw: "   \t", want: ""},
		{name: "query string dropped", raw: "https://x.com/Foo-Bar/?q=1", want: "foo-bar"},
		{name: "nested path takes last segment", raw: "/a/b/c/", want: "c"},
		{name: "fragment dropped", raw: "https://x.com/products/java-8-new#details", want: "java-8-new"},
		{name: "percent decoded", raw: "https://x.com/view/core%20java%20(entry%20level)/", want: "corejavaentrylevel"},
		{name: "malformed escape kept", raw: "https://x.com/view/abc%2", want: "abc2"},
		{name: "hyphen runs collapsed", raw: "https://x.com/view/sql--server---basics-/", want: "sql-server-basics"},
		{name: "underscores removed", raw: "https://x.com/view/global_skills_assessment", want: "globalskillsassessment"},
		{name: "only slashes", raw: "////", want: ""},
		{name: "only a query", raw: "?q=1", want: ""},
		{name: "bare token", raw: "  Java-Developer  ", want: "java-developer"},
		{name: "symbols only", raw: "https://x.com/%E2%80%93/", want: ""},
		{name: "double slashes inside", raw: "https://x.com//solutions//products//verify-g/", want: "verify-g"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"https://x.com/Foo-Bar/?q=1",
		"/a/b/c/",
		"https://www.shl.com/solutions/products/product-catalog/view/automata-fix-new/",
		"--weird--%41%42--",
		"%2F%2Fnested%2Fslash%2F",
		"https://x.com/view/caf%C3%A9-test",
		"a/b/%25",
		"-",
		"UPPER_case Mixed?x#y",
	}

	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		got      string
		want     bool
	}{
		{name: "exact", expected: "java-developer", got: "java-developer", want: true},
		{name: "returned has suffix", expected: "java-developer", got: "java-developer-test", want: true},
		{name: "returned is suffix", expected: "core-java-entry-level", got: "java-entry-level", want: true},
		{name: "loose substring", expected: "java", got: "javascript", want: true},
		{name: "expected contained in returned", expected: "sql", got: "ms-sql-server", want: true},
		{name: "unrelated", expected: "python-new", got: "java-8-new", want: false},
		{name: "empty expected", expected: "", got: "java", want: false},
		{name: "empty returned", expected: "java", got: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.expected, tt.got))
		})
	}
}
