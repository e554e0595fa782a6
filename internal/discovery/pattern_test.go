package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPattern_Match(t *testing.T) {
	tests := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"*", "public", true},
		{"*", "", true},
		{"sales*", "sales", true},
		{"sales*", "sales_archive", true},
		{"sales*", "presales", false},
		{"*_archive", "sales_archive", true},
		{"Sales*", "sales", false},
		{"order?", "orders", true},
		{"order?", "order", false},
		{"order?", "order_items", false},
		{"fact_[rd]*", "fact_revenue", true},
		{"fact_[rd]*", "fact_sales", false},
		{"t[0-9]", "t7", true},
		{"t[!0-9]", "t7", false},
		{"t[!0-9]", "tx", true},
		{"public", "public", true},
		{"public", "public2", false},
		{"a*b", "a/b", true},
		{"", "", true},
		{"", "public", false},
		{`\*`, "*", true},
		{`\*`, "x", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.name, func(t *testing.T) {
			p, err := CompilePattern(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Match(tt.name))
		})
	}
}

func TestPattern_LiteralBracesAndCommas(t *testing.T) {
	tests := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"weird{name", "weird{name", true},
		{"weird{name", "weirdname", false},
		{"a{b,c}", "a{b,c}", true},
		{"a{b,c}", "ab", false},
		{"a{b,c}", "ac", false},
		{"a,b", "a,b", true},
		{"x}", "x}", true},
		{"{*}", "{orders}", true},
		{"{*}", "orders", false},
		{"odd]", "odd]", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.name, func(t *testing.T) {
			p, err := CompilePattern(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Match(tt.name))
		})
	}
}

func TestPattern_CharacterClasses(t *testing.T) {
	tests := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"[]]", "]", true},
		{"[]]", "a", false},
		{"[]a]", "a", true},
		{"[a-]", "a", true},
		{"[a-]", "-", true},
		{"[a-]", "b", false},
		{"[-a]", "-", true},
		{"[-]", "-", true},
		{"[!]]", "x", true},
		{"[!]]", "]", false},
		{"[!-]", "-", false},
		{"[!-]", "x", true},
		{`[\]]`, "]", true},
		{`[\\]`, `\`, true},
		{"[a-z0-9_]*", "fact_2024", true},
		{"[a-z0-9_]*", "Fact", false},
		{"[!a-z0-9]", "_", true},
		{"[!a-z0-9]", "7", false},
		{"t[a-c-]", "t-", true},
		{"[{,}]", ",", true},
		{"[{,}]", "{", true},
		{"[\\!a]", "!", true},
		{"[\\!a]", "b", false},
		{"[a-zĀ-ဿ]", "Ā", true},
		{"[a-zĀ-ဿ]", "q", true},
		{"[a-zĀ-ဿ]", "Z", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.name, func(t *testing.T) {
			p, err := CompilePattern(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Match(tt.name))
		})
	}
}

func TestCompilePattern_ClassErrors(t *testing.T) {
	for _, raw := range []string{"[z-a]", "[]", "[!", "[a-zĀ-ဿ", "[!a-zĀ-ဿ]"} {
		t.Run(raw, func(t *testing.T) {
			_, err := CompilePattern(raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrPatternSyntax)
		})
	}
}

func TestCompilePattern_SyntaxError(t *testing.T) {
	_, err := CompilePattern("[abc")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPatternSyntax)
	assert.Contains(t, err.Error(), `"[abc"`)
}

func TestPattern_String(t *testing.T) {
	p, err := CompilePattern("a{b,c}")
	require.NoError(t, err)
	assert.Equal(t, "a{b,c}", p.String())
}

func TestScopeNotFound(t *testing.T) {
	err := ScopeNotFound("ghost")
	assert.True(t, IsScopeNotFound(err))
	assert.EqualError(t, err, `scope not found: schema "ghost"`)
	assert.False(t, IsScopeNotFound(ErrPatternSyntax))
}
