package envfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `# backend settings
PORT=3000
DATABASE_URL="postgresql://app:pw@localhost:5432/app"

export NODE_ENV=production
not an assignment
`

func TestParse_RoundTrip(t *testing.T) {
	t.Parallel()
	f := Parse(sample)
	assert.Equal(t, sample, f.String())
	assert.Equal(t, []string{"PORT", "DATABASE_URL", "NODE_ENV"}, f.Keys())
}

func TestParse_NoTrailingNewline(t *testing.T) {
	t.Parallel()
	f := Parse("A=1\nB=2")
	assert.Equal(t, "A=1\nB=2", f.String())
}

func TestParse_CRLF(t *testing.T) {
	t.Parallel()
	f := Parse("A=1\r\nB=2\r\n")
	v, ok := f.Get("B")
	require.True(t, ok)
	assert.Equal(t, "2", v)
}

func TestGet(t *testing.T) {
	t.Parallel()
	f := Parse(sample)

	v, ok := f.Get("DATABASE_URL")
	require.True(t, ok)
	assert.Equal(t, `"postgresql://app:pw@localhost:5432/app"`, v)

	v, ok = f.Get("NODE_ENV")
	require.True(t, ok)
	assert.Equal(t, "production", v)

	_, ok = f.Get("MISSING")
	assert.False(t, ok)
}

func TestGet_LastAssignmentWins(t *testing.T) {
	t.Parallel()
	f := Parse("A=1\nA=2\n")
	v, _ := f.Get("A")
	assert.Equal(t, "2", v)
}

func TestSet(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		input string
		key   string
		value string
		want  string
	}{
		{
			name:  "replace in place",
			input: "# db\nDATABASE_URL=old\nPORT=3000\n",
			key:   "DATABASE_URL",
			value: "postgresql://u:p@postgres_db:5432/app",
			want:  "# db\nDATABASE_URL=postgresql://u:p@postgres_db:5432/app\nPORT=3000\n",
		},
		{
			name:  "append when missing",
			input: "PORT=3000\n",
			key:   "GOOGLE_CLIENT_ID",
			value: "abc",
			want:  "PORT=3000\nGOOGLE_CLIENT_ID=abc\n",
		},
		{
			name:  "empty file",
			input: "",
			key:   "A",
			value: "1",
			want:  "A=1\n",
		},
		{
			name:  "keeps export prefix",
			input: "export NODE_ENV=dev\n",
			key:   "NODE_ENV",
			value: "production",
			want:  "export NODE_ENV=production\n",
		},
		{
			name:  "rewrites duplicates",
			input: "A=1\nB=2\nA=3\n",
			key:   "A",
			value: "9",
			want:  "A=9\nB=2\nA=9\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := Parse(tt.input)
			require.NoError(t, f.Set(tt.key, tt.value))
			assert.Equal(t, tt.want, f.String())
		})
	}
}

func TestSet_Invalid(t *testing.T) {
	t.Parallel()
	f := Parse("")
	assert.Error(t, f.Set("1BAD", "x"))
	assert.Error(t, f.Set("has space", "x"))
	assert.Error(t, f.Set("A", "multi\nline"))
}

func TestUnset(t *testing.T) {
	t.Parallel()
	f := Parse("A=1\nB=2\nA=3\n")
	assert.True(t, f.Unset("A"))
	assert.Equal(t, "B=2\n", f.String())
	assert.False(t, f.Unset("A"))
}

func TestUnquote(t *testing.T) {
	t.Parallel()
	f := Parse("# c\nA=\"1\"\nB='two'\nC=plain\nD=\"mismatched'\nE=\"\n")

	assert.Equal(t, 2, f.Unquote())
	assert.Equal(t, "# c\nA=1\nB=two\nC=plain\nD=\"mismatched'\nE=\"\n", f.String())
}

func TestStripQuotes(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "x", StripQuotes(`"x"`))
	assert.Equal(t, "x", StripQuotes(`'x'`))
	assert.Equal(t, `"x`, StripQuotes(`"x`))
	assert.Equal(t, "", StripQuotes(`""`))
}
