package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindAndReplace(t *testing.T) {
	tests := []struct {
		name        string
		texts       []string
		pattern     string
		replacement string
		isRegex     bool
		want        []string
		wantChanged int
		wantErr     error
	}{
		{
			name:        "literal replaces first occurrence only",
			texts:       []string{"foo foo", "no match", "xfoo"},
			pattern:     "foo",
			replacement: "bar",
			want:        []string{"bar foo", "no match", "xbar"},
			wantChanged: 2,
		},
		{
			name:        "literal does not interpret regex syntax",
			texts:       []string{"a.b", "axb"},
			pattern:     "a.b",
			replacement: "c",
			want:        []string{"c", "axb"},
			wantChanged: 1,
		},
		{
			name:        "bare regex replaces first match",
			texts:       []string{"SERIAL SERIAL"},
			pattern:     `S\w+`,
			replacement: "INT8",
			isRegex:     true,
			want:        []string{"INT8 SERIAL"},
			wantChanged: 1,
		},
		{
			name:        "global flag replaces all matches",
			texts:       []string{"SERIAL SERIAL"},
			pattern:     `/S\w+/g`,
			replacement: "INT8",
			isRegex:     true,
			want:        []string{"INT8 INT8"},
			wantChanged: 1,
		},
		{
			name:        "case-insensitive flag with capture group",
			texts:       []string{"create table Foo"},
			pattern:     `/TABLE (\w+)/i`,
			replacement: "TABLE public.$1",
			isRegex:     true,
			want:        []string{"create TABLE public.Foo"},
			wantChanged: 1,
		},
		{
			name:        "invalid regex leaves everything untouched",
			texts:       []string{"(a)", "b"},
			pattern:     "(",
			replacement: "x",
			isRegex:     true,
			want:        []string{"(a)", "b"},
			wantErr:     ErrInvalidPattern,
		},
		{
			name:        "empty pattern is a no-op",
			texts:       []string{"a"},
			pattern:     "",
			replacement: "x",
			want:        []string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBatch()
			for _, text := range tt.texts {
				b.ImportMetadata.Statements = append(b.ImportMetadata.Statements, stmt(text))
			}

			out, changed, err := FindAndReplace(b, tt.pattern, tt.replacement, tt.isRegex)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantChanged, changed)

			var got []string
			for _, s := range out.Statements() {
				got = append(got, s.Cockroach)
			}
			assert.Equal(t, tt.want, got)

			for i, s := range b.Statements() {
				assert.Equal(t, tt.texts[i], s.Cockroach, "input statement %d mutated", i)
			}
		})
	}
}
