package app

import "testing"

func TestPaginate(t *testing.T) {
	tests := []struct {
		name    string
		lines   []string
		perPage int
		want    [][]string
	}{
		{
			"empty",
			nil,
			3,
			nil,
		},
		{
			"single short page",
			[]string{"a", "b"},
			3,
			[][]string{{"a", "b"}},
		},
		{
			"exact fit",
			[]string{"a", "b", "c"},
			3,
			[][]string{{"a", "b", "c"}},
		},
		{
			"short last page",
			[]string{"a", "b", "c", "d", "e"},
			3,
			[][]string{{"a", "b", "c"}, {"d", "e"}},
		},
		{
			"zero per page",
			[]string{"a"},
			0,
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := paginate(tt.lines, tt.perPage)
			if len(got) != len(tt.want) {
				t.Fatalf("pages = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if len(got[i]) != len(tt.want[i]) {
					t.Fatalf("page %d = %q, want %q", i, got[i], tt.want[i])
				}
				for j := range got[i] {
					if got[i][j] != tt.want[i][j] {
						t.Errorf("page %d line %d = %q, want %q", i, j, got[i][j], tt.want[i][j])
					}
				}
			}
		})
	}
}
