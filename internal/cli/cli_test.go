package cli

import (
	"testing"

	"github.com/spf13/cobra"
)

func TestParseIndex(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "0", want: 0},
		{in: "12", want: 12},
		{in: "-1", wantErr: true},
		{in: "x", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseIndex(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseIndex(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseIndex(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestCommandTree(t *testing.T) {
	tests := []struct {
		root *cobra.Command
		subs []string
	}{
		{root: BatchCmd(), subs: []string{"open", "save", "close", "list", "show", "summary", "next", "export"}},
		{root: FixCmd(), subs: []string{"edit", "insert", "delete-issue", "sequence", "sequences", "unimplemented", "user", "users", "all", "replace"}},
		{root: ConfigCmd(), subs: []string{"show", "init"}},
	}

	for _, tt := range tests {
		t.Run(tt.root.Name(), func(t *testing.T) {
			for _, sub := range tt.subs {
				cmd, _, err := tt.root.Find([]string{sub})
				if err != nil || cmd.Name() != sub {
					t.Errorf("%s is missing subcommand %s", tt.root.Name(), sub)
				}
			}
		})
	}
}
