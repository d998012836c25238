package models

import (
	"encoding/json"
	"testing"
)

func TestStatementUnmarshalNormalizesIssues(t *testing.T) {
	tests := []struct {
		name string
		json string
		want int
	}{
		{name: "absent", json: `{"original":"a","cockroach":"b"}`, want: 0},
		{name: "null", json: `{"original":"a","cockroach":"b","issues":null}`, want: 0},
		{name: "present", json: `{"original":"a","cockroach":"b","issues":[{"type":"sequence","id":"s"}]}`, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Statement
			if err := json.Unmarshal([]byte(tt.json), &s); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if s.Issues == nil {
				t.Fatal("Issues is nil")
			}
			if len(s.Issues) != tt.want {
				t.Errorf("len(Issues) = %d, want %d", len(s.Issues), tt.want)
			}
		})
	}
}

func TestBatchWireShape(t *testing.T) {
	payload := `{"id":"imp","unix_nano":5,"import_metadata":{"statements":[{"original":"o","cockroach":"c","issues":[{"level":"warning","type":"future","id":"x","text":"t"}]}],"status":"info","message":"m","database":""}}`

	var b Batch
	if err := json.Unmarshal([]byte(payload), &b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if b.HasLiveDatabase() {
		t.Error("empty database should mean no live database")
	}
	if got := b.Statements()[0].Issues[0]; got.Type != "future" || got.Level != "warning" || got.Text != "t" {
		t.Errorf("unknown issue kind not preserved: %+v", got)
	}

	out, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != payload {
		t.Errorf("round trip mismatch:\n got %s\nwant %s", out, payload)
	}
}

func TestCloneIsDeep(t *testing.T) {
	b := Batch{ImportMetadata: ImportMetadata{Statements: []Statement{{Issues: []Issue{{Type: "sequence"}}}}}}
	c := b.Clone()
	c.ImportMetadata.Statements[0].Issues[0].Type = "changed"
	if b.ImportMetadata.Statements[0].Issues[0].Type != "sequence" {
		t.Error("Clone shares issue storage")
	}
}
