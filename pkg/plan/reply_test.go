package plan

import "testing"

func TestParseReply(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		summary string
		wantErr bool
	}{
		{name: "plain", in: `{"summary":"Go north","priorityZones":["A"],"safePath":"N","warnings":[]}`, summary: "Go north"},
		{name: "fenced", in: "```json\n{\"summary\":\"Go east\"}\n```", summary: "Go east"},
		{name: "trailing comma", in: `{"summary":"Go west","warnings":["debris",],}`, summary: "Go west"},
		{name: "truncated", in: `{"summary":"Go south","priorityZones":["B"`, summary: "Go south"},
		{name: "empty summary", in: `{"summary":"  "}`, wantErr: true},
		{name: "wrong type", in: `{"summary":["a"]}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := parseReply(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", p)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if p.Summary != tt.summary {
				t.Errorf("summary = %q, want %q", p.Summary, tt.summary)
			}
		})
	}
}
