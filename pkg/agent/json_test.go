package agent

import "testing"

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{
			name:     "bare object",
			response: `{"a": 1}`,
			want:     `{"a": 1}`,
		},
		{
			name:     "code fence",
			response: "```json\n{\"a\": 1}\n```",
			want:     `{"a": 1}`,
		},
		{
			name:     "surrounding prose",
			response: `Sure! Here is the answer: {"a": 1} hope that helps`,
			want:     `{"a": 1}`,
		},
		{
			name:     "no object",
			response: "cannot answer",
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractJSON(tt.response)
			if got != tt.want {
				t.Errorf("extractJSON = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeStructured(t *testing.T) {
	var out struct {
		Query string `json:"query"`
	}

	if err := decodeStructured("```json\n{\"query\": \"SELECT 1\"}\n```", &out); err != nil {
		t.Fatalf("decodeStructured: %v", err)
	}
	if out.Query != "SELECT 1" {
		t.Errorf("Query = %q", out.Query)
	}

	if err := decodeStructured("no json here", &out); err == nil {
		t.Errorf("expected error for response without JSON")
	}
}
