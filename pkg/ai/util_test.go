package ai

import "testing"

type testPayload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestUnmarshalFlexible(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    testPayload
		wantErr bool
	}{
		{
			name:  "standard json",
			input: `{"name": "test", "count": 3}`,
			want:  testPayload{Name: "test", Count: 3},
		},
		{
			name:  "surrounding whitespace",
			input: "\n  {\"name\": \"test\", \"count\": 1}  \n",
			want:  testPayload{Name: "test", Count: 1},
		},
		{
			name:  "double encoded",
			input: `"{\"name\": \"test\", \"count\": 2}"`,
			want:  testPayload{Name: "test", Count: 2},
		},
		{
			name:  "malformed but repairable",
			input: `{name: "test", count: 4}`,
			want:  testPayload{Name: "test", Count: 4},
		},
		{
			name:  "duplicate leading brace",
			input: `{{"name": "test", "count": 5}`,
			want:  testPayload{Name: "test", Count: 5},
		},
		{
			name:    "not json at all",
			input:   `I am sorry, I cannot help with that.`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got testPayload
			err := UnmarshalFlexible(tt.input, &got)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
