package meta

import "testing"

func TestParseProbeDuration(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{
			name:  "format duration",
			input: `{"format": {"duration": "200.123000"}, "streams": [{"codec_type": "audio", "duration": "199.9"}]}`,
			want:  200123,
		},
		{
			name:  "stream fallback when format is N/A",
			input: `{"format": {"duration": "N/A"}, "streams": [{"codec_type": "video", "duration": "1.0"}, {"codec_type": "audio", "duration": "42.5"}]}`,
			want:  42500,
		},
		{
			name:  "no format section",
			input: `{"streams": [{"codec_type": "audio", "duration": "3"}]}`,
			want:  3000,
		},
		{
			name:    "no duration anywhere",
			input:   `{"format": {"duration": ""}, "streams": []}`,
			wantErr: true,
		},
		{
			name:    "invalid json",
			input:   `{"format":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseProbeDuration([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseProbeDuration() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseProbeDuration() = %d, want %d", got, tt.want)
			}
		})
	}
}
