package services

import "testing"

func TestDigestCronParser(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{"daily 9am", "0 9 * * *", false},
		{"weekly monday", "30 8 * * 1", false},
		{"every minute", "* * * * *", false},
		{"six fields rejected", "0 0 9 * * *", true},
		{"garbage rejected", "not a cron", true},
		{"empty rejected", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := digestCronParser.Parse(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Errorf("Parse(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
		})
	}
}
