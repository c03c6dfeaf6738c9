package services

import "testing"

func TestValidateURL(t *testing.T) {
	s := &PreviewService{}

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"public https", "https://example.com/article", false},
		{"public http", "http://example.com", false},
		{"ftp rejected", "ftp://example.com/file", true},
		{"localhost rejected", "http://localhost:8080/admin", true},
		{"loopback rejected", "http://127.0.0.1/", true},
		{"private 10 rejected", "http://10.0.0.5/", true},
		{"private 192 rejected", "http://192.168.1.1/", true},
		{"link local rejected", "http://169.254.169.254/latest/meta-data", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.validateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}
