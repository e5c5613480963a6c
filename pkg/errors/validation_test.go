package errors

import (
	"testing"
)

func TestValidateOutputPath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "out", false},
		{"nested", "renders/2024/world", false},
		{"absolute", "/tmp/world", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 2000)), true},
		{"null byte", "foo\x00bar", true},
		{"newline", "foo\nbar", true},
		{"trailing slash", "renders/", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputPath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateOutputPath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidPath) {
				t.Errorf("ValidateOutputPath(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidPath)
			}
		})
	}
}

func TestValidateFormatName(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"png", false},
		{"jpeg", false},
		{"tiff", false},
		{"", true},
		{"PNG", true},
		{".png", true},
		{"p", true},
		{"png;rm", true},
	}

	for _, tt := range tests {
		err := ValidateFormatName(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormatName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"https://tiles.example.org/world.png", false},
		{"http://localhost:8080/bg.jpg", false},
		{"", true},
		{"ftp://example.org/bg.png", true},
		{"/data/bg.png", true},
	}

	for _, tt := range tests {
		err := ValidateURL(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if IsURL(tt.input) == tt.wantErr {
			t.Errorf("IsURL(%q) = %v, want %v", tt.input, !tt.wantErr, !tt.wantErr)
		}
	}
}

func TestValidateHexColor(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"#f00", false},
		{"#FF0000", false},
		{"ff000080", false},
		{"", true},
		{"#ff00", true},
		{"red", true},
	}

	for _, tt := range tests {
		err := ValidateHexColor(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateHexColor(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}
