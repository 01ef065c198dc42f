package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{"dot separator", "12.34", 1234, false},
		{"comma separator", "12,34", 1234, false},
		{"integer", "12", 1200, false},
		{"single decimal", "12.3", 1230, false},
		{"third decimal rounds down", "12.344", 1234, false},
		{"third decimal rounds up", "12.346", 1235, false},
		{"leading fraction only", ".50", 50, false},
		{"empty", "", 0, true},
		{"zero", "0", 0, true},
		{"negative", "-5", 0, true},
		{"explicit plus", "+5", 0, true},
		{"letters", "12a.30", 0, true},
		{"two dots", "1.2.3", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDecimalToCents(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDecimalToCents(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDecimalToCents(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestMoney_Reais(t *testing.T) {
	m := Money{Cents: 1234}
	if got := m.Reais(); got != 12.34 {
		t.Errorf("Reais() = %v, want 12.34", got)
	}
}

func TestMoney_String(t *testing.T) {
	if got := (Money{Cents: 120005}).String(); got != "1200.05" {
		t.Errorf("String() = %q, want 1200.05", got)
	}
}
