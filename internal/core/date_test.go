package core

import "testing"

func TestNewDate_NormalizesMonthOverflow(t *testing.T) {
	tests := []struct {
		name    string
		y, m, d int
		want    Date
	}{
		{"plain date", 2024, 3, 10, Date{2024, 3, 10}},
		{"month 14 rolls into next year", 2024, 14, 20, Date{2025, 2, 20}},
		{"month 0 rolls into previous year", 2024, 0, 5, Date{2023, 12, 5}},
		{"day clamped to month length", 2023, 2, 31, Date{2023, 2, 28}},
		{"leap february keeps day 29", 2024, 2, 29, Date{2024, 2, 29}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewDate(tt.y, tt.m, tt.d)
			if got != tt.want {
				t.Errorf("NewDate(%d, %d, %d) = %v, want %v", tt.y, tt.m, tt.d, got, tt.want)
			}
		})
	}
}

func TestDate_AddMonths(t *testing.T) {
	tests := []struct {
		name string
		date Date
		n    int
		want Date
	}{
		{"simple month", Date{2024, 1, 15}, 1, Date{2024, 2, 15}},
		{"year rollover", Date{2024, 11, 20}, 3, Date{2025, 2, 20}},
		{"jan 31 clamps to leap february", Date{2024, 1, 31}, 1, Date{2024, 2, 29}},
		{"jan 31 clamps to plain february", Date{2023, 1, 31}, 1, Date{2023, 2, 28}},
		{"may 31 clamps to june 30", Date{2024, 5, 31}, 1, Date{2024, 6, 30}},
		{"negative shift", Date{2024, 3, 15}, -3, Date{2023, 12, 15}},
		{"zero is identity", Date{2024, 7, 4}, 0, Date{2024, 7, 4}},
		{"twelve months", Date{2024, 6, 10}, 12, Date{2025, 6, 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.date.AddMonths(tt.n)
			if got != tt.want {
				t.Errorf("%v.AddMonths(%d) = %v, want %v", tt.date, tt.n, got, tt.want)
			}
		})
	}
}

func TestDate_WithDayClamped(t *testing.T) {
	tests := []struct {
		name string
		date Date
		day  int
		want Date
	}{
		{"day 31 on leap february", Date{2024, 2, 1}, 31, Date{2024, 2, 29}},
		{"day 31 on plain february", Date{2023, 2, 1}, 31, Date{2023, 2, 28}},
		{"day 31 on april", Date{2024, 4, 1}, 31, Date{2024, 4, 30}},
		{"day within month unchanged", Date{2024, 4, 1}, 15, Date{2024, 4, 15}},
		{"never rolls into next month", Date{2024, 6, 10}, 31, Date{2024, 6, 30}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.date.WithDayClamped(tt.day)
			if got != tt.want {
				t.Errorf("%v.WithDayClamped(%d) = %v, want %v", tt.date, tt.day, got, tt.want)
			}
		})
	}
}

func TestDate_Compare(t *testing.T) {
	a := Date{2024, 3, 10}
	b := Date{2024, 3, 11}
	c := Date{2024, 4, 1}

	if got := a.Compare(a); got != 0 {
		t.Errorf("Compare(equal) = %d, want 0", got)
	}
	if got := a.Compare(b); got != -1 {
		t.Errorf("Compare(earlier day) = %d, want -1", got)
	}
	if got := c.Compare(b); got != 1 {
		t.Errorf("Compare(later month) = %d, want 1", got)
	}
	if !a.Before(b) || !c.After(b) {
		t.Error("Before/After disagree with Compare")
	}
}

func TestDate_Validate(t *testing.T) {
	tests := []struct {
		name    string
		date    Date
		wantErr error
	}{
		{"valid", Date{2024, 3, 10}, nil},
		{"zero date", Date{}, ErrZeroDate},
		{"day zero", Date{2024, 3, 0}, ErrInvalidDay},
		{"day 30 in february", Date{2023, 2, 30}, ErrInvalidDay},
		{"month 13", Date{2024, 13, 1}, ErrInvalidMonth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.date.Validate()
			if err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDate_String(t *testing.T) {
	got := Date{2024, 2, 5}.String()
	if got != "2024-02-05" {
		t.Errorf("String() = %q, want 2024-02-05", got)
	}
}
