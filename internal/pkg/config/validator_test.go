package config

import (
	"testing"
	"time"
)

func TestValidateCronSchedule(t *testing.T) {
	tests := []struct {
		name     string
		schedule string
		wantErr  bool
	}{
		{"daily at midnight", "0 0 * * *", false},
		{"three times a day", "0 8,14,21 * * *", false},
		{"monthly", "0 0 1 * *", false},
		{"every six hours", "0 */6 * * *", false},
		{"empty", "", true},
		{"words", "every day", true},
		{"too few fields", "0 0 *", true},
		{"minute out of range", "99 0 * * *", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCronSchedule(tt.schedule)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCronSchedule(%q) error = %v, wantErr %v", tt.schedule, err, tt.wantErr)
			}
		})
	}
}

func TestValidateTimezone(t *testing.T) {
	for _, tz := range []string{"UTC", "Europe/London", "Asia/Tokyo"} {
		if err := ValidateTimezone(tz); err != nil {
			t.Errorf("ValidateTimezone(%q) = %v, want nil", tz, err)
		}
	}
	for _, tz := range []string{"", "Mars/Olympus", "+09:00"} {
		if err := ValidateTimezone(tz); err == nil {
			t.Errorf("ValidateTimezone(%q) = nil, want error", tz)
		}
	}
}

func TestValidateDuration(t *testing.T) {
	if err := ValidateDuration(30*time.Second, time.Second, time.Minute); err != nil {
		t.Errorf("in-range duration rejected: %v", err)
	}
	if err := ValidateDuration(time.Hour, time.Second, time.Minute); err == nil {
		t.Error("above-max duration accepted")
	}
	if err := ValidateDuration(0, time.Second, time.Minute); err == nil {
		t.Error("below-min duration accepted")
	}
	if err := ValidateDuration(time.Second, time.Minute, time.Second); err == nil {
		t.Error("inverted range accepted")
	}
}

func TestValidateIntRange(t *testing.T) {
	if err := ValidateIntRange(10, 1, 50); err != nil {
		t.Errorf("in-range value rejected: %v", err)
	}
	if err := ValidateIntRange(0, 1, 50); err == nil {
		t.Error("below-min value accepted")
	}
	if err := ValidateIntRange(51, 1, 50); err == nil {
		t.Error("above-max value accepted")
	}
	if err := ValidateIntRange(5, 10, 1); err == nil {
		t.Error("inverted range accepted")
	}
}

func TestValidatePositiveDuration(t *testing.T) {
	if err := ValidatePositiveDuration(time.Millisecond); err != nil {
		t.Errorf("positive duration rejected: %v", err)
	}
	if err := ValidatePositiveDuration(0); err == nil {
		t.Error("zero duration accepted")
	}
	if err := ValidatePositiveDuration(-time.Second); err == nil {
		t.Error("negative duration accepted")
	}
}
