package telegram

import (
	"testing"
	"time"
)

func TestStatusText(t *testing.T) {
	tests := []struct {
		name   string
		status *UserStatus
		want   string
	}{
		{"nil status", nil, LabelHidden},
		{"online", &UserStatus{Kind: StatusOnline}, LabelOnline},
		{"offline", &UserStatus{Kind: StatusOffline, WasOnline: time.Now()}, LabelOffline},
		{"recently", &UserStatus{Kind: StatusRecently}, LabelRecently},
		{"last week", &UserStatus{Kind: StatusLastWeek}, LabelLastWeek},
		{"last month", &UserStatus{Kind: StatusLastMonth}, LabelLastMonth},
		{"empty", &UserStatus{Kind: StatusEmpty}, LabelHidden},
		{"unknown variant", &UserStatus{Kind: StatusUnknown}, LabelLongAgo},
		{"out of range variant", &UserStatus{Kind: StatusKind(99)}, LabelLongAgo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StatusText(tt.status)
			if got != tt.want {
				t.Errorf("StatusText() = %q, want %q", got, tt.want)
			}
			if got == "" {
				t.Error("StatusText() returned empty string")
			}
		})
	}
}

func TestYesNo(t *testing.T) {
	if YesNo(true) != LabelYes {
		t.Errorf("YesNo(true) = %q", YesNo(true))
	}
	if YesNo(false) != LabelNo {
		t.Errorf("YesNo(false) = %q", YesNo(false))
	}
}
