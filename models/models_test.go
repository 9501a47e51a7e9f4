package models

import (
	"errors"
	"testing"
)

func TestInvitationFieldsValidate(t *testing.T) {
	tests := []struct {
		name    string
		fields  InvitationFields
		wantErr error
	}{
		{"valid", InvitationFields{EventName: "Party", EventDate: "2026-12-31", Location: "Home"}, nil},
		{"bad date", InvitationFields{EventName: "Party", EventDate: "31/12/2026", Location: "Home"}, ErrInvalidDateFormat},
		{"empty date", InvitationFields{EventName: "Party", Location: "Home"}, ErrInvalidDateFormat},
		{"no name", InvitationFields{EventDate: "2026-12-31", Location: "Home"}, ErrMissingFields},
		{"no location", InvitationFields{EventName: "Party", EventDate: "2026-12-31"}, ErrMissingFields},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			date, err := tt.fields.Normalize().Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if err == nil && date.Format(DateLayout) != tt.fields.EventDate {
				t.Errorf("date round trip: got %s", date.Format(DateLayout))
			}
		})
	}
}

func TestStatusForResponse(t *testing.T) {
	if s, ok := StatusForResponse("accept"); !ok || s != RSVPAccepted {
		t.Errorf("accept -> %v %v", s, ok)
	}
	if s, ok := StatusForResponse("decline"); !ok || s != RSVPDeclined {
		t.Errorf("decline -> %v %v", s, ok)
	}
	for _, v := range []string{"", "maybe", "Accept", "yes"} {
		if _, ok := StatusForResponse(v); ok {
			t.Errorf("%q should not be recognised", v)
		}
	}
}
