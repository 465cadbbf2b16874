package google

import (
	"errors"
	"testing"

	"intelligence/internal/domain"
)

func TestSplitSubject(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
		subject  string
		body     string
	}{
		{
			name:     "first line becomes subject",
			markdown: "Leave request\n\nDear team,\nI will be away Friday.",
			subject:  "Leave request",
			body:     "Dear team,\nI will be away Friday.",
		},
		{
			name:     "single line is all subject",
			markdown: "Quick note",
			subject:  "Quick note",
			body:     "",
		},
		{
			name:     "surrounding whitespace trimmed from subject",
			markdown: "  Subject line  \nbody",
			subject:  "Subject line",
			body:     "body",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, body := SplitSubject(tt.markdown)
			if subject != tt.subject || body != tt.body {
				t.Fatalf("SplitSubject = %q / %q, want %q / %q", subject, body, tt.subject, tt.body)
			}
		})
	}
}

func TestEmailRequest_Validate(t *testing.T) {
	ok := EmailRequest{To: "ann@example.com", Subject: "Hi", Body: "text"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	for _, req := range []EmailRequest{
		{To: "", Subject: "Hi"},
		{To: "not-an-address", Subject: "Hi"},
		{To: "ann@example.com", Subject: ""},
	} {
		if err := req.Validate(); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("request %+v: err = %v, want validation error", req, err)
		}
	}
}
