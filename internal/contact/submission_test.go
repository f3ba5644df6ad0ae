package contact

import (
	"strings"
	"testing"
)

func TestSubmission_Validate(t *testing.T) {
	valid := Submission{Name: "Ada", Email: "ada@example.com", Message: "Hello there"}

	tests := []struct {
		name       string
		mutate     func(*Submission)
		wantFields []string
	}{
		{"valid", func(*Submission) {}, nil},
		{"missing name", func(s *Submission) { s.Name = "" }, []string{"name"}},
		{"missing everything", func(s *Submission) { *s = Submission{} }, []string{"name", "email", "message"}},
		{"bad email", func(s *Submission) { s.Email = "not-an-email" }, []string{"email"}},
		{"name too long", func(s *Submission) { s.Name = strings.Repeat("n", MaxNameLen+1) }, []string{"name"}},
		{"name at limit", func(s *Submission) { s.Name = strings.Repeat("ñ", MaxNameLen) }, nil},
		{"message too long", func(s *Submission) { s.Message = strings.Repeat("m", MaxMessageLen+1) }, []string{"message"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			fields := FieldErrors(s.Validate())
			if len(fields) != len(tt.wantFields) {
				t.Fatalf("fields = %v, want %v", fields, tt.wantFields)
			}
			for _, f := range tt.wantFields {
				if fields[f] == "" {
					t.Errorf("missing error for %q in %v", f, fields)
				}
			}
		})
	}
}

func TestSubmission_Normalize(t *testing.T) {
	s := Submission{Name: "  Ada ", Email: "\tada@example.com\n", Message: " hi "}.Normalize()
	if s.Name != "Ada" || s.Email != "ada@example.com" || s.Message != "hi" {
		t.Fatalf("normalized = %+v", s)
	}
	if err := (Submission{Name: "   ", Email: "a@b.co", Message: "x"}).Normalize().Validate(); err == nil {
		t.Fatal("whitespace-only name should fail after Normalize")
	}
}

func TestFieldErrors_Nil(t *testing.T) {
	if FieldErrors(nil) != nil {
		t.Fatal("nil error should give nil map")
	}
}
