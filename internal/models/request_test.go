package models

import "testing"

func TestCreateSessionRequestValidate(t *testing.T) {
	valid := CreateSessionRequest{Role: " Backend ", Level: "Junior", InterviewType: InterviewCodingMix, Count: 5}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
	if valid.Role != "Backend" {
		t.Fatalf("expected trimmed role, got %q", valid.Role)
	}

	cases := map[string]CreateSessionRequest{
		"missing role":  {Level: "Junior", InterviewType: InterviewOralOnly, Count: 5},
		"missing level": {Role: "Backend", InterviewType: InterviewOralOnly, Count: 5},
		"missing type":  {Role: "Backend", Level: "Junior", Count: 5},
		"zero count":    {Role: "Backend", Level: "Junior", InterviewType: InterviewOralOnly},
		"bad type":      {Role: "Backend", Level: "Junior", InterviewType: "written", Count: 5},
		"too many":      {Role: "Backend", Level: "Junior", InterviewType: InterviewOralOnly, Count: 51},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			err := req.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			resp, ok := err.(*ErrorResponse)
			if !ok {
				t.Fatalf("expected *ErrorResponse, got %T", err)
			}
			if resp.Code != "missing_fields" || len(resp.Details) == 0 {
				t.Fatalf("unexpected error response: %+v", resp)
			}
		})
	}
}

func TestValidationDetailsUseJSONNames(t *testing.T) {
	req := CreateSessionRequest{Role: "Backend", Level: "Junior", Count: 3}
	err := req.Validate().(*ErrorResponse)
	if err.Details[0].Field != "interviewType" || err.Details[0].Reason != "required" {
		t.Fatalf("unexpected detail: %+v", err.Details)
	}
}

func TestRegisterRequestValidate(t *testing.T) {
	ok := RegisterRequest{Name: "Ada", Email: " ada@example.com ", Password: "secret"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
	if ok.Email != "ada@example.com" {
		t.Fatalf("expected trimmed email, got %q", ok.Email)
	}

	bad := RegisterRequest{Name: "Ada", Email: "not-an-email", Password: "secret"}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected invalid email to fail")
	}
	missing := RegisterRequest{Email: "ada@example.com"}
	if err := missing.Validate(); err == nil {
		t.Fatal("expected missing fields to fail")
	}
}

func TestUpdateProfileRequestAllowsEmpty(t *testing.T) {
	req := UpdateProfileRequest{}
	if err := req.Validate(); err != nil {
		t.Fatalf("empty update should be valid, got %v", err)
	}
	req.Email = "nope"
	if err := req.Validate(); err == nil {
		t.Fatal("expected malformed email to fail")
	}
}
