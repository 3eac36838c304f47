// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package validation

import (
	"strings"
	"testing"
	"time"
)

type signupForm struct {
	Phone    string `json:"mt_hp" validate:"required,phone_kr"`
	Name     string `json:"mt_name" validate:"required,max=30"`
	Birth    string `json:"mt_birth" validate:"omitempty,ymd"`
	Email    string `json:"mt_email" validate:"omitempty,email"`
	Password string `json:"mt_pass" validate:"required,min=8"`
}

type locationForm struct {
	Lat     float64 `json:"lat" validate:"latitude"`
	Lng     float64 `json:"lng" validate:"longitude"`
	Battery int     `json:"battery" validate:"gte=0,lte=100"`
}

type rangeForm struct {
	Start time.Time `json:"sst_sdate" validate:"required"`
	End   time.Time `json:"sst_edate" validate:"required,gtefield=Start"`
}

func TestGetValidatorSingleton(t *testing.T) {
	t.Parallel()

	if GetValidator() != GetValidator() {
		t.Error("GetValidator() should return the same instance")
	}
}

func TestValidateStructSignup(t *testing.T) {
	t.Parallel()

	valid := signupForm{Phone: "010-1234-5678", Name: "Kim", Birth: "1990-02-28", Password: "longenough"}

	tests := []struct {
		name      string
		mutate    func(f *signupForm)
		wantField string
		wantTag   string
	}{
		{"valid", func(f *signupForm) {}, "", ""},
		{"valid without hyphens", func(f *signupForm) { f.Phone = "01098765432" }, "", ""},
		{"landline rejected", func(f *signupForm) { f.Phone = "02-123-4567" }, "mt_hp", "phone_kr"},
		{"missing name", func(f *signupForm) { f.Name = "" }, "mt_name", "required"},
		{"bad birth", func(f *signupForm) { f.Birth = "1990/02/28" }, "mt_birth", "ymd"},
		{"impossible date", func(f *signupForm) { f.Birth = "1990-02-30" }, "mt_birth", "ymd"},
		{"bad email", func(f *signupForm) { f.Email = "nope" }, "mt_email", "email"},
		{"short password", func(f *signupForm) { f.Password = "short" }, "mt_pass", "min"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			form := valid
			tt.mutate(&form)
			err := ValidateStruct(&form)

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error on %s", tt.wantField)
			}
			got := err.Errors()[0]
			if got.Field() != tt.wantField || got.Tag() != tt.wantTag {
				t.Errorf("got %s/%s, want %s/%s", got.Field(), got.Tag(), tt.wantField, tt.wantTag)
			}
		})
	}
}

func TestValidateStructCoordinates(t *testing.T) {
	t.Parallel()

	if err := ValidateStruct(&locationForm{Lat: 37.5665, Lng: 126.978, Battery: 80}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := ValidateStruct(&locationForm{Lat: 91, Lng: 181, Battery: 101})
	if err == nil {
		t.Fatal("expected errors")
	}
	if n := len(err.Errors()); n != 3 {
		t.Fatalf("expected 3 errors, got %d", n)
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q", apiErr.Code)
	}
	if !strings.Contains(apiErr.Message, "lat must be a valid latitude") {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if _, ok := apiErr.Details["fields"]; !ok {
		t.Error("multi-error details should list fields")
	}
}

func TestValidateStructTimeRange(t *testing.T) {
	t.Parallel()

	now := time.Now()
	if err := ValidateStruct(&rangeForm{Start: now, End: now.Add(time.Hour)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := ValidateStruct(&rangeForm{Start: now, End: now.Add(-time.Hour)})
	if err == nil {
		t.Fatal("expected gtefield error")
	}
	apiErr := err.ToAPIError()
	if apiErr.Details["field"] != "sst_edate" {
		t.Errorf("field = %v, want sst_edate", apiErr.Details["field"])
	}
}

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	if got := NormalizePhone("010-1234 5678"); got != "01012345678" {
		t.Errorf("NormalizePhone() = %q", got)
	}
}
