// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package models

// Member is a row of the backend member table. Password columns are never
// returned by the backend and have no field here.
type Member struct {
	MtIdx       Idx      `json:"mt_idx"`
	MtID        string   `json:"mt_id"`
	MtName      string   `json:"mt_name"`
	MtNickname  string   `json:"mt_nickname,omitempty"`
	MtHp        string   `json:"mt_hp,omitempty"`
	MtEmail     string   `json:"mt_email,omitempty"`
	MtBirth     string   `json:"mt_birth,omitempty"`
	MtGender    int      `json:"mt_gender,omitempty"`
	MtFile1     string   `json:"mt_file1,omitempty"`
	MtPushToken string   `json:"mt_token_id,omitempty"`
	MtLevel     int      `json:"mt_level,omitempty"`
	MtLang      string   `json:"mt_lang,omitempty"`
	MtWdate     DateTime `json:"mt_wdate"`
}

// DisplayName prefers the nickname.
func (m *Member) DisplayName() string {
	if m.MtNickname != "" {
		return m.MtNickname
	}
	return m.MtName
}

// LoginRequest is POST /auth/login. mt_id is the member's phone number or
// e-mail, whichever they signed up with.
type LoginRequest struct {
	MtID      string `json:"mt_id" validate:"required,min=4,max=100"`
	Password  string `json:"mt_pass" validate:"required,min=4,max=64"`
	PushToken string `json:"mt_token_id,omitempty" validate:"omitempty,max=4096"`
}

// JoinRequest is POST /auth/join.
type JoinRequest struct {
	MtHp       string `json:"mt_hp" validate:"required,phone_kr"`
	Password   string `json:"mt_pass" validate:"required,min=8,max=64"`
	MtName     string `json:"mt_name" validate:"required,max=30"`
	MtNickname string `json:"mt_nickname,omitempty" validate:"omitempty,max=30"`
	MtEmail    string `json:"mt_email,omitempty" validate:"omitempty,email,max=100"`
	MtBirth    string `json:"mt_birth,omitempty" validate:"omitempty,ymd"`
	MtGender   int    `json:"mt_gender,omitempty" validate:"omitempty,oneof=1 2"`
	AgreeTerms bool   `json:"mt_agree_terms" validate:"required"`
	AgreeGPS   bool   `json:"mt_agree_location" validate:"required"`
	PushToken  string `json:"mt_token_id,omitempty" validate:"omitempty,max=4096"`
}

// VerifySendRequest is POST /auth/verify/send.
type VerifySendRequest struct {
	Phone string `json:"mt_hp" validate:"required,phone_kr"`
}

// VerifyConfirmRequest is POST /auth/verify/confirm.
type VerifyConfirmRequest struct {
	Phone string `json:"mt_hp" validate:"required,phone_kr"`
	Code  string `json:"code" validate:"required,numeric,min=4,max=10"`
}

// UpdateMemberRequest is PUT /members/me. Empty fields are left unchanged by
// the backend.
type UpdateMemberRequest struct {
	MtName     string `json:"mt_name,omitempty" validate:"omitempty,max=30"`
	MtNickname string `json:"mt_nickname,omitempty" validate:"omitempty,max=30"`
	MtEmail    string `json:"mt_email,omitempty" validate:"omitempty,email,max=100"`
	MtBirth    string `json:"mt_birth,omitempty" validate:"omitempty,ymd"`
	MtFile1    string `json:"mt_file1,omitempty" validate:"omitempty,url,max=500"`
	MtLang     string `json:"mt_lang,omitempty" validate:"omitempty,oneof=ko en ja"`
}

// PushTokenRequest is PUT /members/me/push-token.
type PushTokenRequest struct {
	Token string `json:"mt_token_id" validate:"required,max=4096"`
}
