package form

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type sample struct {
	URL       *string `json:"url"        validate:"omitempty,max=10"`
	SessionID *string `json:"session_id" validate:"omitempty,max=5"`
	IP        string  `json:"ip"         validate:"omitempty,ip"`
}

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func fieldsOf(t *testing.T, err error) Errors {
	t.Helper()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	return ve.Fields
}

func TestBind(t *testing.T) {
	cases := []struct {
		name      string
		body      string
		wantField string // "" means success
		wantMsg   string
	}{
		{"empty body", "", "", ""},
		{"empty object", "{}", "", ""},
		{"nulls", `{"url": null, "session_id": null}`, "", ""},
		{"valid", `{"url": "/a", "session_id": "s1"}`, "", ""},
		{"url wrong type", `{"url": 42}`, "url", "The url field must be a string."},
		{"url too long", `{"url": "/aaaaaaaaaaaa"}`, "url", "The url field must not be greater than 10 characters."},
		{"session too long", `{"session_id": "abcdef"}`, "session_id", "The session id field must not be greater than 5 characters."},
		{"bad ip", `{"ip": "nope"}`, "ip", "The ip field must be a valid IP address."},
		{"malformed", `{"url":`, BodyField, "The request body must be a valid JSON object."},
		{"array body", `[1,2]`, BodyField, "The request body must be a valid JSON object."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var dst sample
			err := Bind(post(tc.body), &dst)
			if tc.wantField == "" {
				if err != nil {
					t.Fatalf("Bind: %v", err)
				}
				return
			}
			f := fieldsOf(t, err)
			if got := f[tc.wantField]; len(got) != 1 || got[0] != tc.wantMsg {
				t.Fatalf("errors[%s] = %v, want %q", tc.wantField, got, tc.wantMsg)
			}
		})
	}
}

func TestFail(t *testing.T) {
	req := post("")

	rr := httptest.NewRecorder()
	Fail(rr, req, Invalid("days", "The days field must be an integer."))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rr.Code)
	}
	var body ErrorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Message != InvalidMessage || len(body.Errors["days"]) != 1 {
		t.Fatalf("body = %+v", body)
	}

	rr = httptest.NewRecorder()
	Fail(rr, req, errors.New("db exploded"))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "exploded") {
		t.Fatal("internal error leaked to client")
	}
}

func TestIsValidationError(t *testing.T) {
	if !IsValidationError(Invalid("x", "y")) || IsValidationError(errors.New("x")) {
		t.Fatal("IsValidationError mismatch")
	}
}
