package shared

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestValidatorCollectsSortedIssues(t *testing.T) {
	v := NewValidator()
	start, _ := v.Date("startDate", "2024-03-17")
	end, _ := v.Date("endDate", "2024-03-04")
	v.DateOrder("startDate", start, "endDate", end)
	v.Date("payDate", "17/03/2024")
	v.NonNegative("mileageRate", decimal.NewFromInt(-1))
	v.Decimal("overtimeRate", nil)

	issues := v.Issues()
	if len(issues) != 5 {
		t.Fatalf("expected 5 issues, got %d: %+v", len(issues), issues)
	}
	if issues[0].Field != "endDate" || issues[len(issues)-1].Field != "startDate" {
		t.Fatalf("issues not sorted by field: %+v", issues)
	}
}

func TestRejectWritesEnvelope(t *testing.T) {
	v := NewValidator()
	if v.Reject(httptest.NewRecorder(), "req-1") {
		t.Fatal("empty validator should not reject")
	}

	v.Add("startDate", "is required")
	rec := httptest.NewRecorder()
	if !v.Reject(rec, "req-1") {
		t.Fatal("expected rejection")
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code    string `json:"code"`
			Details struct {
				Fields []ValidationIssue `json:"fields"`
			} `json:"details"`
		} `json:"error"`
		RequestID string `json:"requestId"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success || body.Error.Code != "validation_error" || body.RequestID != "req-1" {
		t.Fatalf("unexpected envelope: %+v", body)
	}
	if len(body.Error.Details.Fields) != 1 || body.Error.Details.Fields[0].Field != "startDate" {
		t.Fatalf("unexpected details: %+v", body.Error.Details)
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2024-03-04")
	if err != nil || !got.Equal(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v (%v)", got, err)
	}
	got, err = ParseDate("2024-03-04T10:00:00Z")
	if err != nil || got.Hour() != 10 {
		t.Fatalf("unexpected timestamp %v (%v)", got, err)
	}
	if got, err := ParseDate(""); err != nil || !got.IsZero() {
		t.Fatalf("empty input should give zero time")
	}
}
