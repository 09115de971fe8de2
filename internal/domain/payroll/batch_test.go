package payroll

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testPeriod() Period {
	return Period{
		ID:        "p-1",
		StartDate: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC),
	}
}

func visit(id, caregiverID string, day, allotted, minutes int) ShiftRecord {
	start := time.Date(2024, 3, day, 9, 0, 0, 0, time.UTC)
	out := start.Add(time.Duration(minutes) * time.Minute)
	return ShiftRecord{
		ID:              id,
		CaregiverID:     caregiverID,
		ClientID:        "cl-1",
		ScheduledStart:  start,
		ScheduledEnd:    start.Add(time.Duration(allotted) * time.Minute),
		AllottedMinutes: allotted,
		ClockIn:         &start,
		ClockOut:        &out,
	}
}

func TestCalculateCaregiverFiltersByPeriod(t *testing.T) {
	input := CaregiverInput{
		Caregiver: Caregiver{ID: "cg-1", HourlyRate: d("20"), Active: true},
		Shifts: []ShiftRecord{
			visit("s-1", "cg-1", 5, 60, 75),
			visit("s-2", "cg-1", 6, 60, 60),
			visit("s-3", "cg-1", 20, 60, 60),
		},
		Mileage: []MileageEntry{
			{ID: "m-1", CaregiverID: "cg-1", Date: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), Miles: d("12.5")},
			{ID: "m-2", CaregiverID: "cg-1", Date: time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC), Miles: d("40")},
		},
		PTO: []PTOEntry{
			{ID: "pto-1", CaregiverID: "cg-1", Type: PTOSick, StartDate: time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC), Hours: d("4")},
			{ID: "pto-2", CaregiverID: "cg-1", Type: PTOSick, StartDate: time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC), Hours: d("8")},
		},
	}
	result, incomplete, err := CalculateCaregiver(testPeriod(), DefaultSettings(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(incomplete) != 0 {
		t.Fatalf("unexpected incomplete shifts %v", incomplete)
	}
	rec := result.Record
	if rec.PeriodID != "p-1" || rec.CaregiverID != "cg-1" {
		t.Fatalf("record not keyed: %+v", rec)
	}
	if len(result.Shifts) != 2 {
		t.Fatalf("expected 2 reconciled shifts, got %d", len(result.Shifts))
	}
	assertMoney(t, "total hours", rec.TotalHours, "2")
	assertMoney(t, "miles", rec.TotalMiles, "12.5")
	assertMoney(t, "pto hours", rec.PTOHours, "4")
	assertMoney(t, "overage", rec.OverageCost, "5")
	if rec.FlaggedShifts != 1 {
		t.Fatalf("expected 1 flagged shift, got %d", rec.FlaggedShifts)
	}
}

func TestCalculateCaregiverOvertimeIsWeekly(t *testing.T) {
	input := CaregiverInput{Caregiver: Caregiver{ID: "cg-1", HourlyRate: d("20"), Active: true}}
	for i, day := range []int{4, 5, 6, 7, 8, 11, 12, 13, 14, 15} {
		input.Shifts = append(input.Shifts, visit("s-"+strconv.Itoa(i), "cg-1", day, 480, 480))
	}
	result, _, err := CalculateCaregiver(testPeriod(), DefaultSettings(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec := result.Record
	assertMoney(t, "total hours", rec.TotalHours, "80")
	assertMoney(t, "overtime hours", rec.OvertimeHours, "0")
	assertMoney(t, "overtime pay", rec.OvertimePay, "0")
	assertMoney(t, "regular pay", rec.RegularPay, "1600")
}

func TestCalculateCaregiverWithoutShifts(t *testing.T) {
	result, _, err := CalculateCaregiver(testPeriod(), DefaultSettings(), CaregiverInput{Caregiver: Caregiver{ID: "cg-9", Active: true}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec := result.Record
	if !rec.TotalHours.IsZero() || !rec.NetPay.IsZero() || rec.Status != StatusDraft {
		t.Fatalf("expected zero-valued draft, got %+v", rec)
	}
	if !rec.HourlyRate.Equal(DefaultSettings().DefaultHourlyRate) {
		t.Fatalf("expected default rate, got %s", rec.HourlyRate)
	}
}

func TestRunBatchReportsUnknownLeaveTypeAsFailure(t *testing.T) {
	inputs := []CaregiverInput{
		{Caregiver: Caregiver{ID: "cg-1", HourlyRate: d("20"), Active: true}},
		{
			Caregiver: Caregiver{ID: "cg-2", HourlyRate: d("20"), Active: true},
			PTO:       []PTOEntry{{ID: "pto-1", CaregiverID: "cg-2", Type: PTOType("sabbatical"), StartDate: testPeriod().StartDate, Hours: d("8")}},
		},
	}
	batch, err := RunBatch(context.Background(), testPeriod(), DefaultSettings(), inputs, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch.Results) != 1 || batch.Results[0].Record.CaregiverID != "cg-1" {
		t.Fatalf("expected only cg-1 to be calculated, got %+v", batch.Results)
	}
	if len(batch.Failures) != 1 || batch.Failures[0].CaregiverID != "cg-2" || !errors.Is(batch.Failures[0].Err, ErrUnknownPTOType) {
		t.Fatalf("expected cg-2 to fail on its leave type, got %+v", batch.Failures)
	}
}

func TestRunBatchIsolatesFailures(t *testing.T) {
	inputs := []CaregiverInput{
		{Caregiver: Caregiver{ID: "cg-3", HourlyRate: d("20")}, Shifts: []ShiftRecord{visit("s-3", "cg-3", 5, 60, 60)}},
		{Caregiver: Caregiver{ID: "cg-2", HourlyRate: d("-5")}, Shifts: []ShiftRecord{visit("s-2", "cg-2", 5, 60, 60)}},
		{Caregiver: Caregiver{ID: "cg-1", HourlyRate: d("20")}, Shifts: []ShiftRecord{
			visit("s-1", "cg-1", 5, 60, 60),
			{ID: "s-open", CaregiverID: "cg-1", ScheduledStart: time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC), AllottedMinutes: 60},
		}},
	}
	batch, err := RunBatch(context.Background(), testPeriod(), DefaultSettings(), inputs, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch.Results) != 2 || batch.Results[0].Record.CaregiverID != "cg-1" || batch.Results[1].Record.CaregiverID != "cg-3" {
		t.Fatalf("expected results for cg-1 and cg-3 in order, got %+v", batch.Results)
	}
	if len(batch.Failures) != 1 || batch.Failures[0].CaregiverID != "cg-2" {
		t.Fatalf("expected one failure for cg-2, got %+v", batch.Failures)
	}
	if !errors.Is(batch.Failures[0].Err, ErrInvalidSettings) {
		t.Fatalf("expected invalid rate failure, got %v", batch.Failures[0].Err)
	}
	if len(batch.Incomplete) != 1 || batch.Incomplete[0].ShiftID != "s-open" {
		t.Fatalf("expected s-open reported incomplete, got %+v", batch.Incomplete)
	}
	if batch.Results[0].Record.IncompleteShifts != 1 {
		t.Fatalf("expected incomplete count on record, got %d", batch.Results[0].Record.IncompleteShifts)
	}
}

func TestRunBatchRejectsInvalidSettings(t *testing.T) {
	settings := DefaultSettings()
	settings.StateTaxRate = decimal.NewFromInt(-1)
	batch, err := RunBatch(context.Background(), testPeriod(), settings, []CaregiverInput{{Caregiver: Caregiver{ID: "cg-1"}}}, 1)
	if !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("expected invalid settings, got %v", err)
	}
	if len(batch.Results) != 0 || len(batch.Failures) != 0 {
		t.Fatalf("no output expected, got %+v", batch)
	}
}

func TestRunBatchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RunBatch(ctx, testPeriod(), DefaultSettings(), []CaregiverInput{{Caregiver: Caregiver{ID: "cg-1"}}}, 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}

func TestRunBatchMatchesSequentialRun(t *testing.T) {
	var inputs []CaregiverInput
	for i := 0; i < 20; i++ {
		id := string(rune('a'+i)) + "-cg"
		inputs = append(inputs, CaregiverInput{
			Caregiver: Caregiver{ID: id, HourlyRate: decimal.NewFromInt(int64(15 + i))},
			Shifts: []ShiftRecord{
				visit(id+"-1", id, 4+i%10, 60, 50+i*3),
				visit(id+"-2", id, 5+i%10, 120, 130),
			},
		})
	}
	parallel, err := RunBatch(context.Background(), testPeriod(), DefaultSettings(), inputs, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sequential, err := RunBatch(context.Background(), testPeriod(), DefaultSettings(), inputs, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parallel.Results) != len(inputs) || len(parallel.Results) != len(sequential.Results) {
		t.Fatalf("expected %d results, got %d and %d", len(inputs), len(parallel.Results), len(sequential.Results))
	}
	for i := range parallel.Results {
		a, b := parallel.Results[i].Record, sequential.Results[i].Record
		if a.CaregiverID != b.CaregiverID || !a.NetPay.Equal(b.NetPay) || !a.TotalHours.Equal(b.TotalHours) {
			t.Fatalf("record %d differs: %+v vs %+v", i, a, b)
		}
	}
}

func TestLocksetSerializesSameKey(t *testing.T) {
	locks := newLockset()
	unlock := locks.Lock("p/cg")
	acquired := make(chan struct{})
	go func() {
		release := locks.Lock("p/cg")
		release()
		close(acquired)
	}()

	other := locks.Lock("p/other")
	other()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a held key")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the key")
	}

	locks.mu.Lock()
	defer locks.mu.Unlock()
	if len(locks.locks) != 0 {
		t.Fatalf("expected released keys to be forgotten, got %d", len(locks.locks))
	}
}
