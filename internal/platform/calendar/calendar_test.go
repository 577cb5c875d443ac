package calendar

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-06-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "2025-06-01" {
		t.Errorf("expected 2025-06-01, got %s", d)
	}

	for _, bad := range []string{"", "2025-13-01", "01/06/2025", "2025-06-01T00:00:00Z"} {
		if _, err := ParseDate(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestDateOf_UsesLocation(t *testing.T) {
	nairobi, err := time.LoadLocation("Africa/Nairobi")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 22:30 UTC on May 31 is already June 1 in Nairobi (UTC+3).
	instant := time.Date(2025, 5, 31, 22, 30, 0, 0, time.UTC)

	if got := DateOf(instant, time.UTC); got.String() != "2025-05-31" {
		t.Errorf("UTC day: got %s", got)
	}
	if got := DateOf(instant, nairobi); got.String() != "2025-06-01" {
		t.Errorf("Nairobi day: got %s", got)
	}
}

func TestDate_Compare(t *testing.T) {
	a := NewDate(2025, 6, 1)
	b := NewDate(2025, 6, 4)

	if !a.Before(b) || a.After(b) || a.Equal(b) {
		t.Error("unexpected ordering")
	}
	if b.DaysSince(a) != 3 {
		t.Errorf("expected 3 days, got %d", b.DaysSince(a))
	}
	if a.DaysSince(a) != 0 {
		t.Errorf("expected 0 days, got %d", a.DaysSince(a))
	}
	if !a.AddDays(3).Equal(b) {
		t.Error("expected AddDays(3) to reach b")
	}
}

func TestDate_DaysSinceAcrossDST(t *testing.T) {
	// Stored as UTC midnights so DST transitions never shorten a day.
	a := NewDate(2025, 3, 8)
	b := NewDate(2025, 3, 10)
	if b.DaysSince(a) != 2 {
		t.Errorf("expected 2 days, got %d", b.DaysSince(a))
	}
}

func TestDate_JSON(t *testing.T) {
	type payload struct {
		Date  Date  `json:"date"`
		Birth *Date `json:"birth"`
	}

	var p payload
	if err := json.Unmarshal([]byte(`{"date":"2025-06-01","birth":null}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.Date.String() != "2025-06-01" || p.Birth != nil {
		t.Errorf("unexpected decode: %+v", p)
	}

	out, err := json.Marshal(payload{Date: NewDate(2025, 6, 1)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"date":"2025-06-01","birth":null}` {
		t.Errorf("unexpected encode: %s", out)
	}

	if err := json.Unmarshal([]byte(`{"date":"June 1"}`), &p); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestDate_At(t *testing.T) {
	loc := time.FixedZone("EAT", 3*60*60)
	got := NewDate(2025, 6, 1).At(0, 0, loc)
	want := time.Date(2025, 5, 31, 21, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("expected %s, got %s", want, got.UTC())
	}
}

func TestPtrRoundTrip(t *testing.T) {
	if Ptr(nil) != nil || TimePtr(nil) != nil {
		t.Error("nil must stay nil")
	}
	d := NewDate(1990, 2, 14)
	if got := Ptr(TimePtr(&d)); got == nil || !got.Equal(d) {
		t.Errorf("round trip failed: %v", got)
	}
}

func TestFixedClock(t *testing.T) {
	c := NewFixedClock(time.Date(2025, 5, 20, 23, 0, 0, 0, time.UTC))
	if Today(c, time.UTC).String() != "2025-05-20" {
		t.Errorf("unexpected today %s", Today(c, time.UTC))
	}
	c.Advance(2 * time.Hour)
	if Today(c, time.UTC).String() != "2025-05-21" {
		t.Errorf("unexpected today after advance %s", Today(c, time.UTC))
	}
}
