package prescription

import "testing"

func TestInstructionDisplay(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"after food", "کھانے کے بعد"},
		{"AFTER FOOD", "کھانے کے بعد"},
		{"  After Meal ", "کھانے کے بعد"},
		{"before food", "کھانے سے پہلے"},
		{"at bedtime", "سونے سے پہلے"},
		{"Empty Stomach", "خالی پیٹ"},
		{"with meal", "کھانے کے ساتھ"},
		{"PRN", "ضرورت کے مطابق"},
		{"", "-"},
		{"   ", "-"},
		{"twice daily", "twice daily"},
		{"  twice daily  ", "twice daily"},
	}
	for _, tt := range tests {
		if got := InstructionDisplay(tt.in); got != tt.want {
			t.Errorf("InstructionDisplay(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDurationDisplay(t *testing.T) {
	tests := []struct {
		choice, custom string
		days           int
		want           string
	}{
		{DurationWeek, "", 5, "1 week"},
		{Duration2Weeks, "", 1, "2 weeks"},
		{DurationMonth, "", 1, "1 month"},
		{Duration2Months, "", 1, "2 months"},
		{DurationCustom, "till next visit", 1, "till next visit"},
		{DurationCustom, "", 3, "3 days"},
		{DurationNone, "", 1, "1 day"},
		{DurationNone, "", 10, "10 days"},
	}
	for _, tt := range tests {
		if got := DurationDisplay(tt.choice, tt.custom, tt.days); got != tt.want {
			t.Errorf("DurationDisplay(%q, %q, %d) = %q, want %q", tt.choice, tt.custom, tt.days, got, tt.want)
		}
	}
}

func TestLineItem_DisplayName(t *testing.T) {
	li := LineItem{CustomMedicine: "Zinconia"}
	if got := li.DisplayName(); got != "Zinconia" {
		t.Errorf("got %q", got)
	}
	li.MedicineName = "Tab Zinconia"
	if got := li.DisplayName(); got != "Tab Zinconia" {
		t.Errorf("got %q", got)
	}
	if got := (&LineItem{}).DisplayName(); got != "Unknown" {
		t.Errorf("got %q", got)
	}
}

func TestVitals_Filled(t *testing.T) {
	v := Vitals{Pulse: "80", Temperature: "99F"}
	got := v.Filled()
	if len(got) != 2 || got[0].Label != "Pulse" || got[1].Label != "Temp" {
		t.Errorf("unexpected readings %+v", got)
	}
	if len(Vitals{}.Filled()) != 0 {
		t.Error("empty vitals should print nothing")
	}
}

func TestHistory_Labels(t *testing.T) {
	h := History{DM: true, HepC: true, Other: "Asthma since childhood"}
	got := h.Labels()
	want := []string{"DM", "Hep-C", "Asthma since childhood"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("label %d = %q, want %q", i, got[i], want[i])
		}
	}
}
