package prescription

import (
	"strconv"
	"strings"
)

// instructionSynonyms maps the common English dosing instructions to the
// Urdu wording printed on the prescription.
var instructionSynonyms = map[string]string{
	"before meal":   "کھانے سے پہلے",
	"before food":   "کھانے سے پہلے",
	"after meal":    "کھانے کے بعد",
	"after food":    "کھانے کے بعد",
	"before sleep":  "سونے سے پہلے",
	"at bedtime":    "سونے سے پہلے",
	"empty stomach": "خالی پیٹ",
	"with meal":     "کھانے کے ساتھ",
	"with food":     "کھانے کے ساتھ",
	"as needed":     "ضرورت کے مطابق",
	"prn":           "ضرورت کے مطابق",
}

// InstructionDisplay returns the printed form of a dosing instruction.
// Unknown text is printed as typed, trimmed, and an empty instruction as "-".
func InstructionDisplay(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "-"
	}
	if urdu, ok := instructionSynonyms[strings.ToLower(trimmed)]; ok {
		return urdu
	}
	return trimmed
}

// DurationDisplay renders how long a medicine is taken.
func DurationDisplay(choice, custom string, days int) string {
	switch choice {
	case DurationWeek:
		return "1 week"
	case Duration2Weeks:
		return "2 weeks"
	case DurationMonth:
		return "1 month"
	case Duration2Months:
		return "2 months"
	case DurationCustom:
		if custom != "" {
			return custom
		}
	}
	if days <= 1 {
		return "1 day"
	}
	return strconv.Itoa(days) + " days"
}
