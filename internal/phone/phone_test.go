package phone

import "testing"

func TestNormalizeNationalAndInternationalMatch(t *testing.T) {
	national := Normalize("0151 234567")
	international := Normalize("+49151234567")
	if national != international {
		t.Errorf("expected identical canonical form, got %q and %q", national, international)
	}
	if national != "+49151234567" {
		t.Errorf("expected '+49151234567', got %q", national)
	}
}

func TestNormalizeStripsAllWhitespace(t *testing.T) {
	got := Normalize("+49 151 23 45 67")
	if got != "+49151234567" {
		t.Errorf("expected '+49151234567', got %q", got)
	}
}

func TestNormalizeKeepsExistingPrefix(t *testing.T) {
	got := Normalize("+14155550100")
	if got != "+14155550100" {
		t.Errorf("expected '+14155550100', got %q", got)
	}
}

func TestNormalizeEmptyInput(t *testing.T) {
	// Total function: empty input yields the bare prefix. Callers reject
	// empty numbers before normalizing.
	if got := Normalize(""); got != DefaultCountryPrefix {
		t.Errorf("expected %q, got %q", DefaultCountryPrefix, got)
	}
}

func TestWhatsAppAddress(t *testing.T) {
	got := WhatsAppAddress("0151 234567")
	if got != "whatsapp:+49151234567" {
		t.Errorf("expected 'whatsapp:+49151234567', got %q", got)
	}
}

func TestStripWhatsAppPrefix(t *testing.T) {
	if got := StripWhatsAppPrefix("whatsapp:+49151234567"); got != "+49151234567" {
		t.Errorf("expected bare number, got %q", got)
	}
	if got := StripWhatsAppPrefix("+49151234567"); got != "+49151234567" {
		t.Errorf("expected unqualified address unchanged, got %q", got)
	}
}
