// Package phone provides canonical phone number and WhatsApp address formatting.
//
// Every entry point that compares or stores a phone number must go through
// Normalize so the same physical number always maps to the same canonical
// string. The user directory's uniqueness check depends on this.
package phone

import "strings"

// DefaultCountryPrefix is prepended to numbers given without an
// international prefix.
const DefaultCountryPrefix = "+49"

// whatsappPrefix qualifies a canonical number as a WhatsApp address.
const whatsappPrefix = "whatsapp:"

// Normalize strips all whitespace from raw and prepends the default country
// prefix unless the number already starts with "+". A single leading trunk
// zero is dropped before the prefix is added, so the national form
// "0151 234567" and the international form "+49151234567" normalize to the
// same canonical string. It is total: an empty input normalizes to the bare
// prefix, so callers that care must check for emptiness before normalizing.
func Normalize(raw string) string {
	clean := strings.Join(strings.Fields(raw), "")
	if strings.HasPrefix(clean, "+") {
		return clean
	}
	clean = strings.TrimPrefix(clean, "0")
	return DefaultCountryPrefix + clean
}

// WhatsAppAddress returns the transport-qualified WhatsApp address for a raw
// phone number, e.g. "whatsapp:+49151234567".
func WhatsAppAddress(raw string) string {
	return whatsappPrefix + Normalize(raw)
}

// StripWhatsAppPrefix removes the WhatsApp qualifier from an address if
// present, returning the bare canonical number.
func StripWhatsAppPrefix(addr string) string {
	return strings.TrimPrefix(addr, whatsappPrefix)
}
