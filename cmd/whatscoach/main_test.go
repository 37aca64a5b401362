package main

import "testing"

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func testFlags() Flags {
	return Flags{
		dbDSN:      strPtr(""),
		openaiKey:  strPtr(""),
		twilioFrom: strPtr(""),
		waDSN:      strPtr(""),
		qrOutput:   strPtr(""),
		numeric:    boolPtr(false),
		apiAddr:    strPtr(""),
	}
}

func TestBuildDirectoryOptionsEmpty(t *testing.T) {
	if opts := buildDirectoryOptions(testFlags()); len(opts) != 0 {
		t.Errorf("expected no options without DSN, got %d", len(opts))
	}
}

func TestBuildDirectoryOptionsWithDSN(t *testing.T) {
	flags := testFlags()
	flags.dbDSN = strPtr("postgres://localhost/coach")
	if opts := buildDirectoryOptions(flags); len(opts) != 1 {
		t.Errorf("expected one option with DSN, got %d", len(opts))
	}
}

func TestBuildMessagingOptions(t *testing.T) {
	flags := testFlags()
	flags.accountSID = "AC123"
	flags.authToken = "token"
	flags.twilioFrom = strPtr("whatsapp:+14155238886")
	if opts := buildMessagingOptions(flags); len(opts) != 3 {
		t.Errorf("expected three options, got %d", len(opts))
	}
}

func TestBuildWhatsAppOptions(t *testing.T) {
	flags := testFlags()
	flags.waDSN = strPtr("/var/lib/whatscoach/device.db")
	flags.numeric = boolPtr(true)
	if opts := buildWhatsAppOptions(flags); len(opts) != 2 {
		t.Errorf("expected two options, got %d", len(opts))
	}
}

func TestBuildGenAIOptions(t *testing.T) {
	flags := testFlags()
	flags.openaiKey = strPtr("sk-test")
	if opts := buildGenAIOptions(flags); len(opts) != 1 {
		t.Errorf("expected one option, got %d", len(opts))
	}
}

func TestBuildAPIOptions(t *testing.T) {
	flags := testFlags()
	flags.apiAddr = strPtr(":9090")
	if opts := buildAPIOptions(flags); len(opts) != 1 {
		t.Errorf("expected one option, got %d", len(opts))
	}
}
