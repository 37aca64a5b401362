package whatsapp

import (
	"context"
	"testing"
)

func TestWithDBDSNOption(t *testing.T) {
	opts := &Opts{}
	WithDBDSN("/var/lib/whatscoach/device.db")(opts)
	if opts.DBDSN != "/var/lib/whatscoach/device.db" {
		t.Errorf("expected DBDSN to be set, got %q", opts.DBDSN)
	}
}

func TestWithQRCodeOutputOption(t *testing.T) {
	opts := &Opts{}
	WithQRCodeOutput("/tmp/qr.txt")(opts)
	if opts.QRPath != "/tmp/qr.txt" {
		t.Errorf("expected QRPath to be set, got %q", opts.QRPath)
	}
}

func TestWithNumericCodeOption(t *testing.T) {
	opts := &Opts{}
	WithNumericCode()(opts)
	if !opts.NumericCode {
		t.Error("expected NumericCode to be true")
	}
}

func TestNewClientRequiresDSN(t *testing.T) {
	if _, err := NewClient(); err == nil {
		t.Error("expected error without device store DSN")
	}
}

func TestSendMessageGuards(t *testing.T) {
	c := &Client{}
	if err := c.SendMessage(context.Background(), "whatsapp:+49151234567", "hallo"); err == nil {
		t.Error("expected error for uninitialized client")
	}
}
