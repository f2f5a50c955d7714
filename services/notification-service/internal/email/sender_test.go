package email

import (
	"strings"
	"testing"
)

func TestBuildMessage(t *testing.T) {
	msg := buildMessage("no-reply@roombook.local", "ada@example.com", "Réservation confirmed", "line one\nline two")

	if !strings.Contains(msg, "To: ada@example.com\r\n") {
		t.Fatalf("missing To header: %q", msg)
	}
	if !strings.Contains(msg, "Subject: =?utf-8?q?") {
		t.Fatalf("expected encoded subject: %q", msg)
	}
	if !strings.Contains(msg, "\r\n\r\nline one\r\nline two\r\n") {
		t.Fatalf("expected CRLF body: %q", msg)
	}
}

func TestBuildMessagePlainSubject(t *testing.T) {
	msg := buildMessage("a@b.c", "d@e.f", "Reservation confirmed", "x")
	if !strings.Contains(msg, "Subject: Reservation confirmed\r\n") {
		t.Fatalf("ascii subject should not be encoded: %q", msg)
	}
}
