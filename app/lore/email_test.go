package lore

import (
	"strings"
	"testing"
	"time"
)

func TestParseEmailSimple(t *testing.T) {
	raw := strings.Join([]string{
		"From: Miguel Ojeda <ojeda@kernel.org>",
		"To: rust-for-linux@vger.kernel.org",
		"Subject: [PATCH] rust: add example abstraction",
		"Date: Mon, 01 Jan 2024 10:00:00 +0000",
		"Message-ID: <20240101.1234@kernel.org>",
		"",
		"This is the patch body.",
	}, "\r\n")

	email, err := ParseEmail([]byte(raw))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if email.MessageID != "20240101.1234@kernel.org" {
		t.Errorf("Expected message id '20240101.1234@kernel.org', got '%s'", email.MessageID)
	}
	if email.InReplyTo != "" {
		t.Errorf("Expected empty in-reply-to, got '%s'", email.InReplyTo)
	}
	if email.Subject != "[PATCH] rust: add example abstraction" {
		t.Errorf("Unexpected subject: %s", email.Subject)
	}
	if email.AuthorName != "Miguel Ojeda" {
		t.Errorf("Expected author name 'Miguel Ojeda', got '%s'", email.AuthorName)
	}
	if email.AuthorEmail != "ojeda@kernel.org" {
		t.Errorf("Expected author email 'ojeda@kernel.org', got '%s'", email.AuthorEmail)
	}
	if !strings.Contains(email.Body, "This is the patch body.") {
		t.Errorf("Unexpected body: %s", email.Body)
	}

	expectedDate := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	if !email.Date.Equal(expectedDate) {
		t.Errorf("Expected date %v, got %v", expectedDate, email.Date)
	}
}

func TestParseEmailReply(t *testing.T) {
	raw := strings.Join([]string{
		"From: Reviewer <reviewer@example.com>",
		"Subject: Re: [PATCH] rust: add example abstraction",
		"Date: Mon, 01 Jan 2024 12:00:00 +0000",
		"Message-ID: <reply-1@example.com>",
		"In-Reply-To: <20240101.1234@kernel.org>",
		"References: <20240101.1234@kernel.org>",
		"",
		"Looks good to me.",
	}, "\r\n")

	email, err := ParseEmail([]byte(raw))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if email.InReplyTo != "20240101.1234@kernel.org" {
		t.Errorf("Expected in-reply-to root id, got '%s'", email.InReplyTo)
	}
	if len(email.References) != 1 || email.References[0] != "20240101.1234@kernel.org" {
		t.Errorf("Unexpected references: %v", email.References)
	}
	// Exactly one leading "Re: " is stripped
	if email.Subject != "[PATCH] rust: add example abstraction" {
		t.Errorf("Unexpected subject: %s", email.Subject)
	}
}

func TestSubjectStripsSingleRePrefix(t *testing.T) {
	if got := normalizeSubject("Re: Re: foo"); got != "Re: foo" {
		t.Errorf("Expected 'Re: foo' (single prefix stripped), got '%s'", got)
	}
	if got := normalizeSubject("Re: foo"); got != "foo" {
		t.Errorf("Expected 'foo', got '%s'", got)
	}
	if got := normalizeSubject("foo"); got != "foo" {
		t.Errorf("Expected 'foo', got '%s'", got)
	}
}

func TestParseAuthorForms(t *testing.T) {
	cases := []struct {
		header    string
		wantName  string
		wantEmail string
	}{
		{"Miguel Ojeda <ojeda@kernel.org>", "Miguel Ojeda", "ojeda@kernel.org"},
		{`"Ojeda, Miguel" <ojeda@kernel.org>`, "Ojeda, Miguel", "ojeda@kernel.org"},
		{"<ojeda@kernel.org>", "<ojeda@kernel.org>", "ojeda@kernel.org"},
		{"ojeda@kernel.org", "ojeda@kernel.org", ""},
	}

	for _, tc := range cases {
		name, email := parseAuthor(tc.header)
		if name != tc.wantName {
			t.Errorf("parseAuthor(%q): expected name %q, got %q", tc.header, tc.wantName, name)
		}
		if email != tc.wantEmail {
			t.Errorf("parseAuthor(%q): expected email %q, got %q", tc.header, tc.wantEmail, email)
		}
	}
}

func TestExtractMessageID(t *testing.T) {
	cases := []struct {
		value string
		want  string
	}{
		{"<abc@example.com>", "abc@example.com"},
		{"  <abc@example.com>  ", "abc@example.com"},
		{"prefix <first@x.org> <second@y.org>", "first@x.org"},
		{"no brackets here", ""},
		{"", ""},
	}

	for _, tc := range cases {
		if got := extractMessageID(tc.value); got != tc.want {
			t.Errorf("extractMessageID(%q): expected %q, got %q", tc.value, tc.want, got)
		}
	}
}

func TestParseEmailMultipart(t *testing.T) {
	raw := strings.Join([]string{
		"From: Sender <s@example.com>",
		"Subject: multipart test",
		"Message-ID: <mp@example.com>",
		"MIME-Version: 1.0",
		`Content-Type: multipart/alternative; boundary="BOUNDARY"`,
		"",
		"--BOUNDARY",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<p>html part</p>",
		"--BOUNDARY",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"plain text part",
		"--BOUNDARY--",
		"",
	}, "\r\n")

	email, err := ParseEmail([]byte(raw))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !strings.Contains(email.Body, "plain text part") {
		t.Errorf("Expected first text/plain part as body, got: %q", email.Body)
	}
	if strings.Contains(email.Body, "html part") {
		t.Errorf("Body must not contain the html part, got: %q", email.Body)
	}
}

func TestParseEmailQuotedPrintable(t *testing.T) {
	raw := strings.Join([]string{
		"From: Sender <s@example.com>",
		"Subject: qp test",
		"Message-ID: <qp@example.com>",
		"Content-Type: text/plain; charset=utf-8",
		"Content-Transfer-Encoding: quoted-printable",
		"",
		"caf=C3=A9",
	}, "\r\n")

	email, err := ParseEmail([]byte(raw))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if strings.TrimSpace(email.Body) != "café" {
		t.Errorf("Expected decoded body 'café', got %q", email.Body)
	}
}

func TestThreadIDResolution(t *testing.T) {
	root := &Email{MessageID: "root@x.org"}
	if got := ThreadID(root); got != "root@x.org" {
		t.Errorf("Expected root to thread to itself, got '%s'", got)
	}

	reply := &Email{
		MessageID:  "reply@x.org",
		InReplyTo:  "root@x.org",
		References: []string{"root@x.org"},
	}
	if got := ThreadID(reply); got != "root@x.org" {
		t.Errorf("Expected reply to thread to root, got '%s'", got)
	}

	nested := &Email{
		MessageID:  "nested@x.org",
		InReplyTo:  "reply@x.org",
		References: []string{"root@x.org", "reply@x.org"},
	}
	if got := ThreadID(nested); got != "root@x.org" {
		t.Errorf("Expected nested reply to thread to root via references, got '%s'", got)
	}
}

func TestEncodeDiscussionID(t *testing.T) {
	if got := EncodeDiscussionID("20240101.1234@kernel.org"); got != "20240101-dot-1234-at-kernel-dot-org" {
		t.Errorf("Unexpected encoding: %s", got)
	}
	if got := EncodeDiscussionID(""); got != "unknown" {
		t.Errorf("Expected 'unknown' fallback for empty id, got '%s'", got)
	}
}

func TestToDiscussionRecord(t *testing.T) {
	email := &Email{
		MessageID:   "reply-1@example.com",
		InReplyTo:   "root@kernel.org",
		References:  []string{"root@kernel.org"},
		Subject:     "[PATCH] something",
		AuthorName:  "Reviewer",
		AuthorEmail: "reviewer@example.com",
		Body:        "Looks good to me.",
		Date:        time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	record := ToDiscussionRecord(email, "42", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	if record.ID != "reply-1-at-example-dot-com" {
		t.Errorf("Unexpected discussion id: %s", record.ID)
	}
	if record.Timestamp != "2024-01-01T12:00:00Z" {
		t.Errorf("Unexpected timestamp: %s", record.Timestamp)
	}
	if record.PatchID != "42" {
		t.Errorf("Expected patch id '42', got '%s'", record.PatchID)
	}
	if record.ThreadID != "root@kernel.org" {
		t.Errorf("Expected thread id 'root@kernel.org', got '%s'", record.ThreadID)
	}
	if record.IsReview {
		t.Error("Expected review flag to default to false")
	}
	if record.GSI1PK != "PATCH#42" {
		t.Errorf("Expected gsi1pk 'PATCH#42', got '%s'", record.GSI1PK)
	}
	if record.GSI2PK != "THREAD#root@kernel.org" {
		t.Errorf("Expected gsi2pk 'THREAD#root@kernel.org', got '%s'", record.GSI2PK)
	}
	if record.GSI3PK != "AUTHOR#reviewer@example.com" {
		t.Errorf("Expected gsi3pk 'AUTHOR#reviewer@example.com', got '%s'", record.GSI3PK)
	}
	if record.GSI1SK != "DATE#2024-01-01T12:00:00Z" {
		t.Errorf("Unexpected gsi1sk: %s", record.GSI1SK)
	}
}
