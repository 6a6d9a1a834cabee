package mailer

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"yamdb/internal/config"
	"yamdb/internal/observability/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSMTP accepts one session per connection and records what it received.
type fakeSMTP struct {
	ln         net.Listener
	rejectRcpt bool

	mu       sync.Mutex
	from     []string
	rcpt     []string
	messages []string
}

func startFakeSMTP(t *testing.T, rejectRcpt bool) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &fakeSMTP{ln: ln, rejectRcpt: rejectRcpt}
	go s.serve()
	t.Cleanup(func() { ln.Close() })
	return s
}

func (s *fakeSMTP) port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

func (s *fakeSMTP) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *fakeSMTP) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	reply := func(line string) { conn.Write([]byte(line + "\r\n")) }

	reply("220 localhost ESMTP fake")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.TrimRight(line, "\r\n")
		upper := strings.ToUpper(cmd)

		switch {
		case strings.HasPrefix(upper, "EHLO"), strings.HasPrefix(upper, "HELO"):
			reply("250-localhost")
			reply("250 8BITMIME")
		case strings.HasPrefix(upper, "MAIL FROM:"):
			s.mu.Lock()
			s.from = append(s.from, cmd[len("MAIL FROM:"):])
			s.mu.Unlock()
			reply("250 OK")
		case strings.HasPrefix(upper, "RCPT TO:"):
			if s.rejectRcpt {
				reply("550 mailbox unavailable")
				continue
			}
			s.mu.Lock()
			s.rcpt = append(s.rcpt, cmd[len("RCPT TO:"):])
			s.mu.Unlock()
			reply("250 OK")
		case upper == "DATA":
			reply("354 end with <CRLF>.<CRLF>")
			var body strings.Builder
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				body.WriteString(l)
			}
			s.mu.Lock()
			s.messages = append(s.messages, body.String())
			s.mu.Unlock()
			reply("250 queued")
		case upper == "QUIT":
			reply("221 bye")
			return
		default:
			reply("250 OK")
		}
	}
}

func (s *fakeSMTP) received() (from, rcpt, messages []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.from...), append([]string(nil), s.rcpt...), append([]string(nil), s.messages...)
}

func TestSMTPMailer_Send(t *testing.T) {
	srv := startFakeSMTP(t, false)
	m := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: srv.port(), From: "noreply@yamdb.test", RatePerSecond: 100})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msg := ConfirmationCodeMessage("alice@example.com", "alice", "12345678")
	require.NoError(t, m.Send(ctx, msg))

	from, rcpt, messages := srv.received()
	require.Len(t, messages, 1)
	assert.Contains(t, from[0], "<noreply@yamdb.test>")
	assert.Contains(t, rcpt[0], "<alice@example.com>")
	assert.Contains(t, messages[0], "To: alice@example.com\r\n")
	assert.Contains(t, messages[0], "Subject: Your yamdb confirmation code\r\n")
	assert.Contains(t, messages[0], "12345678")
}

func TestSMTPMailer_RecipientRejected(t *testing.T) {
	srv := startFakeSMTP(t, true)
	m := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: srv.port(), From: "noreply@yamdb.test", RatePerSecond: 100})

	err := m.Send(context.Background(), Message{To: "bob@example.com", Subject: "s", Body: "b"})
	assert.ErrorContains(t, err, "rcpt")

	_, _, messages := srv.received()
	assert.Empty(t, messages)
}

func TestSMTPMailer_DialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	m := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: port, From: "noreply@yamdb.test"})
	err = m.Send(context.Background(), Message{To: "bob@example.com"})
	assert.ErrorContains(t, err, "dial smtp 127.0.0.1:"+strconv.Itoa(port))
}

func TestSMTPMailer_CancelledContext(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: 25, From: "x@y", RatePerSecond: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, m.Send(ctx, Message{To: "a@b"}))
}

func TestLogMailer_Send(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	m := NewLogMailer(logger)

	require.NoError(t, m.Send(context.Background(), ConfirmationCodeMessage("a@example.com", "a", "00112233")))
	assert.Contains(t, buf.String(), "to=a@example.com")
	assert.Contains(t, buf.String(), "00112233")
}

func TestNew_SelectsBackend(t *testing.T) {
	logger := logging.Discard()

	m, err := New(&config.Config{MailBackend: "log"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &LogMailer{}, m)

	m, err = New(&config.Config{MailBackend: "smtp", SMTPHost: "mail.test", SMTPPort: 587, MailRatePerSecond: 1}, logger)
	require.NoError(t, err)
	assert.IsType(t, &SMTPMailer{}, m)

	_, err = New(&config.Config{MailBackend: "pigeon"}, logger)
	assert.Error(t, err)
}
