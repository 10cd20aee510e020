package email_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/azamatbayne/user-service/internal/domain"
	"github.com/azamatbayne/user-service/internal/email"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMail
	fail error
}

type sentMail struct {
	to, subject, body string
}

func (s *fakeSender) Send(_ context.Context, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.sent = append(s.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func newMailer(s email.Sender) *email.Mailer {
	return email.NewMailer(s, "http://localhost:8080", map[string]string{
		email.RouteReset: "/reset",
		email.RouteLogin: "/login",
	})
}

func TestMailer_LinkCarriesToken(t *testing.T) {
	sender := &fakeSender{}
	m := newMailer(sender)

	user := &domain.User{Email: "a@b.com"}
	err := m.Send(context.Background(), email.TemplateForget, email.RouteReset, user,
		map[string]string{"token": "tok-123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(sender.sent))
	}
	mail := sender.sent[0]
	if mail.to != "a@b.com" {
		t.Errorf("to = %q, want a@b.com", mail.to)
	}
	if !strings.Contains(mail.body, "http://localhost:8080/reset?token=tok-123") {
		t.Errorf("body %q missing reset link with token", mail.body)
	}
}

func TestMailer_UnknownTemplate(t *testing.T) {
	m := newMailer(&fakeSender{})

	err := m.Send(context.Background(), "nonsense", email.RouteReset, &domain.User{Email: "a@b.com"}, nil)
	if err == nil {
		t.Error("want error for unknown template")
	}
}

func TestAsyncNotifier_DeliversQueuedMail(t *testing.T) {
	sender := &fakeSender{}
	n := email.NewAsyncNotifier(newMailer(sender), 8, testLogger())
	n.Start()

	user := &domain.User{Email: "a@b.com"}
	if err := n.Send(context.Background(), email.TemplateInvite, email.RouteReset, user,
		map[string]string{"token": "tok"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	n.Close() // drains before returning

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.sent) != 1 {
		t.Errorf("delivered %d emails, want 1", len(sender.sent))
	}
}

func TestAsyncNotifier_QueueFull(t *testing.T) {
	sender := &fakeSender{}
	// worker never started, so the single slot fills up
	n := email.NewAsyncNotifier(newMailer(sender), 1, testLogger())

	user := &domain.User{Email: "a@b.com"}
	if err := n.Send(context.Background(), email.TemplateForget, email.RouteReset, user, nil); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if err := n.Send(context.Background(), email.TemplateForget, email.RouteReset, user, nil); !errors.Is(err, email.ErrQueueFull) {
		t.Errorf("want ErrQueueFull, got %v", err)
	}
}

func TestAsyncNotifier_DeliveryFailureIsSwallowed(t *testing.T) {
	sender := &fakeSender{fail: errors.New("smtp down")}
	n := email.NewAsyncNotifier(newMailer(sender), 8, testLogger())
	n.Start()

	user := &domain.User{Email: "a@b.com"}
	if err := n.Send(context.Background(), email.TemplateForget, email.RouteReset, user, nil); err != nil {
		t.Fatalf("enqueue should succeed even when delivery will fail: %v", err)
	}
	n.Close()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}
