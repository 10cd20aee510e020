package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/azamatbayne/user-service/internal/domain"
)

const deliveryTimeout = 15 * time.Second

// Template and route names recognized by the mailer. Deployments may remap
// them through configuration; an empty template disables that message.
const (
	TemplateConfirm = "confirm"
	TemplateWelcome = "welcome"
	TemplateInvite  = "invite"
	TemplateForget  = "forget"

	RouteReset = "reset"
	RouteLogin = "login"
)

// Mailer renders a template name and target route into a subject and HTML
// body, then hands the message to the underlying Sender.
type Mailer struct {
	sender  Sender
	baseURL string
	routes  map[string]string // route name -> URL path
}

func NewMailer(sender Sender, baseURL string, routes map[string]string) *Mailer {
	return &Mailer{sender: sender, baseURL: baseURL, routes: routes}
}

func (m *Mailer) Send(ctx context.Context, template, route string, user *domain.User, extra map[string]string) error {
	link := m.baseURL + m.routes[route]
	if tok := extra["token"]; tok != "" {
		link += "?token=" + url.QueryEscape(tok)
	}

	subject, body, err := compose(template, link)
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, user.Email, subject, body)
}

func compose(template, link string) (subject, body string, err error) {
	switch template {
	case TemplateConfirm:
		return "Confirm your account",
			fmt.Sprintf(`<p>Welcome! Confirm your account by setting your password:</p><p><a href="%s">%s</a></p>`, link, link),
			nil
	case TemplateWelcome:
		return "Welcome",
			fmt.Sprintf(`<p>Your account is ready. You can sign in here:</p><p><a href="%s">%s</a></p>`, link, link),
			nil
	case TemplateInvite:
		return "You have been invited",
			fmt.Sprintf(`<p>You've been invited. Pick a password to activate your account:</p><p><a href="%s">%s</a></p>`, link, link),
			nil
	case TemplateForget:
		return "Reset your password",
			fmt.Sprintf(`<p>Click the link below to reset your password:</p><p><a href="%s">%s</a></p>`, link, link),
			nil
	default:
		return "", "", fmt.Errorf("unknown email template %q", template)
	}
}

// ErrQueueFull is returned when the async dispatch buffer is saturated. The
// caller logs it; the primary state transition has already committed.
var ErrQueueFull = errors.New("notification queue full")

type notification struct {
	template string
	route    string
	user     *domain.User
	extra    map[string]string
}

// AsyncNotifier queues notifications on a buffered channel and delivers them
// from a background worker, so operations never block on email delivery.
// Delivery failures are logged, never surfaced to callers.
type AsyncNotifier struct {
	inner  *Mailer
	logger *slog.Logger

	queue chan notification
	stop  chan struct{}
	wg    sync.WaitGroup
}

func NewAsyncNotifier(inner *Mailer, queueSize int, logger *slog.Logger) *AsyncNotifier {
	return &AsyncNotifier{
		inner:  inner,
		logger: logger.With("component", "notifier"),
		queue:  make(chan notification, queueSize),
		stop:   make(chan struct{}),
	}
}

// Start launches the delivery worker.
func (n *AsyncNotifier) Start() {
	n.wg.Add(1)
	go n.run()
}

func (n *AsyncNotifier) run() {
	defer n.wg.Done()
	for {
		select {
		case msg := <-n.queue:
			n.deliver(msg)
		case <-n.stop:
			// drain what was queued before shutdown
			for {
				select {
				case msg := <-n.queue:
					n.deliver(msg)
				default:
					return
				}
			}
		}
	}
}

func (n *AsyncNotifier) deliver(msg notification) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	if err := n.inner.Send(ctx, msg.template, msg.route, msg.user, msg.extra); err != nil {
		n.logger.Error("email delivery failed",
			"template", msg.template, "to", msg.user.Email, "error", err)
	}
}

// Send enqueues the notification. It returns ErrQueueFull instead of blocking
// when the buffer is saturated.
func (n *AsyncNotifier) Send(_ context.Context, template, route string, user *domain.User, extra map[string]string) error {
	select {
	case n.queue <- notification{template: template, route: route, user: user, extra: extra}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops the worker after draining queued notifications.
func (n *AsyncNotifier) Close() {
	close(n.stop)
	n.wg.Wait()
}
