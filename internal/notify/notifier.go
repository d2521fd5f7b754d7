// Package notify delivers error reports to mail and chat channels.
// Delivery is best-effort: the ingestion path never fails because a
// channel is down.
package notify

import (
	"context"
	"log"
	"time"

	"github.com/errsight/errsight/internal/analysis"
)

// Severity values for events.
const (
	SeverityError   = "error"
	SeveritySuccess = "success"
	SeverityInfo    = "info"
)

// Notifier is the interface that channel implementations satisfy. Each
// adapter renders an already-formatted event in its platform-native form
// and posts it.
type Notifier interface {
	// Name identifies the channel in logs.
	Name() string

	// Send delivers one event. Errors are reported to the caller, which
	// decides whether to tolerate them.
	Send(ctx context.Context, ev Event) error
}

// Event is a formatted notification ready for any channel.
type Event struct {
	Title    string
	Body     string
	Severity string
	Color    string
	Fields   []Field
}

// Field is a key-value pair displayed alongside an event.
type Field struct {
	Name  string
	Value string
	Short bool
}

// Report carries everything the channels need about one analyzed error.
type Report struct {
	ProjectName string
	LogID       string
	RawError    string
	Location    string
	Stack       string
	Provider    string
	Model       string
	Analysis    analysis.Result
	Timestamp   time.Time
}

// MailConfig is the per-project SMTP identity resolved by the caller.
type MailConfig struct {
	Username string
	Password string
	To       string
}

// Dispatcher fans notifications out to the configured channels.
type Dispatcher struct {
	mailer   Mailer
	channels []Notifier
}

// NewDispatcher creates a dispatcher over a mail transport and zero or
// more chat channels.
func NewDispatcher(mailer Mailer, channels ...Notifier) *Dispatcher {
	return &Dispatcher{mailer: mailer, channels: channels}
}

// ReportAnalyzed delivers a report to the project's mail address (when
// mail is non-nil) and to every deployment channel. Every failure is
// logged and swallowed; the persisted log entry is the source of truth
// regardless of delivery outcome.
func (d *Dispatcher) ReportAnalyzed(ctx context.Context, r Report, mail *MailConfig) {
	if mail != nil {
		if err := d.mailer.Send(ctx, *mail, reportSubject(r), reportHTML(r)); err != nil {
			log.Printf("notify: mail to %s failed: %v", mail.To, err)
		}
	}
	ev := reportEvent(r)
	for _, ch := range d.channels {
		if err := ch.Send(ctx, ev); err != nil {
			log.Printf("notify: %s channel failed: %v", ch.Name(), err)
		}
	}
}

// SendTestMail verifies the SMTP credentials by connecting and sending a
// test message. Unlike ReportAnalyzed, errors surface to the caller;
// this is how operators find out their configuration is broken.
func (d *Dispatcher) SendTestMail(ctx context.Context, mail MailConfig) error {
	if err := d.mailer.Verify(ctx, mail); err != nil {
		return friendlyMailError(err)
	}
	if err := d.mailer.Send(ctx, mail, testMailSubject, testMailHTML(mail)); err != nil {
		return friendlyMailError(err)
	}
	return nil
}

// Digest posts a periodic activity summary to the deployment channels.
func (d *Dispatcher) Digest(ctx context.Context, rep *DailyReport) {
	ev := digestEvent(rep)
	for _, ch := range d.channels {
		if err := ch.Send(ctx, ev); err != nil {
			log.Printf("notify: %s digest failed: %v", ch.Name(), err)
		}
	}
}
