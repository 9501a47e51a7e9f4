// Package notify renders invitation and reminder emails and hands them to a
// Sender.
package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"evite/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var emailTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// TokenFunc returns the RSVP token embedded in a guest's link.
type TokenFunc func(guestID int64) (string, error)

// RawToken uses the decimal guest id as token.
func RawToken(guestID int64) (string, error) {
	return strconv.FormatInt(guestID, 10), nil
}

type Options struct {
	// BaseURL is the absolute origin used for RSVP links.
	BaseURL string
	Timeout time.Duration
	Token   TokenFunc
	// AssetURL resolves an invitation image path to an absolute URL. Optional.
	AssetURL func(path string) string
}

type Dispatcher struct {
	sender Sender
	opts   Options
}

func NewDispatcher(sender Sender, opts Options) *Dispatcher {
	if opts.Token == nil {
		opts.Token = RawToken
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	opts.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	return &Dispatcher{sender: sender, opts: opts}
}

// Report summarises a batch send.
type Report struct {
	Attempted int
	Sent      int
	Failed    []string
}

func (r *Report) add(email string, ok bool) {
	r.Attempted++
	if ok {
		r.Sent++
	} else {
		r.Failed = append(r.Failed, email)
	}
}

type emailData struct {
	Invitation models.Invitation
	Guest      models.Guest
	EventName  string
	ImageURL   string
	RSVPLink   string
}

// SendInvitation emails guest the invitation. Failures are logged and
// reported as false.
func (d *Dispatcher) SendInvitation(ctx context.Context, inv models.Invitation, guest models.Guest) bool {
	subject := fmt.Sprintf("You're invited to %s!", clean(inv.EventName))
	return d.send(ctx, "invitation.html", subject, inv, guest)
}

// SendReminder emails guest a reminder to answer.
func (d *Dispatcher) SendReminder(ctx context.Context, inv models.Invitation, guest models.Guest) bool {
	subject := fmt.Sprintf("Reminder: RSVP for %s", clean(inv.EventName))
	return d.send(ctx, "reminder.html", subject, inv, guest)
}

// ResendAll sends the invitation to every guest, continuing past failures.
func (d *Dispatcher) ResendAll(ctx context.Context, inv models.Invitation, guests []models.Guest) Report {
	var report Report
	for _, g := range guests {
		report.add(g.Email, d.SendInvitation(ctx, inv, g))
	}
	return report
}

// SendReminders sends a reminder to each guest that has not answered yet.
func (d *Dispatcher) SendReminders(ctx context.Context, inv models.Invitation, guests []models.Guest) Report {
	var report Report
	for _, g := range guests {
		if g.Answered() {
			continue
		}
		report.add(g.Email, d.SendReminder(ctx, inv, g))
	}
	return report
}

func (d *Dispatcher) send(ctx context.Context, tmpl, subject string, inv models.Invitation, guest models.Guest) bool {
	to := clean(guest.Email)
	logger := zerolog.Ctx(ctx).With().
		Str("component", "notify").
		Int64("invitation_id", inv.ID).
		Int64("guest_id", guest.ID).
		Str("to", to).
		Logger()

	body, err := d.render(tmpl, inv, guest)
	if err != nil {
		logger.Error().Err(err).Str("template", tmpl).Msg("render email")
		return false
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
	defer cancel()
	if err := d.sender.Send(sendCtx, Message{To: to, Subject: subject, HTML: body}); err != nil {
		logger.Error().Err(err).Msg("failed to send email")
		return false
	}
	logger.Debug().Str("subject", subject).Msg("email sent")
	return true
}

func (d *Dispatcher) render(tmpl string, inv models.Invitation, guest models.Guest) (string, error) {
	token, err := d.opts.Token(guest.ID)
	if err != nil {
		return "", fmt.Errorf("rsvp token: %w", err)
	}
	data := emailData{
		Invitation: inv,
		Guest:      guest,
		EventName:  clean(inv.EventName),
		RSVPLink:   d.opts.BaseURL + "/rsvp/" + token,
	}
	if d.opts.AssetURL != nil && inv.ImagePath != "" {
		data.ImageURL = d.opts.AssetURL(inv.ImagePath)
	}

	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, tmpl, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// clean replaces non-breaking spaces with plain spaces.
func clean(s string) string {
	return strings.ReplaceAll(s, "\u00a0", " ")
}
