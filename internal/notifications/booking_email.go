package notifications

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"portfolio-backend/internal/models"
)

const bookingRequestTemplate = `<!DOCTYPE html>
<html>
<body>
  <p>New booking request received.</p>
  <ul>
    <li>Name: {{.Name}}</li>
    <li>Email: {{.Email}}</li>
    <li>Topic: {{.Topic}}</li>
    {{if .Details}}<li>Details: {{.Details}}</li>{{end}}
    <li>Date: {{.Date}}</li>
    <li>Time: {{.Time}} ({{.Timezone}})</li>
    <li>Duration: {{.Duration}} minutes</li>
    <li>Reference: {{.ID}}</li>
  </ul>
  <p>Review it in the dashboard to confirm or reject.</p>
</body>
</html>`

const bookingConfirmedTemplate = `<!DOCTYPE html>
<html>
<body>
  <p>Hi {{.Name}},</p>
  <p>Your appointment has been confirmed.</p>
  <ul>
    <li>Topic: {{.Topic}}</li>
    <li>Date: {{.Date}}</li>
    <li>Time: {{.Time}} ({{.Timezone}})</li>
    <li>Duration: {{.Duration}} minutes</li>
    <li>Reference: {{.ID}}</li>
  </ul>
  <p>If you need to reschedule, reply to this email.</p>
</body>
</html>`

var (
	bookingRequestTmpl   = template.Must(template.New("booking_request").Parse(bookingRequestTemplate))
	bookingConfirmedTmpl = template.Must(template.New("booking_confirmed").Parse(bookingConfirmedTemplate))
)

// BookingMailer sends the two booking message kinds: the operator-facing
// "new booking request" and the submitter-facing "booking confirmed".
type BookingMailer struct {
	client        *BrevoClient
	operatorEmail string
	operatorName  string
}

func NewBookingMailer(client *BrevoClient, operatorEmail, operatorName string) *BookingMailer {
	if client == nil {
		return nil
	}
	if strings.TrimSpace(operatorName) == "" {
		operatorName = operatorEmail
	}
	return &BookingMailer{
		client:        client,
		operatorEmail: operatorEmail,
		operatorName:  operatorName,
	}
}

func (m *BookingMailer) SendBookingRequest(ctx context.Context, appt models.Appointment) (string, error) {
	if m == nil {
		return "", errors.New("booking mailer is nil")
	}
	if strings.TrimSpace(m.operatorEmail) == "" {
		return "", errors.New("missing operator email")
	}
	subject := fmt.Sprintf("New booking request - %s on %s", appt.Topic, appt.Date)
	body, err := renderTemplate(bookingRequestTmpl, appt)
	if err != nil {
		return "", err
	}
	return m.client.sendHTML(ctx, m.operatorEmail, m.operatorName, subject, body)
}

func (m *BookingMailer) SendBookingConfirmed(ctx context.Context, appt models.Appointment) (string, error) {
	if m == nil {
		return "", errors.New("booking mailer is nil")
	}
	subject := fmt.Sprintf("Appointment confirmed - %s at %s", appt.Date, appt.Time)
	body, err := renderTemplate(bookingConfirmedTmpl, appt)
	if err != nil {
		return "", err
	}
	return m.client.sendHTML(ctx, appt.Email, appt.Name, subject, body)
}

func renderTemplate(tmpl *template.Template, appt models.Appointment) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, appt); err != nil {
		return "", err
	}
	return buf.String(), nil
}
