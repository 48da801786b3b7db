package emails

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"helpmate-backend/internal/domain"
)

const brevoAPI = "https://api.brevo.com/v3/smtp/email"

// BrevoSendRequest matches Brevo API v3 send transactional email body.
type BrevoSendRequest struct {
	Sender      BrevoSender   `json:"sender"`
	To          []BrevoTo     `json:"to"`
	Subject     string        `json:"subject"`
	HTMLContent string        `json:"htmlContent"`
	ReplyTo     *BrevoReplyTo `json:"replyTo,omitempty"`
}

type BrevoSender struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type BrevoTo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type BrevoReplyTo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// BrevoClient sends emails via Brevo (Sendinblue) API. An empty APIKey turns
// every send into a no-op.
type BrevoClient struct {
	APIKey   string
	MailFrom string
	Endpoint string
	Client   *http.Client
}

func NewBrevoClient(apiKey, mailFrom string) *BrevoClient {
	return &BrevoClient{APIKey: apiKey, MailFrom: mailFrom}
}

func (c *BrevoClient) from() string {
	if c.MailFrom != "" {
		return c.MailFrom
	}
	return "noreply@helpmate.app"
}

func (c *BrevoClient) endpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return brevoAPI
}

// send sends one email via Brevo API.
func (c *BrevoClient) send(ctx context.Context, toEmail, toName, subject, html string) error {
	if c.APIKey == "" {
		return nil
	}
	body := BrevoSendRequest{
		Sender:      BrevoSender{Email: c.from(), Name: "HelpMate"},
		To:          []BrevoTo{{Email: toEmail, Name: toName}},
		Subject:     subject,
		HTMLContent: html,
		ReplyTo:     &BrevoReplyTo{Email: "support@helpmate.app", Name: "HelpMate Support"},
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("brevo send failed: status %d", resp.StatusCode)
	}
	return nil
}

// SendWelcome greets a newly registered account.
func (c *BrevoClient) SendWelcome(ctx context.Context, u *domain.User) error {
	if c.APIKey == "" {
		return nil
	}
	return c.send(ctx, u.Email, u.Fullname, "Welcome to HelpMate!", EmailLayout(welcomeContent(firstName(u.Fullname), u.Role)))
}

// NotifyDecision tells the applicant whether they were approved or refused.
func (c *BrevoClient) NotifyDecision(ctx context.Context, project domain.Project, app domain.Application) error {
	if c.APIKey == "" {
		return nil
	}
	var subject, content string
	switch app.Status {
	case domain.ApplicationApproved:
		subject = fmt.Sprintf("You're on the team for %s", project.Title)
		content = approvedContent(firstName(app.ApplicantName), project)
	case domain.ApplicationRefused:
		subject = fmt.Sprintf("Update on your application to %s", project.Title)
		content = refusedContent(firstName(app.ApplicantName), project.Title)
	default:
		return nil
	}
	return c.send(ctx, app.ApplicantEmail, app.ApplicantName, subject, EmailLayout(content))
}

func firstName(fullname string) string {
	for i, r := range fullname {
		if r == ' ' {
			return fullname[:i]
		}
	}
	if fullname == "" {
		return "there"
	}
	return fullname
}

func welcomeContent(name, role string) string {
	next := "Complete your profile with your phone, city and skills so you can start applying to projects."
	if role == "organizer" {
		next = "Create your first project and start building your volunteer team."
	}
	return fmt.Sprintf(`
    <h1>Welcome to HelpMate, %s!</h1>
    <p>Your account is ready. %s</p>
    <p>The HelpMate Team</p>
`, EscapeHTML(name), next)
}

func approvedContent(name string, project domain.Project) string {
	where := ""
	if project.Location != "" {
		where = fmt.Sprintf(" in <strong>%s</strong>", EscapeHTML(project.Location))
	}
	return fmt.Sprintf(`
    <h1>Good news, %s!</h1>
    <p>Your application to <strong>%s</strong>%s has been approved. The organizer will be in touch with the details of your first shift.</p>
    <p>The HelpMate Team</p>
`, EscapeHTML(name), EscapeHTML(project.Title), where)
}

func refusedContent(name, title string) string {
	return fmt.Sprintf(`
    <h1>Hi %s,</h1>
    <p>Thank you for applying to <strong>%s</strong>. The organizer was not able to accept your application this time.</p>
    <p>There are many other projects looking for help; have a look and apply to the next one.</p>
    <p>The HelpMate Team</p>
`, EscapeHTML(name), EscapeHTML(title))
}
