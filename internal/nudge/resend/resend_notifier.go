package resend

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/resend/resend-go/v2"

	"github.com/brk3/ghcal/internal/nudge"
)

const DefaultFrom = "onboarding@resend.dev"

type ResendNotifier struct {
	ApiKey string
	Email  string
	From   string
}

const htmlTemplate = `
<p>These contribution streaks end today unless there is a new contribution:</p>
<ul>
{{range .}}
  <li><a href="https://github.com/{{.Identity}}">@{{.Identity}}</a>: {{.Streak}} days{{with .Range}} ({{.Start.Format "January 2"}} &ndash; {{.End.Format "January 2"}}){{end}}</li>
{{end}}
</ul>
`

var emailTmpl = template.Must(template.New("email").Parse(htmlTemplate))

// Render returns the subject and HTML body for a nudge.
func Render(streaks []nudge.AtRisk) (string, string, error) {
	var buf bytes.Buffer
	if err := emailTmpl.Execute(&buf, streaks); err != nil {
		return "", "", err
	}
	subject := fmt.Sprintf("%d contribution streaks end today", len(streaks))
	if len(streaks) == 1 {
		subject = fmt.Sprintf("Your %d day streak for @%s ends today", streaks[0].Streak, streaks[0].Identity)
	}
	return subject, buf.String(), nil
}

func (r *ResendNotifier) SendNudge(_ context.Context, streaks []nudge.AtRisk) error {
	if r.ApiKey == "" || r.Email == "" {
		return fmt.Errorf("resend notifier needs an API key and a recipient")
	}
	subject, body, err := Render(streaks)
	if err != nil {
		return err
	}

	from := r.From
	if from == "" {
		from = DefaultFrom
	}
	client := resend.NewClient(r.ApiKey)
	params := &resend.SendEmailRequest{
		From:    from,
		To:      []string{r.Email},
		Subject: subject,
		Html:    body,
	}

	_, err = client.Emails.Send(params)
	return err
}

var _ nudge.Notifier = (*ResendNotifier)(nil)
