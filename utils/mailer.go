package utils

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"strconv"

	"gopkg.in/gomail.v2"

	"leadnexus/models"
)

// Embedded email templates
var emailTemplates = map[string]string{
	"lead_full": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .detail { margin: 6px 0; }
        .detail b { display: inline-block; min-width: 120px; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>New {{.Lead.ProjectType}} Lead — {{.Lead.Zip}}</h2>
    </div>

    <p>Hi {{.Provider.CompanyName}},</p>
    <p>A new customer request matched your service area. One credit has been applied to your account.</p>

    <div class="detail"><b>Name:</b> {{.Lead.FirstName}} {{.Lead.LastName}}</div>
    <div class="detail"><b>Phone:</b> {{.Lead.Phone}}</div>
    <div class="detail"><b>Email:</b> {{.Lead.Email}}</div>
    <div class="detail"><b>Zip:</b> {{.Lead.Zip}}</div>
    <div class="detail"><b>Project:</b> {{.Lead.ProjectType}}</div>
    <div class="detail"><b>Size:</b> {{.Lead.Size}}</div>
    <div class="detail"><b>Timeframe:</b> {{.Lead.Timeframe}}</div>
    <div class="detail"><b>Message:</b> {{.Lead.Message}}</div>

    <div class="footer">
        <p>Lead reference: {{.Lead.Code}}</p>
    </div>
</body>
</html>`,

	"lead_teaser": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .locked { background: #f8f8f8; border: 1px dashed #bbb; padding: 12px; margin: 16px 0; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>New {{.Lead.ProjectType}} Lead in {{.Lead.Zip}}</h2>
    </div>

    <p>Hi {{.Provider.CompanyName}},</p>
    <p>A customer in your service area is looking for {{.Lead.ProjectType}} ({{.Lead.Size}}, {{.Lead.Timeframe}}).</p>

    <div class="locked">
        <p>Contact details are available once your account has credits. Top up to receive this lead in full.</p>
    </div>

    <div class="footer">
        <p>Lead reference: {{.Lead.Code}}</p>
    </div>
</body>
</html>`,

	"lead_purchased": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .detail { margin: 6px 0; }
        .detail b { display: inline-block; min-width: 120px; }
    </style>
</head>
<body>
    <div class="header">
        <h2>Your Purchased Lead</h2>
    </div>

    <p>Thanks for your purchase. Here are the full contact details:</p>

    <div class="detail"><b>Name:</b> {{.Lead.FirstName}} {{.Lead.LastName}}</div>
    <div class="detail"><b>Phone:</b> {{.Lead.Phone}}</div>
    <div class="detail"><b>Email:</b> {{.Lead.Email}}</div>
    <div class="detail"><b>Zip:</b> {{.Lead.Zip}}</div>
    <div class="detail"><b>Project:</b> {{.Lead.ProjectType}}</div>
    <div class="detail"><b>Message:</b> {{.Lead.Message}}</div>
</body>
</html>`,

	"purchase_receipt": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .credits { font-size: 24px; font-weight: bold; color: #27ae60; margin: 20px 0; text-align: center; }
    </style>
</head>
<body>
    <h2>Credits Applied</h2>
    <p>Hi {{.Provider.CompanyName}},</p>
    <div class="credits">+{{.Credits}} credits</div>
    <p>Your balance is now {{.Balance}} credits. New leads in your service area will be delivered in full automatically.</p>
</body>
</html>`,

	"premium_activated": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
    </style>
</head>
<body>
    <h2>Premium Activated</h2>
    <p>Hi {{.Provider.CompanyName}},</p>
    <p>Your account is now verified and receives priority placement. The boost is active until {{.ExpiresAt}}.</p>
</body>
</html>`,

	"operator_alert": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
</head>
<body>
    <h2>{{.Subject}}</h2>
    <pre>{{.Detail}}</pre>
</body>
</html>`,
}

// Mailer delivers every human-facing notification over SMTP. Sends are
// best-effort by contract: callers log failures and move on.
type Mailer struct {
	dialer        *gomail.Dialer
	fromEmail     string
	operatorEmail string
	logger        *log.Logger
}

func NewMailer(host, port, username, password, fromEmail, operatorEmail string, logger *log.Logger) *Mailer {
	portNum, err := strconv.Atoi(port)
	if err != nil {
		portNum = 587
	}
	return &Mailer{
		dialer:        gomail.NewDialer(host, portNum, username, password),
		fromEmail:     fromEmail,
		operatorEmail: operatorEmail,
		logger:        logger,
	}
}

// Send delivers one message with an HTML body and a plain-text alternative.
func (m *Mailer) Send(to, subject, htmlBody, textBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.fromEmail)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", textBody)
	msg.AddAlternative("text/html", htmlBody)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

func (m *Mailer) SendLeadFull(provider *models.Provider, lead *models.Lead) error {
	subject := fmt.Sprintf("New %s lead in %s", lead.ProjectType, lead.Zip)
	html, err := renderTemplate("lead_full", map[string]interface{}{
		"Subject": subject, "Provider": provider, "Lead": lead,
	})
	if err != nil {
		return err
	}
	text := fmt.Sprintf("New lead %s: %s %s, %s, %s, zip %s, %s",
		lead.Code, lead.FirstName, lead.LastName, lead.Phone, lead.Email, lead.Zip, lead.ProjectType)
	return m.Send(provider.Email, subject, html, text)
}

func (m *Mailer) SendLeadTeaser(provider *models.Provider, lead *models.Lead) error {
	subject := fmt.Sprintf("New %s lead in %s — top up to unlock", lead.ProjectType, lead.Zip)
	html, err := renderTemplate("lead_teaser", map[string]interface{}{
		"Subject": subject, "Provider": provider, "Lead": lead,
	})
	if err != nil {
		return err
	}
	text := fmt.Sprintf("A new %s lead in %s is waiting. Top up your credits to receive the contact details.",
		lead.ProjectType, lead.Zip)
	return m.Send(provider.Email, subject, html, text)
}

func (m *Mailer) SendLeadToBuyer(email string, lead *models.Lead) error {
	subject := "Your purchased lead " + lead.Code
	html, err := renderTemplate("lead_purchased", map[string]interface{}{
		"Subject": subject, "Lead": lead,
	})
	if err != nil {
		return err
	}
	text := fmt.Sprintf("Lead %s: %s %s, %s, %s", lead.Code, lead.FirstName, lead.LastName, lead.Phone, lead.Email)
	return m.Send(email, subject, html, text)
}

func (m *Mailer) SendPurchaseReceipt(provider *models.Provider, credits int, balance int) error {
	subject := fmt.Sprintf("%d credits added to your account", credits)
	html, err := renderTemplate("purchase_receipt", map[string]interface{}{
		"Subject": subject, "Provider": provider, "Credits": credits, "Balance": balance,
	})
	if err != nil {
		return err
	}
	text := fmt.Sprintf("%d credits added. Your balance is now %d.", credits, balance)
	return m.Send(provider.Email, subject, html, text)
}

func (m *Mailer) SendPremiumActivated(provider *models.Provider) error {
	subject := "You're verified — premium is active"
	expires := ""
	if provider.PremiumExpiresAt != nil {
		expires = provider.PremiumExpiresAt.Format("January 2, 2006")
	}
	html, err := renderTemplate("premium_activated", map[string]interface{}{
		"Subject": subject, "Provider": provider, "ExpiresAt": expires,
	})
	if err != nil {
		return err
	}
	return m.Send(provider.Email, subject, html, "Your account is now verified with priority placement.")
}

func (m *Mailer) SendOperatorAlert(subject, detail string) error {
	if m.operatorEmail == "" {
		m.logger.Printf("operator alert dropped (no operator email configured): %s", subject)
		return nil
	}
	html, err := renderTemplate("operator_alert", map[string]interface{}{
		"Subject": subject, "Detail": detail,
	})
	if err != nil {
		return err
	}
	return m.Send(m.operatorEmail, subject, html, subject+"\n\n"+detail)
}

func renderTemplate(name string, data interface{}) (string, error) {
	raw, ok := emailTemplates[name]
	if !ok {
		return "", fmt.Errorf("unknown email template %q", name)
	}
	tmpl, err := template.New(name).Parse(raw)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
