package email

import (
	"context"
	"errors"
	"fmt"
	"html"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/gomail.v2"

	"github.com/OliSalles/StoryTeller/internal/application/billing/usecases"
	"github.com/OliSalles/StoryTeller/internal/shared/biztime"
	"github.com/OliSalles/StoryTeller/internal/shared/config"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
)

var ErrEmailServiceNotConfigured = errors.New("email service not configured")

type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
	BaseURL     string // Base URL for email links (e.g., "http://localhost:3000")
}

// SMTPConfigFrom maps the email section of the application config.
func SMTPConfigFrom(cfg config.EmailConfig, baseURL string) SMTPConfig {
	return SMTPConfig{
		Host:        cfg.SMTPHost,
		Port:        cfg.SMTPPort,
		Username:    cfg.SMTPUser,
		Password:    cfg.SMTPPassword,
		FromAddress: cfg.FromAddress,
		FromName:    cfg.FromName,
		BaseURL:     baseURL,
	}
}

// SMTPBillingNotifier sends billing notices over SMTP. It implements usecases.BillingNotifier.
type SMTPBillingNotifier struct {
	config  SMTPConfig
	send    func(m *gomail.Message) error
	printer *message.Printer
	logger  logger.Interface
}

func NewSMTPBillingNotifier(config SMTPConfig, logger logger.Interface) *SMTPBillingNotifier {
	n := &SMTPBillingNotifier{
		config:  config,
		printer: message.NewPrinter(language.English),
		logger:  logger,
	}
	if config.Host != "" {
		dialer := gomail.NewDialer(config.Host, config.Port, config.Username, config.Password)
		n.send = func(m *gomail.Message) error { return dialer.DialAndSend(m) }
	}
	return n
}

func (s *SMTPBillingNotifier) NotifySubscriptionActivated(ctx context.Context, cmd usecases.SubscriptionActivatedNotice) error {
	plan := html.EscapeString(cmd.PlanDisplayName)
	periodEnd := cmd.CurrentPeriodEnd.In(biztime.Location()).Format("02/01/2006")
	accountURL := s.config.BaseURL + "/account/subscription"

	subject := fmt.Sprintf("Your %s subscription is active", cmd.PlanDisplayName)
	status := "Your subscription is now active."
	if cmd.Trialing {
		status = "Your free trial has started."
	}

	htmlBody := fmt.Sprintf(`
		<html>
		<body>
			<h2>Welcome to StoryTeller %s!</h2>
			<p>%s</p>
			<p>Billing cycle: %s</p>
			<p>Current period ends on %s.</p>
			<p><a href="%s">Manage your subscription</a></p>
		</body>
		</html>
	`, plan, status, html.EscapeString(cmd.BillingCycle), periodEnd, accountURL)

	plainBody := fmt.Sprintf(`
Welcome to StoryTeller %s!

%s
Billing cycle: %s
Current period ends on %s.

Manage your subscription: %s
	`, cmd.PlanDisplayName, status, cmd.BillingCycle, periodEnd, accountURL)

	return s.sendEmail(cmd.Email, subject, htmlBody, plainBody)
}

func (s *SMTPBillingNotifier) NotifyPaymentSucceeded(ctx context.Context, cmd usecases.PaymentNotice) error {
	amount := s.formatAmount(cmd.Amount, cmd.Currency)
	paidAt := cmd.PaidAt.In(biztime.Location()).Format("02/01/2006 15:04")

	subject := "Payment received"
	htmlBody := fmt.Sprintf(`
		<html>
		<body>
			<h2>Payment received</h2>
			<p>We received your payment of <strong>%s</strong> on %s.</p>
			<p>Invoice: %s</p>
			<p>Your token allowance has been renewed for the new period.</p>
		</body>
		</html>
	`, amount, paidAt, html.EscapeString(cmd.InvoiceID))

	plainBody := fmt.Sprintf(`
Payment received

We received your payment of %s on %s.
Invoice: %s

Your token allowance has been renewed for the new period.
	`, amount, paidAt, cmd.InvoiceID)

	return s.sendEmail(cmd.Email, subject, htmlBody, plainBody)
}

func (s *SMTPBillingNotifier) NotifyPaymentFailed(ctx context.Context, cmd usecases.PaymentNotice) error {
	amount := s.formatAmount(cmd.Amount, cmd.Currency)
	portalURL := s.config.BaseURL + "/account/subscription"

	subject := "Payment failed"
	htmlBody := fmt.Sprintf(`
		<html>
		<body>
			<h2>We could not process your payment</h2>
			<p>The charge of <strong>%s</strong> for invoice %s failed:</p>
			<p>%s</p>
			<p>Please <a href="%s">update your payment method</a> to keep your plan.</p>
		</body>
		</html>
	`, amount, html.EscapeString(cmd.InvoiceID), html.EscapeString(cmd.ErrorMessage), portalURL)

	plainBody := fmt.Sprintf(`
We could not process your payment

The charge of %s for invoice %s failed: %s

Update your payment method: %s
	`, amount, cmd.InvoiceID, cmd.ErrorMessage, portalURL)

	return s.sendEmail(cmd.Email, subject, htmlBody, plainBody)
}

// formatAmount renders minor units, e.g. 499000 BRL as "BRL 4,990.00".
func (s *SMTPBillingNotifier) formatAmount(amount int64, currency string) string {
	return s.printer.Sprintf("%s %.2f", currency, float64(amount)/100)
}

func (s *SMTPBillingNotifier) sendEmail(to, subject, htmlBody, plainBody string) error {
	if s.send == nil {
		s.logger.Warnw("email service not configured, dropping notice", "to", to, "subject", subject)
		return ErrEmailServiceNotConfigured
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.config.FromAddress, s.config.FromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", plainBody)
	m.AddAlternative("text/html", htmlBody)

	if err := s.send(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Debugw("billing email sent", "to", to, "subject", subject)
	return nil
}

var _ usecases.BillingNotifier = (*SMTPBillingNotifier)(nil)
