// internal/notify/notifier.go
package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"muni-flows/internal/common/logger"
)

// Severity classifies outcome notifications shown or sent to the applicant.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
)

// Notification is one outcome message for the applicant.
type Notification struct {
	Severity Severity
	Subject  string
	Body     string
	Email    string
	Phone    string // E.164; SMS is skipped when empty
}

// EmailSender sends a composed email. Satisfied by the SES client.
type EmailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// SMSSender publishes an SMS message. Satisfied by the SNS client.
type SMSSender interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// Notifier delivers submission outcomes over email and SMS. Channel
// failures degrade independently: a dead SMS path never blocks email.
type Notifier struct {
	email      EmailSender
	sms        SMSSender
	logger     logger.Logger
	fromEmail  string
	smsEnabled bool
}

// NewNotifier creates a notifier. Pass a nil SMSSender to disable SMS.
func NewNotifier(email EmailSender, sms SMSSender, fromEmail string, log logger.Logger) *Notifier {
	return &Notifier{
		email:      email,
		sms:        sms,
		logger:     log,
		fromEmail:  fromEmail,
		smsEnabled: sms != nil,
	}
}

// Send delivers the notification over every configured channel. It returns
// an error only when no channel succeeded; partial delivery logs and
// proceeds.
func (n *Notifier) Send(ctx context.Context, note Notification) error {
	var delivered int
	var lastErr error

	if note.Email != "" && n.email != nil {
		if err := n.sendEmail(ctx, note); err != nil {
			n.logger.Error("Email notification failed", map[string]interface{}{
				"recipient": note.Email,
				"severity":  string(note.Severity),
				"error":     err.Error(),
			})
			lastErr = err
		} else {
			delivered++
		}
	}

	if note.Phone != "" && n.smsEnabled {
		if err := n.sendSMS(ctx, note); err != nil {
			n.logger.Error("SMS notification failed", map[string]interface{}{
				"severity": string(note.Severity),
				"error":    err.Error(),
			})
			lastErr = err
		} else {
			delivered++
		}
	}

	if delivered == 0 && lastErr != nil {
		return fmt.Errorf("notification delivery failed on all channels: %w", lastErr)
	}
	return nil
}

func (n *Notifier) sendEmail(ctx context.Context, note Notification) error {
	_, err := n.email.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(n.fromEmail),
		Destination: &sestypes.Destination{ToAddresses: []string{note.Email}},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(note.Subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(note.Body)},
			},
		},
	})
	return err
}

func (n *Notifier) sendSMS(ctx context.Context, note Notification) error {
	_, err := n.sms.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(note.Phone),
		Message:     aws.String(fmt.Sprintf("%s: %s", note.Subject, note.Body)),
	})
	return err
}

// SuccessNotification composes the standard success message for a flow.
func SuccessNotification(flowName, recordID, email, phone string) Notification {
	return Notification{
		Severity: SeveritySuccess,
		Subject:  fmt.Sprintf("%s submitted", flowName),
		Body:     fmt.Sprintf("Your %s application was received. Reference: %s", flowName, recordID),
		Email:    email,
		Phone:    phone,
	}
}

// WarningNotification composes the partial-attachment message: the
// submission itself succeeded.
func WarningNotification(flowName, recordID string, failedAttachments []string, email, phone string) Notification {
	return Notification{
		Severity: SeverityInfo,
		Subject:  fmt.Sprintf("%s submitted with warnings", flowName),
		Body: fmt.Sprintf(
			"Your %s application was received (reference %s), but %d attachment(s) could not be linked: %v. Staff will follow up if copies are needed.",
			flowName, recordID, len(failedAttachments), failedAttachments,
		),
		Email: email,
		Phone: phone,
	}
}

// FailureNotification composes the failure message for a submission stage.
func FailureNotification(flowName, reason, email, phone string) Notification {
	return Notification{
		Severity: SeverityError,
		Subject:  fmt.Sprintf("%s submission failed", flowName),
		Body:     fmt.Sprintf("Your %s application could not be submitted: %s", flowName, reason),
		Email:    email,
		Phone:    phone,
	}
}
