package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/models"
	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESClient is the subset of the SES API used to send mail
type SESClient interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// AWSSESEmailService sends password reset emails using AWS SES
type AWSSESEmailService struct {
	sesClient   SESClient
	fromAddress string
	resetURL    string
	logger      *slog.Logger
}

// NewAWSSESEmailService creates a new AWS SES email service
func NewAWSSESEmailService(ctx context.Context, region, fromAddress, resetURL string, logger *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewEmailServiceWithClient(ses.NewFromConfig(cfg), fromAddress, resetURL, logger), nil
}

// NewEmailServiceWithClient creates an email service around an existing client
func NewEmailServiceWithClient(client SESClient, fromAddress, resetURL string, logger *slog.Logger) *AWSSESEmailService {
	return &AWSSESEmailService{
		sesClient:   client,
		fromAddress: fromAddress,
		resetURL:    resetURL,
		logger:      logger,
	}
}

func (s *AWSSESEmailService) resetLink(user *models.User, token string) string {
	q := url.Values{}
	q.Set("username", user.Username)
	q.Set("changePasswordToken", token)
	return s.resetURL + "?" + q.Encode()
}

// SendPasswordResetEmail mails the reset link for user
func (s *AWSSESEmailService) SendPasswordResetEmail(ctx context.Context, user *models.User, token string, expiresAt time.Time) error {
	link := s.resetLink(user, token)
	expires := expiresAt.UTC().Format(time.RFC1123)

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .button { display: inline-block; background-color: #0066cc; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; margin: 20px 0; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Reset your password</h1>
        <p>Hello %s,</p>
        <p>A password reset was requested for your account. Your current password no longer works until you choose a new one.</p>
        <p><a href="%s" class="button">Choose a new password</a></p>
        <p>This link expires %s.</p>
        <div class="footer">
            <p>If you did not request this, contact your administrator.</p>
        </div>
    </div>
</body>
</html>
`, user.FirstName, link, expires)

	textBody := fmt.Sprintf(`Reset your password

Hello %s,

A password reset was requested for your account. Your current password no longer works until you choose a new one:

%s

This link expires %s.

If you did not request this, contact your administrator.
`, user.FirstName, link, expires)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{user.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Reset your password"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(htmlBody),
				},
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send password reset email via SES",
			slog.String("email", logger.SanitizedEmail(user.Email)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("password reset email sent",
		slog.String("email", logger.SanitizedEmail(user.Email)),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}
