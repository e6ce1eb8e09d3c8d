package mail

import (
	"fmt"
	"log"
	"net/smtp"

	"github.com/queryhub/QueryHub/internal/pkg/env"
)

// SendMail sends an email via SMTP
func SendMail(to string, subject string, body string) error {
	host := env.GetEnv("SMTP_HOST", "")
	port := env.GetEnv("SMTP_PORT", "")
	username := env.GetEnv("SMTP_USERNAME", "")
	password := env.GetEnv("SMTP_PASSWORD", "")
	sender := env.GetEnv("SMTP_SENDER", "")

	if sender == "" {
		sender = fmt.Sprintf("no-reply@%s", "localhost")
		log.Printf("SMTP_SENDER not set, using default sender: %s", sender)
	}

	var auth smtp.Auth
	if username != "" && password != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	addr := fmt.Sprintf("%s:%s", host, port)

	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", sender, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	err := smtp.SendMail(addr, auth, sender, []string{to}, msg)
	if err != nil {
		log.Printf("SMTP send error: %v", err)
	} else {
		log.Printf("Email sent to %s via %s", to, addr)
	}
	return err
}

// SendActivationMail sends the account activation link to a new user.
func SendActivationMail(to, token string) error {
	base := env.GetEnv("PUBLIC_DOMAIN", "http://localhost:4000")
	link := fmt.Sprintf("%s/api/v1/auth/activate?token=%s", base, token)
	body := fmt.Sprintf("<p>Welcome to QueryHub!</p><p>Activate your account: <a href=%q>%s</a></p>", link, link)
	return SendMail(to, "Activate your QueryHub account", body)
}

// SendMFACodeMail sends a one-time login code.
func SendMFACodeMail(to, code string) error {
	body := fmt.Sprintf("<p>Your QueryHub login code is <b>%s</b>. It expires in 10 minutes.</p>", code)
	return SendMail(to, "Your QueryHub login code", body)
}

// SendTeamInviteMail notifies a user they were added to a team.
func SendTeamInviteMail(to, teamName string) error {
	body := fmt.Sprintf("<p>You have been added to the team <b>%s</b> on QueryHub.</p>", teamName)
	return SendMail(to, "You were added to a QueryHub team", body)
}
