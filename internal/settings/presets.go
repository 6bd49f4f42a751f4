package settings

import "github.com/sells-group/prospect-cli/internal/mailer"

// Provider presets for common hosted mailboxes. "custom" uses the SMTP fields
// from settings verbatim.
var providerPresets = map[string]mailer.Server{
	"gmail":   {Host: "smtp.gmail.com", Port: 587},
	"outlook": {Host: "smtp-mail.outlook.com", Port: 587},
	"yahoo":   {Host: "smtp.mail.yahoo.com", Port: 587},
}

// SMTPServer resolves the outgoing mail server for the configured provider.
func (s Settings) SMTPServer() mailer.Server {
	if preset, ok := providerPresets[s.EmailProvider]; ok {
		return preset
	}
	return mailer.Server{Host: s.SMTPHost, Port: s.SMTPPort, SSL: s.SMTPSecure}
}

// MailerConfig builds the mailer configuration from settings.
func (s Settings) MailerConfig() mailer.Config {
	return mailer.Config{
		Server:      s.SMTPServer(),
		Username:    s.EmailUser,
		Password:    s.EmailPassword,
		FromName:    s.SenderName,
		FromAddress: s.EmailUser,
	}
}

// MailConfigured reports whether enough is set to attempt delivery.
func (s Settings) MailConfigured() bool {
	srv := s.SMTPServer()
	return srv.Host != "" && s.EmailUser != "" && s.EmailPassword != ""
}
