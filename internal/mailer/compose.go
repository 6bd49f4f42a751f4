package mailer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sells-group/prospect-cli/internal/model"
)

const (
	// DefaultSubject is used when generated content has no subject line.
	DefaultSubject = "Partnership Opportunity"
	// TestSubject is the subject of the connectivity test message.
	TestSubject = "Prospect - Test Email"

	mockupContentID = "mockup_image"

	testBody = "This is a test email from your lead outreach configuration.\n\nIf you received it, SMTP delivery is working."

	footerRule = `<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">`

	htmlWrapper = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; line-height: 1.6; color: #333;">
%s
` + footerRule + `
<p style="font-size: 12px; color: #888;">This email was sent using an automated outreach system.</p>
</div>`

	mockupBlock = `<div style="text-align: center; margin: 20px 0;">
<p><strong>Custom App Concept Mockup:</strong></p>
<img src="cid:` + mockupContentID + `" alt="App Mockup" style="max-width: 100%; height: auto; border-radius: 8px; box-shadow: 0 4px 8px rgba(0,0,0,0.1);">
</div>`
)

var subjectPrefix = regexp.MustCompile(`(?i)^subject:\s*`)

// ParseEmailContent splits generated text into a subject and body. The first
// line starting with "Subject:" supplies the subject; every other line forms
// the body.
func ParseEmailContent(content string) (subject, body string) {
	subject = DefaultSubject
	lines := strings.Split(content, "\n")
	kept := make([]string, 0, len(lines))
	found := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !found && subjectPrefix.MatchString(trimmed) {
			if s := strings.TrimSpace(subjectPrefix.ReplaceAllString(trimmed, "")); s != "" {
				subject = s
			}
			found = true
			continue
		}
		kept = append(kept, line)
	}
	return subject, strings.TrimSpace(strings.Join(kept, "\n"))
}

// FormatHTMLBody turns a plain-text body into styled HTML paragraphs.
func FormatHTMLBody(body string) string {
	escaped := htmlEscaper.Replace(body)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	escaped = strings.ReplaceAll(escaped, "\n\n", "</p><p>")
	escaped = strings.ReplaceAll(escaped, "\n", "<br>")
	return fmt.Sprintf(htmlWrapper, "<p>"+escaped+"</p>")
}

// withMockup places the inline mockup image after the body text and above the
// footer. HTML without the standard footer gets the image appended.
func withMockup(html string) string {
	i := strings.LastIndex(html, footerRule)
	if i < 0 {
		return html + mockupBlock
	}
	return html[:i] + mockupBlock + "\n" + html[i:]
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// MockupFileName is the attachment name used for a company's mockup.
func MockupFileName(companyName string) string {
	name := strings.Join(strings.Fields(companyName), "_")
	if name == "" {
		name = "Company"
	}
	return name + "_App_Mockup.png"
}

// TestMessage is the connectivity check sent to the account's own address.
func TestMessage(to string) Message {
	return Message{To: to, Subject: TestSubject, HTML: FormatHTMLBody(testBody)}
}

// ComposeLead builds the outreach message for a reviewed lead.
func ComposeLead(lead *model.Lead) (Message, error) {
	if !lead.HasContactEmail() {
		return Message{}, &model.ValidationError{Field: "contact_email", Message: "lead has no contact email"}
	}
	if lead.EmailContent == nil || strings.TrimSpace(*lead.EmailContent) == "" {
		return Message{}, &model.ValidationError{Field: "email_content", Message: "lead has no email content"}
	}

	subject, body := ParseEmailContent(*lead.EmailContent)
	msg := Message{
		To:      *lead.ContactEmail,
		Subject: subject,
		HTML:    FormatHTMLBody(body),
	}
	if lead.MockupPath != nil && *lead.MockupPath != "" {
		msg.Mockup = &Attachment{Path: *lead.MockupPath, FileName: MockupFileName(lead.CompanyName)}
	}
	return msg, nil
}
