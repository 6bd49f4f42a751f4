package scrape

import (
	"context"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// MXChecker reports whether an email's domain accepts mail.
type MXChecker interface {
	HasMX(ctx context.Context, email string) bool
}

// DNSMXChecker queries MX records against a fixed list of resolvers.
type DNSMXChecker struct {
	servers []string
	client  *dns.Client
}

// NewDNSMXChecker creates a checker. Servers are host:port pairs tried in
// order.
func NewDNSMXChecker(servers []string) *DNSMXChecker {
	if len(servers) == 0 {
		servers = []string{"8.8.8.8:53", "1.1.1.1:53"}
	}
	return &DNSMXChecker{
		servers: servers,
		client:  &dns.Client{Timeout: 3 * time.Second},
	}
}

// HasMX returns true when any resolver answers the MX query for the email's
// domain with at least one record.
func (c *DNSMXChecker) HasMX(ctx context.Context, email string) bool {
	at := strings.LastIndexByte(email, '@')
	if at < 0 || at == len(email)-1 {
		return false
	}
	domain := strings.TrimSpace(email[at+1:])

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), dns.TypeMX)
	msg.RecursionDesired = true

	for _, server := range c.servers {
		resp, _, err := c.client.ExchangeContext(ctx, msg, server)
		if err != nil || resp == nil {
			continue
		}
		if resp.Rcode == dns.RcodeSuccess && len(resp.Answer) > 0 {
			return true
		}
		if resp.Rcode == dns.RcodeNameError {
			return false
		}
	}
	return false
}
