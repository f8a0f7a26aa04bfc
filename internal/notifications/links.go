package notifications

import (
	"fmt"
	"net/url"
	"strings"
)

// WhatsAppLink builds a wa.me deep link with a prefilled message.
// wa.me accepts digits only, so the phone is stripped of formatting.
// Returns empty when no usable digits remain.
func WhatsAppLink(phone, text string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	if digits == "" {
		return ""
	}
	link := "https://wa.me/" + digits
	if text != "" {
		link += "?text=" + url.QueryEscape(text)
	}
	return link
}

// MailtoLink builds a mailto URL with subject and body prefilled.
func MailtoLink(email, subject, body string) string {
	if email == "" {
		return ""
	}
	params := url.Values{}
	if subject != "" {
		params.Set("subject", subject)
	}
	if body != "" {
		params.Set("body", body)
	}
	if len(params) == 0 {
		return "mailto:" + email
	}
	return fmt.Sprintf("mailto:%s?%s", email, params.Encode())
}
