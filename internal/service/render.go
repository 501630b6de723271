package service

import "strings"

// Template placeholders.
const (
	PlaceholderFirstName    = "{{first_name}}"
	PlaceholderBusinessName = "{{business_name}}"
	PlaceholderLink         = "{{link}}"
)

// OptOutNotice is appended to every outbound message.
const OptOutNotice = "Reply STOP to opt out."

// RenderMessage fills the template placeholders and appends the opt-out notice.
func RenderMessage(body, recipientName, businessName, link string) string {
	first := "there"
	if fields := strings.Fields(recipientName); len(fields) > 0 {
		first = fields[0]
	}

	out := strings.NewReplacer(
		PlaceholderFirstName, first,
		PlaceholderBusinessName, businessName,
		PlaceholderLink, link,
	).Replace(body)

	return strings.TrimRight(out, " \n") + "\n\n" + OptOutNotice
}
