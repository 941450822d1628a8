// internal/service/template_service.go
package service

import (
    "strings"
    "unicode/utf8"
)

// DefaultCheckoutNameTemplate names the checkout line item.
const DefaultCheckoutNameTemplate = "Donation to: {title}"

// checkoutDescriptionLength is the number of runes of the campaign
// description shown on the checkout page.
const checkoutDescriptionLength = 100

// RenderTemplate replaces {key} placeholders with the values in data.
// Unknown placeholders are left as they are.
func RenderTemplate(template string, data map[string]string) string {
    result := template
    for k, v := range data {
        result = strings.ReplaceAll(result, "{"+k+"}", v)
    }
    return result
}

// truncateRunes cuts s to n runes and marks the cut with "...".
func truncateRunes(s string, n int) string {
    if utf8.RuneCountInString(s) <= n {
        return s
    }
    return string([]rune(s)[:n]) + "..."
}
