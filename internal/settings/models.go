// Package settings holds the site configuration registry: a small key/value
// table with a fixed set of publicly readable keys.
package settings

import "time"

// Setting is one stored key/value pair.
type Setting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// Public keys. Only these are ever served to unauthenticated callers; the
// admin surface reads and writes the full table.
const (
	KeyWhatsappLink         = "whatsapp_link"
	KeyBitPhone             = "bit_phone"
	KeyAdminEmail           = "admin_email"
	KeySiteTitle            = "site_title"
	KeyMemorialCounterStart = "memorial_counter_start"
)

// PublicDefaults returns the built-in value for every public key. The map is
// freshly allocated on each call so callers may overlay stored values onto it.
func PublicDefaults() map[string]string {
	return map[string]string{
		KeyWhatsappLink:         "https://chat.whatsapp.com/LNmVCXvv35S9SsbWTol2qW",
		KeyBitPhone:             "0502277660",
		KeyAdminEmail:           "gmarupil@gmail.com",
		KeySiteTitle:            "גמראפ - לימוד גמרא לכל אחד",
		KeyMemorialCounterStart: "2500",
	}
}
