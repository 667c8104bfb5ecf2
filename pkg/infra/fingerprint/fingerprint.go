package fingerprint

import (
	"strings"

	"github.com/avct/uasurfer"
	"github.com/google/uuid"
)

var namespace = uuid.MustParse("6f1c2d4e-9a3b-4c5d-8e7f-0a1b2c3d4e5f")

// Fingerprint identifies an anonymous client. Only the UA family is kept so
// that browser updates do not rotate the id.
type Fingerprint struct {
	IP       string
	UAFamily string
}

func New(ip, userAgent string) Fingerprint {
	return Fingerprint{
		IP:       strings.TrimSpace(ip),
		UAFamily: Family(userAgent),
	}
}

// ID is a deterministic client id. The raw IP never leaves the process.
func (f Fingerprint) ID() string {
	return uuid.NewSHA1(namespace, []byte(f.IP+"|"+f.UAFamily)).String()
}

// Family reduces a User-Agent to "<browser>/<os>/<device>".
func Family(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return "unknown"
	}
	ua := uasurfer.Parse(userAgent)
	return strings.ToLower(ua.Browser.Name.StringTrimPrefix() + "/" +
		ua.OS.Name.StringTrimPrefix() + "/" +
		ua.DeviceType.StringTrimPrefix())
}
