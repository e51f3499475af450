package pseudonym

import (
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/tinymask/internal/crypto"
)

// Pseudonym format constants. Fixed prefixes and lengths keep pseudonyms
// distinctive enough to find in free text.
const (
	HostnamePrefix = "host-"
	HostnameSuffix = ".local"
	UsernamePrefix = "user_"
	EmailPrefix    = "mail-"
	EmailDomain    = "pseudonym.invalid"
	GenericPrefix  = "anon-"

	// TokenLength is the hash-derived part of hostname, username and email pseudonyms.
	TokenLength = 12
	// GenericTokenLength is the hash-derived part of generic pseudonyms.
	GenericTokenLength = 16

	// IPFirstOctetMin and IPFirstOctetMax bound IP pseudonyms to the reserved
	// 240.0.0.0/4 block, excluding the limited broadcast address range.
	IPFirstOctetMin = 240
	IPFirstOctetMax = 254
)

// MaxDisambiguators bounds collision retries for a single value.
const MaxDisambiguators = 64

var tokenEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// derive is a pure function of (key, value, type, n). The key is derived
// from the salt, so two engines sharing a salt derive identical candidates.
func derive(key []byte, value string, t ValueType, n int) (string, error) {
	var nBuf [8]byte
	binary.BigEndian.PutUint64(nBuf[:], uint64(n))

	sum, err := crypto.Digest(key, []byte(t), []byte(value), nBuf[:])
	if err != nil {
		return "", err
	}
	token := strings.ToLower(tokenEncoding.EncodeToString(sum))

	switch t {
	case TypeHostname:
		return HostnamePrefix + token[:TokenLength] + HostnameSuffix, nil
	case TypeUsername:
		return UsernamePrefix + token[:TokenLength], nil
	case TypeEmail:
		return EmailPrefix + token[:TokenLength] + "@" + EmailDomain, nil
	case TypeGeneric:
		return GenericPrefix + token[:GenericTokenLength], nil
	case TypeIP:
		span := IPFirstOctetMax - IPFirstOctetMin + 1
		first := IPFirstOctetMin + int(sum[0])%span
		return fmt.Sprintf("%d.%d.%d.%d", first, sum[1], sum[2], sum[3]), nil
	}
	return "", fmt.Errorf("%w: unknown value type %q", ErrInvalidInput, t)
}
