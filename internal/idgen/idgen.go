// Package idgen produces identifiers in the formats used by the emulated
// providers. Values are random, structure is fixed, generation cannot fail.
package idgen

import (
	"encoding/base64"
	"encoding/binary"
	"math/rand/v2"
	"strings"
	"time"
)

const (
	AccountNumberPrefix = "2223"
	AccountNumberLength = 14
	BankCode            = "YESB"
	UPIHandleSuffix     = "@yesbank"
	UTRPrefix           = "UTR"
	MessageIDPrefix     = "wamid."
	PickupTokenPrefix   = "PKP"
	DefaultAWBPrefix    = "SR"
	AWBLength           = 12

	alphanumUpper = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxHandleBase = 20
)

// awbPrefixes maps courier company ids to the prefix each courier stamps on its AWBs.
var awbPrefixes = map[string]string{
	"1":  "BD",
	"2":  "DL",
	"3":  "XB",
	"4":  "EK",
	"5":  "SF",
	"10": "DT",
}

func digits(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(byte('0' + rand.IntN(10)))
	}
	return b.String()
}

func AccountNumber() string {
	return AccountNumberPrefix + digits(AccountNumberLength-len(AccountNumberPrefix))
}

func IFSC() string {
	branch := make([]byte, 6)
	for i := range branch {
		branch[i] = alphanumUpper[rand.IntN(len(alphanumUpper))]
	}
	return BankCode + "0" + string(branch)
}

// UPIHandle derives a VPA from the customer id: lowercased, restricted to
// [a-z0-9.], followed by a 3-4 digit suffix and the provider handle.
func UPIHandle(customerID string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(customerID) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
		if b.Len() >= maxHandleBase {
			break
		}
	}
	base := b.String()
	if base == "" {
		base = "user"
	}
	return base + digits(3+rand.IntN(2)) + UPIHandleSuffix
}

func UTR(t time.Time) string {
	return UTRPrefix + t.Format("20060102") + digits(8)
}

func AWB(courierID string) string {
	prefix, ok := awbPrefixes[courierID]
	if !ok {
		prefix = DefaultAWBPrefix
	}
	return prefix + digits(AWBLength-len(prefix))
}

func MessageID() string {
	raw := make([]byte, 24)
	for i := 0; i < len(raw); i += 8 {
		binary.BigEndian.PutUint64(raw[i:], rand.Uint64())
	}
	return MessageIDPrefix + base64.RawURLEncoding.EncodeToString(raw)
}

// NumericID returns a positive 9-digit integer, the shape of provider order and shipment ids.
func NumericID() int64 {
	return 100_000_000 + rand.Int64N(900_000_000)
}

func PickupToken() string {
	return PickupTokenPrefix + digits(10)
}
