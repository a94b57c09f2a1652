package wms

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/width"
)

// DefaultInternalBarcodePrefix is the leading segment of generated barcodes
const DefaultInternalBarcodePrefix = "CB"

// MinPlausibleBarcodeLength is the shortest code accepted for auto-provisioning
const MinPlausibleBarcodeLength = 6

// zoneShorthands are the short codes printed on zone placards. Scanning a
// placard by mistake must never create an item.
var zoneShorthands = map[string]struct{}{
	"DAZ": {}, "RTC": {}, "AUT": {}, "IRP": {},
	"ERP": {}, "RDN": {}, "HLD": {}, "OBD": {},
}

// NormalizeScannedCode folds full-width scanner output to ASCII and trims it
func NormalizeScannedCode(raw string) string {
	return strings.TrimSpace(width.Narrow.String(raw))
}

// IsPlausibleBarcode reports whether a scanned code looks like a real item
// barcode rather than a zone placard or scanner noise.
func IsPlausibleBarcode(code string) bool {
	c := NormalizeScannedCode(code)
	if c == "" {
		return false
	}
	upper := strings.ToUpper(c)
	if strings.HasPrefix(upper, "ZONE:") || strings.HasPrefix(upper, "Z:") {
		return false
	}
	if _, ok := zoneShorthands[upper]; ok {
		return false
	}
	if LocationCode(upper).IsActive() || LocationCode(upper).IsLegacy() {
		return false
	}
	if len([]rune(c)) < MinPlausibleBarcodeLength {
		return false
	}
	return strings.IndexFunc(c, unicode.IsDigit) >= 0
}

// AuctionSegment reduces an auction code to the three-character segment used
// in generated barcodes; "00" when nothing usable remains.
func AuctionSegment(auctionCode string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(auctionCode) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() == 3 {
			break
		}
	}
	if b.Len() == 0 {
		return "00"
	}
	return b.String()
}

// InternalBarcodePrefix builds "{prefix}-{yyMMdd}-{auction}" for a date
func InternalBarcodePrefix(prefix string, date time.Time, auctionCode string) string {
	if prefix == "" {
		prefix = DefaultInternalBarcodePrefix
	}
	return fmt.Sprintf("%s-%s-%s", prefix, date.Format("060102"), AuctionSegment(auctionCode))
}

// FormatInternalBarcode appends the zero-padded sequence to a prefix
func FormatInternalBarcode(prefix string, seq int) string {
	return fmt.Sprintf("%s-%04d", prefix, seq)
}

// ParseBarcodeSequence extracts the trailing sequence of a generated barcode
// sharing the given prefix. ok is false for foreign codes.
func ParseBarcodeSequence(prefix, barcode string) (int, bool) {
	rest, found := strings.CutPrefix(barcode, prefix+"-")
	if !found || rest == "" || strings.Contains(rest, "-") {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// SourceNameForAuction maps an auction code to the upstream source name
func SourceNameForAuction(auctionCode string) string {
	switch strings.TrimSpace(auctionCode) {
	case "1":
		return "ecoring"
	case "2":
		return "oaknet"
	case "4":
		return "mekiki"
	case "":
		return "auc-unknown"
	default:
		return "auc-" + strings.TrimSpace(auctionCode)
	}
}

// NewItemUID generates the external-friendly identifier of a new item
func NewItemUID(now time.Time) string {
	return fmt.Sprintf("WMS-%d-%d", now.UnixMilli(), rand.IntN(100000))
}
