package fulfillment

import "strings"

// Carrier is a local carrier code and display title.
type Carrier struct {
	Code  string
	Title string
}

var knownCarriers = map[string]Carrier{
	"USPS":  {Code: "usps", Title: "United States Postal Service"},
	"UPS":   {Code: "ups", Title: "United Parcel Service"},
	"UPSM":  {Code: "ups", Title: "United Parcel Service"},
	"DHL":   {Code: "dhl", Title: "DHL"},
	"FEDEX": {Code: "fedex", Title: "Federal Express"},
}

// ConvertCarrier maps a provider carrier code to a local carrier.
// Unknown codes are lower-cased with spaces replaced by underscores and keep
// the raw code as title.
func ConvertCarrier(remoteCode string) Carrier {
	if c, ok := knownCarriers[remoteCode]; ok {
		return c
	}
	return Carrier{
		Code:  strings.ToLower(strings.ReplaceAll(remoteCode, " ", "_")),
		Title: remoteCode,
	}
}
