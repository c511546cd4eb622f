package helpers

import (
	"strings"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

// ListingURL is the public address of a listing.
func ListingURL(baseURL string, propertyID uuid.UUID) string {
	return strings.TrimRight(baseURL, "/") + "/properties/" + propertyID.String()
}

// ListingQRCode renders the listing URL as a PNG for printed posters.
func ListingQRCode(baseURL string, propertyID uuid.UUID) ([]byte, error) {
	return qrcode.Encode(ListingURL(baseURL, propertyID), qrcode.Medium, 256)
}
