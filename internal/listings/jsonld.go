package listings

import (
	"strconv"
	"strings"

	"github.com/voltlot/voltlot-backend/pkg/db/models"
	"github.com/voltlot/voltlot-backend/pkg/enums"
)

var driveConfigurations = map[enums.Drivetrain]string{
	enums.DrivetrainFWD: "https://schema.org/FrontWheelDriveConfiguration",
	enums.DrivetrainRWD: "https://schema.org/RearWheelDriveConfiguration",
	enums.DrivetrainAWD: "https://schema.org/AllWheelDriveConfiguration",
}

// BuildVehicleJSONLD renders schema.org Vehicle metadata for a public
// listing page. detailURL is the canonical page URL; imageURLs are absolute.
func BuildVehicleJSONLD(listing *models.Listing, detailURL string, imageURLs []string) map[string]any {
	name := strings.TrimSpace(listing.Title)
	if name == "" {
		name = strings.TrimSpace(strings.Join([]string{itoa(listing.Year), listing.Make, listing.Model}, " "))
	}
	doc := map[string]any{
		"@context": "https://schema.org",
		"@type":    "Vehicle",
		"name":     name,
		"url":      detailURL,
		"fuelType": "Electric",
		"sku":      listing.ID.String(),
	}

	if listing.Description != "" {
		doc["description"] = listing.Description
	}
	if images := dedupe(imageURLs); len(images) > 0 {
		doc["image"] = images
	}
	if listing.Make != "" {
		doc["brand"] = map[string]any{"@type": "Brand", "name": listing.Make}
	}
	if listing.Model != "" {
		doc["model"] = listing.Model
	}
	if listing.Trim != "" {
		doc["vehicleConfiguration"] = listing.Trim
	}
	if listing.Year != 0 {
		doc["vehicleModelDate"] = listing.Year
	}
	if listing.ExteriorColor != "" {
		doc["color"] = listing.ExteriorColor
	}
	if listing.VIN != "" {
		doc["vehicleIdentificationNumber"] = listing.VIN
	}
	if cfg, ok := driveConfigurations[listing.Drivetrain]; ok {
		doc["driveWheelConfiguration"] = cfg
	}
	if listing.MileageKM > 0 {
		doc["mileageFromOdometer"] = kilometres(listing.MileageKM)
	}
	if listing.RangeKM != nil && *listing.RangeKM > 0 {
		doc["vehicleRange"] = kilometres(*listing.RangeKM)
	}
	if listing.BatteryCapacity != nil && !listing.BatteryCapacity.IsZero() {
		doc["batteryCapacity"] = listing.BatteryCapacity.String()
	}

	if address := postalAddress(listing.City, listing.Province); address != nil {
		doc["address"] = address
	}

	if listing.Price.IsPositive() {
		availability := "https://schema.org/PreOrder"
		if listing.Status == enums.ListingStatusApproved {
			availability = "https://schema.org/InStock"
		}
		offer := map[string]any{
			"@type":         "Offer",
			"price":         listing.Price.StringFixed(2),
			"priceCurrency": "CAD",
			"url":           detailURL,
			"availability":  availability,
			"itemCondition": "https://schema.org/UsedCondition",
		}
		if listing.ExpiresAt != nil {
			offer["priceValidUntil"] = listing.ExpiresAt.UTC().Format("2006-01-02")
		}
		doc["offers"] = offer
	}

	if seller := sellerNode(listing); seller != nil {
		doc["seller"] = seller
	}
	return doc
}

func sellerNode(listing *models.Listing) map[string]any {
	if dealer := listing.Dealer; dealer != nil && dealer.Name != "" {
		node := map[string]any{"@type": "AutoDealer", "name": dealer.Name}
		if dealer.Website != "" {
			node["url"] = dealer.Website
		}
		if address := postalAddress(dealer.City, dealer.Province); address != nil {
			node["address"] = address
		}
		return node
	}
	if address := postalAddress(listing.City, listing.Province); address != nil {
		return map[string]any{"@type": "Person", "name": "Private Seller", "address": address}
	}
	return nil
}

func postalAddress(city string, province enums.Province) map[string]any {
	if city == "" && province == "" {
		return nil
	}
	address := map[string]any{"@type": "PostalAddress", "addressCountry": "CA"}
	if city != "" {
		address["addressLocality"] = city
	}
	if province != "" {
		address["addressRegion"] = province.Name()
	}
	return address
}

func kilometres(value int) map[string]any {
	return map[string]any{"@type": "QuantitativeValue", "value": value, "unitCode": "KMT"}
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func itoa(year int) string {
	if year == 0 {
		return ""
	}
	return strconv.Itoa(year)
}
