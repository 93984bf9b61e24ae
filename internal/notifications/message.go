package notifications

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Delivery carries what the seller email needs about one inquiry.
type Delivery struct {
	InquiryID    uuid.UUID
	ListingTitle string
	City         string
	ProvinceName string
	SellerEmail  string
	BuyerName    string
	BuyerEmail   string
	BuyerPhone   string
	Message      string
}

// Message is a rendered plain-text email.
type Message struct {
	From    string
	To      []string
	ReplyTo string
	Subject string
	Body    string
}

// BuildMessage renders the seller notification for d.
func BuildMessage(d Delivery, from string) Message {
	phone := strings.TrimSpace(d.BuyerPhone)
	if phone == "" {
		phone = "N/A"
	}
	lines := []string{
		"A new inquiry was submitted for your listing on VoltLot.",
		"",
		"Listing: " + d.ListingTitle,
		fmt.Sprintf("Location: %s, %s", d.City, d.ProvinceName),
		"",
		"From:",
		"Name: " + d.BuyerName,
		"Email: " + d.BuyerEmail,
		"Phone: " + phone,
		"",
		"Message:",
		d.Message,
	}
	return Message{
		From:    from,
		To:      []string{strings.TrimSpace(d.SellerEmail)},
		ReplyTo: from,
		Subject: "New inquiry for " + d.ListingTitle,
		Body:    strings.Join(lines, "\n"),
	}
}
