package enums

import "testing"

func TestParseListingStatus(t *testing.T) {
	status, err := ParseListingStatus("pending_review")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != ListingStatusPendingReview {
		t.Fatalf("unexpected status %s", status)
	}
	if _, err := ParseListingStatus("published"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestDeliveryStatusTerminal(t *testing.T) {
	if DeliveryStatusPending.IsTerminal() {
		t.Fatal("pending must not be terminal")
	}
	if !DeliveryStatusSent.IsTerminal() || !DeliveryStatusFailed.IsTerminal() {
		t.Fatal("sent and failed are terminal")
	}
}

func TestProvince(t *testing.T) {
	if !ProvinceQC.IsValid() || ProvinceQC.Name() != "Quebec" {
		t.Fatalf("unexpected province data for QC")
	}
	if _, err := ParseProvince("XX"); err == nil {
		t.Fatal("expected error for unknown province")
	}
}

func TestOptionalVehicleEnums(t *testing.T) {
	if !Drivetrain("").IsValid() || !ChargePort("").IsValid() {
		t.Fatal("empty optional values must be valid")
	}
	if Drivetrain("4WD").IsValid() {
		t.Fatal("4WD is not a supported drivetrain")
	}
	if !ChargePortCHAdeMO.IsValid() {
		t.Fatal("CHAdeMO must be valid")
	}
}

func TestUserRoleCanSell(t *testing.T) {
	if UserRoleBuyer.CanSell() {
		t.Fatal("buyers cannot sell")
	}
	if !UserRoleDealer.CanSell() {
		t.Fatal("dealers can sell")
	}
}
