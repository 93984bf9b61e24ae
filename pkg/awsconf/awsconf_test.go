package awsconf

import (
	"context"
	"testing"

	"github.com/voltlot/voltlot-backend/pkg/config"
)

func TestLoadUsesStaticCredentials(t *testing.T) {
	cfg, err := Load(context.Background(), config.AWSConfig{
		Region:          "ca-central-1",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Region != "ca-central-1" {
		t.Fatalf("unexpected region %q", cfg.Region)
	}
	creds, err := cfg.Credentials.Retrieve(context.Background())
	if err != nil {
		t.Fatalf("retrieve credentials: %v", err)
	}
	if creds.AccessKeyID != "AKIDEXAMPLE" {
		t.Fatalf("expected static credentials, got %q", creds.AccessKeyID)
	}
}

func TestRegionFallback(t *testing.T) {
	if got := region(config.AWSConfig{Region: "  "}); got != "us-east-1" {
		t.Fatalf("expected us-east-1 fallback, got %q", got)
	}
}
