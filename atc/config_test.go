package atc_test

import (
	"errors"
	"testing"
	"time"

	"i4.energy/across/atgw/atc"
)

func TestConfigBuilderRequiresDialer(t *testing.T) {
	_, err := atc.NewConfigBuilder().WithPollTimeout(time.Second).Build()
	if !errors.Is(err, atc.ErrNoDialer) {
		t.Errorf("expected ErrNoDialer, got %v", err)
	}
}

func TestConfigBuilderDefaults(t *testing.T) {
	config, err := atc.NewConfigBuilder().WithDialer(atc.NewTestTransport()).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.PollTimeout <= 0 {
		t.Error("expected a default poll timeout")
	}
	if config.Logger == nil {
		t.Error("expected a default logger")
	}
}
