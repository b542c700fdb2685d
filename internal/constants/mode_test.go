package constants

import "testing"

func TestMode_String(t *testing.T) {
	if got := ModeDriven.String(); got != "driven" {
		t.Errorf("ModeDriven.String() = %q, want %q", got, "driven")
	}
}

func TestNetPublishGainIsPositive(t *testing.T) {
	if PublishReward-PublishStake <= 0 {
		t.Errorf("PublishReward-PublishStake = %d, want > 0", PublishReward-PublishStake)
	}
}
