package sab

import "testing"

func TestAudioRingChannelsAreIndependent(t *testing.T) {
	r := NewAudioRing()
	ch0 := r.Channel(0)
	ch1 := r.Channel(1)

	ch0[5] = 0.5
	ch1[5] = -0.25

	if ch0[5] != 0.5 {
		t.Fatalf("channel 0 slot 5 = %v, want 0.5", ch0[5])
	}
	if ch1[5] != -0.25 {
		t.Fatalf("channel 1 slot 5 = %v, want -0.25", ch1[5])
	}
}

func TestAudioRingChannelBounds(t *testing.T) {
	r := NewAudioRing()
	last := r.Channel(0)
	if len(last) != MaxHardwareBufferSize {
		t.Fatalf("channel length = %d, want %d", len(last), MaxHardwareBufferSize)
	}
}
