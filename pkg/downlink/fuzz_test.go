// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package downlink

import (
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := time.Now().UnixNano()
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if s, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			seed = s
		}
	}
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// TestFuzzDecoder_RandomBytes feeds random bytes and checks decoded
// packets always carry a parseable length
func TestFuzzDecoder_RandomBytes(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)

	for i := 0; i < rounds; i++ {
		d := NewDecoder()
		data := make([]byte, rng.Intn(512)+1)
		rng.Read(data)

		for _, b := range data {
			p, _ := d.DecodeByte(b)
			if p != nil && int(p.Length()) != len(p.Payload()) {
				t.Fatalf("Round %d: length %d but payload %d bytes", i, p.Length(), len(p.Payload()))
			}
		}
	}
}

// TestFuzzDecoder_RandomMessages round-trips random telemetry back to back
func TestFuzzDecoder_RandomMessages(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	d := NewDecoder()

	for i := 0; i < rounds; i++ {
		sender := uint8(rng.Intn(256))
		want := SHTStatus{
			HumidityTicks:    uint16(rng.Intn(1 << 16)),
			TemperatureTicks: uint16(rng.Intn(1 << 16)),
			Humidity:         rng.Float32() * 100,
			Temperature:      rng.Float32()*160 - 40,
		}

		data, err := EncodePacketFromValues(sender, MsgSHTStatus, want.Payload())
		if err != nil {
			t.Fatalf("Round %d: encode: %v", i, err)
		}
		packets, errs := decodeAll(d, data)
		if len(errs) != 0 || len(packets) != 1 {
			t.Fatalf("Round %d: packets=%d errs=%v", i, len(packets), errs)
		}
		got, err := ParseSHTStatus(packets[0])
		if err != nil {
			t.Fatalf("Round %d: parse: %v", i, err)
		}
		if got != want || packets[0].Sender() != sender {
			t.Errorf("Round %d: expected %+v from %d, got %+v from %d", i, want, sender, got, packets[0].Sender())
		}
	}
}
