package promo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screa/promokey/pkg/keyenc"
	"github.com/screa/promokey/pkg/types"
)

func TestGoldenVector(t *testing.T) {
	if testing.Short() {
		t.Skip("full-strength derivation")
	}

	d, err := NewDeriver()
	require.NoError(t, err)
	require.Equal(t, uint64(12_500_000), d.Target())
	require.Equal(t, byte(212), d.Version())

	key, err := d.Derive(context.Background(), NewPromoCode("HappyEaster23"))
	require.NoError(t, err)
	assert.Equal(t, "7cbb8c334b97aa9f70618aa54eb4e586ded9d4a52e5e1e97b2e8b0165c041725",
		hex.EncodeToString(key.Bytes[:]))
	assert.Equal(t, "YS797k2jKjQZSS2jyMem19DhAZv8PNDoCeJiBSMaqasFxLL3iLS9", key.WIF)
}

func TestDeriveSmallTarget(t *testing.T) {
	key, err := Derive(context.Background(), "HappyEaster23", WithTarget(1000), WithMinTarget(1))
	require.NoError(t, err)

	assert.Equal(t, "YTNuZ1SrRffSiWmQfLFZmVGi6sU5DyDCogR8haMCXLM1uGvQ5wdT", key.WIF)
	assert.Equal(t, uint64(1000), key.Target)
	assert.Equal(t, keyenc.DefaultVersion, key.Version)
}

func TestDeriveTargetOne(t *testing.T) {
	key, err := Derive(context.Background(), "HappyEaster23", WithTarget(1), WithMinTarget(1))
	require.NoError(t, err)

	want := sha256.Sum256([]byte("HappyEaster23"))
	assert.Equal(t, want, key.Bytes)
	assert.Equal(t, "YUcWxXXxRb9agVxFC3D82repVZyCexzAxu1uFN14QyHeS7CR37D6", key.WIF)
}

func TestDeriveDeterministic(t *testing.T) {
	d, err := NewDeriver(WithTarget(2000), WithMinTarget(1))
	require.NoError(t, err)

	a, err := d.Derive(context.Background(), NewPromoCode("Ünïcödé ✓"))
	require.NoError(t, err)
	b, err := d.Derive(context.Background(), NewPromoCode("Ünïcödé ✓"))
	require.NoError(t, err)

	assert.Equal(t, a.Bytes, b.Bytes)
	assert.Equal(t, a.WIF, b.WIF)
}

func TestDeriveVersion(t *testing.T) {
	key, err := Derive(context.Background(), "HappyEaster23",
		WithTarget(1000), WithMinTarget(1), WithVersion(0x80))
	require.NoError(t, err)
	assert.Equal(t, "L2fwXTBHikhts3etCy6YtsKoCNbH6pS98a6BhRFFH93EFUDNsrTg", key.WIF)

	decoded, err := keyenc.Decode(key.WIF)
	require.NoError(t, err)
	assert.Equal(t, byte(0x80), decoded.Version)
	assert.Equal(t, key.Bytes, decoded.Key)
}

func TestScheduleCurrentTargetUsed(t *testing.T) {
	sched := types.NewSchedule(500, 1000)
	d, err := NewDeriver(WithSchedule(sched), WithMinTarget(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), d.Target())

	historical, err := sched.At(0)
	require.NoError(t, err)
	old, err := NewDeriver(WithSchedule(sched), WithTarget(historical), WithMinTarget(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(500), old.Target())
}

func TestNewDeriverRejects(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr error
	}{
		{"override below floor", []Option{WithTarget(10)}, ErrTargetTooSmall},
		{"schedule below floor", []Option{WithSchedule(types.NewSchedule(100))}, ErrTargetTooSmall},
		{"empty schedule", []Option{WithSchedule(types.NewSchedule())}, types.ErrEmptySchedule},
		{"zero in schedule", []Option{WithSchedule(types.NewSchedule(0, 5))}, types.ErrZeroTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDeriver(tt.opts...)
			assert.Nil(t, d)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDeriveProgress(t *testing.T) {
	var fromOption, fromCall []int
	d, err := NewDeriver(WithTarget(1000), WithMinTarget(1),
		WithObserver(func(ev types.ProgressEvent) { fromOption = append(fromOption, ev.Percent) }))
	require.NoError(t, err)

	_, err = d.Derive(context.Background(), NewPromoCode("x"),
		func(ev types.ProgressEvent) { fromCall = append(fromCall, ev.Percent) })
	require.NoError(t, err)

	require.Len(t, fromOption, 100)
	assert.Equal(t, fromOption, fromCall)
	assert.Equal(t, 100, fromOption[99])
}

func TestDeriveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	key, err := Derive(ctx, "x", WithTarget(1000), WithMinTarget(1))
	assert.Nil(t, key)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPromoCode(t *testing.T) {
	p := NewPromoCode("héllo")
	assert.Equal(t, "héllo", p.String())
	assert.Equal(t, []byte{'h', 0xc3, 0xa9, 'l', 'l', 'o'}, p.Bytes())
}

func TestMinTargetAppliesToChosenTarget(t *testing.T) {
	sched := types.NewSchedule(500, 2_000_000)

	d, err := NewDeriver(WithSchedule(sched))
	require.NoError(t, err)
	assert.Equal(t, uint64(2_000_000), d.Target())

	_, err = NewDeriver(WithSchedule(sched), WithTarget(500))
	assert.ErrorIs(t, err, ErrTargetTooSmall)
}
