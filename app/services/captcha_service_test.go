package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRotateCaptchaForTest(t *testing.T) (*captchaServiceImpl, CaptchaService) {
	t.Helper()
	svc, err := NewCaptchaServiceRotate(time.Minute, 10, 220)
	require.NoError(t, err)
	impl, ok := svc.(*captchaServiceImpl)
	require.True(t, ok)
	return impl, svc
}

func TestGenerateRotate(t *testing.T) {
	impl, svc := newRotateCaptchaForTest(t)
	ctx := context.Background()

	ch, err := svc.GenerateRotate(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, ch.ID)
	assert.NotEmpty(t, ch.MasterImageBase64)
	assert.NotEmpty(t, ch.ThumbImageBase64)

	entry, ok := impl.store.Get(ch.ID)
	require.True(t, ok)

	// Solving with the stored target angle passes and consumes the challenge
	assert.True(t, svc.VerifyRotate(ctx, ch.ID, float64(entry.targetAngle)))
	assert.False(t, svc.VerifyRotate(ctx, ch.ID, float64(entry.targetAngle)))
}

func TestVerifyRotateToleranceWindow(t *testing.T) {
	impl, svc := newRotateCaptchaForTest(t)
	ctx := context.Background()

	// padding is 10 degrees around a pinned target of 180
	tests := []struct {
		name      string
		userAngle float64
		want      bool
	}{
		{"exact angle", 180, true},
		{"slightly left of target", 175, true},
		{"slightly right of target", 185, true},
		{"fraction rounds into window", 184.4, true},
		{"far left of target", 135, false},
		{"far right of target", 225, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			impl.store.Set("window", challengeEntry{
				targetAngle: 180,
				expiresAt:   time.Now().Add(time.Minute),
			})
			assert.Equal(t, tt.want, svc.VerifyRotate(ctx, "window", tt.userAngle))
		})
	}
}

func TestVerifyRotateConsumesFailedAttempts(t *testing.T) {
	impl, svc := newRotateCaptchaForTest(t)
	ctx := context.Background()

	impl.store.Set("once", challengeEntry{
		targetAngle: 90,
		expiresAt:   time.Now().Add(time.Minute),
	})

	require.False(t, svc.VerifyRotate(ctx, "once", 300))
	// The failed attempt burned the challenge, so the right answer no longer helps
	assert.False(t, svc.VerifyRotate(ctx, "once", 90))
}

func TestVerifyRotateExpiredChallenge(t *testing.T) {
	impl, svc := newRotateCaptchaForTest(t)

	impl.store.Set("expired", challengeEntry{
		targetAngle: 90,
		expiresAt:   time.Now().Add(-time.Second),
	})
	assert.False(t, svc.VerifyRotate(context.Background(), "expired", 90))
}

func TestVerifyRotateUnknownChallenge(t *testing.T) {
	_, svc := newRotateCaptchaForTest(t)
	assert.False(t, svc.VerifyRotate(context.Background(), "never-issued", 90))
}
