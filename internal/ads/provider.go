package ads

import "context"

// Provider is the ad-serving SDK surface the controller drives. Both
// calls are fallible and possibly slow; the controller only decides
// WHETHER to call them, never how they render.
type Provider interface {
	// ShowInterstitial attempts to show an interstitial for a placement
	// and reports whether one was actually shown.
	ShowInterstitial(ctx context.Context, placementID string) (bool, error)

	// ShowRewarded attempts to show a rewarded ad and reports whether
	// the user completed it.
	ShowRewarded(ctx context.Context, placementID string) (bool, error)
}
