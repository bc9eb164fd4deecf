package domain

import "errors"

var (
	// ErrInvalidRequest means the caller supplied no way to resolve an
	// audience. Failed fast, no I/O was attempted.
	ErrInvalidRequest = errors.New("invalid dispatch request")

	// ErrPermissionDenied means the platform declined notification
	// permission. Terminal until the user changes device settings.
	ErrPermissionDenied = errors.New("notification permission denied")

	// ErrDeviceUnsupported means push is not available on this runtime.
	// Terminal for the session.
	ErrDeviceUnsupported = errors.New("push not supported on this device")

	// ErrTokenFetchFailed means the platform push service did not issue
	// a token. Eligible for manual or foreground retry.
	ErrTokenFetchFailed = errors.New("push token fetch failed")

	// ErrRegisterFailed means the backend rejected or never received
	// the token registration. The fetched token stays cached for retry.
	ErrRegisterFailed = errors.New("push token registration failed")

	// ErrDeliveryFailed means a backend notification send did not
	// succeed; the caller recovers with a local fallback record.
	ErrDeliveryFailed = errors.New("notification delivery failed")

	// ErrNoSession means no user identity is stored on the device.
	ErrNoSession = errors.New("no user session on device")
)
