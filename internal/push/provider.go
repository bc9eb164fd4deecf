// Package push abstracts the platform push capability so the concrete
// provider is swappable in tests and across platforms.
package push

import "context"

// CapabilityProvider bridges to the platform's push permission and
// token issuance capability.
//
// CheckSupport reports domain.ErrDeviceUnsupported when push cannot
// work on this runtime. RequestPermission reports
// domain.ErrPermissionDenied when the user (or platform) declined;
// showDialog controls whether an undetermined state may surface a
// native prompt. FetchToken obtains a push-registration token from the
// platform push service. DeliverLocal presents an immediate
// device-local notification without going through the backend.
type CapabilityProvider interface {
	CheckSupport(ctx context.Context) error
	RequestPermission(ctx context.Context, showDialog bool) error
	FetchToken(ctx context.Context) (string, error)
	DeliverLocal(ctx context.Context, title, body string, data map[string]string) error
}
