//go:build !darwin

package permissions

import "context"

// Microphone always reports Authorized; access is governed by the audio
// server on these platforms.
func Microphone() Status {
	return Authorized
}

// EnsureMicrophone is a no-op on non-macOS platforms.
func EnsureMicrophone(ctx context.Context) error {
	return nil
}
