//go:build darwin

package permissions

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework AVFoundation
#import <AVFoundation/AVFoundation.h>

int checkMicrophonePermission() {
    AVAuthorizationStatus status = [AVCaptureDevice authorizationStatusForMediaType:AVMediaTypeAudio];
    return (int)status;
}

void requestMicrophonePermission() {
    [AVCaptureDevice requestAccessForMediaType:AVMediaTypeAudio completionHandler:^(BOOL granted) {}];
}
*/
import "C"

import (
	"context"
	"fmt"
	"time"
)

// how long to wait for the user to answer the system prompt
const promptTimeout = 60 * time.Second

// Microphone returns the current microphone permission status
func Microphone() Status {
	return Status(C.checkMicrophonePermission())
}

// EnsureMicrophone prompts for microphone access if it has not been decided
// yet and waits for the answer. A refusal or restriction returns ErrDenied.
func EnsureMicrophone(ctx context.Context) error {
	switch Microphone() {
	case Authorized:
		return nil
	case Denied, Restricted:
		return fmt.Errorf("%w: enable it in System Settings → Privacy & Security → Microphone", ErrDenied)
	}

	C.requestMicrophonePermission()

	ctx, cancel := context.WithTimeout(ctx, promptTimeout)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: no answer to the microphone prompt", ErrDenied)
		case <-ticker.C:
			switch Microphone() {
			case Authorized:
				return nil
			case Denied, Restricted:
				return ErrDenied
			}
		}
	}
}
